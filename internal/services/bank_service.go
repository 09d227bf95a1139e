package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/baharkarakas/custodial-ledger/internal/models"
	repo "github.com/baharkarakas/custodial-ledger/internal/repository"
	"github.com/baharkarakas/custodial-ledger/internal/validate"
)

// BankService manages the receiving accounts shown to users for deposits.
type BankService struct {
	banks repo.Banks
	audit repo.AuditLogs
}

func NewBankService(r repo.Repositories) *BankService {
	return &BankService{banks: r.Banks, audit: r.AuditLogs}
}

// Create adds a receiving account. Only operators may do this.
func (s *BankService) Create(ctx context.Context, op models.Operator, b models.Bank) (models.Bank, error) {
	if !op.IsOperator {
		return models.Bank{}, models.ErrForbidden
	}
	b.ID = ""
	b.AccountName = strings.TrimSpace(b.AccountName)
	b.AccountNum = strings.TrimSpace(b.AccountNum)
	err := validate.Collect(
		validate.OneOf("name", b.Name, models.Methods),
		validate.MinLen("account_name", b.AccountName, 2),
		validate.MaxLen("account_name", b.AccountName, 100),
		validate.Required("account_num", b.AccountNum),
		validate.Digits("account_num", b.AccountNum),
		validate.MaxLen("account_num", b.AccountNum, 30),
	)
	if err != nil {
		return models.Bank{}, err
	}

	b, err = s.banks.Create(ctx, b)
	if err != nil {
		return models.Bank{}, err
	}
	s.auditBank(ctx, b.ID, "created", map[string]any{"operator_id": op.ID, "name": b.Name, "account_num": b.AccountNum})
	slog.Info("bank created", "bank_id", b.ID, "name", b.Name, "operator_id", op.ID)
	return b, nil
}

// List returns banks by name. Users only ever see active ones.
func (s *BankService) List(ctx context.Context, activeOnly bool) ([]models.Bank, error) {
	return s.banks.List(ctx, activeOnly)
}

func (s *BankService) SetActive(ctx context.Context, op models.Operator, id string, active bool) (models.Bank, error) {
	if !op.IsOperator {
		return models.Bank{}, models.ErrForbidden
	}
	b, err := s.banks.SetActive(ctx, id, active)
	if err != nil {
		return models.Bank{}, err
	}
	action := "deactivated"
	if active {
		action = "activated"
	}
	s.auditBank(ctx, id, action, map[string]any{"operator_id": op.ID})
	slog.Info("bank "+action, "bank_id", id, "operator_id", op.ID)
	return b, nil
}

func (s *BankService) auditBank(ctx context.Context, id, action string, details map[string]any) {
	if err := s.audit.Create(ctx, models.AuditLog{EntityType: "bank", EntityID: &id, Action: action, Details: details}); err != nil {
		slog.Warn("audit write failed", "bank_id", id, "err", err)
	}
}
