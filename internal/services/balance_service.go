package services

import (
	"context"
	"errors"

	"github.com/baharkarakas/custodial-ledger/internal/models"
	repo "github.com/baharkarakas/custodial-ledger/internal/repository"
)

// BalanceService is the read side of the Account Store. Balances only move inside
// ApprovalEngine's unit of work.
type BalanceService struct {
	r repo.Balances
}

func NewBalanceService(r repo.Balances) *BalanceService {
	return &BalanceService{r: r}
}

// Current is a point-in-time read. An account that never had money reads as zero.
// It is advisory only; authoritative checks happen when a decision is applied.
func (s *BalanceService) Current(ctx context.Context, userID string) (models.Balance, error) {
	b, err := s.r.Get(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return models.Balance{UserID: userID}, nil
	}
	return b, err
}

// Open creates the zero balance row for a new account. It is idempotent.
func (s *BalanceService) Open(ctx context.Context, userID string) (models.Balance, error) {
	return s.r.GetOrCreate(ctx, userID)
}
