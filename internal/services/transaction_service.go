package services

import (
	"context"
	"fmt"
	"html"
	"iter"
	"log/slog"
	"strings"

	"github.com/baharkarakas/custodial-ledger/internal/config"
	"github.com/baharkarakas/custodial-ledger/internal/metrics"
	"github.com/baharkarakas/custodial-ledger/internal/models"
	"github.com/baharkarakas/custodial-ledger/internal/realtime"
	repo "github.com/baharkarakas/custodial-ledger/internal/repository"
	"github.com/baharkarakas/custodial-ledger/internal/validate"
)

const defaultPageSize = 50

// Announcer posts a fire-and-forget notice to the operator channel.
type Announcer interface {
	Announce(text string)
}

type nopAnnouncer struct{}

func (nopAnnouncer) Announce(string) {}

// TransactionService is the Transaction Ledger: it records requests and serves reads.
// It never changes a terminal record; decisions go through ApprovalEngine.
type TransactionService struct {
	trx      repo.Transactions
	bal      *BalanceService
	users    repo.Users
	audit    repo.AuditLogs
	notifier realtime.Notifier
	ops      Announcer
	policy   config.Policy
	pageSize int
}

func NewTransactionService(r repo.Repositories, bal *BalanceService, n realtime.Notifier, ops Announcer, p config.Policy) *TransactionService {
	if ops == nil {
		ops = nopAnnouncer{}
	}
	return &TransactionService{
		trx:      r.Transactions,
		bal:      bal,
		users:    r.Users,
		audit:    r.AuditLogs,
		notifier: n,
		ops:      ops,
		policy:   p,
		pageSize: defaultPageSize,
	}
}

// ----------------- Helpers -----------------

func (s *TransactionService) bounds(kind models.TransactionKind) (int64, int64) {
	if kind == models.KindWithdraw {
		return s.policy.WithdrawMin, s.policy.WithdrawMax
	}
	return s.policy.DepositMin, s.policy.DepositMax
}

func (s *TransactionService) validate(req models.SubmitRequest) error {
	if !req.Kind.IsValid() {
		return validate.Collect(&models.FieldError{Field: "kind", Msg: "must be deposit or withdraw"})
	}
	min, max := s.bounds(req.Kind)
	var method *models.FieldError
	if req.Method != "" {
		method = validate.OneOf("method", req.Method, models.Methods)
	}
	return validate.Collect(
		validate.MinInt("amount", req.Amount, min),
		validate.MaxInt("amount", req.Amount, max),
		validate.MaxLen("note", req.Note, s.policy.NoteMaxLen),
		method,
	)
}

func (s *TransactionService) auditCreated(ctx context.Context, tx models.Transaction) {
	id := tx.ID
	err := s.audit.Create(ctx, models.AuditLog{
		EntityType: "transaction",
		EntityID:   &id,
		Action:     "created",
		Details:    map[string]any{"kind": tx.Kind, "amount": tx.Amount, "account_id": tx.AccountID},
	})
	if err != nil {
		slog.Warn("audit write failed", "tx_id", tx.ID, "err", err)
	}
}

// ----------------- Submit -----------------

// Submit records a pending deposit or withdraw request for accountID.
// The withdraw balance check here is an early rejection only; ApprovalEngine re-checks on approval.
func (s *TransactionService) Submit(ctx context.Context, accountID string, req models.SubmitRequest) (models.Transaction, error) {
	req.Note = strings.TrimSpace(req.Note)
	if err := s.validate(req); err != nil {
		return models.Transaction{}, err
	}

	u, err := s.users.GetByID(ctx, accountID)
	if err != nil {
		return models.Transaction{}, err
	}
	if !u.IsActive {
		return models.Transaction{}, fmt.Errorf("account %s: %w", accountID, models.ErrInactiveAccount)
	}

	if req.Kind == models.KindWithdraw {
		b, err := s.bal.Current(ctx, accountID)
		if err != nil {
			return models.Transaction{}, err
		}
		if b.Amount < req.Amount {
			return models.Transaction{}, validate.Collect(&models.FieldError{Field: "amount", Msg: "insufficient balance"})
		}
	}

	tx, err := s.trx.Create(ctx, models.Transaction{
		AccountID: accountID,
		Kind:      req.Kind,
		Amount:    req.Amount,
		Method:    req.Method,
		Status:    models.TxnPending,
		Note:      req.Note,
	})
	if err != nil {
		return models.Transaction{}, err
	}
	s.auditCreated(ctx, tx)
	metrics.SubmissionsTotal.WithLabelValues(string(tx.Kind)).Inc()
	slog.Info("request submitted", "tx_id", tx.ID, "account_id", accountID, "kind", tx.Kind, "amount", tx.Amount)

	ev := models.Event{
		AccountID:     accountID,
		Kind:          models.EventPending,
		TransactionID: tx.ID,
		TxKind:        tx.Kind,
		Amount:        tx.Amount,
		At:            tx.CreatedAt,
	}
	// re-read so the push never carries a balance older than this request
	if b, err := s.bal.Current(ctx, accountID); err == nil {
		ev.NewBalance = &b.Amount
	}
	s.notifier.Notify(ctx, ev)
	s.ops.Announce(fmt.Sprintf("<b>New %s request</b>\n<b>User:</b> %s\n<b>Amount:</b> %d\n<b>Method:</b> %s\n<b>Note:</b> %s",
		tx.Kind, html.EscapeString(u.Username), tx.Amount, html.EscapeString(tx.Method), html.EscapeString(tx.Note)))
	return tx, nil
}

// ----------------- Queries -----------------

func (s *TransactionService) Get(ctx context.Context, id string) (models.Transaction, error) {
	return s.trx.GetByID(ctx, id)
}

func (s *TransactionService) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.trx.ListByUser(ctx, accountID, limit, offset)
}

// ListPending yields pending requests newest first, fetching one page at a time.
// Every range over the returned sequence starts again from the newest request.
func (s *TransactionService) ListPending(ctx context.Context) iter.Seq2[models.Transaction, error] {
	return func(yield func(models.Transaction, error) bool) {
		var cursor *repo.PageCursor
		for {
			page, err := s.trx.ListPending(ctx, cursor, s.pageSize)
			if err != nil {
				yield(models.Transaction{}, err)
				return
			}
			for _, t := range page {
				if !yield(t, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			last := page[len(page)-1]
			cursor = &repo.PageCursor{CreatedAt: last.CreatedAt, ID: last.ID}
		}
	}
}
