package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/baharkarakas/custodial-ledger/internal/metrics"
	"github.com/baharkarakas/custodial-ledger/internal/models"
	"github.com/baharkarakas/custodial-ledger/internal/realtime"
	repo "github.com/baharkarakas/custodial-ledger/internal/repository"
)

// ApprovalEngine applies operator decisions to pending transactions.
//
// A decision runs as one unit of work: the transaction row is locked, its status checked, the
// balance adjusted (approve only) and the terminal status written. Either all of it commits or
// none of it does, so a retried or concurrent decision sees AlreadyDecided and money never moves
// twice. Withdrawals re-check the balance inside the unit of work; on failure the transaction
// stays pending.
type ApprovalEngine struct {
	trx         repo.Transactions
	bal         *BalanceService
	notifier    realtime.Notifier
	maxAttempts int
	baseDelay   time.Duration
	now         func() time.Time
}

func NewApprovalEngine(r repo.Repositories, bal *BalanceService, n realtime.Notifier, maxAttempts int) *ApprovalEngine {
	return &ApprovalEngine{
		trx:         r.Transactions,
		bal:         bal,
		notifier:    n,
		maxAttempts: maxAttempts,
		baseDelay:   defaultBaseDelay,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Decide moves transaction id from pending to approved or rejected on behalf of op.
func (e *ApprovalEngine) Decide(ctx context.Context, op models.Operator, id string, decision models.Decision) (models.Transaction, error) {
	if !op.IsOperator {
		return models.Transaction{}, fmt.Errorf("decide %s: %w", id, models.ErrForbidden)
	}
	if _, err := models.ParseDecision(string(decision)); err != nil {
		return models.Transaction{}, err
	}

	var (
		out        models.Transaction
		newBalance *int64
	)
	err := retryConflicts(ctx, e.maxAttempts, e.baseDelay, func() error {
		newBalance = nil
		return e.trx.WithTx(ctx, func(tx repo.Tx) error {
			cur, err := tx.LockTransaction(ctx, id)
			if err != nil {
				return err
			}
			if cur.Status != models.TxnPending {
				return fmt.Errorf("transaction %s is %s: %w", id, cur.Status, models.ErrAlreadyDecided)
			}

			if decision == models.DecisionApprove {
				b, err := tx.AdjustBalance(ctx, cur.AccountID, cur.Kind.Sign()*cur.Amount)
				if err != nil {
					return err
				}
				newBalance = &b.Amount
			}

			out, err = tx.SetDecision(ctx, id, decision.Status(), e.now(), op.ID)
			if err != nil {
				return err
			}

			txID := id
			return tx.AppendAudit(ctx, models.AuditLog{
				EntityType: "transaction",
				EntityID:   &txID,
				Action:     "status_change",
				Details: map[string]any{
					"from":        models.TxnPending,
					"to":          out.Status,
					"operator_id": op.ID,
					"amount":      out.Amount,
					"kind":        out.Kind,
				},
			})
		})
	})
	if err != nil {
		e.recordFailure(id, decision, err)
		return models.Transaction{}, err
	}

	metrics.DecisionsTotal.WithLabelValues(string(out.Kind), string(decision)).Inc()
	slog.Info("transaction decided", "tx_id", out.ID, "account_id", out.AccountID, "status", out.Status, "operator_id", op.ID)

	if newBalance == nil {
		// rejected: push the balance as it is now, never a value carried from submission
		if b, err := e.bal.Current(ctx, out.AccountID); err == nil {
			newBalance = &b.Amount
		}
	}
	at := e.now()
	if out.DecidedAt != nil {
		at = *out.DecidedAt
	}
	e.notifier.Notify(ctx, models.Event{
		AccountID:     out.AccountID,
		Kind:          models.EventKindFor(out.Status),
		TransactionID: out.ID,
		TxKind:        out.Kind,
		Amount:        out.Amount,
		NewBalance:    newBalance,
		At:            at,
	})
	return out, nil
}

func (e *ApprovalEngine) recordFailure(id string, decision models.Decision, err error) {
	reason := "other"
	switch {
	case errors.Is(err, models.ErrNotFound):
		reason = "not_found"
	case errors.Is(err, models.ErrAlreadyDecided):
		reason = "already_decided"
	case errors.Is(err, models.ErrInsufficientFunds):
		reason = "insufficient_funds"
	case errors.Is(err, models.ErrStorage):
		reason = "storage"
	}
	metrics.DecisionsFailed.WithLabelValues(reason).Inc()
	if reason == "other" || reason == "storage" {
		slog.Error("decide failed", "tx_id", id, "decision", decision, "err", err)
		return
	}
	slog.Info("decide refused", "tx_id", id, "decision", decision, "reason", reason)
}
