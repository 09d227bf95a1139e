package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/custodial-ledger/internal/models"
	repo "github.com/baharkarakas/custodial-ledger/internal/repository"
)

type db struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// withTx runs fn inside one serializable pgx transaction.
func (d *db) withTx(ctx context.Context, fn func(repo.Tx) error) error {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return mapErr("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if d.lockTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", d.lockTimeout.Milliseconds())); err != nil {
			return mapErr("lock_timeout", err)
		}
	}
	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return mapErr("commit", tx.Commit(ctx))
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) LockTransaction(ctx context.Context, id string) (models.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Transaction{}, mapErr("transaction "+id, pgx.ErrNoRows)
	}
	row := t.tx.QueryRow(ctx, `SELECT `+txnColumns+` FROM transactions WHERE id=$1 FOR UPDATE`, id)
	tr, err := scanTransaction(row)
	return tr, mapErr("lock transaction "+id, err)
}

func (t *pgTx) AdjustBalance(ctx context.Context, userID string, delta int64) (models.Balance, error) {
	var b models.Balance
	if _, err := uuid.Parse(userID); err != nil {
		return b, mapErr("balance "+userID, pgx.ErrNoRows)
	}
	// first movement for a registered account opens its balance at zero
	if _, err := t.tx.Exec(ctx,
		`INSERT INTO balances(user_id, amount, last_updated_at)
		 VALUES($1, 0, now())
		 ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return b, mapErr("open balance "+userID, err)
	}

	err := t.tx.QueryRow(ctx,
		`UPDATE balances
		    SET amount = amount + $2,
		        last_updated_at = now()
		  WHERE user_id = $1 AND amount + $2 >= 0
		  RETURNING user_id, amount, last_updated_at`,
		userID, delta,
	).Scan(&b.UserID, &b.Amount, &b.LastUpdatedAt)
	if err == nil {
		return b, nil
	}
	if err != pgx.ErrNoRows {
		return b, mapErr("adjust balance "+userID, err)
	}

	// the row exists now, so no update means the guard refused the delta
	err = t.tx.QueryRow(ctx,
		`SELECT user_id, amount, last_updated_at FROM balances WHERE user_id=$1 FOR UPDATE`, userID,
	).Scan(&b.UserID, &b.Amount, &b.LastUpdatedAt)
	if err != nil {
		return b, mapErr("adjust balance "+userID, err)
	}
	return b, fmt.Errorf("balance %s has %d, needs %d: %w", userID, b.Amount, -delta, models.ErrInsufficientFunds)
}

func (t *pgTx) SetDecision(ctx context.Context, id string, status models.TransactionStatus, decidedAt time.Time, decidedBy string) (models.Transaction, error) {
	row := t.tx.QueryRow(ctx,
		`UPDATE transactions
		    SET status=$2, decided_at=$3, decided_by=$4
		  WHERE id=$1 AND status='pending'
		  RETURNING `+txnColumns,
		id, status, decidedAt, decidedBy,
	)
	tr, err := scanTransaction(row)
	if err == pgx.ErrNoRows {
		return tr, fmt.Errorf("transaction %s: %w", id, models.ErrAlreadyDecided)
	}
	return tr, mapErr("set decision "+id, err)
}

func (t *pgTx) AppendAudit(ctx context.Context, l models.AuditLog) error {
	return insertAudit(ctx, t.tx, l)
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertAudit(ctx context.Context, q execer, l models.AuditLog) error {
	details, err := json.Marshal(l.Details)
	if err != nil {
		return fmt.Errorf("audit details: %w", err)
	}
	_, err = q.Exec(ctx,
		`INSERT INTO audit_logs(entity_type, entity_id, action, details) VALUES($1,$2,$3,$4)`,
		l.EntityType, l.EntityID, l.Action, details)
	return mapErr("audit", err)
}
