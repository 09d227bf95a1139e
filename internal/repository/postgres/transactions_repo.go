package postgres

import (
	"context"

	"github.com/baharkarakas/custodial-ledger/internal/models"
	repo "github.com/baharkarakas/custodial-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type transactionsRepo struct{ *db }

const txnColumns = `id, account_id, kind, amount, COALESCE(method, ''), status, note, created_at, decided_at, decided_by`

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(&tx.ID, &tx.AccountID, &tx.Kind, &tx.Amount, &tx.Method, &tx.Status, &tx.Note, &tx.CreatedAt, &tx.DecidedAt, &tx.DecidedBy)
	return tx, err
}

func (r *transactionsRepo) Create(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	const q = `
INSERT INTO transactions (id, account_id, kind, amount, method, status, note)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
RETURNING ` + txnColumns
	out, err := scanTransaction(r.pool.QueryRow(ctx, q,
		tx.ID, tx.AccountID, tx.Kind, tx.Amount, tx.Method, tx.Status, tx.Note,
	))
	return out, mapErr("create transaction", err)
}

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Transaction{}, mapErr("transaction "+id, pgx.ErrNoRows)
	}
	tx, err := scanTransaction(r.pool.QueryRow(ctx, `SELECT `+txnColumns+` FROM transactions WHERE id=$1`, id))
	return tx, mapErr("transaction "+id, err)
}

func (r *transactionsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnColumns+`
		   FROM transactions
		  WHERE account_id=$1
		  ORDER BY created_at DESC, id DESC
		  LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, mapErr("list transactions", err)
	}
	return collect(rows)
}

func (r *transactionsRepo) ListPending(ctx context.Context, after *repo.PageCursor, limit int) ([]models.Transaction, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if after == nil {
		rows, err = r.pool.Query(ctx,
			`SELECT `+txnColumns+`
			   FROM transactions
			  WHERE status='pending'
			  ORDER BY created_at DESC, id DESC
			  LIMIT $1`, limit)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT `+txnColumns+`
			   FROM transactions
			  WHERE status='pending' AND (created_at, id) < ($1, $2::uuid)
			  ORDER BY created_at DESC, id DESC
			  LIMIT $3`, after.CreatedAt, after.ID, limit)
	}
	if err != nil {
		return nil, mapErr("list pending", err)
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]models.Transaction, error) {
	defer rows.Close()
	var out []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// WithTx runs fn as one serializable unit of work.
func (r *transactionsRepo) WithTx(ctx context.Context, fn func(repo.Tx) error) error {
	return r.withTx(ctx, fn)
}
