package postgres

import (
	"context"

	"github.com/baharkarakas/custodial-ledger/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type statsRepo struct{ pool *pgxpool.Pool }

func (r *statsRepo) Stats(ctx context.Context) (models.Stats, error) {
	var st models.Stats
	err := r.pool.QueryRow(ctx, `
SELECT
  (SELECT count(*) FROM users WHERE is_active),
  (SELECT count(*) FROM users),
  (SELECT COALESCE(sum(amount), 0)::bigint FROM balances),
  (SELECT COALESCE(sum(amount), 0)::bigint FROM transactions WHERE kind='withdraw' AND status='approved'),
  (SELECT count(*) FROM transactions WHERE status='pending')`,
	).Scan(&st.ActiveUsers, &st.TotalUsers, &st.TotalBalance, &st.TotalApprovedWithdraw, &st.PendingCount)
	return st, mapErr("stats", err)
}
