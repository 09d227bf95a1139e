package postgres

import (
	"context"

	"github.com/baharkarakas/custodial-ledger/internal/models"
	repo "github.com/baharkarakas/custodial-ledger/internal/repository"
)

type balancesRepo struct{ *db }

func (r *balancesRepo) GetOrCreate(ctx context.Context, userID string) (models.Balance, error) {
	if b, err := r.Get(ctx, userID); err == nil {
		return b, nil
	}
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO balances(user_id, amount, last_updated_at)
		 VALUES($1, 0, now())
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return models.Balance{}, mapErr("create balance "+userID, err)
	}
	return r.Get(ctx, userID)
}

func (r *balancesRepo) Adjust(ctx context.Context, userID string, delta int64) (models.Balance, error) {
	var b models.Balance
	err := r.withTx(ctx, func(tx repo.Tx) error {
		var err error
		b, err = tx.AdjustBalance(ctx, userID, delta)
		return err
	})
	return b, err
}

func (r *balancesRepo) Get(ctx context.Context, userID string) (models.Balance, error) {
	var b models.Balance
	err := r.pool.QueryRow(
		ctx,
		`SELECT user_id, amount, last_updated_at
		   FROM balances
		  WHERE user_id=$1`,
		userID,
	).Scan(&b.UserID, &b.Amount, &b.LastUpdatedAt)
	return b, mapErr("balance "+userID, err)
}
