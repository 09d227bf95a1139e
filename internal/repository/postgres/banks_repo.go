package postgres

import (
	"context"

	"github.com/baharkarakas/custodial-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type banksRepo struct{ pool *pgxpool.Pool }

const bankColumns = `id, name, account_name, account_num, is_active, created_at, updated_at`

func scanBank(row pgx.Row) (models.Bank, error) {
	var b models.Bank
	err := row.Scan(&b.ID, &b.Name, &b.AccountName, &b.AccountNum, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (r *banksRepo) Create(ctx context.Context, b models.Bank) (models.Bank, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	out, err := scanBank(r.pool.QueryRow(ctx,
		`INSERT INTO banks(id, name, account_name, account_num, is_active)
		 VALUES($1,$2,$3,$4,$5)
		 RETURNING `+bankColumns,
		b.ID, b.Name, b.AccountName, b.AccountNum, b.IsActive,
	))
	return out, mapErr("create bank", err)
}

func (r *banksRepo) List(ctx context.Context, activeOnly bool) ([]models.Bank, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bankColumns+`
		   FROM banks
		  WHERE is_active OR NOT $1
		  ORDER BY name ASC, created_at ASC`, activeOnly)
	if err != nil {
		return nil, mapErr("list banks", err)
	}
	defer rows.Close()

	var out []models.Bank
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *banksRepo) SetActive(ctx context.Context, id string, active bool) (models.Bank, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Bank{}, mapErr("bank "+id, pgx.ErrNoRows)
	}
	b, err := scanBank(r.pool.QueryRow(ctx,
		`UPDATE banks SET is_active=$2, updated_at=now()
		  WHERE id=$1
		 RETURNING `+bankColumns, id, active))
	return b, mapErr("bank "+id, err)
}
