package postgres

import (
	"context"
	"strings"

	"github.com/baharkarakas/custodial-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type usersRepo struct{ pool *pgxpool.Pool }

const userColumns = `id, username, email, password_hash, role, is_active, bank_type, bank_name, bank_num, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.Payout.Type, &u.Payout.Name, &u.Payout.Number, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *usersRepo) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	out, err := scanUser(r.pool.QueryRow(ctx,
		`INSERT INTO users(id, username, email, password_hash, role, is_active, bank_type, bank_name, bank_num)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING `+userColumns,
		u.ID, u.Username, strings.ToLower(u.Email), u.PasswordHash, u.Role, u.IsActive,
		u.Payout.Type, u.Payout.Name, u.Payout.Number,
	))
	return out, mapErr("create user", err)
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.User{}, mapErr("user "+id, pgx.ErrNoRows)
	}
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	return u, mapErr("user "+id, err)
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, strings.ToLower(email)))
	return u, mapErr("user "+email, err)
}

func (r *usersRepo) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+`
		   FROM users ORDER BY created_at DESC LIMIT 100`)
	if err != nil {
		return nil, mapErr("list users", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *usersRepo) UpdateRole(ctx context.Context, id, role string) error {
	return r.update(ctx, id, `UPDATE users SET role=$2, updated_at=now() WHERE id=$1`, role)
}

func (r *usersRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.update(ctx, id, `UPDATE users SET is_active=$2, updated_at=now() WHERE id=$1`, active)
}

func (r *usersRepo) update(ctx context.Context, id, q string, arg any) error {
	if _, err := uuid.Parse(id); err != nil {
		return mapErr("user "+id, pgx.ErrNoRows)
	}
	tag, err := r.pool.Exec(ctx, q, id, arg)
	if err != nil {
		return mapErr("update user "+id, err)
	}
	if tag.RowsAffected() == 0 {
		return mapErr("user "+id, pgx.ErrNoRows)
	}
	return nil
}
