package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baharkarakas/custodial-ledger/internal/models"
)

// mapErr translates driver errors into the sentinel errors the services understand.
func mapErr(what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", what, models.ErrDuplicate)
		case "23503": // foreign_key_violation (balance for an unknown user)
			return fmt.Errorf("%s: %w", what, models.ErrNotFound)
		case "23514": // check_violation (balances.amount >= 0)
			return fmt.Errorf("%s: %w", what, models.ErrInsufficientFunds)
		case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
			return fmt.Errorf("%s: %s: %w", what, pgErr.Code, models.ErrConflict)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}
