package postgres

import (
	"time"

	repo "github.com/baharkarakas/custodial-ledger/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositories(pool *pgxpool.Pool, lockTimeout time.Duration) repo.Repositories {
	d := &db{pool: pool, lockTimeout: lockTimeout}
	return repo.Repositories{
		Users:        &usersRepo{pool},
		Balances:     &balancesRepo{d},
		Transactions: &transactionsRepo{d},
		AuditLogs:    &auditLogsRepo{pool},
		Banks:        &banksRepo{pool},
		Stats:        &statsRepo{pool},
	}
}
