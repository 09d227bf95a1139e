package postgres

import (
	"context"
	"encoding/json"

	"github.com/baharkarakas/custodial-ledger/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type auditLogsRepo struct{ pool *pgxpool.Pool }

func (r *auditLogsRepo) Create(ctx context.Context, l models.AuditLog) error {
	return insertAudit(ctx, r.pool, l)
}

func (r *auditLogsRepo) ListByEntity(ctx context.Context, entityID string) ([]models.AuditLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, entity_type, entity_id, action, details, created_at
		   FROM audit_logs
		  WHERE entity_id=$1
		  ORDER BY created_at ASC`, entityID)
	if err != nil {
		return nil, mapErr("list audit", err)
	}
	defer rows.Close()

	var out []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		var details []byte
		if err := rows.Scan(&l.ID, &l.EntityType, &l.EntityID, &l.Action, &details, &l.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			_ = json.Unmarshal(details, &l.Details)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
