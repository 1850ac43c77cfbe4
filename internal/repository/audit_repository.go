package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutorhub/class-engine/internal/model"
)

// AuditRepository appends makeup audit events.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func stateJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func auditRow(e model.AuditEvent) ([]any, error) {
	before, err := stateJSON(e.Before)
	if err != nil {
		return nil, fmt.Errorf("marshal before state: %w", err)
	}
	after, err := stateJSON(e.After)
	if err != nil {
		return nil, fmt.Errorf("marshal after state: %w", err)
	}
	return []any{e.Action, e.EntityType, e.EntityID, e.ActorID, e.Reason, before, after, e.CreatedAt}, nil
}

var auditColumns = []string{"action", "entity_type", "entity_id", "actor_id", "reason", "before_state", "after_state", "created_at"}

// Record inserts a single audit event.
func (r *AuditRepository) Record(ctx context.Context, e model.AuditEvent) error {
	row, err := auditRow(e)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO makeup_audit_logs (action, entity_type, entity_id, actor_id, reason, before_state, after_state, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, row...)
	return err
}

// InsertBatch bulk-inserts events using COPY.
func (r *AuditRepository) InsertBatch(ctx context.Context, events []model.AuditEvent) (int64, error) {
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		row, err := auditRow(e)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}
	return r.pool.CopyFrom(ctx, pgx.Identifier{"makeup_audit_logs"}, auditColumns, pgx.CopyFromRows(rows))
}

// ListForEntity retrieves the audit trail of one entity, oldest first.
func (r *AuditRepository) ListForEntity(ctx context.Context, entityType, entityID string) ([]model.AuditEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, action, entity_type, entity_id, actor_id, reason, before_state, after_state, created_at
		 FROM makeup_audit_logs WHERE entity_type = $1 AND entity_id = $2 ORDER BY id`,
		entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.AuditEvent{}
	for rows.Next() {
		var (
			e             model.AuditEvent
			before, after []byte
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID, &e.ActorID, &e.Reason, &before, &after, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(before) > 0 {
			e.Before = json.RawMessage(before)
		}
		if len(after) > 0 {
			e.After = json.RawMessage(after)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
