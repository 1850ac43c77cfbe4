package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tutorhub/class-engine/internal/config"
	"github.com/tutorhub/class-engine/internal/model"
)

// AuditWriter persists audit events synchronously.
type AuditWriter interface {
	Record(ctx context.Context, e model.AuditEvent) error
}

// QueueAuditLog queues audit events for the audit worker. When Redis refuses
// the event it is written directly through fallback.
type QueueAuditLog struct {
	rdb      Queue
	fallback AuditWriter
	log      zerolog.Logger
}

// NewQueueAuditLog creates a new QueueAuditLog.
func NewQueueAuditLog(rdb Queue, fallback AuditWriter, log zerolog.Logger) *QueueAuditLog {
	return &QueueAuditLog{
		rdb:      rdb,
		fallback: fallback,
		log:      log.With().Str("component", "audit_log").Logger(),
	}
}

// Record queues e.
func (a *QueueAuditLog) Record(ctx context.Context, e model.AuditEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	err = a.rdb.RPush(ctx, config.WorkerKey.PersistAuditQueue, data).Err()
	if err == nil {
		return nil
	}
	a.log.Warn().Err(err).Str("action", e.Action).Msg("Audit queue unavailable, writing directly")
	return a.fallback.Record(ctx, e)
}
