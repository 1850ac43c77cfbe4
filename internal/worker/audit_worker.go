package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/tutorhub/class-engine/internal/config"
	"github.com/tutorhub/class-engine/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// AuditQueue is the part of the Redis client the audit worker needs.
type AuditQueue interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// AuditStore persists audit events.
type AuditStore interface {
	InsertBatch(ctx context.Context, events []model.AuditEvent) (int64, error)
	Record(ctx context.Context, e model.AuditEvent) error
}

// AuditWorker drains the audit queue into the database in batches.
type AuditWorker struct {
	rdb        AuditQueue
	store      AuditStore
	retryDelay time.Duration
	log        zerolog.Logger
}

func NewAuditWorker(rdb AuditQueue, store AuditStore, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		rdb:        rdb,
		store:      store,
		retryDelay: 2 * time.Second,
		log:        log.With().Str("component", "audit_worker").Logger(),
	}
}

func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AuditWorker started")

	buffer := make([]model.AuditEvent, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Flush on size or age
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		// 2. Graceful shutdown
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from Redis
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistAuditQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, backing off")
			w.sleep(ctx, w.retryDelay)
			continue
		}

		// 4. Decode
		if len(result) < 2 {
			continue
		}
		var e model.AuditEvent
		if err := json.Unmarshal([]byte(result[1]), &e); err != nil {
			// Malformed entries can never succeed.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed audit event")
			continue
		}
		buffer = append(buffer, e)
	}
}

// flushSafe attempts a bulk insert, then row-by-row inserts, then requeue.
func (w *AuditWorker) flushSafe(ctx context.Context, batch []model.AuditEvent) {
	n, err := w.store.InsertBatch(ctx, batch)
	if err == nil {
		w.log.Debug().Int64("count", n).Msg("Audit batch persisted")
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
	w.fallbackInsert(ctx, batch)
}

func (w *AuditWorker) fallbackInsert(ctx context.Context, batch []model.AuditEvent) {
	var requeueList []model.AuditEvent
	for _, e := range batch {
		if err := w.store.Record(ctx, e); err != nil {
			w.log.Error().Err(err).Str("entity_id", e.EntityID).Str("action", e.Action).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, e)
		}
	}
	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *AuditWorker) requeue(ctx context.Context, items []model.AuditEvent) {
	values := make([]interface{}, 0, len(items))
	for _, e := range items {
		data, err := json.Marshal(e)
		if err != nil {
			w.log.Error().Err(err).Str("entity_id", e.EntityID).Msg("Dropping unencodable audit event")
			continue
		}
		values = append(values, data)
	}
	if len(values) == 0 {
		return
	}
	if err := w.rdb.RPush(ctx, config.WorkerKey.PersistAuditQueue, values...).Err(); err != nil {
		w.log.Error().Err(err).Int("count", len(values)).Msg("CRITICAL: Failed to requeue audit events. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(values)).Msg("Requeued failed audit events")
	// Avoid thrashing while the database is down.
	w.sleep(ctx, w.retryDelay)
}

func (w *AuditWorker) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func (w *AuditWorker) shutdown(buffer []model.AuditEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
