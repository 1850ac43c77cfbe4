// Package notify hands messages to systems outside the engine through Redis:
// an outbox queue drained by the LINE/Facebook delivery service, pub/sub
// channels read by live schedule screens, and the audit persistence queue.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/tutorhub/class-engine/internal/config"
	"github.com/tutorhub/class-engine/internal/model"
)

// Outbox message kinds understood by the delivery service.
const (
	KindMakeupScheduled = "makeup_scheduled"
	KindClassReminder   = "class_reminder"
)

// Queue is the subset of the Redis client used here.
type Queue interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Message is one outbox entry.
type Message struct {
	Kind     string    `json:"kind"`
	Payload  any       `json:"payload"`
	QueuedAt time.Time `json:"queued_at"`
}

// RedisNotifier implements the engine's Notifier on Redis.
type RedisNotifier struct {
	rdb Queue
	now func() time.Time
	log zerolog.Logger
}

// NewRedisNotifier creates a new RedisNotifier.
func NewRedisNotifier(rdb Queue, now func() time.Time, log zerolog.Logger) *RedisNotifier {
	return &RedisNotifier{
		rdb: rdb,
		now: now,
		log: log.With().Str("component", "notifier").Logger(),
	}
}

func (n *RedisNotifier) push(ctx context.Context, kind string, payload any) error {
	data, err := json.Marshal(Message{Kind: kind, Payload: payload, QueuedAt: n.now()})
	if err != nil {
		return fmt.Errorf("encode %s message: %w", kind, err)
	}
	if err := n.rdb.RPush(ctx, config.WorkerKey.NotifyOutboxQueue, data).Err(); err != nil {
		return fmt.Errorf("queue %s message: %w", kind, err)
	}
	n.log.Debug().Str("kind", kind).Msg("Message queued")
	return nil
}

// SendMakeupScheduled queues the confirmation of a placed makeup.
func (n *RedisNotifier) SendMakeupScheduled(ctx context.Context, m *model.Makeup) error {
	return n.push(ctx, KindMakeupScheduled, m)
}

// SendClassReminder queues the reminder of an upcoming session.
func (n *RedisNotifier) SendClassReminder(ctx context.Context, r model.SessionReminder) error {
	return n.push(ctx, KindClassReminder, r)
}

// PublishScheduleEvent broadcasts e on its branch channel.
func (n *RedisNotifier) PublishScheduleEvent(ctx context.Context, e model.ScheduleEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode schedule event: %w", err)
	}
	return n.rdb.Publish(ctx, config.CacheKey.BranchEventsChannel(e.BranchID), data).Err()
}
