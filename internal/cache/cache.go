package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Cache layers JSON encoding and a fixed TTL over a Store. A failing store
// never fails a lookup: reads fall through to the loader and writes are
// logged and dropped.
type Cache struct {
	store Store
	ttl   time.Duration
	log   zerolog.Logger
}

// New creates a Cache whose entries live for ttl.
func New(store Store, ttl time.Duration, log zerolog.Logger) *Cache {
	return &Cache{
		store: store,
		ttl:   ttl,
		log:   log.With().Str("component", "cache").Logger(),
	}
}

// GetOrLoad returns the cached value for key, calling load on a miss and
// caching its result. Loader errors are returned as-is and never cached.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, load func(ctx context.Context) (T, error)) (T, error) {
	if raw, err := c.store.Get(ctx, key); err == nil {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		c.log.Warn().Str("key", key).Msg("Discarding undecodable cache entry")
	} else if !errors.Is(err, ErrMiss) {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, loading from source")
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache encode failed")
		return v, nil
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
	return v, nil
}

// Invalidate drops every entry under prefix.
func (c *Cache) Invalidate(ctx context.Context, prefix string) error {
	return c.store.DeletePrefix(ctx, prefix)
}

// Flag is a one-shot marker stored under a single key: Mark sets it and
// Consume reports and clears it atomically.
type Flag struct {
	store Store
	key   string
}

// NewFlag creates a Flag on key.
func NewFlag(store Store, key string) *Flag {
	return &Flag{store: store, key: key}
}

// Mark raises the flag. It does not expire.
func (f *Flag) Mark(ctx context.Context) error {
	return f.store.Set(ctx, f.key, []byte("1"), 0)
}

// Consume reports whether the flag was raised and lowers it.
func (f *Flag) Consume(ctx context.Context) (bool, error) {
	_, err := f.store.Take(ctx, f.key)
	if errors.Is(err, ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
