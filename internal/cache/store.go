// Package cache provides the explicit TTL cache used for holiday lookups and
// the parsed makeup policy. Entries are JSON encoded so the same Cache works
// over Redis in production and an in-memory store in tests.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Store.Get and Store.Take when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is a byte-oriented key/value store with per-key expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Take returns and deletes the key atomically.
	Take(ctx context.Context, key string) ([]byte, error)
	DeletePrefix(ctx context.Context, prefix string) error
}
