// Package cache provides the cache-aside layer: a key-value store interface,
// redis and in-memory backends, and a get-or-compute combinator that
// memoizes function results behind a derived key with a TTL.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss signals that a key is absent or its TTL has elapsed. Callers treat
// both identically: recompute and repopulate.
var ErrMiss = errors.New("cache: miss")

// Cache is the backing-store contract. Get returns ErrMiss for absent keys;
// any other error is a connectivity or protocol failure and propagates to
// the caller without a fallback path.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}
