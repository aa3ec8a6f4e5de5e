package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Keyed memoizes the result of a computation behind a derived cache key.
// It is the explicit-combinator form of a caching decorator: construct one
// per cached operation and call Do with the arguments that identify a call.
//
// There is no single-flight coordination: concurrent misses for the same key
// each run the computation and each write the result (last write wins).
// Callers needing at-most-one-computation semantics must add their own.
type Keyed[T any] struct {
	store  Cache
	name   string
	prefix string
	ttl    time.Duration
}

// NewKeyed builds a memoizer for the operation identified by name. A zero
// ttl defers to the backend's default.
func NewKeyed[T any](store Cache, name, prefix string, ttl time.Duration) *Keyed[T] {
	return &Keyed[T]{store: store, name: name, prefix: prefix, ttl: ttl}
}

// Key derives the deterministic cache key for a set of call arguments:
// prefix:name:hash, where hash covers the stable JSON serialization of args.
func (k *Keyed[T]) Key(args ...interface{}) (string, error) {
	digest := xxhash.New()
	enc := json.NewEncoder(digest)
	for _, arg := range args {
		if err := enc.Encode(arg); err != nil {
			return "", fmt.Errorf("cache key for %s: %w", k.name, err)
		}
	}
	key := k.name + ":" + strconv.FormatUint(digest.Sum64(), 16)
	if k.prefix != "" {
		key = k.prefix + ":" + key
	}
	return key, nil
}

// Do returns the cached result for args, or runs compute on a miss and
// stores its result with the configured TTL. Backend failures propagate;
// there is no degrade-to-compute path.
func (k *Keyed[T]) Do(ctx context.Context, compute func(ctx context.Context) (T, error), args ...interface{}) (T, error) {
	var zero T

	key, err := k.Key(args...)
	if err != nil {
		return zero, err
	}

	raw, err := k.store.Get(ctx, key)
	switch err {
	case nil:
		var value T
		if err := json.Unmarshal(raw, &value); err != nil {
			return zero, fmt.Errorf("cache decode %s: %w", key, err)
		}
		return value, nil
	case ErrMiss:
	default:
		return zero, err
	}

	value, err := compute(ctx)
	if err != nil {
		return zero, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := k.store.Set(ctx, key, encoded, k.ttl); err != nil {
		return zero, err
	}
	return value, nil
}

// Invalidate deletes the cached entry for args.
func (k *Keyed[T]) Invalidate(ctx context.Context, args ...interface{}) error {
	key, err := k.Key(args...)
	if err != nil {
		return err
	}
	return k.store.Delete(ctx, key)
}
