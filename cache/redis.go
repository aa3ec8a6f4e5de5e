package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fastcore-dev/fastcore/config"
	"github.com/fastcore-dev/fastcore/pkg/logger"
)

// Redis is the network-backed cache. Key expiry is delegated to the server.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

var _ Cache = (*Redis)(nil)

// NewRedis connects to the store described by cfg and verifies the
// connection with a ping.
func NewRedis(ctx context.Context, cfg config.CacheSettings, log *logger.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse cache url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache ping: %w", err)
	}
	if log == nil {
		log = logger.NewDefault("cache")
	}
	log.Infof("redis cache connected (%s)", opts.Addr)
	return &Redis{client: client, prefix: cfg.KeyPrefix, ttl: cfg.DefaultTTL, log: log}, nil
}

// NewRedisWithClient wraps an existing client, for callers that manage their
// own connection options.
func NewRedisWithClient(client *redis.Client, prefix string, defaultTTL time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: defaultTTL, log: logger.NewDefault("cache")}
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %q: %w", key, err)
	}
	return val, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("cache delete %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists %q: %w", key, err)
	}
	return n > 0, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Client exposes the underlying redis client for components that share the
// connection, such as the redis rate-limit backend.
func (r *Redis) Client() *redis.Client {
	return r.client
}
