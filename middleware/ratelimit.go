package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"

	"github.com/fastcore-dev/fastcore/config"
	"github.com/fastcore-dev/fastcore/errors"
	"github.com/fastcore-dev/fastcore/httputil"
	"github.com/fastcore-dev/fastcore/pkg/logger"
)

// Limiter decides whether a keyed request is within the configured rate.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter keeps a token-bucket limiter per key in process memory.
// Counters are process-local; multi-instance deployments want RedisLimiter.
type MemoryLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter allows limit requests per window, with bursts up to the
// full limit.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(float64(limit) / window.Seconds()),
		burst:    limit,
	}
}

func (l *MemoryLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = limiter
	}
	return limiter
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	return l.limiterFor(key).Allow(), nil
}

// Cleanup drops accumulated per-key limiters once the map grows large.
func (l *MemoryLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.limiters) > 10000 {
		l.limiters = make(map[string]*rate.Limiter)
	}
}

// StartCleanup runs Cleanup periodically until ctx is cancelled.
func (l *MemoryLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup()
			}
		}
	}()
}

// RedisLimiter counts requests per key over a fixed window in the shared
// store. Correctness relies on redis single-key atomicity (INCR), not on
// any coordination added here.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter allows limit requests per window for each key. Windows
// shorter than one second are clamped, matching the resolution of the
// redis key expiry.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	if window < time.Second {
		window = time.Second
	}
	return &RedisLimiter{client: client, limit: int64(limit), window: window}
}

func (l *RedisLimiter) bucket(key string, now time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%d", key, now.UnixNano()/l.window.Nanoseconds())
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := l.bucket(key, time.Now())

	count, err := l.client.Incr(ctx, bucket).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		// First hit in this window owns the expiry.
		if err := l.client.Expire(ctx, bucket, l.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return count <= l.limit, nil
}

// RateLimit applies a Limiter ahead of routing. Requests are keyed by the
// authenticated subject when present, else by client IP.
type RateLimit struct {
	limiter      Limiter
	cfg          config.RateLimitSettings
	log          *logger.Logger
	errorWriter  httputil.ErrorWriter
	excludePaths []string
}

// NewRateLimit builds the middleware around a limiter backend.
func NewRateLimit(limiter Limiter, cfg config.RateLimitSettings, log *logger.Logger, debug bool) *RateLimit {
	if log == nil {
		log = logger.NewDefault("ratelimit")
	}
	return &RateLimit{
		limiter:      limiter,
		cfg:          cfg,
		log:          log,
		errorWriter:  httputil.ErrorWriter{Log: log, Debug: debug},
		excludePaths: cfg.ExcludePaths,
	}
}

func (m *RateLimit) exempt(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return true
	}
	for _, prefix := range m.excludePaths {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// Handler returns the middleware handler.
func (m *RateLimit) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.exempt(r) {
			next.ServeHTTP(w, r)
			return
		}

		key := GetSubject(r.Context())
		if key == "" {
			key = httputil.ClientIP(r)
		}

		allowed, err := m.limiter.Allow(r.Context(), key)
		if err != nil {
			m.errorWriter.Write(w, r, errors.Internal("rate limit backend unavailable", err))
			return
		}
		if !allowed {
			m.log.WithContext(r.Context()).WithFields(map[string]interface{}{
				"key":    key,
				"path":   r.URL.Path,
				"method": r.Method,
			}).Warn("rate limit exceeded")
			m.errorWriter.Write(w, r, errors.RateLimited(m.cfg.Limit, m.cfg.Window.String()))
			return
		}

		next.ServeHTTP(w, r)
	})
}
