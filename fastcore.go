// Package fastcore wires settings, logging, envelopes, error translation,
// cache, database, stateful tokens, middleware and monitoring into a
// consistent set of defaults for building web-application backends.
package fastcore

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fastcore-dev/fastcore/cache"
	"github.com/fastcore-dev/fastcore/config"
	"github.com/fastcore-dev/fastcore/db"
	"github.com/fastcore-dev/fastcore/middleware"
	"github.com/fastcore-dev/fastcore/monitoring"
	"github.com/fastcore-dev/fastcore/pkg/logger"
	"github.com/fastcore-dev/fastcore/security"
	"github.com/fastcore-dev/fastcore/security/token"

	"github.com/gorilla/mux"
)

// App bundles the configured components and manages the HTTP lifecycle.
type App struct {
	cfg     *config.Settings
	log     *logger.Logger
	cache   cache.Cache
	pool    *sqlx.DB
	tokens  *token.Service
	auth    security.Authenticator
	health  *monitoring.HealthRegistry
	metrics *monitoring.Metrics

	cors      *middleware.CORS
	rateLimit *middleware.RateLimit
	router    *mux.Router
	server    *http.Server

	customCache  bool
	customStore  token.Store
	tokenStore   token.Store
	healthExtras []namedCheck
}

type namedCheck struct {
	name  string
	check monitoring.CheckFunc
	tags  []string
}

// Option customizes App construction.
type Option func(*App)

// WithLogger overrides the settings-derived logger.
func WithLogger(log *logger.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithCache supplies a cache backend, skipping the redis connection.
func WithCache(c cache.Cache) Option {
	return func(a *App) { a.cache = c; a.customCache = true }
}

// WithDB supplies an existing database pool, skipping the connect step.
func WithDB(pool *sqlx.DB) Option {
	return func(a *App) { a.pool = pool }
}

// WithTokenStore overrides the token record store.
func WithTokenStore(store token.Store) Option {
	return func(a *App) { a.customStore = store }
}

// WithAuthenticator supplies the credential authenticator backing the
// login endpoint.
func WithAuthenticator(auth security.Authenticator) Option {
	return func(a *App) { a.auth = auth }
}

// WithHealthCheck registers an additional named health check.
func WithHealthCheck(name string, check monitoring.CheckFunc, tags ...string) Option {
	return func(a *App) {
		a.healthExtras = append(a.healthExtras, namedCheck{name: name, check: check, tags: tags})
	}
}

// New constructs an application from settings, invoking the component
// setups in a fixed order: logging, cache, database, tokens, monitoring,
// middleware. A nil settings argument loads them from the environment.
func New(ctx context.Context, cfg *config.Settings, opts ...Option) (*App, error) {
	var err error
	if cfg == nil {
		if cfg, err = config.Load(); err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}
	}

	a := &App{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if a.log == nil {
		a.log = logger.New(logger.LoggingConfig{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			Component: cfg.App.Name,
		})
	}

	if !a.customCache {
		if cfg.Cache.URL != "" {
			redisCache, err := cache.NewRedis(ctx, cfg.Cache, a.log)
			if err != nil {
				return nil, fmt.Errorf("configure cache: %w", err)
			}
			a.cache = redisCache
		} else {
			a.cache = cache.NewMemory(cfg.Cache.DefaultTTL)
		}
	}

	if a.pool == nil && cfg.DB.URL != "" {
		if a.pool, err = db.Connect(ctx, cfg.DB, a.log); err != nil {
			return nil, fmt.Errorf("configure database: %w", err)
		}
	}

	switch {
	case a.customStore != nil:
		a.tokenStore = a.customStore
	case a.pool != nil:
		sqlStore := token.NewSQLStore(a.pool)
		if err := sqlStore.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("token schema: %w", err)
		}
		a.tokenStore = sqlStore
	default:
		a.tokenStore = token.NewMemoryStore()
	}
	a.tokens = token.NewService(cfg.JWT, a.tokenStore, a.log)

	a.health = monitoring.NewHealthRegistry()
	if a.pool != nil {
		a.health.Register("database", monitoring.DatabaseCheck(a.pool), "core", "database")
	}
	a.health.Register("cache", monitoring.CacheCheck(a.cache), "core", "cache")
	for _, extra := range a.healthExtras {
		a.health.Register(extra.name, extra.check, extra.tags...)
	}

	excluded := append([]string{cfg.Metrics.Path, cfg.Health.Path}, cfg.Metrics.ExcludePaths...)
	a.metrics = monitoring.NewMetrics(cfg.App.Name, excluded)

	a.cors = middleware.NewCORS(cfg.CORS)
	if cfg.RateLimit.Enabled {
		limiter, err := a.buildLimiter(ctx)
		if err != nil {
			return nil, err
		}
		a.rateLimit = middleware.NewRateLimit(limiter, cfg.RateLimit, a.log, cfg.App.Debug)
	}

	a.router = mux.NewRouter()
	// Instrumentation runs inside the router so the matched route template
	// is available as the metrics path label.
	a.router.Use(a.metrics.Instrument)
	a.router.Handle(cfg.Health.Path, a.health.Handler(cfg.Health.IncludeDetails)).Methods(http.MethodGet)
	a.router.Handle(cfg.Metrics.Path, a.metrics.Handler()).Methods(http.MethodGet)

	a.log.Infof("%s configured (env=%s)", cfg.App.Name, cfg.App.Env)
	return a, nil
}

func (a *App) buildLimiter(ctx context.Context) (middleware.Limiter, error) {
	cfg := a.cfg.RateLimit
	if cfg.Backend == "redis" {
		redisCache, ok := a.cache.(*cache.Redis)
		if !ok {
			return nil, fmt.Errorf("redis rate limit backend requires the redis cache")
		}
		return middleware.NewRedisLimiter(redisCache.Client(), cfg.Limit, cfg.Window), nil
	}
	limiter := middleware.NewMemoryLimiter(cfg.Limit, cfg.Window)
	limiter.StartCleanup(ctx, 10*time.Minute)
	return limiter, nil
}

// Settings returns the resolved configuration.
func (a *App) Settings() *config.Settings { return a.cfg }

// Logger returns the application logger.
func (a *App) Logger() *logger.Logger { return a.log }

// Cache returns the configured cache backend.
func (a *App) Cache() cache.Cache { return a.cache }

// DB returns the database pool, or nil when no database is configured.
func (a *App) DB() *sqlx.DB { return a.pool }

// Tokens returns the token service.
func (a *App) Tokens() *token.Service { return a.tokens }

// Health returns the health-check registry.
func (a *App) Health() *monitoring.HealthRegistry { return a.health }

// Metrics returns the metrics collector.
func (a *App) Metrics() *monitoring.Metrics { return a.metrics }

// Router returns the router carrying the health and metrics endpoints.
// Applications mount their own routes on it.
func (a *App) Router() *mux.Router { return a.router }

// Protect wraps a handler with bearer-token authentication.
func (a *App) Protect(next http.Handler) http.Handler {
	auth := middleware.NewAuth(a.tokens, a.log, a.cfg.App.Debug,
		[]string{a.cfg.Health.Path, a.cfg.Metrics.Path})
	return auth.Handler(next)
}

// Handler returns the router wrapped in the full middleware chain:
// recovery, request logging, CORS, rate limiting, routing. Metrics
// instrumentation is registered on the router itself.
func (a *App) Handler() http.Handler {
	var h http.Handler = a.router
	if a.rateLimit != nil {
		h = a.rateLimit.Handler(h)
	}
	h = a.cors.Handler(h)
	h = middleware.RequestLogger(a.log)(h)
	h = middleware.Recover(a.log, a.cfg.App.Debug)(h)
	return h
}

// Run serves the application on addr until ctx is cancelled, then shuts
// down gracefully.
func (a *App) Run(ctx context.Context, addr string) error {
	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the server gracefully and releases cache and database
// connections.
func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	a.Close()
	a.log.Infof("shutdown complete")
	return nil
}

// Close releases component resources without touching the server.
func (a *App) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.WithError(err).Warn("closing cache")
		}
	}
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			a.log.WithError(err).Warn("closing database")
		}
	}
}
