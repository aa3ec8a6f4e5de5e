// Package config loads and validates fastcore settings from the environment.
//
// Settings are resolved once at process start and passed explicitly to every
// component; there is no hidden global state. A .env file is honoured when
// present (development convenience), real environment variables win.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment selects the defaults applied before env vars are read.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// AppSettings carries application identity flags.
type AppSettings struct {
	Name    string
	Env     Environment
	Debug   bool
	Version string
}

// CacheSettings configures the cache-aside layer.
type CacheSettings struct {
	// URL is a redis connection URL, e.g. redis://localhost:6379/0.
	URL        string
	DefaultTTL time.Duration
	KeyPrefix  string
}

// DBSettings configures the relational data-access layer.
type DBSettings struct {
	// URL is a postgres connection string.
	URL             string
	PoolSize        int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

// JWTSettings configures token issuance and validation.
type JWTSettings struct {
	Secret     string
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Audience   string
	Issuer     string
}

// CORSSettings configures the cross-origin policy middleware.
type CORSSettings struct {
	AllowOrigins     []string `json:"allow_origins"`
	AllowMethods     []string `json:"allow_methods"`
	AllowHeaders     []string `json:"allow_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

// RateLimitSettings configures the request rate limiter.
type RateLimitSettings struct {
	Enabled bool `json:"enabled"`
	// Backend is "memory" or "redis".
	Backend      string        `json:"backend"`
	Limit        int           `json:"limit"`
	Window       time.Duration `json:"-"`
	WindowSecs   int           `json:"window_seconds"`
	ExcludePaths []string      `json:"exclude_paths"`
}

// HealthSettings configures the health endpoint.
type HealthSettings struct {
	Path           string
	IncludeDetails bool
}

// MetricsSettings configures the metrics endpoint.
type MetricsSettings struct {
	Path         string
	ExcludePaths []string
}

// LoggingSettings configures the logger provider.
type LoggingSettings struct {
	Level  string
	Format string
}

// Settings is the process-wide configuration object, read-only after Load.
type Settings struct {
	App       AppSettings
	Cache     CacheSettings
	DB        DBSettings
	JWT       JWTSettings
	CORS      CORSSettings
	RateLimit RateLimitSettings
	Health    HealthSettings
	Metrics   MetricsSettings
	Logging   LoggingSettings
}

// Load resolves settings for the environment named by APP_ENV.
func Load() (*Settings, error) {
	_ = godotenv.Load()
	return LoadEnv(Environment(getEnv("APP_ENV", string(Development))))
}

// LoadEnv resolves settings for an explicit environment.
func LoadEnv(env Environment) (*Settings, error) {
	switch env {
	case Development, Testing, Production:
	default:
		return nil, fmt.Errorf("unknown environment %q", env)
	}

	s := defaults(env)

	s.App.Name = getEnv("APP_NAME", s.App.Name)
	s.App.Version = getEnv("APP_VERSION", s.App.Version)
	s.App.Debug = getBool("APP_DEBUG", s.App.Debug)

	s.Cache.URL = getEnv("CACHE_URL", s.Cache.URL)
	s.Cache.DefaultTTL = getDuration("CACHE_DEFAULT_TTL", s.Cache.DefaultTTL)
	s.Cache.KeyPrefix = getEnv("CACHE_KEY_PREFIX", s.Cache.KeyPrefix)

	s.DB.URL = getEnv("DATABASE_URL", s.DB.URL)
	s.DB.PoolSize = getInt("DB_POOL_SIZE", s.DB.PoolSize)
	s.DB.MaxIdle = getInt("DB_MAX_IDLE", s.DB.MaxIdle)
	s.DB.ConnMaxLifetime = getDuration("DB_CONN_LIFETIME", s.DB.ConnMaxLifetime)

	s.JWT.Secret = getEnv("JWT_SECRET", s.JWT.Secret)
	s.JWT.Algorithm = getEnv("JWT_ALGORITHM", s.JWT.Algorithm)
	s.JWT.AccessTTL = getDuration("JWT_ACCESS_TOKEN_TTL", s.JWT.AccessTTL)
	s.JWT.RefreshTTL = getDuration("JWT_REFRESH_TOKEN_TTL", s.JWT.RefreshTTL)
	s.JWT.Audience = getEnv("JWT_AUDIENCE", s.JWT.Audience)
	s.JWT.Issuer = getEnv("JWT_ISSUER", s.JWT.Issuer)

	if raw := os.Getenv("CORS_OPTIONS"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.CORS); err != nil {
			return nil, fmt.Errorf("parse CORS_OPTIONS: %w", err)
		}
	}
	if raw := os.Getenv("RATE_LIMIT_OPTIONS"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.RateLimit); err != nil {
			return nil, fmt.Errorf("parse RATE_LIMIT_OPTIONS: %w", err)
		}
	}
	if s.RateLimit.WindowSecs > 0 {
		s.RateLimit.Window = time.Duration(s.RateLimit.WindowSecs) * time.Second
	}
	s.RateLimit.Backend = getEnv("RATE_LIMIT_BACKEND", s.RateLimit.Backend)

	s.Health.Path = getEnv("HEALTH_PATH", s.Health.Path)
	s.Health.IncludeDetails = getBool("HEALTH_INCLUDE_DETAILS", s.Health.IncludeDetails)

	s.Metrics.Path = getEnv("METRICS_PATH", s.Metrics.Path)
	if raw := os.Getenv("METRICS_EXCLUDE_PATHS"); raw != "" {
		s.Metrics.ExcludePaths = splitList(raw)
	}

	s.Logging.Level = getEnv("LOG_LEVEL", s.Logging.Level)
	s.Logging.Format = getEnv("LOG_FORMAT", s.Logging.Format)

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func defaults(env Environment) *Settings {
	s := &Settings{
		App: AppSettings{
			Name:    "fastcore",
			Env:     env,
			Debug:   env != Production,
			Version: "0.1.0",
		},
		Cache: CacheSettings{
			URL:        "redis://localhost:6379/0",
			DefaultTTL: 5 * time.Minute,
		},
		DB: DBSettings{
			PoolSize:        5,
			MaxIdle:         2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		JWT: JWTSettings{
			Algorithm:  "HS256",
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		CORS: CORSSettings{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Content-Type", "Authorization", "X-Trace-ID"},
			MaxAge:       3600,
		},
		RateLimit: RateLimitSettings{
			Enabled: true,
			Backend: "memory",
			Limit:   100,
			Window:  time.Minute,
		},
		Health: HealthSettings{
			Path:           "/health",
			IncludeDetails: true,
		},
		Metrics: MetricsSettings{
			Path: "/metrics",
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: "text",
		},
	}

	switch env {
	case Development:
		s.JWT.Secret = "dev-secret-change-me"
		s.Logging.Level = "debug"
	case Testing:
		s.JWT.Secret = "test-secret"
		s.RateLimit.Enabled = false
	case Production:
		s.Logging.Format = "json"
	}
	return s
}

func (s *Settings) validate() error {
	if s.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required in %s", s.App.Env)
	}
	if s.JWT.Algorithm != "HS256" && s.JWT.Algorithm != "HS384" && s.JWT.Algorithm != "HS512" {
		return fmt.Errorf("unsupported JWT algorithm %q", s.JWT.Algorithm)
	}
	if s.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("CACHE_DEFAULT_TTL must be positive")
	}
	if s.JWT.AccessTTL <= 0 || s.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if s.RateLimit.Enabled {
		if s.RateLimit.Limit <= 0 || s.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit threshold and window must be positive")
		}
		if s.RateLimit.Backend != "memory" && s.RateLimit.Backend != "redis" {
			return fmt.Errorf("unknown rate limit backend %q", s.RateLimit.Backend)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// getDuration accepts Go duration strings ("90s", "5m") and, for
// compatibility with second-count variables, bare integers.
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
