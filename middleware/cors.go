// Package middleware provides the HTTP middleware fastcore assembles ahead
// of the routing layer: CORS, rate limiting, bearer-token auth, request
// logging and panic recovery.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/fastcore-dev/fastcore/config"
)

// CORS handles Cross-Origin Resource Sharing per the configured policy.
type CORS struct {
	allowedOrigins []string
	allowAll       bool
	methods        string
	headers        string
	credentials    bool
	maxAge         string
}

// NewCORS builds the middleware from settings.
func NewCORS(cfg config.CORSSettings) *CORS {
	allowAll := false
	for _, origin := range cfg.AllowOrigins {
		if origin == "*" {
			allowAll = true
			break
		}
	}
	return &CORS{
		allowedOrigins: cfg.AllowOrigins,
		allowAll:       allowAll,
		methods:        strings.Join(cfg.AllowMethods, ", "),
		headers:        strings.Join(cfg.AllowHeaders, ", "),
		credentials:    cfg.AllowCredentials,
		maxAge:         strconv.Itoa(cfg.MaxAge),
	}
}

// Handler returns the middleware handler.
func (m *CORS) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" && (m.allowAll || m.isOriginAllowed(origin)) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", m.methods)
			w.Header().Set("Access-Control-Allow-Headers", m.headers)
			w.Header().Set("Access-Control-Max-Age", m.maxAge)
			if m.credentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Vary", "Origin")
		}

		// Preflight requests stop here.
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *CORS) isOriginAllowed(origin string) bool {
	for _, allowed := range m.allowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}
