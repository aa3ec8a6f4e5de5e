package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/fastcore-dev/fastcore/errors"
	"github.com/fastcore-dev/fastcore/httputil"
	"github.com/fastcore-dev/fastcore/pkg/logger"
	"github.com/fastcore-dev/fastcore/security/token"
)

type contextKey string

const (
	subjectKey contextKey = "subject"
	claimsKey  contextKey = "claims"
)

// TokenValidator is the slice of the token service the middleware needs.
type TokenValidator interface {
	Validate(ctx context.Context, tokenString string, kind token.Kind) (*token.Claims, error)
}

// Auth authenticates requests with a bearer access token.
type Auth struct {
	tokens      TokenValidator
	log         *logger.Logger
	errorWriter httputil.ErrorWriter
	skipPaths   map[string]bool
}

// NewAuth builds the middleware. Requests to skipPaths bypass validation.
func NewAuth(tokens TokenValidator, log *logger.Logger, debug bool, skipPaths []string) *Auth {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	skip := make(map[string]bool, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = true
	}
	return &Auth{
		tokens:      tokens,
		log:         log,
		errorWriter: httputil.ErrorWriter{Log: log, Debug: debug},
		skipPaths:   skip,
	}
}

// Handler returns the middleware handler.
func (m *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.errorWriter.Write(w, r, errors.Unauthorized("Missing Authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.errorWriter.Write(w, r, errors.Unauthorized("Invalid Authorization header format"))
			return
		}

		claims, err := m.tokens.Validate(r.Context(), parts[1], token.Access)
		if err != nil {
			m.log.WithContext(r.Context()).WithError(err).Warn("token validation failed")
			m.errorWriter.Write(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSubject extracts the authenticated subject from ctx, or "".
func GetSubject(ctx context.Context) string {
	if v, ok := ctx.Value(subjectKey).(string); ok {
		return v
	}
	return ""
}

// GetClaims extracts the validated claims from ctx, or nil.
func GetClaims(ctx context.Context) *token.Claims {
	if v, ok := ctx.Value(claimsKey).(*token.Claims); ok {
		return v
	}
	return nil
}

// RequireSubject rejects requests whose context carries no subject. Use it
// behind Auth for routes that must not be anonymous.
func RequireSubject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetSubject(r.Context()) == "" {
			httputil.WriteError(w, errors.Unauthorized(""))
			return
		}
		next.ServeHTTP(w, r)
	})
}
