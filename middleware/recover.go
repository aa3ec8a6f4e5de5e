package middleware

import (
	"fmt"
	"net/http"

	"github.com/fastcore-dev/fastcore/errors"
	"github.com/fastcore-dev/fastcore/httputil"
	"github.com/fastcore-dev/fastcore/pkg/logger"
)

// Recover converts handler panics into the generic internal-error envelope.
// Panic details reach the client only in debug mode.
func Recover(log *logger.Logger, debug bool) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewDefault("recover")
	}
	ew := httputil.ErrorWriter{Log: log, Debug: debug}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					log.WithContext(r.Context()).WithFields(map[string]interface{}{
						"panic":  fmt.Sprintf("%v", p),
						"path":   r.URL.Path,
						"method": r.Method,
					}).Error("handler panicked")
					ew.Write(w, r, errors.Internal("", fmt.Errorf("panic: %v", p)))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
