package fastcore

import (
	"net/http"
	"strings"

	"github.com/fastcore-dev/fastcore/errors"
	"github.com/fastcore-dev/fastcore/httputil"
	"github.com/fastcore-dev/fastcore/middleware"
	"github.com/fastcore-dev/fastcore/security"
	"github.com/fastcore-dev/fastcore/security/token"
)

// MountAuthRoutes contributes login/refresh/logout endpoints under prefix
// (default /auth). Requires an Authenticator supplied via WithAuthenticator.
func (a *App) MountAuthRoutes(prefix string) error {
	if a.auth == nil {
		return errors.Internal("no authenticator configured", nil)
	}
	if prefix == "" {
		prefix = "/auth"
	}

	ew := httputil.ErrorWriter{Log: a.log, Debug: a.cfg.App.Debug}
	sub := a.router.PathPrefix(prefix).Subrouter()

	sub.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := httputil.DecodeJSON(r, &payload); err != nil {
			ew.Write(w, r, err)
			return
		}
		if payload.Username == "" || payload.Password == "" {
			ew.Write(w, r, errors.Validation("username and password are required"))
			return
		}

		pair, err := security.Login(r.Context(), a.auth, a.tokens, security.Credentials{
			Username: payload.Username,
			Password: payload.Password,
		})
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		httputil.WriteData(w, http.StatusOK, pair)
	}).Methods(http.MethodPost)

	sub.HandleFunc("/refresh", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := httputil.DecodeJSON(r, &payload); err != nil {
			ew.Write(w, r, err)
			return
		}

		access, err := a.tokens.Refresh(r.Context(), payload.RefreshToken)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		httputil.WriteData(w, http.StatusOK, map[string]string{
			"access_token": access,
			"token_type":   "bearer",
		})
	}).Methods(http.MethodPost)

	sub.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Token    string `json:"token"`
			AllForMe bool   `json:"all"`
		}
		if err := httputil.DecodeJSON(r, &payload); err != nil {
			ew.Write(w, r, err)
			return
		}

		if payload.AllForMe {
			// The subject comes from the auth middleware when the route is
			// mounted behind Protect, otherwise from the presented token.
			subject := middleware.GetSubject(r.Context())
			if subject == "" {
				subject = a.subjectFromRequest(r, payload.Token)
			}
			if subject == "" {
				ew.Write(w, r, errors.Unauthorized(""))
				return
			}
			if _, err := a.tokens.RevokeAllForSubject(r.Context(), subject); err != nil {
				ew.Write(w, r, err)
				return
			}
		} else {
			if err := a.tokens.Revoke(r.Context(), payload.Token); err != nil {
				ew.Write(w, r, err)
				return
			}
		}
		httputil.WriteMessage(w, http.StatusOK, nil, "logged out")
	}).Methods(http.MethodPost)

	return nil
}

// subjectFromRequest resolves the caller's identity for logout-all from the
// bearer header or the token carried in the request body. Returns "" when
// neither holds a valid access token.
func (a *App) subjectFromRequest(r *http.Request, bodyToken string) string {
	candidate := bodyToken
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		candidate = strings.TrimSpace(parts[1])
	}
	if candidate == "" {
		return ""
	}
	claims, err := a.tokens.Validate(r.Context(), candidate, token.Access)
	if err != nil {
		return ""
	}
	return claims.Subject
}
