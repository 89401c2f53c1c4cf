package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/api-sage/tenmo-ledger/src/internal/commons"
	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/api-sage/tenmo-ledger/src/internal/logger"
)

type Authenticator interface {
	Authenticate(ctx context.Context, username string, password string) (domain.Caller, error)
}

type callerKey struct{}

// WithCaller stores the authenticated caller on ctx.
func WithCaller(ctx context.Context, caller domain.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func CallerFrom(ctx context.Context) (domain.Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(domain.Caller)
	return caller, ok
}

// BasicAuth verifies HTTP Basic credentials against the user store and puts
// the resulting caller into the request context.
func BasicAuth(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authenticator == nil {
				logger.Error("basic auth middleware missing authenticator", nil, logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				writeError(w, http.StatusInternalServerError, "server auth configuration is missing")
				return
			}

			username, password, ok := r.BasicAuth()
			if !ok {
				logger.Info("basic auth middleware unauthorized request", logger.Fields{
					"method":      r.Method,
					"path":        r.URL.Path,
					"credentials": "missing",
				})
				w.Header().Set("WWW-Authenticate", `Basic realm="tenmo"`)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			caller, err := authenticator.Authenticate(r.Context(), username, password)
			if err != nil {
				if errors.Is(err, commons.ErrUnauthorized) {
					logger.Info("basic auth middleware unauthorized request", logger.Fields{
						"method":      r.Method,
						"path":        r.URL.Path,
						"credentials": "invalid",
					})
					w.Header().Set("WWW-Authenticate", `Basic realm="tenmo"`)
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				logger.Error("basic auth middleware authenticate failed", err, logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				writeError(w, http.StatusServiceUnavailable, "authentication unavailable")
				return
			}

			logger.Info("basic auth middleware authorized request", logger.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
				"userId": caller.UserID,
			})
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}
