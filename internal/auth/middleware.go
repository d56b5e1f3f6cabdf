package auth

import (
	"context"
	"net/http"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

type contextKey struct{}

// UserFromContext returns the user authenticated by Middleware.
func UserFromContext(ctx context.Context) (database.User, bool) {
	u, ok := ctx.Value(contextKey{}).(database.User)
	return u, ok
}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u database.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// Middleware requires HTTP basic auth matching a cached user.
func Middleware(cache *UserCache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name, password, ok := r.BasicAuth()
			if !ok {
				metrics.AuthAttemptsTotal.WithLabelValues("missing").Inc()
				unauthorized(w)
				return
			}

			user, err := cache.Authenticate(name, password)
			if err != nil {
				metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
				logging.Debug("Rejected credentials for %q from %s", name, r.RemoteAddr)
				unauthorized(w)
				return
			}

			metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="media-catalog", charset="UTF-8"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
