// Package middleware provides HTTP middlewares for session checks and logging.
package middleware

import (
	"context"
	"net/http"

	"github.com/aiguardian/guardian/internal/models"
)

type ctxKey string

const userKey ctxKey = "user"

// SessionSource returns the logged-in user or an error when there is none.
type SessionSource interface {
	Current(ctx context.Context) (models.User, error)
}

// RequireSession rejects requests with 401 unless a user is logged in, and
// stores that user in the request context for downstream handlers.
func RequireSession(sessions SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := sessions.Current(r.Context())
			if err != nil {
				http.Error(w, "login required", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext extracts the user stored by RequireSession.
func UserFromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userKey).(models.User)
	return u, ok
}
