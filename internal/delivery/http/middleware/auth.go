package middleware

import (
	"context"
	"net/http"
	"strings"

	"estateadmin/internal/delivery/http/helpers"
	"estateadmin/internal/domain"
)

type contextKey string

const sessionKey contextKey = "session"

// Session is the authenticated identity carried through the request context.
// The email is part of the session because invite acceptance matches the
// invite's address against it.
type Session struct {
	UserID string
	Email  string
}

// SetSession returns a context with the session set. Used by auth middleware.
func SetSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the authenticated session from the context, if
// present.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}

// RequireAuth returns a wrapper that validates the Bearer token and sets the
// session in the request context. If the token is missing or invalid, it
// responds with 401 and does not call next.
func RequireAuth(verifier domain.TokenVerifier) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				helpers.WriteError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) {
				helpers.WriteError(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}
			token := strings.TrimSpace(auth[len(prefix):])
			if token == "" {
				helpers.WriteError(w, http.StatusUnauthorized, "missing token")
				return
			}
			userID, email, err := verifier.Verify(token)
			if err != nil {
				helpers.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			r = r.WithContext(SetSession(r.Context(), Session{UserID: userID, Email: email}))
			next(w, r)
		}
	}
}
