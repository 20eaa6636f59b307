package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/freshmarket/freshmarket-api/internal/httputil"
	"github.com/freshmarket/freshmarket-api/internal/logging"
	"github.com/freshmarket/freshmarket-api/internal/session"
	"github.com/freshmarket/freshmarket-api/internal/user"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const UserContextKey ContextKey = "user"

// Guard resolves the session cookie to a user on every protected
// request. Pending (unverified) users are rejected with 403 even when
// they hold a valid session.
type Guard struct {
	cookies  *session.CookieManager
	sessions session.Store
	users    user.Repository
}

func NewGuard(cookies *session.CookieManager, sessions session.Store, users user.Repository) *Guard {
	return &Guard{cookies: cookies, sessions: sessions, users: users}
}

// Protect is the access-guard middleware for session-gated routes.
func (g *Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.GetLoggerFromContext(r.Context())

		sessionID, err := g.cookies.Read(r)
		if err != nil {
			httputil.RespondError(w, "Not authorized - no session", http.StatusUnauthorized)
			return
		}

		sess, err := g.sessions.Get(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				httputil.RespondError(w, "Not authorized - no session", http.StatusUnauthorized)
				return
			}
			logger.Error("failed to resolve session", "error", err.Error())
			httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		u, err := g.users.GetByID(r.Context(), sess.UserID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				httputil.RespondError(w, "User not found", http.StatusUnauthorized)
				return
			}
			logger.Error("failed to load session user", "error", err.Error())
			httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if !u.IsVerified() {
			httputil.RespondError(w, "Email not verified", http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole composes with Protect and rejects users outside the
// given role set.
func RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	allowed := make(map[user.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := GetUserFromContext(r.Context())
			if !ok {
				httputil.RespondError(w, "Not authorized - no session", http.StatusUnauthorized)
				return
			}

			if _, ok := allowed[u.Role]; !ok {
				httputil.RespondError(w, "Access denied. Insufficient role.", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts the acting user attached by Protect.
func GetUserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(UserContextKey).(*user.User)
	return u, ok
}
