package rbac

import (
	"log/slog"
	"net/http"

	"github.com/fincontrol/fincontrol/internal/platform/httpx"
	"github.com/fincontrol/fincontrol/internal/shared"
)

// Middleware enforces the route access matrix from the session role.
type Middleware struct {
	Logger *slog.Logger
}

// Guard restricts a mounted route group to the roles the matrix lists for
// the given prefix. Denials are 403, never 500: an authorization failure is
// a client-state problem, not a server fault.
func (m Middleware) Guard(routePrefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := m.currentRole(r)
			if CanAccess(role, routePrefix) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.Fail(w, http.StatusForbidden, "access denied")
		})
	}
}

// RequireAuthenticated rejects requests without a signed-in session.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			httpx.Fail(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) currentRole(r *http.Request) *Role {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return nil
	}
	role, err := ParseRole(sess.Role())
	if err != nil {
		if m.Logger != nil {
			m.Logger.Warn("session carries unknown role", slog.String("role", sess.Role()))
		}
		return nil
	}
	return &role
}
