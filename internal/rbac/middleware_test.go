package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fincontrol/fincontrol/internal/shared"
)

func requestWithSessionRole(role string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/payments", nil)
	sess := &shared.Session{}
	sess.SetUser("42", role)
	return r.WithContext(shared.ContextWithSession(r.Context(), sess))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardAllowsListedRole(t *testing.T) {
	mw := Middleware{}
	rec := httptest.NewRecorder()
	mw.Guard(PrefixPayments)(okHandler()).ServeHTTP(rec, requestWithSessionRole("FINANCE"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardDeniesWithForbidden(t *testing.T) {
	// Authorization failures are 403, never 500.
	mw := Middleware{}
	rec := httptest.NewRecorder()
	mw.Guard(PrefixPayments)(okHandler()).ServeHTTP(rec, requestWithSessionRole("VIEWER"))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok":false`)
}

func TestGuardDeniesUnknownRoleOnListedPrefix(t *testing.T) {
	mw := Middleware{}
	rec := httptest.NewRecorder()
	mw.Guard(PrefixPayments)(okHandler()).ServeHTTP(rec, requestWithSessionRole("INTRUDER"))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardDeniesAnonymousOnListedPrefix(t *testing.T) {
	mw := Middleware{}
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/payments", nil)
	mw.Guard(PrefixPayments)(okHandler()).ServeHTTP(rec, r)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGuardAdminBypass(t *testing.T) {
	mw := Middleware{}
	rec := httptest.NewRecorder()
	mw.Guard(PrefixSettings)(okHandler()).ServeHTTP(rec, requestWithSessionRole("ADMIN"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardUnlistedPrefixOpen(t *testing.T) {
	mw := Middleware{}
	rec := httptest.NewRecorder()
	mw.Guard("/docs")(okHandler()).ServeHTTP(rec, requestWithSessionRole("VIEWER"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthenticated(t *testing.T) {
	mw := Middleware{}

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/invoices", nil)
	mw.RequireAuthenticated(okHandler()).ServeHTTP(rec, r)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	mw.RequireAuthenticated(okHandler()).ServeHTTP(rec, requestWithSessionRole("USER"))
	require.Equal(t, http.StatusOK, rec.Code)
}
