package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func rolePtr(r Role) *Role { return &r }

func TestCanAccessMatrix(t *testing.T) {
	cases := []struct {
		prefix  string
		allowed []Role
	}{
		{PrefixDashboard, []Role{RoleUser, RoleViewer, RolePresident, RoleFinance, RoleOfficeOfContracting, RoleOfficeOfSupport}},
		{PrefixInvoices, []Role{RoleOfficeOfContracting, RoleOfficeOfSupport, RoleFinance}},
		{PrefixSuppliers, []Role{RoleOfficeOfContracting, RoleOfficeOfSupport}},
		{PrefixRequests, []Role{RoleOfficeOfContracting, RoleOfficeOfSupport}},
		{PrefixPayments, []Role{RoleFinance}},
		{PrefixTransactions, []Role{RoleFinance}},
		{PrefixReports, []Role{RolePresident, RoleFinance}},
		{PrefixSettings, nil},
	}

	for _, tc := range cases {
		allowedSet := make(map[Role]bool, len(tc.allowed))
		for _, r := range tc.allowed {
			allowedSet[r] = true
		}
		for _, role := range Roles {
			want := allowedSet[role] || role == RoleAdmin
			got := CanAccess(rolePtr(role), tc.prefix)
			require.Equal(t, want, got, "role %s prefix %s", role, tc.prefix)
		}
	}
}

func TestCanAccessAdminBypass(t *testing.T) {
	for _, prefix := range ListedPrefixes() {
		require.True(t, CanAccess(rolePtr(RoleAdmin), prefix), "prefix %s", prefix)
	}
}

func TestCanAccessNilRole(t *testing.T) {
	// A missing role is denied on every listed prefix.
	for _, prefix := range ListedPrefixes() {
		require.False(t, CanAccess(nil, prefix), "prefix %s", prefix)
	}
	// Unlisted prefixes stay open even without a role.
	require.True(t, CanAccess(nil, "/totally/unlisted"))
}

func TestCanAccessUnlistedPrefix(t *testing.T) {
	viewer := rolePtr(RoleViewer)
	require.True(t, CanAccess(viewer, "/docs"))
	require.True(t, CanAccess(viewer, "/api/v2/health"))
}

func TestCanAccessNormalizesPrefix(t *testing.T) {
	finance := rolePtr(RoleFinance)
	require.True(t, CanAccess(finance, "/PAYMENTS"))
	require.True(t, CanAccess(finance, "payments"))
	require.True(t, CanAccess(finance, "/payments/"))
	require.False(t, CanAccess(rolePtr(RoleViewer), "/Payments"))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("finance")
	require.NoError(t, err)
	require.Equal(t, RoleFinance, role)

	role, err = ParseRole("  OFFICE_OF_SUPPORT ")
	require.NoError(t, err)
	require.Equal(t, RoleOfficeOfSupport, role)

	_, err = ParseRole("manager")
	require.Error(t, err)
	_, err = ParseRole("")
	require.Error(t, err)
}
