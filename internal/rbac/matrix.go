package rbac

import "strings"

// Route prefixes guarded by the matrix.
const (
	PrefixDashboard    = "/dashboard"
	PrefixInvoices     = "/invoices"
	PrefixSuppliers    = "/suppliers"
	PrefixRequests     = "/requests"
	PrefixPayments     = "/payments"
	PrefixTransactions = "/transactions"
	PrefixReports      = "/reports"
	PrefixSettings     = "/settings"
)

// matrix maps a protected prefix to the roles allowed besides Admin.
// Prefixes absent from this table are open to everyone, authenticated or not;
// that fail-open default is deliberate and covers non-sensitive routes.
var matrix = map[string][]Role{
	PrefixDashboard:    {RoleUser, RoleViewer, RolePresident, RoleFinance, RoleOfficeOfContracting, RoleOfficeOfSupport},
	PrefixInvoices:     {RoleOfficeOfContracting, RoleOfficeOfSupport, RoleFinance},
	PrefixSuppliers:    {RoleOfficeOfContracting, RoleOfficeOfSupport},
	PrefixRequests:     {RoleOfficeOfContracting, RoleOfficeOfSupport},
	PrefixPayments:     {RoleFinance},
	PrefixTransactions: {RoleFinance},
	PrefixReports:      {RolePresident, RoleFinance},
	PrefixSettings:     {},
}

// CanAccess reports whether role may reach the given route prefix.
//
// Rules, in order: unlisted prefixes are open to everyone; an absent role is
// denied on every listed prefix; Admin passes every listed prefix regardless
// of its entry. Total, never panics.
func CanAccess(role *Role, routePrefix string) bool {
	allowed, listed := matrix[normalizePrefix(routePrefix)]
	if !listed {
		return true
	}
	if role == nil {
		return false
	}
	if role.IsAdmin() {
		return true
	}
	for _, r := range allowed {
		if *role == r {
			return true
		}
	}
	return false
}

// ListedPrefixes returns every prefix guarded by the matrix.
func ListedPrefixes() []string {
	prefixes := make([]string, 0, len(matrix))
	for p := range matrix {
		prefixes = append(prefixes, p)
	}
	return prefixes
}

func normalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return strings.ToLower(p)
}
