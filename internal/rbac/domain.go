// Package rbac defines the actor roles and the static route matrix gating
// which role may reach which part of the application.
package rbac

import (
	"fmt"
	"strings"
)

// Role is the actor category assigned to a user at creation. Immutable.
type Role string

const (
	RoleAdmin               Role = "ADMIN"
	RoleOfficeOfContracting Role = "OFFICE_OF_CONTRACTING"
	RolePresident           Role = "PRESIDENT"
	RoleOfficeOfSupport     Role = "OFFICE_OF_SUPPORT"
	RoleFinance             Role = "FINANCE"
	RoleUser                Role = "USER"
	RoleViewer              Role = "VIEWER"
)

// Roles lists every known role.
var Roles = []Role{
	RoleAdmin,
	RoleOfficeOfContracting,
	RolePresident,
	RoleOfficeOfSupport,
	RoleFinance,
	RoleUser,
	RoleViewer,
}

// ParseRole converts a stored or submitted value into a Role, rejecting
// anything outside the closed set.
func ParseRole(raw string) (Role, error) {
	candidate := Role(strings.ToUpper(strings.TrimSpace(raw)))
	for _, r := range Roles {
		if candidate == r {
			return r, nil
		}
	}
	return "", fmt.Errorf("rbac: unknown role %q", raw)
}

// IsAdmin reports whether the role carries the super-role bypass.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}
