package security

import "strings"

// Role is a closed set of account roles. Authorization decisions go through
// the predicates below rather than comparing raw strings in handlers.
type Role string

const (
	// RoleSuperAdmin administers every tenant.
	RoleSuperAdmin Role = "superadmin"
	// RoleAdmin administers its own tenant.
	RoleAdmin Role = "admin"
	// RoleUser is a regular caller subject to permissions and quotas.
	RoleUser Role = "user"
	// RoleModerator is a regular caller with elevated UI rights.
	RoleModerator Role = "moderator"
	// RoleViewer is a read-only caller.
	RoleViewer Role = "viewer"
)

// ParseRole normalizes and validates a role name.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleUser, RoleModerator, RoleViewer:
		return role, true
	default:
		return "", false
	}
}

// IsPrivileged reports whether the role bypasses per-service permissions
// and request quotas.
func (r Role) IsPrivileged() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// CrossTenant reports whether the role's administrative authority spans
// tenants. Only SuperAdmin is not tenant-bound, and only on the admin API;
// proxy-path resolution is always scoped to the token's tenant.
func (r Role) CrossTenant() bool {
	return r == RoleSuperAdmin
}

func (r Role) String() string {
	return string(r)
}
