package auth

import (
	"fmt"

	"github.com/spec-kit/attendance-service/internal/domain"
)

// rolePermissions is the closed role→permission table. Entries are
// resource:action strings; there is no runtime mutation.
var rolePermissions = map[domain.Role][]string{
	domain.RoleSuperAdmin: {
		"users:read", "users:write", "users:delete",
		"roles:read", "roles:write",
		"programs:read", "programs:write",
		"placements:read", "placements:write",
		"attendance:read", "attendance:write", "attendance:verify",
		"announcements:read", "announcements:write",
		"reports:read", "reports:write",
		"sessions:revoke",
	},
	domain.RoleAdmin: {
		"users:read", "users:write",
		"programs:read", "programs:write",
		"placements:read", "placements:write",
		"attendance:read", "attendance:write", "attendance:verify",
		"announcements:read", "announcements:write",
		"reports:read",
	},
	domain.RoleStudent: {
		"attendance:read", "attendance:write",
		"programs:read",
		"announcements:read",
	},
	domain.RoleEmployer: {
		"placements:read",
		"attendance:read", "attendance:verify",
		"announcements:read",
	},
}

// Permissions returns the permission set for a role. Unknown roles get none.
func Permissions(role domain.Role) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// HasPermission reports whether the role grants the permission.
func HasPermission(role domain.Role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// HasAny reports whether the role grants at least one of the permissions.
func HasAny(role domain.Role, permissions ...string) bool {
	for _, p := range permissions {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// HasAll reports whether the role grants every permission.
func HasAll(role domain.Role, permissions ...string) bool {
	for _, p := range permissions {
		if !HasPermission(role, p) {
			return false
		}
	}
	return true
}

// CanPerformAction checks a resource:action pair.
func CanPerformAction(role domain.Role, resource, action string) bool {
	return HasPermission(role, fmt.Sprintf("%s:%s", resource, action))
}
