package auth

import "strings"

// Role is a platform role carried in the access token.
type Role string

const (
	RoleSuperAdmin       Role = "superadmin"
	RoleAdmin            Role = "admin"
	RoleDirector         Role = "director"
	RoleCoordinator      Role = "coordinator"
	RoleSchoolManagement Role = "school_management"
	RoleTeacher          Role = "teacher"
	RoleStudent          Role = "student"
	RoleGuardian         Role = "guardian"
)

// GlobalTenant is the tenant id used for platform-wide records.
const GlobalTenant = "global"

// ParseRole normalizes a role name. Unknown names report false.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleDirector, RoleCoordinator,
		RoleSchoolManagement, RoleTeacher, RoleStudent, RoleGuardian:
		return r, true
	}
	return "", false
}

// IsStaff reports whether the role belongs to school staff.
func (r Role) IsStaff() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleDirector, RoleCoordinator, RoleSchoolManagement, RoleTeacher:
		return true
	default:
		return false
	}
}

// CanReceiveDirectFromTeacher reports whether a teacher may address a user
// with this role without going through a group.
func (r Role) CanReceiveDirectFromTeacher() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleCoordinator, RoleSchoolManagement, RoleTeacher:
		return true
	default:
		return false
	}
}

// CanListTenant reports whether the role sees every message of its tenant.
func (r Role) CanListTenant() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleDirector, RoleCoordinator, RoleSchoolManagement:
		return true
	default:
		return false
	}
}

// Identity is the authenticated caller.
type Identity struct {
	Email    string
	Name     string
	Role     Role
	TenantID string
}

// Tenant returns the caller's tenant, defaulting to the global tenant.
func (i Identity) Tenant() string {
	if strings.TrimSpace(i.TenantID) == "" {
		return GlobalTenant
	}
	return i.TenantID
}

// IsGlobal reports whether the caller acts across tenants.
func (i Identity) IsGlobal() bool {
	if i.Role == RoleSuperAdmin {
		return true
	}
	return i.Role == RoleAdmin && strings.EqualFold(i.Tenant(), GlobalTenant)
}
