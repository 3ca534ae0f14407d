package domain

import "github.com/google/uuid"

// Roles with account-management meaning.
const (
	RoleOrgAdmin       = "ORG-ADMIN"
	RoleUserManager    = "USER-MANAGER"
	RoleRoleManager    = "ROLE-MANAGER"
	RoleLicenseManager = "LICENSE-MANAGER"
)

// Caller is the immutable identity of the request originator, produced by the
// authentication layer and threaded explicitly through every service call.
type Caller struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	SolutionID     string
	Roles          []string
}

// HasRole reports whether the caller holds the given role.
func (c Caller) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the caller holds any of the given roles.
func (c Caller) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if c.HasRole(r) {
			return true
		}
	}
	return false
}
