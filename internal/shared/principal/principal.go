// Package principal defines the authenticated caller and the closed set of roles
// used for every authorization decision.
package principal

import "fmt"

// Role is the closed enumeration of account roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleDonor Role = "donor"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleDonor, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts a stored or transmitted role string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Principal is the identity resolved by the authentication gate.
// Handlers must take caller identity from here and never from request payloads.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanManage reports whether the principal may modify or delete a resource owned by ownerID.
// Owners manage their own resources; admins manage everything.
func (p Principal) CanManage(ownerID string) bool {
	if p.UserID == "" {
		return false
	}
	return p.UserID == ownerID || p.IsAdmin()
}
