package auth

import "fmt"

// Role is the marketplace capability stored on a user record.
type Role string

const (
	RoleUnset  Role = ""
	RoleBuyer  Role = "Buyer"
	RoleSeller Role = "Seller"
	RoleAdmin  Role = "Admin"
)

// ParseRole accepts the stored spelling of a role. The empty string is RoleUnset.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUnset, RoleBuyer, RoleSeller, RoleAdmin:
		return Role(s), nil
	default:
		return RoleUnset, fmt.Errorf("unknown role %q", s)
	}
}

// String returns the stored spelling, or "unset".
func (r Role) String() string {
	if r == RoleUnset {
		return "unset"
	}
	return string(r)
}
