package auth

import "strings"

// Role is the coarse authorization label resolved from backend user records.
type Role string

const (
	RoleMember Role = "member"
	RoleHost   Role = "host"
	RoleAdmin  Role = "admin"

	// RoleUnresolved means no backend record matched the identity, or role
	// resolution has not completed. It is distinct from every named role and
	// from being signed out.
	RoleUnresolved Role = ""
)

// ParseRole maps a backend role string onto the closed enum. Unknown or empty
// input maps to RoleUnresolved, never to a named role.
func ParseRole(v string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(v))) {
	case RoleMember:
		return RoleMember
	case RoleHost:
		return RoleHost
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUnresolved
	}
}

func (r Role) Known() bool {
	switch r {
	case RoleMember, RoleHost, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	if r == RoleUnresolved {
		return "unresolved"
	}
	return string(r)
}
