package permission

import (
	"errors"
	"strings"
)

// ErrUnknownRole is returned by [ParseRole] for values outside the enumeration.
var ErrUnknownRole = errors.New("unknown role")

// Role is one of the closed set user, moderator, admin.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Roles lists every valid role in ascending privilege order.
var Roles = []Role{RoleUser, RoleModerator, RoleAdmin}

// ParseRole maps a wire value onto the enumeration. Matching is exact after
// trimming surrounding whitespace.
func ParseRole(value string) (Role, error) {
	switch r := Role(strings.TrimSpace(value)); r {
	case RoleUser, RoleModerator, RoleAdmin:
		return r, nil
	default:
		return "", ErrUnknownRole
	}
}

// Valid reports whether r belongs to the enumeration.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string {
	return string(r)
}

func (r Role) bit() int {
	switch r {
	case RoleUser:
		return 0
	case RoleModerator:
		return 1
	case RoleAdmin:
		return 2
	default:
		return -1
	}
}
