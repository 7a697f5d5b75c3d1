package permission

import "errors"

// ErrForbidden is returned when a role is not a member of the allowed set.
var ErrForbidden = errors.New("forbidden")

// Authorize allows role when it is a member of allowed. It performs no I/O.
func Authorize(role Role, allowed RoleSet) error {
	if !allowed.Has(role) {
		return ErrForbidden
	}
	return nil
}

// InitialRole returns the role for a new account given how many accounts the
// store held before the insert. Callers must hold the store-wide signup lock
// between counting and inserting.
func InitialRole(existing int64) Role {
	if existing == 0 {
		return RoleAdmin
	}
	return RoleUser
}
