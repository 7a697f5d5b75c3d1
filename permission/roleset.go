package permission

import "strings"

// RoleSet is a bitmask of roles. The zero value allows nobody.
type RoleSet uint64

var (
	// Admins allows only administrators (user-record updates).
	Admins = NewRoleSet(RoleAdmin)
	// Moderators allows administrators and moderators (comment deletion).
	Moderators = NewRoleSet(RoleAdmin, RoleModerator)
	// Everyone allows every authenticated role.
	Everyone = NewRoleSet(Roles...)
)

// NewRoleSet builds a set from roles. Unknown roles are ignored.
func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s.Add(r)
	}
	return s
}

func (s *RoleSet) Add(r Role) {
	bit := r.bit()
	if bit < 0 {
		return
	}
	*s |= 1 << bit
}

func (s *RoleSet) Remove(r Role) {
	bit := r.bit()
	if bit < 0 {
		return
	}
	*s &^= 1 << bit
}

func (s RoleSet) Has(r Role) bool {
	bit := r.bit()
	if bit < 0 {
		return false
	}
	return s&(1<<bit) != 0
}

// Members returns the roles in s in ascending privilege order.
func (s RoleSet) Members() []Role {
	out := make([]Role, 0, len(Roles))
	for _, r := range Roles {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s RoleSet) String() string {
	members := s.Members()
	parts := make([]string, len(members))
	for i, r := range members {
		parts[i] = string(r)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
