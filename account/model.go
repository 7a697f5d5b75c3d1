package account

import (
	"time"

	"github.com/MrEthical07/authcore/permission"
)

// Account is a registered principal. Identity is the email address and is
// immutable after creation. An empty RefreshToken means no refresh token is
// currently valid for the account.
type Account struct {
	Identity     string
	DisplayName  string
	Avatar       string
	PasswordHash string
	Confirmed    bool
	Active       bool
	Role         permission.Role
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone returns a copy that callers may mutate freely.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// CreateInput carries the fields a new account is created with. The role is
// not part of the input: the store obtains it from the RoleAssigner while
// holding its bootstrap lock.
type CreateInput struct {
	Identity     string
	DisplayName  string
	Avatar       string
	PasswordHash string
}

// ProfilePatch lists the user-editable profile fields. Nil fields are left
// unchanged.
type ProfilePatch struct {
	DisplayName *string
	Avatar      *string
}
