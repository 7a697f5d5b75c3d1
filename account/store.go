package account

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/permission"
)

var (
	// ErrNotFound is returned when no account matches the identity.
	ErrNotFound = errors.New("account not found")
	// ErrExists is returned by CreateAccount when the identity is taken.
	ErrExists = errors.New("account already exists")
)

// RoleAssigner picks the role of a new account from the number of accounts
// that already exist.
type RoleAssigner func(existing int64) permission.Role

// Store is the persistence contract consumed by the engine.
//
// CreateAccount must count existing accounts and insert the new one as a
// single serialized step, so that of two concurrent first signups exactly
// one receives the role assign(0) returns.
//
// SwapRefreshToken must be a single conditional update: it stores next only
// if the current value equals presented and reports whether it did.
type Store interface {
	GetByIdentity(ctx context.Context, identity string) (*Account, error)
	CreateAccount(ctx context.Context, in CreateInput, assign RoleAssigner) (*Account, error)
	SetRefreshToken(ctx context.Context, identity, token string) error
	SwapRefreshToken(ctx context.Context, identity, presented, next string) (bool, error)
	MarkConfirmed(ctx context.Context, identity string) error
	UpdateRole(ctx context.Context, identity string, role permission.Role) error
	UpdateActive(ctx context.Context, identity string, active bool) error
	UpdateProfile(ctx context.Context, identity string, patch ProfilePatch) (*Account, error)
	UpdatePasswordHash(ctx context.Context, identity, hash string) error
}
