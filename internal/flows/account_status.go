package flows

import (
	"context"

	"github.com/MrEthical07/authcore/permission"
)

type RefreshClearer interface {
	Clear(ctx context.Context, identity string) error
}

// AccountAdminDeps captures dependencies of admin-only account changes.
type AccountAdminDeps struct {
	Accounts     AccountReader
	UpdateRole   func(ctx context.Context, identity string, role permission.Role) error
	UpdateActive func(ctx context.Context, identity string, active bool) error
	Revocation   RefreshClearer
	AfterWrite   func(ctx context.Context, identity string)
}

// AdminChange reports whether a stored value actually changed.
type AdminChange struct {
	Changed bool
	Err     error
}

// RunSetRole checks actorRole against permission.Admins and stores role.
func RunSetRole(ctx context.Context, actorRole permission.Role, identity string, role permission.Role, deps AccountAdminDeps) AdminChange {
	if err := permission.Authorize(actorRole, permission.Admins); err != nil {
		return AdminChange{Err: err}
	}
	if !role.Valid() {
		return AdminChange{Err: permission.ErrUnknownRole}
	}

	current, err := deps.Accounts.GetByIdentity(ctx, identity)
	if err != nil {
		return AdminChange{Err: err}
	}
	if current.Role == role {
		return AdminChange{}
	}
	if err := deps.UpdateRole(ctx, identity, role); err != nil {
		return AdminChange{Err: err}
	}
	if deps.AfterWrite != nil {
		deps.AfterWrite(ctx, identity)
	}
	return AdminChange{Changed: true}
}

// RunSetActive bans or unbans identity. A ban also clears the stored refresh
// token so the account cannot mint new access tokens.
func RunSetActive(ctx context.Context, actorRole permission.Role, identity string, active bool, deps AccountAdminDeps) AdminChange {
	if err := permission.Authorize(actorRole, permission.Admins); err != nil {
		return AdminChange{Err: err}
	}

	current, err := deps.Accounts.GetByIdentity(ctx, identity)
	if err != nil {
		return AdminChange{Err: err}
	}
	changed := current.Active != active
	if changed {
		if err := deps.UpdateActive(ctx, identity, active); err != nil {
			return AdminChange{Err: err}
		}
	}
	if !active {
		if err := deps.Revocation.Clear(ctx, identity); err != nil {
			return AdminChange{Changed: changed, Err: err}
		}
	}
	if changed && deps.AfterWrite != nil {
		deps.AfterWrite(ctx, identity)
	}
	return AdminChange{Changed: changed}
}
