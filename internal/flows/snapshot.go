package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/permission"
	"github.com/MrEthical07/authcore/session"
)

// SnapshotFromAccount builds the cacheable view of a.
func SnapshotFromAccount(a *account.Account) *session.Snapshot {
	return &session.Snapshot{
		Identity:    a.Identity,
		DisplayName: a.DisplayName,
		Avatar:      a.Avatar,
		Role:        string(a.Role),
		Confirmed:   a.Confirmed,
		Active:      a.Active,
		CreatedAt:   a.CreatedAt.Unix(),
		UpdatedAt:   a.UpdatedAt.Unix(),
	}
}

// AccountFromSnapshot rebuilds an account from a cached snapshot. The result
// has no password digest or refresh token.
func AccountFromSnapshot(s *session.Snapshot) (*account.Account, error) {
	role, err := permission.ParseRole(s.Role)
	if err != nil {
		return nil, err
	}
	return &account.Account{
		Identity:    s.Identity,
		DisplayName: s.DisplayName,
		Avatar:      s.Avatar,
		Role:        role,
		Confirmed:   s.Confirmed,
		Active:      s.Active,
		CreatedAt:   time.Unix(s.CreatedAt, 0).UTC(),
		UpdatedAt:   time.Unix(s.UpdatedAt, 0).UTC(),
	}, nil
}

// CacheWriter is the part of the snapshot cache used after account writes.
type CacheWriter interface {
	Set(ctx context.Context, s *session.Snapshot, ttl time.Duration) error
	Delete(ctx context.Context, identity string) error
}

// OverwriteCache replaces the cached entry of identity with the stored
// record. If the record cannot be read the entry is dropped instead, so a
// stale snapshot never outlives a write.
func OverwriteCache(ctx context.Context, cache CacheWriter, store AccountReader, identity string, ttl time.Duration, warn func(ctx context.Context, msg string, args ...any)) {
	if cache == nil {
		return
	}
	if warn == nil {
		warn = func(context.Context, string, ...any) {}
	}

	acct, err := store.GetByIdentity(ctx, identity)
	if err == nil {
		err = cache.Set(ctx, SnapshotFromAccount(acct), ttl)
		if err == nil {
			return
		}
	}
	warn(ctx, "cache overwrite failed, dropping entry", "identity", identity, "error", err)
	if err := cache.Delete(ctx, identity); err != nil {
		warn(ctx, "cache delete failed", "identity", identity, "error", err)
	}
}
