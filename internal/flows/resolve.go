package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/permission"
	"github.com/MrEthical07/authcore/session"
)

// ResolveFailureKind classifies resolve failures for root-level mapping.
type ResolveFailureKind int

const (
	ResolveFailureNone ResolveFailureKind = iota
	ResolveFailureDecode
	ResolveFailureNotFound
	ResolveFailureStore
)

// ResolveResult carries the resolved account or failure metadata.
type ResolveResult struct {
	Failure  ResolveFailureKind
	Err      error
	Claims   *jwt.Claims
	Account  *account.Account
	CacheHit bool
}

type SnapshotCache interface {
	Get(ctx context.Context, identity string) (*session.Snapshot, error)
	Set(ctx context.Context, s *session.Snapshot, ttl time.Duration) error
}

type AccountReader interface {
	GetByIdentity(ctx context.Context, identity string) (*account.Account, error)
}

// ResolveMetrics carries metric IDs for cache outcomes.
type ResolveMetrics struct {
	CacheHit   int
	CacheMiss  int
	CacheError int
}

// ResolveDeps captures resolve flow dependencies. Cache may be nil, in which
// case every call reads the store.
type ResolveDeps struct {
	DecodeAccess func(string) (*jwt.Claims, error)
	Cache        SnapshotCache
	Store        AccountReader
	CacheTTL     time.Duration
	MetricInc    func(int)
	Warn         func(ctx context.Context, msg string, args ...any)
	Metrics      ResolveMetrics
}

// RunResolve decodes an access token and loads the account it names,
// cache first. Cache failures of any kind degrade to a store read and are
// never returned. The role in the returned account is the one carried by the
// token, so a role change takes effect when the next access token is issued.
//
// A cached entry can lag the store by at most the cache TTL; the engine's
// write paths overwrite the entry to shorten that window.
func RunResolve(ctx context.Context, accessToken string, deps ResolveDeps) ResolveResult {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(context.Context, string, ...any) {}
	}

	claims, err := deps.DecodeAccess(accessToken)
	if err != nil {
		return ResolveResult{Failure: ResolveFailureDecode, Err: err}
	}
	tokenRole, err := permission.ParseRole(claims.Role)
	if err != nil {
		return ResolveResult{Failure: ResolveFailureDecode, Err: err, Claims: claims}
	}
	identity := claims.Subject

	var acct *account.Account
	hit := false
	if deps.Cache != nil {
		snap, err := deps.Cache.Get(ctx, identity)
		switch {
		case err == nil:
			if acct, err = AccountFromSnapshot(snap); err != nil || acct.Identity != identity {
				acct = nil
				deps.MetricInc(deps.Metrics.CacheError)
				deps.Warn(ctx, "discarding inconsistent cache entry", "identity", identity)
			} else {
				hit = true
				deps.MetricInc(deps.Metrics.CacheHit)
			}
		case errors.Is(err, session.ErrCacheMiss):
			deps.MetricInc(deps.Metrics.CacheMiss)
		default:
			deps.MetricInc(deps.Metrics.CacheError)
			deps.Warn(ctx, "cache read failed, using store", "identity", identity, "error", err)
		}
	}

	if acct == nil {
		acct, err = deps.Store.GetByIdentity(ctx, identity)
		if err != nil {
			if errors.Is(err, account.ErrNotFound) {
				return ResolveResult{Failure: ResolveFailureNotFound, Err: err, Claims: claims}
			}
			return ResolveResult{Failure: ResolveFailureStore, Err: err, Claims: claims}
		}
		if deps.Cache != nil {
			if err := deps.Cache.Set(ctx, SnapshotFromAccount(acct), deps.CacheTTL); err != nil {
				deps.Warn(ctx, "cache write-back failed", "identity", identity, "error", err)
			}
		}
	}

	resolved := acct.Clone()
	resolved.Role = tokenRole
	return ResolveResult{Claims: claims, Account: resolved, CacheHit: hit}
}
