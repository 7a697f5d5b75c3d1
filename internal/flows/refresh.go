package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/permission"
	"github.com/MrEthical07/authcore/revocation"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureRateLimited
	RefreshFailureNotFound
	RefreshFailureAccountStatus
	RefreshFailureIssue
	RefreshFailureReuse
	RefreshFailureRotate
)

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	Identity     string
	AccessToken  string
	RefreshToken string
}

type RefreshRateLimiter interface {
	CheckRefresh(ctx context.Context, identity string) error
}

type RefreshRotator interface {
	RotateOrReject(ctx context.Context, identity, presented, next string) error
	Clear(ctx context.Context, identity string) error
}

// RefreshDeps captures refresh flow dependencies. RateLimiter may be nil.
type RefreshDeps struct {
	DecodeRefresh func(string) (*jwt.Claims, error)
	Accounts      AccountReader
	RateLimiter   RefreshRateLimiter
	Revocation    RefreshRotator
	IssueAccess   func(identity string, role permission.Role) (string, error)
	IssueRefresh  func(identity string) (string, error)
	Warn          func(ctx context.Context, msg string, args ...any)
}

// RunRefresh exchanges a refresh token for a new pair. The presented token
// must be the stored one; anything else clears the stored token and fails
// with RefreshFailureReuse.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	if deps.Warn == nil {
		deps.Warn = func(context.Context, string, ...any) {}
	}

	claims, err := deps.DecodeRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}
	identity := claims.Subject

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckRefresh(ctx, identity); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				return RefreshResult{Failure: RefreshFailureRateLimited, Err: err, Identity: identity}
			}
			deps.Warn(ctx, "refresh limiter unavailable", "error", err)
		}
	}

	acct, err := deps.Accounts.GetByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return RefreshResult{Failure: RefreshFailureNotFound, Err: err, Identity: identity}
		}
		return RefreshResult{Failure: RefreshFailureRotate, Err: err, Identity: identity}
	}
	if !acct.Active {
		if err := deps.Revocation.Clear(ctx, identity); err != nil {
			deps.Warn(ctx, "clearing refresh token of inactive account failed", "identity", identity, "error", err)
		}
		return RefreshResult{Failure: RefreshFailureAccountStatus, Identity: identity}
	}

	access, err := deps.IssueAccess(identity, acct.Role)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, Identity: identity}
	}
	next, err := deps.IssueRefresh(identity)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, Identity: identity}
	}

	if err := deps.Revocation.RotateOrReject(ctx, identity, refreshToken, next); err != nil {
		if errors.Is(err, revocation.ErrRefreshTokenMismatch) {
			return RefreshResult{Failure: RefreshFailureReuse, Err: err, Identity: identity}
		}
		return RefreshResult{Failure: RefreshFailureRotate, Err: err, Identity: identity}
	}

	return RefreshResult{Identity: identity, AccessToken: access, RefreshToken: next}
}
