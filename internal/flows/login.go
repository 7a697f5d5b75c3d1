package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/permission"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureInvalidCredentials
	LoginFailureInactive
	LoginFailureUnconfirmed
	LoginFailureStore
	LoginFailureIssue
	LoginFailurePersist
)

// LoginResult carries the issued pair or failure metadata. Reason is a short
// machine-readable cause for audit records.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	Reason       string
	Account      *account.Account
	AccessToken  string
	RefreshToken string
}

type LoginRateLimiter interface {
	CheckLogin(ctx context.Context, identity string) error
	IncrementLogin(ctx context.Context, identity string) error
	ResetLogin(ctx context.Context, identity string) error
}

type RefreshIssuer interface {
	Issue(ctx context.Context, identity, token string) error
}

// LoginDeps captures login flow dependencies. RateLimiter may be nil.
type LoginDeps struct {
	RequireConfirmed   bool
	UpgradeOnLogin     bool
	RateLimiter        LoginRateLimiter
	Accounts           AccountReader
	Hasher             password.Hasher
	UpdatePasswordHash func(ctx context.Context, identity, hash string) error
	IssueAccess        func(identity string, role permission.Role) (string, error)
	IssueRefresh       func(identity string) (string, error)
	Revocation         RefreshIssuer
	Warn               func(ctx context.Context, msg string, args ...any)
}

// RunLogin verifies credentials, issues an access/refresh pair and records
// the refresh token as the account's only valid one.
func RunLogin(ctx context.Context, identity, pw string, deps LoginDeps) LoginResult {
	if deps.Warn == nil {
		deps.Warn = func(context.Context, string, ...any) {}
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckLogin(ctx, identity); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				return LoginResult{Failure: LoginFailureRateLimited, Err: err, Reason: "rate_limited"}
			}
			deps.Warn(ctx, "login limiter unavailable", "error", err)
		}
	}

	fail := func(reason string) LoginResult {
		if deps.RateLimiter != nil {
			if err := deps.RateLimiter.IncrementLogin(ctx, identity); err != nil && !errors.Is(err, rate.ErrRateLimited) {
				deps.Warn(ctx, "login limiter increment failed", "error", err)
			}
		}
		return LoginResult{Failure: LoginFailureInvalidCredentials, Reason: reason}
	}

	if pw == "" {
		return fail("empty_password")
	}

	acct, err := deps.Accounts.GetByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return fail("account_not_found")
		}
		return LoginResult{Failure: LoginFailureStore, Err: err, Reason: "store_error"}
	}

	ok, err := deps.Hasher.Verify(pw, acct.PasswordHash)
	if err != nil || !ok {
		return fail("password_mismatch")
	}

	if !acct.Active {
		return LoginResult{Failure: LoginFailureInactive, Reason: "inactive", Account: acct}
	}
	if deps.RequireConfirmed && !acct.Confirmed {
		return LoginResult{Failure: LoginFailureUnconfirmed, Reason: "unconfirmed", Account: acct}
	}

	if deps.UpgradeOnLogin && deps.UpdatePasswordHash != nil {
		if needs, err := deps.Hasher.NeedsUpgrade(acct.PasswordHash); err == nil && needs {
			if upgraded, err := deps.Hasher.Hash(pw); err == nil {
				if err := deps.UpdatePasswordHash(ctx, identity, upgraded); err != nil {
					deps.Warn(ctx, "password hash upgrade update failed", "identity", identity, "error", err)
				}
			} else {
				deps.Warn(ctx, "password hash upgrade generation failed", "identity", identity, "error", err)
			}
		}
	}
	pw = ""

	access, err := deps.IssueAccess(acct.Identity, acct.Role)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, Account: acct}
	}
	refresh, err := deps.IssueRefresh(acct.Identity)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, Account: acct}
	}
	if err := deps.Revocation.Issue(ctx, acct.Identity, refresh); err != nil {
		return LoginResult{Failure: LoginFailurePersist, Err: err, Account: acct}
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.ResetLogin(ctx, identity); err != nil {
			deps.Warn(ctx, "login limiter reset failed", "error", err)
		}
	}

	return LoginResult{Account: acct, AccessToken: access, RefreshToken: refresh}
}
