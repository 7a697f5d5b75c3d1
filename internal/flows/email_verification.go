package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/jwt"
)

// ConfirmFailureKind classifies confirmation failures.
type ConfirmFailureKind int

const (
	ConfirmFailureNone ConfirmFailureKind = iota
	ConfirmFailureDecode
	ConfirmFailureNotFound
	ConfirmFailureStore
)

type ConfirmResult struct {
	Failure          ConfirmFailureKind
	Err              error
	Identity         string
	AlreadyConfirmed bool
}

type ConfirmDeps struct {
	DecodeVerification func(string) (*jwt.Claims, error)
	Accounts           AccountReader
	MarkConfirmed      func(ctx context.Context, identity string) error
	// AfterWrite runs once the confirmed flag is stored.
	AfterWrite func(ctx context.Context, identity string)
}

// RunConfirmEmail marks the token's subject as confirmed. Confirming twice
// is not an error; the second call reports AlreadyConfirmed.
func RunConfirmEmail(ctx context.Context, token string, deps ConfirmDeps) ConfirmResult {
	claims, err := deps.DecodeVerification(token)
	if err != nil {
		return ConfirmResult{Failure: ConfirmFailureDecode, Err: err}
	}
	identity := claims.Subject

	acct, err := deps.Accounts.GetByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ConfirmResult{Failure: ConfirmFailureNotFound, Err: err, Identity: identity}
		}
		return ConfirmResult{Failure: ConfirmFailureStore, Err: err, Identity: identity}
	}
	if acct.Confirmed {
		return ConfirmResult{Identity: identity, AlreadyConfirmed: true}
	}

	if err := deps.MarkConfirmed(ctx, identity); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ConfirmResult{Failure: ConfirmFailureNotFound, Err: err, Identity: identity}
		}
		return ConfirmResult{Failure: ConfirmFailureStore, Err: err, Identity: identity}
	}
	if deps.AfterWrite != nil {
		deps.AfterWrite(ctx, identity)
	}
	return ConfirmResult{Identity: identity}
}

// RequestVerificationResult reports what RunRequestEmailVerification did.
// Noop names the reason nothing was sent.
type RequestVerificationResult struct {
	Err  error
	Sent bool
	Noop string
}

type RequestVerificationDeps struct {
	Accounts         AccountReader
	SendVerification func(ctx context.Context, acct *account.Account) error
}

// RunRequestEmailVerification re-sends the confirmation message. Unknown
// identities and confirmed accounts are silent no-ops so the result cannot be
// used to probe which identities exist.
func RunRequestEmailVerification(ctx context.Context, identity string, deps RequestVerificationDeps) RequestVerificationResult {
	acct, err := deps.Accounts.GetByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return RequestVerificationResult{Noop: "unknown_identity"}
		}
		return RequestVerificationResult{Err: err}
	}
	if acct.Confirmed {
		return RequestVerificationResult{Noop: "already_confirmed"}
	}
	if !acct.Active {
		return RequestVerificationResult{Noop: "inactive"}
	}
	if err := deps.SendVerification(ctx, acct); err != nil {
		return RequestVerificationResult{Err: err}
	}
	return RequestVerificationResult{Sent: true}
}
