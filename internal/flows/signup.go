package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/password"
)

// SignupFailureKind classifies signup failures for root-level mapping.
type SignupFailureKind int

const (
	SignupFailureNone SignupFailureKind = iota
	SignupFailureInvalid
	SignupFailureDuplicate
	SignupFailureHash
	SignupFailureStore
)

type SignupInput struct {
	Identity    string
	DisplayName string
	Password    string
}

// SignupResult carries the created account. NotifyErr is set when the
// account exists but its confirmation message could not be queued.
type SignupResult struct {
	Failure   SignupFailureKind
	Err       error
	Account   *account.Account
	NotifyErr error
}

type AccountCreator interface {
	CreateAccount(ctx context.Context, in account.CreateInput, assign account.RoleAssigner) (*account.Account, error)
}

// SignupDeps captures signup flow dependencies. Validate and SendVerification
// may be nil.
type SignupDeps struct {
	Validate         func(SignupInput) error
	Hasher           password.Hasher
	Accounts         AccountCreator
	AssignRole       account.RoleAssigner
	SendVerification func(ctx context.Context, acct *account.Account) error
}

// RunSignup creates an unconfirmed account and queues its confirmation
// message. The role is picked by AssignRole inside the store's serialized
// create step.
func RunSignup(ctx context.Context, in SignupInput, deps SignupDeps) SignupResult {
	if deps.Validate != nil {
		if err := deps.Validate(in); err != nil {
			return SignupResult{Failure: SignupFailureInvalid, Err: err}
		}
	}

	digest, err := deps.Hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) {
			return SignupResult{Failure: SignupFailureInvalid, Err: err}
		}
		return SignupResult{Failure: SignupFailureHash, Err: err}
	}
	in.Password = ""

	acct, err := deps.Accounts.CreateAccount(ctx, account.CreateInput{
		Identity:     in.Identity,
		DisplayName:  in.DisplayName,
		PasswordHash: digest,
	}, deps.AssignRole)
	if err != nil {
		if errors.Is(err, account.ErrExists) {
			return SignupResult{Failure: SignupFailureDuplicate, Err: err}
		}
		return SignupResult{Failure: SignupFailureStore, Err: err}
	}

	result := SignupResult{Account: acct}
	if deps.SendVerification != nil {
		result.NotifyErr = deps.SendVerification(ctx, acct)
	}
	return result
}
