package authcore

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/permission"
	"github.com/MrEthical07/authcore/revocation"
)

var (
	// ErrInvalidCredentials is returned for unknown identities and wrong
	// passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive is returned for banned accounts.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountUnconfirmed is returned by Login while the email address is
	// unconfirmed and AccountConfig.RequireConfirmedLogin is set.
	ErrAccountUnconfirmed = errors.New("account email not confirmed")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrLoginRateLimited   = errors.New("login rate limited")
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	ErrSignupRateLimited  = errors.New("signup rate limited")
	// ErrVerificationRateLimited is returned by RequestEmailVerification
	// once the resend budget is used up.
	ErrVerificationRateLimited = errors.New("email verification rate limited")
	ErrEngineNotReady          = errors.New("engine not initialized")
	// ErrTokenSubjectNotFound is returned, joined with ErrAccountNotFound,
	// when a valid token names an account that no longer exists.
	ErrTokenSubjectNotFound = errors.New("token subject not found")

	// Aliases of package-level sentinels so callers only import authcore.
	ErrTokenExpired         = jwt.ErrTokenExpired
	ErrTokenMalformed       = jwt.ErrTokenMalformed
	ErrWrongScope           = jwt.ErrWrongScope
	ErrRefreshTokenMismatch = revocation.ErrRefreshTokenMismatch
	ErrForbidden            = permission.ErrForbidden
	ErrAccountNotFound      = account.ErrNotFound
	ErrAccountExists        = account.ErrExists
)

// errSubjectGone matches both ErrTokenSubjectNotFound and ErrAccountNotFound.
var errSubjectGone = fmt.Errorf("%w: %w", ErrTokenSubjectNotFound, ErrAccountNotFound)

// IsAuthenticationError reports whether err means the caller could not be
// authenticated (as opposed to being authenticated but not allowed).
func IsAuthenticationError(err error) bool {
	for _, target := range []error{
		ErrInvalidCredentials,
		ErrAccountInactive,
		ErrAccountUnconfirmed,
		ErrTokenExpired,
		ErrTokenMalformed,
		ErrWrongScope,
		ErrRefreshTokenMismatch,
		ErrTokenSubjectNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
