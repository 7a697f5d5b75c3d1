package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/internal/limiters"
	"github.com/MrEthical07/authcore/notify"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/permission"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const maxAvatarLength = 255

// Signup creates an unconfirmed account and queues its confirmation email.
// The first account ever created becomes an admin; every later one is a
// user. Returns [ErrAccountExists] when the identity is taken and
// [ErrInvalidRequest] when the input fails validation.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (*account.Account, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.signupLimiter.Enforce(ctx, clientIPFromContext(ctx)); err != nil {
		if errors.Is(err, limiters.ErrRateLimited) {
			e.metricInc(MetricSignupRateLimited)
			e.emitAudit(ctx, auditEventSignupFailure, false, req.Identity, "", ErrSignupRateLimited, nil)
			return nil, ErrSignupRateLimited
		}
		e.warn(ctx, "signup limiter unavailable", "error", err)
	}

	res := flows.RunSignup(ctx, flows.SignupInput{
		Identity:    req.Identity,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	}, e.flowDeps.Signup)

	switch res.Failure {
	case flows.SignupFailureNone:
	case flows.SignupFailureInvalid:
		err := res.Err
		if !errors.Is(err, ErrInvalidRequest) {
			err = fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		e.emitAudit(ctx, auditEventSignupFailure, false, req.Identity, "", err, nil)
		return nil, err
	case flows.SignupFailureDuplicate:
		e.metricInc(MetricSignupDuplicate)
		e.emitAudit(ctx, auditEventSignupDuplicate, false, req.Identity, "", ErrAccountExists, nil)
		return nil, ErrAccountExists
	default:
		e.emitAudit(ctx, auditEventSignupFailure, false, req.Identity, "", res.Err, nil)
		return nil, fmt.Errorf("signup: %w", res.Err)
	}

	if res.NotifyErr != nil {
		e.warn(ctx, "confirmation email not queued", "identity", res.Account.Identity, "error", res.NotifyErr)
	}

	e.metricInc(MetricSignupSuccess)
	e.emitAudit(ctx, auditEventSignupSuccess, true, res.Account.Identity, "", nil, func() map[string]string {
		return map[string]string{"role": string(res.Account.Role)}
	})
	return publicAccount(res.Account), nil
}

// Profile returns the public view of identity's account.
func (e *Engine) Profile(ctx context.Context, identity string) (*account.Account, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	acct, err := e.store.GetByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	return publicAccount(acct), nil
}

// UpdateProfile changes actor's own display name and avatar.
func (e *Engine) UpdateProfile(ctx context.Context, actor *account.Account, upd ProfileUpdate) (*account.Account, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if actor == nil || actor.Identity == "" {
		return nil, ErrInvalidRequest
	}
	if err := e.validateProfile(upd); err != nil {
		return nil, err
	}

	updated, err := e.store.UpdateProfile(ctx, actor.Identity, account.ProfilePatch{
		DisplayName: upd.DisplayName,
		Avatar:      upd.Avatar,
	})
	if err != nil {
		e.emitAudit(ctx, auditEventProfileUpdate, false, actor.Identity, "", err, nil)
		return nil, err
	}
	e.overwriteCache(ctx, actor.Identity)
	e.emitAudit(ctx, auditEventProfileUpdate, true, actor.Identity, "", nil, nil)
	return publicAccount(updated), nil
}

// ChangePassword replaces actor's password after checking the current one.
// The stored refresh token is revoked so other devices must log in again.
func (e *Engine) ChangePassword(ctx context.Context, actor *account.Account, oldPassword, newPassword string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if actor == nil || actor.Identity == "" {
		return ErrInvalidRequest
	}
	identity := actor.Identity

	// The cached account carries no digest, so always read the store here.
	current, err := e.store.GetByIdentity(ctx, identity)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, identity, "", err, nil)
		return err
	}

	ok, err := e.hasher.Verify(oldPassword, current.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, auditEventPasswordChangeInvalidOld, false, identity, "", ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	digest, err := e.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) {
			err = fmt.Errorf("%w: %v", ErrInvalidRequest, err)
			e.emitAudit(ctx, auditEventPasswordChangeFailure, false, identity, "", err, nil)
			return err
		}
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, identity, "", err, nil)
		return fmt.Errorf("change password: %w", err)
	}

	if err := e.store.UpdatePasswordHash(ctx, identity, digest); err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, identity, "", err, nil)
		return err
	}
	if err := e.revocation.Clear(ctx, identity); err != nil {
		e.warn(ctx, "revoking refresh token after password change failed", "identity", identity, "error", err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, identity, "", nil, nil)
	return nil
}

// SetRole changes identity's role. actor must be an admin. The new role
// reaches access tokens minted from the next login or refresh.
func (e *Engine) SetRole(ctx context.Context, actor *account.Account, identity string, role permission.Role) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if actor == nil {
		return ErrForbidden
	}

	res := flows.RunSetRole(ctx, actor.Role, identity, role, e.flowDeps.Admin)
	if res.Err != nil {
		err := res.Err
		if errors.Is(err, permission.ErrUnknownRole) {
			err = fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		if errors.Is(err, ErrForbidden) {
			e.metricInc(MetricAuthorizeDenied)
		}
		e.emitAudit(ctx, auditEventRoleChange, false, identity, actor.Identity, err, nil)
		return err
	}
	if res.Changed {
		e.metricInc(MetricRoleChanged)
	}
	e.emitAudit(ctx, auditEventRoleChange, true, identity, actor.Identity, nil, func() map[string]string {
		return map[string]string{"role": string(role)}
	})
	return nil
}

// SetActive bans (active=false) or unbans identity. actor must be an admin.
// A ban also revokes the stored refresh token.
func (e *Engine) SetActive(ctx context.Context, actor *account.Account, identity string, active bool) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if actor == nil {
		return ErrForbidden
	}

	res := flows.RunSetActive(ctx, actor.Role, identity, active, e.flowDeps.Admin)
	if res.Err != nil {
		if errors.Is(res.Err, ErrForbidden) {
			e.metricInc(MetricAuthorizeDenied)
		}
		e.emitAudit(ctx, auditEventAccountStatusChange, false, identity, actor.Identity, res.Err, nil)
		return res.Err
	}
	if res.Changed {
		if active {
			e.metricInc(MetricAccountEnabled)
		} else {
			e.metricInc(MetricAccountDisabled)
		}
	}
	e.emitAudit(ctx, auditEventAccountStatusChange, true, identity, actor.Identity, nil, func() map[string]string {
		if active {
			return map[string]string{"active": "true"}
		}
		return map[string]string{"active": "false"}
	})
	return nil
}

func (e *Engine) validateSignup(in flows.SignupInput) error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Identity, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&in.DisplayName, validation.Required,
			validation.RuneLength(e.config.Account.DisplayNameMinLength, e.config.Account.DisplayNameMaxLength)),
		validation.Field(&in.Password, validation.Required,
			validation.Length(e.config.Password.MinPasswordBytes, e.config.Password.MaxPasswordBytes)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func (e *Engine) validateProfile(upd ProfileUpdate) error {
	errs := validation.Errors{}
	if upd.DisplayName != nil {
		errs["username"] = validation.Validate(*upd.DisplayName, validation.Required,
			validation.RuneLength(e.config.Account.DisplayNameMinLength, e.config.Account.DisplayNameMaxLength))
	}
	if upd.Avatar != nil {
		errs["avatar"] = validation.Validate(*upd.Avatar, validation.Length(0, maxAvatarLength))
	}
	if err := errs.Filter(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// sendVerification mints an email verification token for acct and queues
// it. It never waits for delivery.
func (e *Engine) sendVerification(ctx context.Context, acct *account.Account) error {
	token, err := e.jwtManager.CreateEmailVerification(acct.Identity)
	if err != nil {
		return err
	}
	msg := notify.NewMessage(notify.KindEmailVerification, acct.Identity, acct.DisplayName, token)
	if err := e.notifier.Enqueue(msg); err != nil {
		e.metricInc(MetricNotificationFailed)
		return err
	}
	e.metricInc(MetricEmailVerificationRequest)
	return nil
}

// publicAccount strips credentials before an account leaves the engine.
func publicAccount(a *account.Account) *account.Account {
	out := a.Clone()
	if out == nil {
		return nil
	}
	out.PasswordHash = ""
	out.RefreshToken = ""
	return out
}
