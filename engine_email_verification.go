package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/internal/limiters"
)

// ConfirmEmail marks the subject of an email verification token as
// confirmed. Confirming an already confirmed account succeeds with
// [ConfirmResultAlreadyConfirmed]. Access and refresh tokens are rejected
// with [ErrWrongScope].
func (e *Engine) ConfirmEmail(ctx context.Context, token string) (ConfirmResult, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}

	res := flows.RunConfirmEmail(ctx, token, e.flowDeps.Confirm)
	switch res.Failure {
	case flows.ConfirmFailureNone:
	case flows.ConfirmFailureDecode:
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, auditEventEmailVerificationConfirm, false, "", "", res.Err, nil)
		return 0, res.Err
	case flows.ConfirmFailureNotFound:
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, auditEventEmailVerificationConfirm, false, res.Identity, "", ErrAccountNotFound, nil)
		return 0, ErrAccountNotFound
	default:
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, auditEventEmailVerificationConfirm, false, res.Identity, "", res.Err, nil)
		return 0, fmt.Errorf("confirm email: %w", res.Err)
	}

	if res.AlreadyConfirmed {
		e.emitAudit(ctx, auditEventEmailVerificationConfirm, true, res.Identity, "", nil, func() map[string]string {
			return map[string]string{"noop": "already_confirmed"}
		})
		return ConfirmResultAlreadyConfirmed, nil
	}

	e.metricInc(MetricEmailVerificationSuccess)
	e.emitAudit(ctx, auditEventEmailVerificationConfirm, true, res.Identity, "", nil, nil)
	return ConfirmResultConfirmed, nil
}

// RequestEmailVerification queues a new confirmation email for identity.
// Unknown identities and confirmed accounts return nil without sending
// anything.
func (e *Engine) RequestEmailVerification(ctx context.Context, identity string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if identity == "" {
		return ErrInvalidRequest
	}

	if err := e.resendLimiter.CheckRequest(ctx, identity, clientIPFromContext(ctx)); err != nil {
		if errors.Is(err, limiters.ErrRateLimited) {
			e.metricInc(MetricEmailVerificationRateLimited)
			e.emitAudit(ctx, auditEventEmailVerificationRequest, false, identity, "", ErrVerificationRateLimited, nil)
			return ErrVerificationRateLimited
		}
		e.warn(ctx, "email verification limiter unavailable", "error", err)
	}

	res := flows.RunRequestEmailVerification(ctx, identity, e.flowDeps.RequestEmail)
	if res.Err != nil {
		e.emitAudit(ctx, auditEventEmailVerificationRequest, false, identity, "", res.Err, nil)
		return fmt.Errorf("request email verification: %w", res.Err)
	}

	e.emitAudit(ctx, auditEventEmailVerificationRequest, true, identity, "", nil, func() map[string]string {
		if res.Noop != "" {
			return map[string]string{"noop": res.Noop}
		}
		return nil
	})
	return nil
}
