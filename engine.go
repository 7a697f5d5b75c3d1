package authcore

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/account"
	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/flows"
	"github.com/MrEthical07/authcore/internal/limiters"
	"github.com/MrEthical07/authcore/internal/logging"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/notify"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/permission"
	"github.com/MrEthical07/authcore/revocation"
	"github.com/MrEthical07/authcore/session"
)

// Engine issues and checks credentials. It is safe for concurrent use once
// built by [Builder.Build].
type Engine struct {
	config        Config
	store         account.Store
	cache         *session.Cache
	revocation    *revocation.Store
	rateLimiter   *rate.Limiter
	signupLimiter *limiters.SignupLimiter
	resendLimiter *limiters.EmailVerificationLimiter
	hasher        password.Hasher
	jwtManager    *jwt.Manager
	notifier      *notify.Dispatcher
	audit         *internalaudit.Dispatcher
	metrics       *Metrics
	logger        logging.Logger
	flowDeps      flows.Deps
}

// Close drains the notification and audit queues.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.notifier != nil {
		e.notifier.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports audit events dropped because the queue was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warn(ctx context.Context, msg string, args ...any) {
	e.logger.Warn(ctx, msg, args...)
}

// Login checks identity and password and returns a fresh token pair. The
// refresh token replaces any previously stored one.
func (e *Engine) Login(ctx context.Context, identity, password string) (*TokenPair, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunLogin(ctx, identity, password, e.flowDeps.Login)
	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureRateLimited:
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, identity, "", ErrLoginRateLimited, nil)
		return nil, ErrLoginRateLimited
	case flows.LoginFailureInvalidCredentials:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, identity, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": res.Reason}
		})
		return nil, ErrInvalidCredentials
	case flows.LoginFailureInactive:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, identity, "", ErrAccountInactive, nil)
		return nil, ErrAccountInactive
	case flows.LoginFailureUnconfirmed:
		e.metricInc(MetricLoginUnconfirmed)
		e.emitAudit(ctx, auditEventLoginFailure, false, identity, "", ErrAccountUnconfirmed, nil)
		return nil, ErrAccountUnconfirmed
	default:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, identity, "", res.Err, func() map[string]string {
			return map[string]string{"reason": res.Reason}
		})
		return nil, fmt.Errorf("login: %w", res.Err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.Account.Identity, "", nil, nil)
	return &TokenPair{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    tokenTypeBearer,
	}, nil
}

// Refresh exchanges the account's current refresh token for a new pair.
// Presenting any other refresh token, including an earlier valid one,
// revokes the stored token and returns [ErrRefreshTokenMismatch]; the
// account has to log in again.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunRefresh(ctx, refreshToken, e.flowDeps.Refresh)
	switch res.Failure {
	case flows.RefreshFailureNone:
	case flows.RefreshFailureDecode:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", res.Err, nil)
		return nil, res.Err
	case flows.RefreshFailureRateLimited:
		e.metricInc(MetricRefreshRateLimited)
		e.emitAudit(ctx, auditEventRefreshRateLimited, false, res.Identity, "", ErrRefreshRateLimited, nil)
		return nil, ErrRefreshRateLimited
	case flows.RefreshFailureNotFound:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.Identity, "", errSubjectGone, nil)
		return nil, errSubjectGone
	case flows.RefreshFailureAccountStatus:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.Identity, "", ErrAccountInactive, nil)
		return nil, ErrAccountInactive
	case flows.RefreshFailureReuse:
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricRefreshReuseDetected)
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, res.Identity, "", ErrRefreshTokenMismatch, nil)
		return nil, ErrRefreshTokenMismatch
	default:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.Identity, "", res.Err, nil)
		return nil, fmt.Errorf("refresh: %w", res.Err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, res.Identity, "", nil, nil)
	return &TokenPair{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    tokenTypeBearer,
	}, nil
}

// Logout revokes acct's refresh token. Access tokens already issued remain
// valid until they expire.
func (e *Engine) Logout(ctx context.Context, acct *account.Account) error {
	if e == nil || e.revocation == nil {
		return ErrEngineNotReady
	}
	if acct == nil || acct.Identity == "" {
		return ErrInvalidRequest
	}

	if err := flows.RunLogout(ctx, acct.Identity, e.revocation); err != nil {
		e.emitAudit(ctx, auditEventLogout, false, acct.Identity, "", err, nil)
		return err
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, acct.Identity, "", nil, nil)
	return nil
}

// CurrentAccount resolves an access token to the account it was issued to,
// using the cache when possible. The returned Role is the one in the token.
// Banned accounts are rejected with [ErrAccountInactive]. A token whose
// subject no longer exists fails with [ErrTokenSubjectNotFound], which also
// matches [ErrAccountNotFound].
func (e *Engine) CurrentAccount(ctx context.Context, accessToken string) (*account.Account, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	res := flows.RunResolve(ctx, accessToken, e.flowDeps.Resolve)

	if !start.IsZero() {
		e.metrics.Observe(MetricResolveLatency, time.Since(start))
	}

	switch res.Failure {
	case flows.ResolveFailureNone:
	case flows.ResolveFailureDecode:
		e.metricInc(MetricResolveFailure)
		return nil, res.Err
	case flows.ResolveFailureNotFound:
		e.metricInc(MetricResolveFailure)
		return nil, errSubjectGone
	default:
		e.metricInc(MetricResolveFailure)
		return nil, fmt.Errorf("resolve account: %w", res.Err)
	}

	if !res.Account.Active {
		e.metricInc(MetricResolveFailure)
		return nil, ErrAccountInactive
	}

	e.metricInc(MetricResolveSuccess)
	return res.Account, nil
}

// Authorize returns [ErrForbidden] unless acct's role is in allowed.
func (e *Engine) Authorize(acct *account.Account, allowed permission.RoleSet) error {
	if acct == nil {
		e.metricInc(MetricAuthorizeDenied)
		return ErrForbidden
	}
	if err := permission.Authorize(acct.Role, allowed); err != nil {
		e.metricInc(MetricAuthorizeDenied)
		return err
	}
	return nil
}

// overwriteCache replaces identity's cached snapshot after a write.
func (e *Engine) overwriteCache(ctx context.Context, identity string) {
	if e.cache == nil {
		return
	}
	flows.OverwriteCache(ctx, e.cache, e.store, identity, e.config.Cache.TTL, e.warn)
}

func (e *Engine) issueAccess(identity string, role permission.Role) (string, error) {
	return e.jwtManager.CreateAccess(identity, string(role))
}

func (e *Engine) decodeAccess(token string) (*jwt.Claims, error) {
	return e.jwtManager.Decode(token, jwt.ScopeAccess)
}

func (e *Engine) decodeRefresh(token string) (*jwt.Claims, error) {
	return e.jwtManager.Decode(token, jwt.ScopeRefresh)
}

func (e *Engine) decodeVerification(token string) (*jwt.Claims, error) {
	return e.jwtManager.Decode(token, jwt.ScopeEmailVerification)
}

func (e *Engine) buildFlowDeps() flows.Deps {
	var (
		loginLimiter   flows.LoginRateLimiter
		refreshLimiter flows.RefreshRateLimiter
		cache          flows.SnapshotCache
	)
	if e.rateLimiter != nil {
		if e.config.Security.EnableLoginThrottle {
			loginLimiter = e.rateLimiter
		}
		if e.config.Security.EnableRefreshThrottle {
			refreshLimiter = e.rateLimiter
		}
	}
	if e.cache != nil {
		cache = e.cache
	}

	return flows.Deps{
		Login: flows.LoginDeps{
			RequireConfirmed:   e.config.Account.RequireConfirmedLogin,
			UpgradeOnLogin:     e.config.Password.UpgradeOnLogin,
			RateLimiter:        loginLimiter,
			Accounts:           e.store,
			Hasher:             e.hasher,
			UpdatePasswordHash: e.store.UpdatePasswordHash,
			IssueAccess:        e.issueAccess,
			IssueRefresh:       e.jwtManager.CreateRefresh,
			Revocation:         e.revocation,
			Warn:               e.warn,
		},
		Refresh: flows.RefreshDeps{
			DecodeRefresh: e.decodeRefresh,
			Accounts:      e.store,
			RateLimiter:   refreshLimiter,
			Revocation:    e.revocation,
			IssueAccess:   e.issueAccess,
			IssueRefresh:  e.jwtManager.CreateRefresh,
			Warn:          e.warn,
		},
		Resolve: flows.ResolveDeps{
			DecodeAccess: e.decodeAccess,
			Cache:        cache,
			Store:        e.store,
			CacheTTL:     e.config.Cache.TTL,
			MetricInc:    func(id int) { e.metricInc(MetricID(id)) },
			Warn:         e.warn,
			Metrics: flows.ResolveMetrics{
				CacheHit:   int(MetricCacheHit),
				CacheMiss:  int(MetricCacheMiss),
				CacheError: int(MetricCacheError),
			},
		},
		Signup: flows.SignupDeps{
			Validate:         e.validateSignup,
			Hasher:           e.hasher,
			Accounts:         e.store,
			AssignRole:       permission.InitialRole,
			SendVerification: e.sendVerification,
		},
		Confirm: flows.ConfirmDeps{
			DecodeVerification: e.decodeVerification,
			Accounts:           e.store,
			MarkConfirmed:      e.store.MarkConfirmed,
			AfterWrite:         e.overwriteCache,
		},
		RequestEmail: flows.RequestVerificationDeps{
			Accounts:         e.store,
			SendVerification: e.sendVerification,
		},
		Admin: flows.AccountAdminDeps{
			Accounts:     e.store,
			UpdateRole:   e.store.UpdateRole,
			UpdateActive: e.store.UpdateActive,
			Revocation:   e.revocation,
			AfterWrite:   e.overwriteCache,
		},
	}
}
