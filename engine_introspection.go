package authcore

import (
	"context"
	"time"

	"github.com/MrEthical07/authcore/internal/security"
)

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	CacheConfigured bool
	RedisAvailable  bool
	RedisLatency    time.Duration
}

// SecurityReport summarizes the security posture of an Engine's config.
type SecurityReport = security.Report

// Health pings Redis. An engine built without Redis reports
// CacheConfigured=false and is otherwise healthy.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.cache == nil {
		return HealthStatus{}
	}

	latency, err := e.cache.Ping(ctx)
	return HealthStatus{
		CacheConfigured: true,
		RedisAvailable:  err == nil,
		RedisLatency:    latency,
	}
}

// GetLoginAttempts returns the failed login count of identity in the current
// throttle window.
func (e *Engine) GetLoginAttempts(ctx context.Context, identity string) (int, error) {
	if e == nil || e.rateLimiter == nil {
		return 0, ErrEngineNotReady
	}
	if identity == "" {
		return 0, nil
	}

	return e.rateLimiter.GetLoginAttempts(ctx, identity)
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	argon := security.PasswordReport{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	}
	return security.BuildReport(security.ReportInput{
		SigningAlgorithm:      cfg.JWT.SigningMethod,
		AccessTTL:             cfg.JWT.AccessTTL,
		RefreshTTL:            cfg.JWT.RefreshTTL,
		CacheTTL:              cfg.Cache.TTL,
		PasswordAlgorithm:     cfg.Password.Algorithm,
		Argon2:                argon,
		BcryptCost:            cfg.Password.BcryptCost,
		RequireConfirmedLogin: cfg.Account.RequireConfirmedLogin,
		CacheConfigured:       e.cache != nil,
		LoginThrottle:         e.rateLimiter != nil && cfg.Security.EnableLoginThrottle,
		RefreshThrottle:       e.rateLimiter != nil && cfg.Security.EnableRefreshThrottle,
		SignupThrottle:        e.signupLimiter != nil,
		VerificationThrottle:  e.resendLimiter != nil,
		AuditEnabled:          cfg.Audit.Enabled,
	})
}
