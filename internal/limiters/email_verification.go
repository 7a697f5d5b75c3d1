package limiters

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type EmailVerificationConfig struct {
	KeyPrefix        string
	EnableIPThrottle bool
	MaxAttempts      int
	Window           time.Duration
}

// EmailVerificationLimiter bounds confirmation email resends per identity
// and, optionally, per client IP.
type EmailVerificationLimiter struct {
	window fixedWindow
	config EmailVerificationConfig
}

func NewEmailVerificationLimiter(redisClient redis.UniversalClient, cfg EmailVerificationConfig) *EmailVerificationLimiter {
	return &EmailVerificationLimiter{
		window: fixedWindow{redis: redisClient, max: cfg.MaxAttempts, ttl: cfg.Window},
		config: cfg,
	}
}

func (l *EmailVerificationLimiter) CheckRequest(ctx context.Context, identity, ip string) error {
	if l == nil {
		return nil
	}
	if err := l.window.hit(ctx, l.config.KeyPrefix+":ev:"+identity); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.window.hit(ctx, l.config.KeyPrefix+":evip:"+ip); err != nil {
			return err
		}
	}
	return nil
}
