package limiters

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type SignupConfig struct {
	KeyPrefix   string
	MaxAttempts int
	Window      time.Duration
}

// SignupLimiter bounds account creation per client IP.
type SignupLimiter struct {
	window fixedWindow
	prefix string
}

func NewSignupLimiter(redisClient redis.UniversalClient, cfg SignupConfig) *SignupLimiter {
	return &SignupLimiter{
		window: fixedWindow{redis: redisClient, max: cfg.MaxAttempts, ttl: cfg.Window},
		prefix: cfg.KeyPrefix,
	}
}

// Enforce counts one signup from ip. An empty ip is not counted.
func (l *SignupLimiter) Enforce(ctx context.Context, ip string) error {
	if l == nil || ip == "" {
		return nil
	}
	return l.window.hit(ctx, l.prefix+":su:"+ip)
}
