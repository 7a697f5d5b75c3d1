package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited        = errors.New("rate limited")
	ErrLimiterUnavailable = errors.New("limiter redis unavailable")
)

// fixedWindow counts hits per key in windows of length ttl starting at the
// first hit.
type fixedWindow struct {
	redis redis.UniversalClient
	max   int
	ttl   time.Duration
}

func (w fixedWindow) hit(ctx context.Context, key string) error {
	count, err := w.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}

	if count == 1 {
		if err := w.redis.Expire(ctx, key, w.ttl).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
	}

	if count > int64(w.max) {
		return ErrRateLimited
	}

	return nil
}
