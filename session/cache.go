package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss is returned by Get when no entry exists for the identity.
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheUnavailable wraps Redis transport failures.
	ErrCacheUnavailable = errors.New("cache unavailable")
)

// Cache stores account snapshots in Redis under <prefix>:acct:<identity>.
// Every operation is a single Redis command.
type Cache struct {
	redis  redis.UniversalClient
	prefix string
}

// NewCache returns a Cache using prefix as the key namespace.
func NewCache(rdb redis.UniversalClient, prefix string) *Cache {
	return &Cache{redis: rdb, prefix: prefix}
}

func (c *Cache) key(identity string) string {
	return c.prefix + ":acct:" + identity
}

// Get loads the snapshot for identity. A stored value that fails to decode
// is returned as a decode error so the caller can fall back to the store.
func (c *Cache) Get(ctx context.Context, identity string) (*Snapshot, error) {
	data, err := c.redis.Get(ctx, c.key(identity)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return Decode(data)
}

// Set writes s with the given TTL, overwriting any previous entry.
func (c *Cache) Set(ctx context.Context, s *Snapshot, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("cache ttl must be positive")
	}
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := c.redis.Set(ctx, c.key(s.Identity), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes the entry for identity. Deleting a missing key is not an
// error.
func (c *Cache) Delete(ctx context.Context, identity string) error {
	if err := c.redis.Del(ctx, c.key(identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Ping measures one round trip to Redis.
func (c *Cache) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return time.Since(start), nil
}
