package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return rdb, mr
}

func TestSignupLimiterWindow(t *testing.T) {
	rdb, mr := newRedis(t)
	l := NewSignupLimiter(rdb, SignupConfig{KeyPrefix: "ac", MaxAttempts: 2, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Enforce(ctx, "198.51.100.1"); err != nil {
			t.Fatalf("attempt %d unexpectedly limited: %v", i, err)
		}
	}
	if err := l.Enforce(ctx, "198.51.100.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.Enforce(ctx, "198.51.100.2"); err != nil {
		t.Fatalf("other ip should not be limited: %v", err)
	}
	if err := l.Enforce(ctx, ""); err != nil {
		t.Fatalf("empty ip should not be counted: %v", err)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.Enforce(ctx, "198.51.100.1"); err != nil {
		t.Fatalf("expected window reset, got %v", err)
	}
}

func TestEmailVerificationLimiter(t *testing.T) {
	rdb, _ := newRedis(t)
	l := NewEmailVerificationLimiter(rdb, EmailVerificationConfig{
		KeyPrefix:        "ac",
		EnableIPThrottle: true,
		MaxAttempts:      1,
		Window:           time.Minute,
	})
	ctx := context.Background()

	if err := l.CheckRequest(ctx, "a@example.com", "203.0.113.1"); err != nil {
		t.Fatalf("first request limited: %v", err)
	}
	if err := l.CheckRequest(ctx, "a@example.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected identity limit, got %v", err)
	}
	if err := l.CheckRequest(ctx, "b@example.com", "203.0.113.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ip limit, got %v", err)
	}
}

func TestLimitersUnavailable(t *testing.T) {
	rdb, mr := newRedis(t)
	l := NewSignupLimiter(rdb, SignupConfig{KeyPrefix: "ac", MaxAttempts: 1, Window: time.Minute})
	mr.Close()

	if err := l.Enforce(context.Background(), "198.51.100.1"); !errors.Is(err, ErrLimiterUnavailable) {
		t.Fatalf("expected ErrLimiterUnavailable, got %v", err)
	}
}

func TestNilLimiters(t *testing.T) {
	var s *SignupLimiter
	var e *EmailVerificationLimiter
	if s.Enforce(context.Background(), "x") != nil || e.CheckRequest(context.Background(), "a", "b") != nil {
		t.Fatal("nil limiters must allow")
	}
}
