package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHealthReportsRedis(t *testing.T) {
	env := newTestEnv(t, nil)

	h := env.engine.Health(context.Background())
	if !h.CacheConfigured || !h.RedisAvailable {
		t.Fatalf("expected healthy redis, got %+v", h)
	}

	env.mr.Close()
	h = env.engine.Health(context.Background())
	if !h.CacheConfigured || h.RedisAvailable {
		t.Fatalf("expected redis unavailable, got %+v", h)
	}
}

func TestHealthWithoutRedis(t *testing.T) {
	engine, err := New().WithConfig(testConfig()).WithStore(newMemoryStore()).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	if h := engine.Health(context.Background()); h.CacheConfigured {
		t.Fatalf("expected no cache, got %+v", h)
	}
	if _, err := engine.GetLoginAttempts(context.Background(), "a@example.com"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady without a limiter, got %v", err)
	}
	if r := engine.SecurityReport(); r.CacheActive || r.LoginThrottleActive {
		t.Fatalf("expected inactive cache and throttle, got %+v", r)
	}
}

func TestGetLoginAttempts(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.confirmed(t, "alice@example.com", "alice")

	for i := 0; i < 2; i++ {
		_, _ = env.engine.Login(ctx, "alice@example.com", "wrong-password")
	}
	n, err := env.engine.GetLoginAttempts(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetLoginAttempts: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 failed attempts, got %d", n)
	}
}

func TestSecurityReport(t *testing.T) {
	env := newTestEnv(t, nil)
	r := env.engine.SecurityReport()

	if r.SigningAlgorithm != "hs256" || r.PasswordAlgorithm != "argon2id" {
		t.Fatalf("unexpected algorithms %+v", r)
	}
	if !r.CacheActive || !r.LoginThrottleActive || !r.SignupThrottleActive || !r.VerificationThrottleActive {
		t.Fatalf("expected cache and throttles active, got %+v", r)
	}
	if r.StalenessBound != 900*time.Second {
		t.Fatalf("expected staleness bound of the cache ttl, got %v", r.StalenessBound)
	}
}
