package authcore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/notify"
	"github.com/MrEthical07/authcore/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testPassword = "correct-password-123"

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:        mr.Addr(),
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
		ReadTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte(strings.Repeat("k", 32))
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.BcryptCost = 4
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

// mailbox captures queued notifications.
type mailbox struct {
	ch chan notify.Message
}

func newMailbox() *mailbox {
	return &mailbox{ch: make(chan notify.Message, 32)}
}

func (m *mailbox) Notify(_ context.Context, msg notify.Message) error {
	m.ch <- msg
	return nil
}

func (m *mailbox) next(t *testing.T) notify.Message {
	t.Helper()
	select {
	case msg := <-m.ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return notify.Message{}
	}
}

type testEnv struct {
	engine *Engine
	store  *memory.Store
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	mail   *mailbox
}

// newTestEnv builds an engine over a memory store and miniredis. mutate may
// adjust the config before Build.
func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	mr, rdb := newTestRedis(t)
	store := memory.New()
	mail := newMailbox()

	engine, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithRedis(rdb).
		WithNotifier(mail).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() {
		engine.Close()
		mr.Close()
	})

	return &testEnv{engine: engine, store: store, mr: mr, rdb: rdb, mail: mail}
}

// signup creates an account and returns its verification token.
func (env *testEnv) signup(t *testing.T, identity, displayName string) string {
	t.Helper()

	if _, err := env.engine.Signup(context.Background(), SignupRequest{
		Identity:    identity,
		DisplayName: displayName,
		Password:    testPassword,
	}); err != nil {
		t.Fatalf("Signup(%s) failed: %v", identity, err)
	}
	msg := env.mail.next(t)
	if msg.Recipient != identity {
		t.Fatalf("expected notification for %s, got %s", identity, msg.Recipient)
	}
	return msg.Token
}

// confirmed signs up identity, confirms it and logs in.
func (env *testEnv) confirmed(t *testing.T, identity, displayName string) *TokenPair {
	t.Helper()

	token := env.signup(t, identity, displayName)
	if _, err := env.engine.ConfirmEmail(context.Background(), token); err != nil {
		t.Fatalf("ConfirmEmail(%s) failed: %v", identity, err)
	}
	pair, err := env.engine.Login(context.Background(), identity, testPassword)
	if err != nil {
		t.Fatalf("Login(%s) failed: %v", identity, err)
	}
	return pair
}

func newMemoryStore() *memory.Store {
	return memory.New()
}
