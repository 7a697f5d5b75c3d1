package authcore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/MrEthical07/authcore/permission"
)

func TestSignupFirstAccountIsAdmin(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	first, err := env.engine.Signup(ctx, SignupRequest{Identity: "first@example.com", DisplayName: "first", Password: testPassword})
	if err != nil {
		t.Fatalf("Signup first: %v", err)
	}
	second, err := env.engine.Signup(ctx, SignupRequest{Identity: "second@example.com", DisplayName: "second", Password: testPassword})
	if err != nil {
		t.Fatalf("Signup second: %v", err)
	}

	if first.Role != permission.RoleAdmin {
		t.Fatalf("expected first account admin, got %s", first.Role)
	}
	if second.Role != permission.RoleUser {
		t.Fatalf("expected second account user, got %s", second.Role)
	}
	if first.Confirmed || !first.Active {
		t.Fatalf("expected new account unconfirmed and active, got %+v", first)
	}
	if first.PasswordHash != "" {
		t.Fatal("Signup must not return the password digest")
	}
}

func TestSignupConcurrentBootstrapSingleAdmin(t *testing.T) {
	env := newTestEnv(t, nil)

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	roles := make(chan permission.Role, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			acct, err := env.engine.Signup(context.Background(), SignupRequest{
				Identity:    fmt.Sprintf("user%d@example.com", i),
				DisplayName: fmt.Sprintf("user%d", i),
				Password:    testPassword,
			})
			if err != nil {
				t.Errorf("Signup %d: %v", i, err)
				return
			}
			roles <- acct.Role
		}(i)
	}
	wg.Wait()
	close(roles)

	admins := 0
	for r := range roles {
		if r == permission.RoleAdmin {
			admins++
		}
	}
	if admins != 1 {
		t.Fatalf("expected exactly one admin, got %d", admins)
	}
}

func TestSignupRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t, nil)
	env.signup(t, "alice@example.com", "alice")

	_, err := env.engine.Signup(context.Background(), SignupRequest{Identity: "alice@example.com", DisplayName: "other", Password: testPassword})
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricSignupDuplicate]; got != 1 {
		t.Fatalf("expected duplicate counter 1, got %d", got)
	}
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	cases := []struct {
		name string
		req  SignupRequest
	}{
		{"bad email", SignupRequest{Identity: "not-an-email", DisplayName: "alice", Password: testPassword}},
		{"empty email", SignupRequest{Identity: "", DisplayName: "alice", Password: testPassword}},
		{"short name", SignupRequest{Identity: "a@example.com", DisplayName: "abc", Password: testPassword}},
		{"long name", SignupRequest{Identity: "a@example.com", DisplayName: "abcdefghijklmnopq", Password: testPassword}},
		{"short password", SignupRequest{Identity: "a@example.com", DisplayName: "alice", Password: "12345"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.engine.Signup(context.Background(), tc.req); !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
	if env.store.Len() != 0 {
		t.Fatalf("expected no accounts, got %d", env.store.Len())
	}
}

func TestProfileNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.engine.Profile(context.Background(), "ghost@example.com"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestUpdateProfileOverwritesCache(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	pair := env.confirmed(t, "alice@example.com", "alice")

	actor, err := env.engine.CurrentAccount(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("CurrentAccount: %v", err)
	}

	name := "alice2"
	avatar := "a1b2c3.png"
	updated, err := env.engine.UpdateProfile(ctx, actor, ProfileUpdate{DisplayName: &name, Avatar: &avatar})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.DisplayName != name || updated.Avatar != avatar {
		t.Fatalf("unexpected profile %+v", updated)
	}

	base := env.store.Reads()
	again, err := env.engine.CurrentAccount(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("CurrentAccount: %v", err)
	}
	if again.DisplayName != name {
		t.Fatalf("expected cached display name %q, got %q", name, again.DisplayName)
	}
	if env.store.Reads() != base {
		t.Fatal("expected the overwritten cache entry to be served")
	}

	short := "ab"
	if _, err := env.engine.UpdateProfile(ctx, actor, ProfileUpdate{DisplayName: &short}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	pair := env.confirmed(t, "alice@example.com", "alice")

	actor, err := env.engine.CurrentAccount(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("CurrentAccount: %v", err)
	}

	if err := env.engine.ChangePassword(ctx, actor, "wrong-password", "new-password-456"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := env.engine.ChangePassword(ctx, actor, testPassword, "123"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if err := env.engine.ChangePassword(ctx, actor, testPassword, "new-password-456"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := env.engine.Login(ctx, "alice@example.com", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
	if _, err := env.engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshTokenMismatch) {
		t.Fatalf("expected refresh token revoked, got %v", err)
	}
	if _, err := env.engine.Login(ctx, "alice@example.com", "new-password-456"); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}
}

func TestSetRoleRequiresAdmin(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.confirmed(t, "admin@example.com", "admin")
	bob := env.confirmed(t, "bob@example.com", "bobby")
	env.confirmed(t, "carol@example.com", "carol")

	actor, err := env.engine.CurrentAccount(ctx, bob.AccessToken)
	if err != nil {
		t.Fatalf("CurrentAccount: %v", err)
	}
	if err := env.engine.SetRole(ctx, actor, "carol@example.com", permission.RoleAdmin); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := env.engine.SetActive(ctx, actor, "carol@example.com", false); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	carol, err := env.store.GetByIdentity(ctx, "carol@example.com")
	if err != nil {
		t.Fatalf("GetByIdentity: %v", err)
	}
	if carol.Role != permission.RoleUser || !carol.Active {
		t.Fatalf("expected carol unchanged, got %+v", carol)
	}
}

func TestSetRoleValidatesInput(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	admin := env.confirmed(t, "admin@example.com", "admin")

	actor, err := env.engine.CurrentAccount(ctx, admin.AccessToken)
	if err != nil {
		t.Fatalf("CurrentAccount: %v", err)
	}
	if err := env.engine.SetRole(ctx, actor, "admin@example.com", "superuser"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if err := env.engine.SetRole(ctx, actor, "ghost@example.com", permission.RoleModerator); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestSetActiveBanClearsRefreshAndUnbanRestoresLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	admin := env.confirmed(t, "admin@example.com", "admin")
	env.confirmed(t, "bob@example.com", "bobby")

	actor, err := env.engine.CurrentAccount(ctx, admin.AccessToken)
	if err != nil {
		t.Fatalf("CurrentAccount: %v", err)
	}
	if err := env.engine.SetActive(ctx, actor, "bob@example.com", false); err != nil {
		t.Fatalf("ban: %v", err)
	}
	bob, err := env.store.GetByIdentity(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("GetByIdentity: %v", err)
	}
	if bob.Active || bob.RefreshToken != "" {
		t.Fatalf("expected inactive account without refresh token, got %+v", bob)
	}

	if err := env.engine.SetActive(ctx, actor, "bob@example.com", true); err != nil {
		t.Fatalf("unban: %v", err)
	}
	if _, err := env.engine.Login(ctx, "bob@example.com", testPassword); err != nil {
		t.Fatalf("Login after unban: %v", err)
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricAccountDisabled] != 1 || snap.Counters[MetricAccountEnabled] != 1 {
		t.Fatalf("unexpected status counters %+v", snap.Counters)
	}
}

func TestAuthorize(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	admin := env.confirmed(t, "admin@example.com", "admin")
	bob := env.confirmed(t, "bob@example.com", "bobby")

	adminAcct, err := env.engine.CurrentAccount(ctx, admin.AccessToken)
	if err != nil {
		t.Fatalf("CurrentAccount: %v", err)
	}
	bobAcct, err := env.engine.CurrentAccount(ctx, bob.AccessToken)
	if err != nil {
		t.Fatalf("CurrentAccount: %v", err)
	}

	if err := env.engine.Authorize(adminAcct, permission.Moderators); err != nil {
		t.Fatalf("expected admin allowed for moderators, got %v", err)
	}
	if err := env.engine.Authorize(bobAcct, permission.Moderators); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := env.engine.Authorize(nil, permission.Admins); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for nil account, got %v", err)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricAuthorizeDenied]; got != 2 {
		t.Fatalf("expected 2 denials, got %d", got)
	}
}

func TestSignupThrottledPerClientIP(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Security.MaxSignupsPerIP = 2
	})
	ctx := WithClientIP(context.Background(), "198.51.100.9")

	for i := 0; i < 2; i++ {
		if _, err := env.engine.Signup(ctx, SignupRequest{
			Identity:    fmt.Sprintf("user%d@example.com", i),
			DisplayName: "someone",
			Password:    testPassword,
		}); err != nil {
			t.Fatalf("Signup %d: %v", i, err)
		}
	}
	_, err := env.engine.Signup(ctx, SignupRequest{Identity: "late@example.com", DisplayName: "someone", Password: testPassword})
	if !errors.Is(err, ErrSignupRateLimited) {
		t.Fatalf("expected ErrSignupRateLimited, got %v", err)
	}
	if _, err := env.store.GetByIdentity(context.Background(), "late@example.com"); err == nil {
		t.Fatal("throttled signup must not create an account")
	}

	other := WithClientIP(context.Background(), "198.51.100.10")
	if _, err := env.engine.Signup(other, SignupRequest{Identity: "late@example.com", DisplayName: "someone", Password: testPassword}); err != nil {
		t.Fatalf("other ip should pass: %v", err)
	}
}
