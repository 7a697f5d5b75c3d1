package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/permission"
)

func TestCreateAccountAssignsBootstrapRoleOnce(t *testing.T) {
	s := New()
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	roles := make(chan permission.Role, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acct, err := s.CreateAccount(ctx, account.CreateInput{
				Identity: string(rune('a'+i)) + "@example.com",
			}, permission.InitialRole)
			if err != nil {
				t.Errorf("CreateAccount error: %v", err)
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

func TestCreateAccountRejectsDuplicate(t *testing.T) {
	s := New()
	ctx := context.Background()
	in := account.CreateInput{Identity: "dup@example.com"}
	if _, err := s.CreateAccount(ctx, in, permission.InitialRole); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := s.CreateAccount(ctx, in, permission.InitialRole); !errors.Is(err, account.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestSwapRefreshTokenIsConditional(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.CreateAccount(ctx, account.CreateInput{Identity: "a@example.com"}, permission.InitialRole); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.SetRefreshToken(ctx, "a@example.com", "r1"); err != nil {
		t.Fatalf("set: %v", err)
	}

	ok, err := s.SwapRefreshToken(ctx, "a@example.com", "other", "r2")
	if err != nil || ok {
		t.Fatalf("expected no swap for wrong token, ok=%v err=%v", ok, err)
	}
	ok, err = s.SwapRefreshToken(ctx, "a@example.com", "r1", "r2")
	if err != nil || !ok {
		t.Fatalf("expected swap, ok=%v err=%v", ok, err)
	}
	acct, _ := s.GetByIdentity(ctx, "a@example.com")
	if acct.RefreshToken != "r2" {
		t.Fatalf("expected r2 stored, got %q", acct.RefreshToken)
	}

	if _, err := s.SwapRefreshToken(ctx, "missing@example.com", "r1", "r2"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetByIdentityReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.CreateAccount(ctx, account.CreateInput{Identity: "a@example.com", DisplayName: "alice"}, permission.InitialRole); err != nil {
		t.Fatalf("create: %v", err)
	}
	acct, _ := s.GetByIdentity(ctx, "a@example.com")
	acct.DisplayName = "mallory"

	again, _ := s.GetByIdentity(ctx, "a@example.com")
	if again.DisplayName != "alice" {
		t.Fatalf("store state leaked through returned pointer: %q", again.DisplayName)
	}
	if s.Reads() != 2 {
		t.Fatalf("expected 2 reads, got %d", s.Reads())
	}
}

func TestUpdateProfilePatchesOnlySetFields(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.CreateAccount(ctx, account.CreateInput{Identity: "a@example.com", DisplayName: "alice", Avatar: "old.png"}, permission.InitialRole); err != nil {
		t.Fatalf("create: %v", err)
	}
	avatar := "new.png"
	out, err := s.UpdateProfile(ctx, "a@example.com", account.ProfilePatch{Avatar: &avatar})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if out.DisplayName != "alice" || out.Avatar != "new.png" {
		t.Fatalf("unexpected profile: %+v", out)
	}
}
