package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/permission"
)

// Store keeps accounts in a map guarded by a single mutex. The mutex also
// serializes the count-then-insert of CreateAccount.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*account.Account
	now      func() time.Time
	reads    atomic.Int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		accounts: make(map[string]*account.Account),
		now:      time.Now,
	}
}

// Reads reports how many times GetByIdentity was called.
func (s *Store) Reads() int64 {
	return s.reads.Load()
}

// Len reports the number of stored accounts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

func (s *Store) GetByIdentity(ctx context.Context, identity string) (*account.Account, error) {
	s.reads.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[identity]
	if !ok {
		return nil, account.ErrNotFound
	}
	return acct.Clone(), nil
}

func (s *Store) CreateAccount(ctx context.Context, in account.CreateInput, assign account.RoleAssigner) (*account.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[in.Identity]; ok {
		return nil, account.ErrExists
	}
	now := s.now()
	acct := &account.Account{
		Identity:     in.Identity,
		DisplayName:  in.DisplayName,
		Avatar:       in.Avatar,
		PasswordHash: in.PasswordHash,
		Active:       true,
		Role:         assign(int64(len(s.accounts))),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.accounts[in.Identity] = acct
	return acct.Clone(), nil
}

func (s *Store) SetRefreshToken(ctx context.Context, identity, token string) error {
	return s.update(ctx, identity, func(a *account.Account) {
		a.RefreshToken = token
	})
}

func (s *Store) SwapRefreshToken(ctx context.Context, identity, presented, next string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[identity]
	if !ok {
		return false, account.ErrNotFound
	}
	if presented == "" || acct.RefreshToken != presented {
		return false, nil
	}
	acct.RefreshToken = next
	acct.UpdatedAt = s.now()
	return true, nil
}

func (s *Store) MarkConfirmed(ctx context.Context, identity string) error {
	return s.update(ctx, identity, func(a *account.Account) {
		a.Confirmed = true
	})
}

func (s *Store) UpdateRole(ctx context.Context, identity string, role permission.Role) error {
	return s.update(ctx, identity, func(a *account.Account) {
		a.Role = role
	})
}

func (s *Store) UpdateActive(ctx context.Context, identity string, active bool) error {
	return s.update(ctx, identity, func(a *account.Account) {
		a.Active = active
	})
}

func (s *Store) UpdateProfile(ctx context.Context, identity string, patch account.ProfilePatch) (*account.Account, error) {
	var out *account.Account
	err := s.update(ctx, identity, func(a *account.Account) {
		if patch.DisplayName != nil {
			a.DisplayName = *patch.DisplayName
		}
		if patch.Avatar != nil {
			a.Avatar = *patch.Avatar
		}
		out = a.Clone()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, identity, hash string) error {
	return s.update(ctx, identity, func(a *account.Account) {
		a.PasswordHash = hash
	})
}

func (s *Store) update(ctx context.Context, identity string, fn func(*account.Account)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[identity]
	if !ok {
		return account.ErrNotFound
	}
	fn(acct)
	acct.UpdatedAt = s.now()
	return nil
}
