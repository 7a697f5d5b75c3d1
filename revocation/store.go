package revocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/account"
)

// ErrRefreshTokenMismatch is returned when the presented refresh token is not
// the stored one. The stored token has been cleared when this is returned.
var ErrRefreshTokenMismatch = errors.New("refresh token mismatch")

// TokenStore is the slice of account.Store this package needs.
type TokenStore interface {
	SetRefreshToken(ctx context.Context, identity, token string) error
	SwapRefreshToken(ctx context.Context, identity, presented, next string) (bool, error)
}

// Store wraps a TokenStore with rotation semantics.
type Store struct {
	tokens TokenStore
}

// New returns a Store backed by tokens.
func New(tokens TokenStore) *Store {
	return &Store{tokens: tokens}
}

// Issue records token as the only valid refresh token for identity.
func (s *Store) Issue(ctx context.Context, identity, token string) error {
	if token == "" {
		return errors.New("revocation: empty token")
	}
	return s.tokens.SetRefreshToken(ctx, identity, token)
}

// Clear invalidates the stored refresh token. It is idempotent.
func (s *Store) Clear(ctx context.Context, identity string) error {
	return s.tokens.SetRefreshToken(ctx, identity, "")
}

// RotateOrReject replaces presented with next if and only if presented is the
// stored token. Of several concurrent callers presenting the same token at
// most one succeeds; the others clear the stored value and get
// ErrRefreshTokenMismatch.
func (s *Store) RotateOrReject(ctx context.Context, identity, presented, next string) error {
	if next == "" || next == presented {
		return errors.New("revocation: next token must be new and non-empty")
	}
	if presented != "" {
		swapped, err := s.tokens.SwapRefreshToken(ctx, identity, presented, next)
		if err != nil && !errors.Is(err, account.ErrNotFound) {
			return err
		}
		if swapped {
			return nil
		}
	}

	if err := s.Clear(ctx, identity); err != nil && !errors.Is(err, account.ErrNotFound) {
		return fmt.Errorf("%w: clear failed: %v", ErrRefreshTokenMismatch, err)
	}
	return ErrRefreshTokenMismatch
}
