package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Bcrypt hashes passwords with golang.org/x/crypto/bcrypt at a fixed cost.
type Bcrypt struct {
	cost   int
	policy lengthPolicy
}

// BcryptConfig configures [NewBcrypt]. bcrypt itself only reads the first 72
// bytes, so MaxPasswordBytes above 72 is clamped.
type BcryptConfig struct {
	Cost             int
	MinPasswordBytes int
	MaxPasswordBytes int
}

func NewBcrypt(cfg BcryptConfig) (*Bcrypt, error) {
	if cfg.Cost == 0 {
		cfg.Cost = bcrypt.DefaultCost
	}
	if cfg.Cost < bcrypt.MinCost || cfg.Cost > bcrypt.MaxCost {
		return nil, errors.New("bcrypt cost out of range")
	}
	if cfg.MaxPasswordBytes <= 0 || cfg.MaxPasswordBytes > 72 {
		cfg.MaxPasswordBytes = 72
	}
	return &Bcrypt{
		cost:   cfg.Cost,
		policy: newLengthPolicy(cfg.MinPasswordBytes, cfg.MaxPasswordBytes),
	}, nil
}

func (b *Bcrypt) Hash(password string) (string, error) {
	if err := b.policy.checkHash(password); err != nil {
		return "", err
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify compares in constant time with respect to the mismatch position.
func (b *Bcrypt) Verify(password, digest string) (bool, error) {
	if err := b.policy.checkVerify(password); err != nil {
		return false, err
	}
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

func (b *Bcrypt) NeedsUpgrade(digest string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return false, err
	}
	return cost < b.cost, nil
}

func isBcryptDigest(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}
