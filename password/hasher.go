package password

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultMinPasswordBytes is applied when a config leaves the minimum unset.
	DefaultMinPasswordBytes = 6
	// DefaultMaxPasswordBytes bounds hashing cost for hostile inputs.
	DefaultMaxPasswordBytes = 1024
)

var (
	// ErrPasswordTooShort is returned by Hash for inputs under the minimum length.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrPasswordTooLong is returned by Hash and Verify for inputs over the maximum length.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrUnsupportedDigest is returned when a digest matches no known algorithm.
	ErrUnsupportedDigest = errors.New("unsupported password digest")
)

// Hasher hashes and verifies passwords. Implementations are safe for
// concurrent use.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
	NeedsUpgrade(digest string) (bool, error)
}

type lengthPolicy struct {
	min int
	max int
}

func newLengthPolicy(min, max int) lengthPolicy {
	if min <= 0 {
		min = DefaultMinPasswordBytes
	}
	if max <= 0 {
		max = DefaultMaxPasswordBytes
	}
	return lengthPolicy{min: min, max: max}
}

// Length is measured in raw bytes; no Unicode normalization is applied.
func (p lengthPolicy) checkHash(password string) error {
	if len(password) < p.min {
		return fmt.Errorf("%w: must be at least %d bytes", ErrPasswordTooShort, p.min)
	}
	if len(password) > p.max {
		return ErrPasswordTooLong
	}
	return nil
}

func (p lengthPolicy) checkVerify(password string) error {
	if len(password) > p.max {
		return ErrPasswordTooLong
	}
	return nil
}

// Dispatch hashes with Primary and verifies any digest produced by Argon2 or
// Bcrypt. A digest from the non-primary algorithm always needs an upgrade.
type Dispatch struct {
	Primary Hasher
	Argon2  *Argon2
	Bcrypt  *Bcrypt
}

func (d *Dispatch) Hash(password string) (string, error) {
	if d.Primary == nil {
		return "", errors.New("no primary hasher configured")
	}
	return d.Primary.Hash(password)
}

func (d *Dispatch) Verify(password, digest string) (bool, error) {
	h, err := d.pick(digest)
	if err != nil {
		return false, err
	}
	return h.Verify(password, digest)
}

func (d *Dispatch) NeedsUpgrade(digest string) (bool, error) {
	h, err := d.pick(digest)
	if err != nil {
		return false, err
	}
	if h != d.Primary {
		return true, nil
	}
	return h.NeedsUpgrade(digest)
}

func (d *Dispatch) pick(digest string) (Hasher, error) {
	switch {
	case strings.HasPrefix(digest, "$"+algorithmID+"$") && d.Argon2 != nil:
		return d.Argon2, nil
	case isBcryptDigest(digest) && d.Bcrypt != nil:
		return d.Bcrypt, nil
	default:
		return nil, ErrUnsupportedDigest
	}
}
