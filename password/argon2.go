package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

// ErrMalformedDigest is returned by Verify and NeedsUpgrade when a stored
// digest cannot be parsed. It is never a plain mismatch.
var ErrMalformedDigest = errors.New("malformed password digest")

// Config holds Argon2id cost parameters and the accepted password length.
// Memory is in KiB. Zero MinPasswordBytes or MaxPasswordBytes select
// DefaultMinPasswordBytes and DefaultMaxPasswordBytes.
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MinPasswordBytes int
	MaxPasswordBytes int
}

// Argon2 hashes passwords with Argon2id and emits PHC strings.
type Argon2 struct {
	params   argon2Params
	saltSize uint32
	policy   lengthPolicy
}

// argon2Params are the cost settings a digest records. keyLen is implied
// by the encoded hash and never written to the parameter segment.
type argon2Params struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

// String renders the PHC parameter segment, e.g. "m=65536,t=3,p=2".
func (p argon2Params) String() string {
	return fmt.Sprintf("m=%d,t=%d,p=%d", p.memory, p.time, p.threads)
}

func (p argon2Params) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
}

// weakerThan reports whether a digest made with p should be re-hashed under
// want. A different key length always counts.
func (p argon2Params) weakerThan(want argon2Params) bool {
	return p.memory < want.memory ||
		p.time < want.time ||
		p.threads < want.threads ||
		p.keyLen != want.keyLen
}

type argon2Digest struct {
	params argon2Params
	salt   []byte
	sum    []byte
}

func (d argon2Digest) String() string {
	return fmt.Sprintf("$%s$v=%d$%s$%s$%s",
		algorithmID,
		argon2.Version,
		d.params,
		base64.StdEncoding.EncodeToString(d.salt),
		base64.StdEncoding.EncodeToString(d.sum),
	)
}

// NewArgon2 rejects cost parameters below the package floor.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &Argon2{
		params: argon2Params{
			memory:  cfg.Memory,
			time:    cfg.Time,
			threads: cfg.Parallelism,
			keyLen:  cfg.KeyLength,
		},
		saltSize: cfg.SaltLength,
		policy:   newLengthPolicy(cfg.MinPasswordBytes, cfg.MaxPasswordBytes),
	}, nil
}

// Hash derives a digest with a fresh random salt.
func (a *Argon2) Hash(password string) (string, error) {
	if err := a.policy.checkHash(password); err != nil {
		return "", err
	}

	salt := make([]byte, a.saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("argon2 salt: %w", err)
	}

	return argon2Digest{
		params: a.params,
		salt:   salt,
		sum:    a.params.derive(password, salt),
	}.String(), nil
}

// Verify recomputes the digest with the parameters recorded in digest and
// compares in constant time.
func (a *Argon2) Verify(password string, digest string) (bool, error) {
	if err := a.policy.checkVerify(password); err != nil {
		return false, err
	}
	d, err := parseArgon2Digest(digest)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(d.params.derive(password, d.salt), d.sum) == 1, nil
}

// NeedsUpgrade reports whether digest was produced with weaker parameters
// than the current config.
func (a *Argon2) NeedsUpgrade(digest string) (bool, error) {
	d, err := parseArgon2Digest(digest)
	if err != nil {
		return false, err
	}
	return d.params.weakerThan(a.params), nil
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedDigest, reason)
}

// parseArgon2Digest accepts only the exact form Hash produces. The parameter
// segment must re-render byte for byte, which rules out reordered keys,
// leading zeros and trailing junk.
func parseArgon2Digest(s string) (argon2Digest, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" {
		return argon2Digest{}, malformed("not a PHC string")
	}
	if parts[1] != algorithmID {
		return argon2Digest{}, malformed("algorithm " + parts[1])
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return argon2Digest{}, malformed("version " + parts[2])
	}

	var p argon2Params
	if n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil || n != 3 {
		return argon2Digest{}, malformed("parameters " + parts[3])
	}
	if p.String() != parts[3] {
		return argon2Digest{}, malformed("parameters " + parts[3])
	}
	if p.memory < minMemoryKB || p.time < minTimeCost || p.threads < minParallelism {
		return argon2Digest{}, malformed("parameters below floor")
	}

	salt, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return argon2Digest{}, malformed("salt")
	}
	sum, err := base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(sum) == 0 {
		return argon2Digest{}, malformed("hash")
	}
	p.keyLen = uint32(len(sum))

	return argon2Digest{params: p, salt: salt, sum: sum}, nil
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.Memory < minMemoryKB:
		return fmt.Errorf("password memory must be >= %d KiB", minMemoryKB)
	case cfg.Time < minTimeCost:
		return fmt.Errorf("password time must be >= %d", minTimeCost)
	case cfg.Parallelism < minParallelism:
		return fmt.Errorf("password parallelism must be >= %d", minParallelism)
	case cfg.SaltLength < minSaltLength:
		return fmt.Errorf("password salt length must be >= %d", minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return fmt.Errorf("password key length must be >= %d", minKeyLength)
	case cfg.MinPasswordBytes > 0 && cfg.MaxPasswordBytes > 0 && cfg.MinPasswordBytes > cfg.MaxPasswordBytes:
		return errors.New("password minimum length exceeds maximum")
	}
	return nil
}
