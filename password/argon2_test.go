package password

import (
	"errors"
	"strings"
	"testing"
)

// cheapConfig keeps the tests fast; it sits exactly on the parameter floor.
func cheapConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
}

func newTestArgon2(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	a, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	return a
}

func TestArgon2DigestFormat(t *testing.T) {
	a := newTestArgon2(t, cheapConfig())

	digest, err := a.Hash("hunter22")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(digest, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected digest %q", digest)
	}

	again, err := a.Hash("hunter22")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if again == digest {
		t.Fatal("expected a fresh salt per digest")
	}

	for _, d := range []string{digest, again} {
		if ok, err := a.Verify("hunter22", d); err != nil || !ok {
			t.Fatalf("expected verify success, ok=%v err=%v", ok, err)
		}
	}
	if ok, err := a.Verify("hunter23", digest); err != nil || ok {
		t.Fatalf("expected clean mismatch, ok=%v err=%v", ok, err)
	}
}

func TestArgon2DefaultMinimumIsSixBytes(t *testing.T) {
	a := newTestArgon2(t, cheapConfig())

	_, err := a.Hash("12345")
	if !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if !strings.Contains(err.Error(), "6 bytes") {
		t.Fatalf("expected the minimum in the message, got %q", err)
	}
	if _, err := a.Hash("123456"); err != nil {
		t.Fatalf("expected a 6-byte password to be accepted: %v", err)
	}
}

func TestArgon2ConfigurableMinimum(t *testing.T) {
	cfg := cheapConfig()
	cfg.MinPasswordBytes = 10
	a := newTestArgon2(t, cfg)

	if _, err := a.Hash("ninechars"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort below a raised minimum, got %v", err)
	}
	if _, err := a.Hash("tenchars!!"); err != nil {
		t.Fatalf("expected 10 bytes to be accepted: %v", err)
	}
}

func TestArgon2MinimumCountsBytesNotRunes(t *testing.T) {
	a := newTestArgon2(t, cheapConfig())

	// Three runes, six bytes.
	if _, err := a.Hash("äöü"); err != nil {
		t.Fatalf("expected six UTF-8 bytes to satisfy the minimum: %v", err)
	}
}

func TestArgon2MaximumLength(t *testing.T) {
	cfg := cheapConfig()
	cfg.MaxPasswordBytes = 64
	a := newTestArgon2(t, cfg)

	atMax := strings.Repeat("b", 64)
	digest, err := a.Hash(atMax)
	if err != nil {
		t.Fatalf("expected exactly 64 bytes to be accepted: %v", err)
	}
	if _, err := a.Hash(atMax + "b"); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong from Hash, got %v", err)
	}

	// Verify refuses over-long input before touching the digest.
	ok, err := a.Verify(atMax+"b", digest)
	if !errors.Is(err, ErrPasswordTooLong) || ok {
		t.Fatalf("expected ErrPasswordTooLong from Verify, ok=%v err=%v", ok, err)
	}
}

func TestArgon2VerifyIgnoresMinimum(t *testing.T) {
	short := newTestArgon2(t, cheapConfig())
	digest, err := short.Hash("sixsix")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	// Raising the minimum later must not lock existing accounts out.
	cfg := cheapConfig()
	cfg.MinPasswordBytes = 12
	strict := newTestArgon2(t, cfg)
	if ok, err := strict.Verify("sixsix", digest); err != nil || !ok {
		t.Fatalf("expected old short password to verify, ok=%v err=%v", ok, err)
	}
}

func TestArgon2DefaultMaximum(t *testing.T) {
	a := newTestArgon2(t, cheapConfig())

	if _, err := a.Hash(strings.Repeat("d", DefaultMaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong above %d bytes, got %v", DefaultMaxPasswordBytes, err)
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = 4096 },
		"time":        func(c *Config) { c.Time = 0 },
		"parallelism": func(c *Config) { c.Parallelism = 0 },
		"salt":        func(c *Config) { c.SaltLength = 8 },
		"key":         func(c *Config) { c.KeyLength = 8 },
		"min over max": func(c *Config) {
			c.MinPasswordBytes = 20
			c.MaxPasswordBytes = 10
		},
	}
	for name, mutate := range cases {
		cfg := cheapConfig()
		mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("%s: expected NewArgon2 to fail", name)
		}
	}
}

func TestArgon2NeedsUpgrade(t *testing.T) {
	old := newTestArgon2(t, cheapConfig())
	digest, err := old.Hash("upgrade-me")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if up, err := old.NeedsUpgrade(digest); err != nil || up {
		t.Fatalf("expected current digest to be fine, up=%v err=%v", up, err)
	}

	stronger := cheapConfig()
	stronger.Time = 2
	if up, err := newTestArgon2(t, stronger).NeedsUpgrade(digest); err != nil || !up {
		t.Fatalf("expected upgrade for higher time cost, up=%v err=%v", up, err)
	}

	longerKey := cheapConfig()
	longerKey.KeyLength = 32
	if up, err := newTestArgon2(t, longerKey).NeedsUpgrade(digest); err != nil || !up {
		t.Fatalf("expected upgrade for a different key length, up=%v err=%v", up, err)
	}
}

func TestArgon2RejectsMalformedDigests(t *testing.T) {
	a := newTestArgon2(t, cheapConfig())
	good, err := a.Hash("hunter22")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	bad := map[string]string{
		"plaintext":       "hunter22",
		"wrong algorithm": strings.Replace(good, "$argon2id$", "$argon2i$", 1),
		"wrong version":   strings.Replace(good, "$v=19$", "$v=18$", 1),
		"reordered":       strings.Replace(good, "m=8192,t=1,p=1", "t=1,m=8192,p=1", 1),
		"leading zero":    strings.Replace(good, "t=1,", "t=01,", 1),
		"trailing junk":   strings.Replace(good, "p=1$", "p=1x$", 1),
		"memory floor":    strings.Replace(good, "m=8192", "m=1024", 1),
		"bad salt":        strings.Replace(good, "p=1$", "p=1$!!", 1),
	}
	for name, digest := range bad {
		if _, err := a.Verify("hunter22", digest); !errors.Is(err, ErrMalformedDigest) {
			t.Fatalf("%s: expected ErrMalformedDigest from Verify, got %v", name, err)
		}
		if _, err := a.NeedsUpgrade(digest); !errors.Is(err, ErrMalformedDigest) {
			t.Fatalf("%s: expected ErrMalformedDigest from NeedsUpgrade, got %v", name, err)
		}
	}
}
