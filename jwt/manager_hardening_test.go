package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func edConfig(pub ed25519.PublicKey, priv ed25519.PrivateKey) Config {
	return Config{
		AccessTTL:            time.Minute,
		RefreshTTL:           time.Hour,
		EmailVerificationTTL: time.Hour,
		SigningMethod:        MethodEd25519,
		PrivateKey:           priv,
		PublicKey:            pub,
	}
}

func accessClaims(iss string, aud string, iat, exp time.Time) Claims {
	c := Claims{Role: "user", Scope: ScopeAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "a@example.com",
		Issuer:    iss,
		ExpiresAt: gjwt.NewNumericDate(exp),
		IssuedAt:  gjwt.NewNumericDate(iat),
	}}
	if aud != "" {
		c.Audience = gjwt.ClaimStrings{aud}
	}
	return c
}

func TestDecodeRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	cfg := edConfig(pub, nil)
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	now := time.Now()
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, accessClaims("", "", now, now.Add(time.Minute)))
	token, err := tok.SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Decode(token, ScopeAccess); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed for wrong algorithm, got %v", err)
	}
}

func TestDecodeIssuerAudienceAndLeeway(t *testing.T) {
	pub, priv := newEdKeys(t)
	cfg := edConfig(pub, priv)
	cfg.Issuer = "authcore"
	cfg.Audience = "api"
	cfg.Leeway = 30 * time.Second
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	access, err := m.CreateAccess("a@example.com", "user")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if _, err := m.Decode(access, ScopeAccess); err != nil {
		t.Fatalf("expected valid token to decode: %v", err)
	}

	now := time.Now()
	sign := func(c Claims) string {
		s, err := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, c).SignedString(priv)
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		return s
	}

	if _, err := m.Decode(sign(accessClaims("other", "api", now, now.Add(time.Minute))), ScopeAccess); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected wrong issuer to fail, got %v", err)
	}
	if _, err := m.Decode(sign(accessClaims("authcore", "other-api", now, now.Add(time.Minute))), ScopeAccess); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected wrong audience to fail, got %v", err)
	}

	within := sign(accessClaims("authcore", "api", now.Add(-time.Minute), now.Add(-15*time.Second)))
	if _, err := m.Decode(within, ScopeAccess); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}

	expired := sign(accessClaims("authcore", "api", now.Add(-3*time.Minute), now.Add(-2*time.Minute)))
	if _, err := m.Decode(expired, ScopeAccess); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestDecodeUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)
	cfg := edConfig(pub1, priv1)
	cfg.KeyID = "k1"
	cfg.VerifyKeys = map[string][]byte{"k1": pub1}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	now := time.Now()
	claims := accessClaims("", "", now, now.Add(time.Minute))
	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok.Header["kid"] = "k2"
	token, err := tok.SignedString(priv1)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Decode(token, ScopeAccess); err == nil {
		t.Fatal("expected unknown kid failure")
	}

	tok2 := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok2.Header["kid"] = "k1"
	good, _ := tok2.SignedString(priv1)
	if _, err := m.Decode(good, ScopeAccess); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}

	cfg2 := edConfig(pub2, nil)
	cfg2.VerifyKeys = map[string][]byte{"k2": pub2}
	m2, err := NewManager(cfg2)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m2.Decode(good, ScopeAccess); err == nil {
		t.Fatal("expected decode failure with mismatched key set")
	}
}

func TestDecodeRejectsAccessWithoutRole(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(edConfig(pub, priv))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	now := time.Now()
	c := accessClaims("", "", now, now.Add(time.Minute))
	c.Role = ""
	token, _ := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, c).SignedString(priv)
	if _, err := m.Decode(token, ScopeAccess); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}
