package authcore

import (
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/authcore/password"
)

// Config holds every tunable of an Engine. It is copied at Build time and
// treated as immutable afterwards.
type Config struct {
	JWT          JWTConfig
	Cache        CacheConfig
	Password     PasswordConfig
	Account      AccountConfig
	Notification NotificationConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
	Security     SecurityConfig

	// Logger receives best-effort failures (cache write-back, notification
	// delivery, hash upgrades). Nil discards them.
	Logger *slog.Logger
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token signing and lifetimes.
type JWTConfig struct {
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	EmailVerificationTTL time.Duration
	SigningMethod        string // "hs256" (default) or "ed25519"
	PrivateKey           []byte
	PublicKey            []byte
	Issuer               string
	Audience             string
	Leeway               time.Duration
	KeyID                string

	// Now overrides the wall clock used for iat/exp. Tests only.
	Now func() time.Time
}

/*
====================================
CACHE CONFIG
====================================
*/

// CacheConfig controls the account snapshot cache.
type CacheConfig struct {
	RedisPrefix string
	TTL         time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

type PasswordConfig struct {
	Algorithm        string // "argon2id" (default) or "bcrypt"
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	BcryptCost       int
	MinPasswordBytes int
	MaxPasswordBytes int
	UpgradeOnLogin   bool
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig holds signup and login policy.
type AccountConfig struct {
	// RequireConfirmedLogin rejects logins of accounts whose email address
	// has not been confirmed.
	RequireConfirmedLogin bool
	DisplayNameMinLength  int
	DisplayNameMaxLength  int
}

/*
====================================
NOTIFICATION CONFIG
====================================
*/

type NotificationConfig struct {
	BufferSize  int
	SendTimeout time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds login and refresh throttling. Throttling needs Redis.
type SecurityConfig struct {
	EnableLoginThrottle     bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration

	// Signup is counted per client IP (see WithClientIP).
	EnableSignupThrottle bool
	MaxSignupsPerIP      int
	SignupWindow         time.Duration

	// Confirmation email resends are counted per identity and, with
	// VerificationIPThrottle, per client IP.
	EnableVerificationThrottle bool
	VerificationIPThrottle     bool
	MaxVerificationRequests    int
	VerificationWindow         time.Duration
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:            150 * time.Minute,
			RefreshTTL:           7 * 24 * time.Hour,
			EmailVerificationTTL: 7 * 24 * time.Hour,
			SigningMethod:        "hs256",
		},
		Cache: CacheConfig{
			RedisPrefix: "ac",
			TTL:         900 * time.Second,
		},
		Password: PasswordConfig{
			Algorithm:        "argon2id",
			Memory:           65536,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			BcryptCost:       12,
			MinPasswordBytes: password.DefaultMinPasswordBytes,
			MaxPasswordBytes: password.DefaultMaxPasswordBytes,
			UpgradeOnLogin:   true,
		},
		Account: AccountConfig{
			RequireConfirmedLogin: true,
			DisplayNameMinLength:  5,
			DisplayNameMaxLength:  16,
		},
		Notification: NotificationConfig{
			BufferSize:  256,
			SendTimeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
		Security: SecurityConfig{
			EnableLoginThrottle:     true,
			MaxLoginAttempts:        5,
			LoginCooldownDuration:   15 * time.Minute,
			EnableRefreshThrottle:   false,
			MaxRefreshAttempts:      20,
			RefreshCooldownDuration: time.Minute,

			EnableSignupThrottle: true,
			MaxSignupsPerIP:      10,
			SignupWindow:         time.Hour,

			EnableVerificationThrottle: true,
			VerificationIPThrottle:     true,
			MaxVerificationRequests:    3,
			VerificationWindow:         15 * time.Minute,
		},
	}
}

// DefaultConfig returns the configuration an Engine starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.EmailVerificationTTL <= 0 {
		return errors.New("JWT EmailVerificationTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	// Cache
	if c.Cache.TTL <= 0 {
		return errors.New("Cache TTL must be > 0")
	}
	if c.Cache.RedisPrefix == "" {
		return errors.New("Cache RedisPrefix must not be empty")
	}

	// Password
	switch c.Password.Algorithm {
	case "argon2id":
		if c.Password.Memory < 8*1024 {
			return errors.New("Password Memory must be >= 8192 KB")
		}
		if c.Password.Time < 1 {
			return errors.New("Password Time must be >= 1")
		}
		if c.Password.Parallelism < 1 {
			return errors.New("Password Parallelism must be >= 1")
		}
		if c.Password.SaltLength < 16 {
			return errors.New("Password SaltLength must be >= 16")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	case "bcrypt":
		if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
			return errors.New("Password BcryptCost must be between 4 and 31")
		}
	default:
		return errors.New("Password Algorithm must be 'argon2id' or 'bcrypt'")
	}
	if c.Password.MinPasswordBytes < 1 {
		return errors.New("Password MinPasswordBytes must be >= 1")
	}
	if c.Password.MaxPasswordBytes < c.Password.MinPasswordBytes {
		return errors.New("Password MaxPasswordBytes must be >= MinPasswordBytes")
	}

	// Account
	if c.Account.DisplayNameMinLength < 1 || c.Account.DisplayNameMaxLength < c.Account.DisplayNameMinLength {
		return errors.New("Account display name bounds are invalid")
	}
	if c.Account.DisplayNameMaxLength > 255 {
		return errors.New("Account DisplayNameMaxLength must be <= 255")
	}

	// Notification
	if c.Notification.BufferSize <= 0 {
		return errors.New("Notification BufferSize must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("Security MaxRefreshAttempts must be > 0")
		}
		if c.Security.RefreshCooldownDuration <= 0 {
			return errors.New("Security RefreshCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableSignupThrottle && (c.Security.MaxSignupsPerIP <= 0 || c.Security.SignupWindow <= 0) {
		return errors.New("Security signup throttle needs MaxSignupsPerIP and SignupWindow > 0")
	}
	if c.Security.EnableVerificationThrottle && (c.Security.MaxVerificationRequests <= 0 || c.Security.VerificationWindow <= 0) {
		return errors.New("Security verification throttle needs MaxVerificationRequests and VerificationWindow > 0")
	}

	return nil
}
