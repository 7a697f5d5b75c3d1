package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/account"
	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/limiters"
	"github.com/MrEthical07/authcore/internal/logging"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/notify"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/revocation"
	"github.com/MrEthical07/authcore/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder can be used once.
type Builder struct {
	config Config
	store  account.Store
	redis  redis.UniversalClient

	notifier  notify.Notifier
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the account store. Required.
func (b *Builder) WithStore(store account.Store) *Builder {
	b.store = store
	return b
}

// WithRedis enables the account cache and login throttling. Without it every
// request reads the store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithNotifier sets where confirmation messages go. The default logs them.
func (b *Builder) WithNotifier(n notify.Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and starts the engine's background
// workers. Call [Engine.Close] to stop them.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("account store required")
	}

	logger := logging.NewSlogLogger(cfg.Logger).With("component", "authcore")

	engine := &Engine{
		config:     cfg,
		store:      b.store,
		revocation: revocation.New(b.store),
		logger:     logger,
		metrics:    NewMetrics(cfg.Metrics),
	}

	// -------- CACHE / THROTTLING --------
	if b.redis != nil {
		engine.cache = session.NewCache(b.redis, cfg.Cache.RedisPrefix)
		if cfg.Security.EnableLoginThrottle || cfg.Security.EnableRefreshThrottle {
			engine.rateLimiter = rate.New(b.redis, rate.Config{
				KeyPrefix:               cfg.Cache.RedisPrefix,
				MaxLoginAttempts:        cfg.Security.MaxLoginAttempts,
				LoginCooldownDuration:   cfg.Security.LoginCooldownDuration,
				EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
				MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
				RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
			})
		}
		if cfg.Security.EnableSignupThrottle {
			engine.signupLimiter = limiters.NewSignupLimiter(b.redis, limiters.SignupConfig{
				KeyPrefix:   cfg.Cache.RedisPrefix,
				MaxAttempts: cfg.Security.MaxSignupsPerIP,
				Window:      cfg.Security.SignupWindow,
			})
		}
		if cfg.Security.EnableVerificationThrottle {
			engine.resendLimiter = limiters.NewEmailVerificationLimiter(b.redis, limiters.EmailVerificationConfig{
				KeyPrefix:        cfg.Cache.RedisPrefix,
				EnableIPThrottle: cfg.Security.VerificationIPThrottle,
				MaxAttempts:      cfg.Security.MaxVerificationRequests,
				Window:           cfg.Security.VerificationWindow,
			})
		}
	} else if cfg.Security.EnableLoginThrottle || cfg.Security.EnableRefreshThrottle ||
		cfg.Security.EnableSignupThrottle || cfg.Security.EnableVerificationThrottle {
		logger.Warn(context.Background(), "no redis client, throttling disabled")
	}

	// -------- PASSWORD --------
	hasher, err := newHasher(cfg.Password)
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:            cfg.JWT.AccessTTL,
		RefreshTTL:           cfg.JWT.RefreshTTL,
		EmailVerificationTTL: cfg.JWT.EmailVerificationTTL,
		SigningMethod:        jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:           cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:            cloneBytes(cfg.JWT.PublicKey),
		Issuer:               cfg.JWT.Issuer,
		Audience:             cfg.JWT.Audience,
		Leeway:               cfg.JWT.Leeway,
		KeyID:                cfg.JWT.KeyID,
		Now:                  cfg.JWT.Now,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	// -------- WORKERS --------
	notifier := b.notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(cfg.Logger, "")
	}
	engine.notifier = notify.NewDispatcher(notify.Config{
		BufferSize:  cfg.Notification.BufferSize,
		SendTimeout: cfg.Notification.SendTimeout,
		OnError: func(msg notify.Message, err error) {
			engine.metricInc(MetricNotificationFailed)
			logger.Warn(context.Background(), "notification delivery failed", "id", msg.ID, "kind", string(msg.Kind), "recipient", msg.Recipient, "error", err)
		},
	}, notifier)
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Logger:     logger.With("subsystem", "audit"),
	}, b.auditSink)

	engine.flowDeps = engine.buildFlowDeps()

	b.built = true

	return engine, nil
}

func newHasher(cfg PasswordConfig) (password.Hasher, error) {
	a, err := password.NewArgon2(password.Config{
		Memory:           cfg.Memory,
		Time:             cfg.Time,
		Parallelism:      cfg.Parallelism,
		SaltLength:       cfg.SaltLength,
		KeyLength:        cfg.KeyLength,
		MinPasswordBytes: cfg.MinPasswordBytes,
		MaxPasswordBytes: cfg.MaxPasswordBytes,
	})
	if err != nil && cfg.Algorithm != "bcrypt" {
		return nil, fmt.Errorf("argon2: %w", err)
	}
	bc, err := password.NewBcrypt(password.BcryptConfig{
		Cost:             cfg.BcryptCost,
		MinPasswordBytes: cfg.MinPasswordBytes,
		MaxPasswordBytes: cfg.MaxPasswordBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("bcrypt: %w", err)
	}

	// In bcrypt mode invalid argon2 parameters only disable verification of
	// argon2 digests.
	d := &password.Dispatch{Argon2: a, Bcrypt: bc}
	if cfg.Algorithm == "bcrypt" {
		d.Primary = bc
	} else {
		d.Primary = a
	}
	return d, nil
}
