package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// daemonConfig holds the runtime settings of authcored.
//
// Values are layered: defaults, then the JSON file named by -c, then
// AUTHCORED_* environment variables, then command-line flags.
type daemonConfig struct {
	ListenAddr     string
	DatabaseDSN    string
	RedisAddr      string
	SecretKey      string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	CacheTTL       time.Duration
	ConfirmBaseURL string
	AuditLog       bool
	Metrics        bool
}

func (c *daemonConfig) loadDefaults() {
	c.ListenAddr = ":8080"
	c.RedisAddr = "127.0.0.1:6379"
	c.AccessTTL = 150 * time.Minute
	c.RefreshTTL = 7 * 24 * time.Hour
	c.CacheTTL = 900 * time.Second
	c.ConfirmBaseURL = "http://localhost:8080/auth/confirmed_email/"
	c.Metrics = true
}

// duration accepts "15m" style strings as well as integer nanoseconds.
type duration time.Duration

func (d *duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("duration must be a string or an integer")
	}
	*d = duration(n)
	return nil
}

type jsonConfig struct {
	ListenAddr     *string   `json:"listen_addr"`
	DatabaseDSN    *string   `json:"database_dsn"`
	RedisAddr      *string   `json:"redis_addr"`
	SecretKey      *string   `json:"secret_key"`
	AccessTTL      *duration `json:"access_ttl"`
	RefreshTTL     *duration `json:"refresh_ttl"`
	CacheTTL       *duration `json:"cache_ttl"`
	ConfirmBaseURL *string   `json:"confirm_base_url"`
	AuditLog       *bool     `json:"audit_log"`
	Metrics        *bool     `json:"metrics"`
}

func (c *daemonConfig) applyJSON(data []byte) error {
	var j jsonConfig
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	setString(&c.ListenAddr, j.ListenAddr)
	setString(&c.DatabaseDSN, j.DatabaseDSN)
	setString(&c.RedisAddr, j.RedisAddr)
	setString(&c.SecretKey, j.SecretKey)
	setString(&c.ConfirmBaseURL, j.ConfirmBaseURL)
	setDuration(&c.AccessTTL, j.AccessTTL)
	setDuration(&c.RefreshTTL, j.RefreshTTL)
	setDuration(&c.CacheTTL, j.CacheTTL)
	if j.AuditLog != nil {
		c.AuditLog = *j.AuditLog
	}
	if j.Metrics != nil {
		c.Metrics = *j.Metrics
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *duration) {
	if v != nil {
		*dst = time.Duration(*v)
	}
}

func (c *daemonConfig) applyEnv(getenv func(string) string) error {
	for name, dst := range map[string]*string{
		"AUTHCORED_LISTEN_ADDR":      &c.ListenAddr,
		"AUTHCORED_DATABASE_DSN":     &c.DatabaseDSN,
		"AUTHCORED_REDIS_ADDR":       &c.RedisAddr,
		"AUTHCORED_SECRET_KEY":       &c.SecretKey,
		"AUTHCORED_CONFIRM_BASE_URL": &c.ConfirmBaseURL,
	} {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}
	for name, dst := range map[string]*time.Duration{
		"AUTHCORED_ACCESS_TTL":  &c.AccessTTL,
		"AUTHCORED_REFRESH_TTL": &c.RefreshTTL,
		"AUTHCORED_CACHE_TTL":   &c.CacheTTL,
	} {
		if v := getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = d
		}
	}
	for name, dst := range map[string]*bool{
		"AUTHCORED_AUDIT_LOG": &c.AuditLog,
		"AUTHCORED_METRICS":   &c.Metrics,
	} {
		if v := getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = b
		}
	}
	return nil
}

// loadConfig builds the daemon configuration from args (without the program
// name) and the environment.
func loadConfig(args []string, getenv func(string) string) (*daemonConfig, error) {
	cfg := &daemonConfig{}
	cfg.loadDefaults()

	fs := flag.NewFlagSet("authcored", flag.ContinueOnError)
	configFile := fs.String("c", "", "path to a JSON config file")
	listen := fs.String("a", "", "listen address")
	dsn := fs.String("d", "", "PostgreSQL DSN; empty uses the in-memory store")
	redisAddr := fs.String("r", "", "redis address")
	secret := fs.String("s", "", "HS256 signing key (at least 32 bytes)")
	accessTTL := fs.Duration("access-ttl", 0, "access token lifetime")
	refreshTTL := fs.Duration("refresh-ttl", 0, "refresh token lifetime")
	cacheTTL := fs.Duration("cache-ttl", 0, "account cache lifetime")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := cfg.applyJSON(data); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}

	// Flags override only when given.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			cfg.ListenAddr = *listen
		case "d":
			cfg.DatabaseDSN = *dsn
		case "r":
			cfg.RedisAddr = *redisAddr
		case "s":
			cfg.SecretKey = *secret
		case "access-ttl":
			cfg.AccessTTL = *accessTTL
		case "refresh-ttl":
			cfg.RefreshTTL = *refreshTTL
		case "cache-ttl":
			cfg.CacheTTL = *cacheTTL
		}
	})

	if len(cfg.SecretKey) < 32 {
		return nil, errors.New("secret key must be at least 32 bytes")
	}
	return cfg, nil
}
