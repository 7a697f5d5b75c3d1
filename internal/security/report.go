package security

import "time"

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Report is the posture summary logged at startup and exposed by
// Engine.SecurityReport. Warnings lists settings that weaken the defaults.
type Report struct {
	SigningAlgorithm           string
	AccessTTL                  time.Duration
	RefreshTTL                 time.Duration
	CacheTTL                   time.Duration
	StalenessBound             time.Duration
	PasswordAlgorithm          string
	Argon2                     PasswordReport
	BcryptCost                 int
	RequireConfirmedLogin      bool
	CacheActive                bool
	LoginThrottleActive        bool
	RefreshThrottleActive      bool
	SignupThrottleActive       bool
	VerificationThrottleActive bool
	AuditEnabled               bool
	Warnings                   []string
}

type ReportInput struct {
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	CacheTTL              time.Duration
	PasswordAlgorithm     string
	Argon2                PasswordReport
	BcryptCost            int
	RequireConfirmedLogin bool
	CacheConfigured       bool
	LoginThrottle         bool
	RefreshThrottle       bool
	SignupThrottle        bool
	VerificationThrottle  bool
	AuditEnabled          bool
}

func BuildReport(input ReportInput) Report {
	// A role or ban change reaches a cached account no later than this.
	staleness := input.CacheTTL
	if input.AccessTTL < staleness {
		staleness = input.AccessTTL
	}
	if !input.CacheConfigured {
		staleness = 0
	}

	r := Report{
		SigningAlgorithm:           input.SigningAlgorithm,
		AccessTTL:                  input.AccessTTL,
		RefreshTTL:                 input.RefreshTTL,
		CacheTTL:                   input.CacheTTL,
		StalenessBound:             staleness,
		PasswordAlgorithm:          input.PasswordAlgorithm,
		Argon2:                     input.Argon2,
		BcryptCost:                 input.BcryptCost,
		RequireConfirmedLogin:      input.RequireConfirmedLogin,
		CacheActive:                input.CacheConfigured,
		LoginThrottleActive:        input.LoginThrottle,
		RefreshThrottleActive:      input.RefreshThrottle,
		SignupThrottleActive:       input.SignupThrottle,
		VerificationThrottleActive: input.VerificationThrottle,
		AuditEnabled:               input.AuditEnabled,
	}

	if input.PasswordAlgorithm == "bcrypt" && input.BcryptCost < 10 {
		r.Warnings = append(r.Warnings, "bcrypt cost below 10")
	}
	if input.PasswordAlgorithm == "argon2id" && input.Argon2.Memory < 64*1024 {
		r.Warnings = append(r.Warnings, "argon2id memory below 64 MiB")
	}
	if !input.LoginThrottle {
		r.Warnings = append(r.Warnings, "login throttling inactive")
	}
	if !input.RequireConfirmedLogin {
		r.Warnings = append(r.Warnings, "unconfirmed accounts can log in")
	}
	return r
}
