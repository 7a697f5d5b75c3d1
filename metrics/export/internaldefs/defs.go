package internaldefs

import (
	"github.com/MrEthical07/authcore"
)

// CounterDef binds a counter ID to its exported name.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a fixed order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful login attempts."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed login attempts."},
	{ID: authcore.MetricLoginRateLimited, Name: "authcore_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: authcore.MetricLoginUnconfirmed, Name: "authcore_login_unconfirmed_total", Help: "Logins rejected for an unconfirmed email."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: authcore.MetricRefreshReuseDetected, Name: "authcore_refresh_reuse_detected_total", Help: "Presented refresh tokens that did not match the stored one."},
	{ID: authcore.MetricRefreshRateLimited, Name: "authcore_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Logout operations."},
	{ID: authcore.MetricSignupSuccess, Name: "authcore_signup_success_total", Help: "Created accounts."},
	{ID: authcore.MetricSignupDuplicate, Name: "authcore_signup_duplicate_total", Help: "Signups rejected as duplicate."},
	{ID: authcore.MetricSignupRateLimited, Name: "authcore_signup_rate_limited_total", Help: "Rate-limited signups."},
	{ID: authcore.MetricEmailVerificationRequest, Name: "authcore_email_verification_request_total", Help: "Confirmation emails queued."},
	{ID: authcore.MetricEmailVerificationSuccess, Name: "authcore_email_verification_success_total", Help: "Successful email confirmations."},
	{ID: authcore.MetricEmailVerificationFailure, Name: "authcore_email_verification_failure_total", Help: "Failed email confirmations."},
	{ID: authcore.MetricEmailVerificationRateLimited, Name: "authcore_email_verification_rate_limited_total", Help: "Rate-limited confirmation email requests."},
	{ID: authcore.MetricNotificationFailed, Name: "authcore_notification_failed_total", Help: "Notifications that could not be queued or delivered."},
	{ID: authcore.MetricResolveSuccess, Name: "authcore_resolve_success_total", Help: "Access tokens resolved to an account, from the cache or the store."},
	{ID: authcore.MetricResolveFailure, Name: "authcore_resolve_failure_total", Help: "Access tokens rejected during resolve: bad signature, expiry, wrong scope, banned or deleted subject."},
	{ID: authcore.MetricCacheHit, Name: "authcore_cache_hit_total", Help: "Resolves served from the Redis account snapshot."},
	{ID: authcore.MetricCacheMiss, Name: "authcore_cache_miss_total", Help: "Resolves that found no cached snapshot and read the store."},
	{ID: authcore.MetricCacheError, Name: "authcore_cache_error_total", Help: "Redis errors or corrupt snapshots during resolve; the store answered instead."},
	{ID: authcore.MetricAuthorizeDenied, Name: "authcore_authorize_denied_total", Help: "Authorization decisions that denied access."},
	{ID: authcore.MetricRoleChanged, Name: "authcore_role_changed_total", Help: "Role changes."},
	{ID: authcore.MetricAccountDisabled, Name: "authcore_account_disabled_total", Help: "Account ban operations."},
	{ID: authcore.MetricAccountEnabled, Name: "authcore_account_enabled_total", Help: "Account unban operations."},
	{ID: authcore.MetricPasswordChangeSuccess, Name: "authcore_password_change_success_total", Help: "Successful password changes."},
	{ID: authcore.MetricPasswordChangeInvalidOld, Name: "authcore_password_change_invalid_old_total", Help: "Password changes with an invalid old password."},
}

var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricResolveLatency, Name: "authcore_resolve_latency_seconds", Help: "Time to turn an access token into an account, cache lookup included."},
}

const (
	CacheHitRatioName = "authcore_cache_hit_ratio"
	CacheHitRatioHelp = "Share of resolve cache lookups answered from Redis since start."
)

// CacheHitRatio is hits / (hits + misses + errors). It is false until the
// cache has been consulted at least once.
func CacheHitRatio(snap authcore.MetricsSnapshot) (float64, bool) {
	hits := snap.Counters[authcore.MetricCacheHit]
	lookups := hits + snap.Counters[authcore.MetricCacheMiss] + snap.Counters[authcore.MetricCacheError]
	if lookups == 0 {
		return 0, false
	}
	return float64(hits) / float64(lookups), true
}

// HistogramBounds are the upper bounds in seconds, matching bucketIndex.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
