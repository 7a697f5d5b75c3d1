// Package limiters holds the Redis fixed-window throttles for signup and
// confirmation email resends. Login and refresh throttling live in
// internal/rate.
//
// Both limiters are nil-safe. They count and report; callers decide whether
// an unavailable Redis fails open.
package limiters
