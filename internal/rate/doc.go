// Package rate implements Redis fixed-window counters that throttle failed
// logins and refresh attempts per identity.
//
// # Window semantics
//
// INCR plus EXPIRE on the first hit of the window. Key prefixes:
//   - al: failed logins per identity
//   - ar: refresh attempts per identity
package rate
