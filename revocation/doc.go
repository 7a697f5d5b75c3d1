// Package revocation keeps at most one live refresh token per account.
//
// Issuing a token replaces the previous one, so a token is valid only while
// it is the stored value. Presenting anything else is treated as reuse of a
// stolen or superseded token: the stored token is cleared, logging the
// account out everywhere.
package revocation
