// Package jwt issues and decodes the three token kinds used by authcore:
// short-lived access tokens, long-lived refresh tokens and email
// verification tokens. Every token carries a scope claim and Decode refuses
// a token whose scope differs from the one the caller expects.
package jwt
