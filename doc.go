// Package authcore is the authentication and authorization core of a
// content sharing service.
//
// An [Engine] is built once with [New] and a [Builder], given an
// [account.Store] and optionally a Redis client, and then shared by all
// request handlers. It signs short-lived access tokens and longer-lived
// refresh tokens, keeps exactly one valid refresh token per account,
// resolves access tokens to accounts through a Redis cache and decides role
// based access.
//
// # Tokens
//
// Access, refresh and email verification tokens are JWTs carrying a scope
// claim. Scopes are disjoint: a token is only ever accepted for the purpose
// it was minted for.
//
// # Refresh rotation
//
// Every refresh replaces the stored token with a new one in a single
// conditional write. Presenting a token that is not the stored one revokes
// the stored token, so a stolen token that is replayed after the legitimate
// client refreshed logs both out.
//
// # Cache staleness
//
// Cached accounts can lag the store by up to [CacheConfig].TTL. Writes made
// through the Engine overwrite the entry; writes made directly against the
// store do not. Roles are always taken from the access token, so a role
// change applies from the next token issued.
//
// # Throttling
//
// With Redis, failed logins and refreshes are counted per identity, signups
// per client IP and confirmation email resends per identity and IP. Pass the
// caller's address with [WithClientIP]. Every throttle allows the request
// when Redis cannot be reached.
package authcore
