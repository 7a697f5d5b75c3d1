// Package session caches account snapshots in Redis and owns their compact
// binary encoding.
//
// # Binary encoding
//
// Snapshots are stored as a versioned binary record. The first byte is the
// schema version; Decode rejects versions it does not know, and callers treat
// such entries as cache misses.
//
// # Architecture boundaries
//
// This package owns the [Cache] (Redis operations) and the [Snapshot] model.
// It does not interpret tokens or make authorization decisions, and it never
// stores password digests or refresh tokens.
package session
