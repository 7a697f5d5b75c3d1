// Package memory is an in-process account.Store used by tests and by the
// daemon when no database DSN is configured.
package memory
