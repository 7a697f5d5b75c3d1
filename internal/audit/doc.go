// Package audit relays security events (logins, refresh reuse, role and
// status changes) to a Sink on a background goroutine.
//
// The Dispatcher either drops events when its buffer is full or blocks the
// caller until space frees up, depending on Config.DropIfFull. Drops are
// counted and, when Config.Logger is set, reported. It never decides which
// events to emit; the engine does.
package audit
