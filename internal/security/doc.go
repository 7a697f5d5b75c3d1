// Package security builds the configuration posture report of an engine.
package security
