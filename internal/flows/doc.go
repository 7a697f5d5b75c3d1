// Package flows contains the orchestration behind the Engine's operations:
// login, refresh and per-request account resolution on the hot path, plus
// signup, email confirmation, logout and the admin role/status changes.
//
// Each Run function takes a dependency struct and returns a result carrying
// either the payload or a failure kind that the root package maps onto its
// public error taxonomy. Flows hold no state between calls and never import
// the root package.
package flows
