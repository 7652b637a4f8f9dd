// Package authguard provides an in-process request-rate limiting and
// brute-force lockout guard for authentication-adjacent endpoints (login,
// password reset, two-factor verification, and general API traffic).
//
// The package is designed for concurrent server workloads: Guard methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authguard is the public surface. It exposes [Guard], [Builder], [Config],
// the policy presets, and value types (Decision, AuditEvent,
// MetricsSnapshot). The store implementations live in the window and lockout
// subpackages so deployments can swap the bundled mutex-guarded maps for a
// shared Redis backend without changing call sites.
//
// # What this package must NOT do
//
//   - Resolve credentials, TOTP codes, or sessions; the authentication flow
//     is an external collaborator that reports outcomes to the guard.
//   - Write logs directly; audit output goes through [AuditSink] values.
//   - Persist counters across restarts with the bundled memory stores.
//
// # Performance contract
//
// Check is the hot path. With the bundled memory stores it completes in
// bounded, constant time with no I/O and no blocking dependency beyond one
// short critical section. Redis-backed stores are allowed one round-trip
// batch per call. Deny and Blocked are ordinary return values, not errors.
package authguard
