// Package authcore provides an account-security engine with credential
// verification, login lockout, email verification and password-reset token
// lifecycles, TOTP two-factor gating, JWT access tokens, and single-slot
// opaque refresh tokens.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// the [Store] and [RefreshStore] persistence contracts, and value types
// (LoginResult, SanitizedAccount, MetricsSnapshot, etc.). Concrete stores
// live in sub-packages (memstore, pgstore, redistore) and transport adapters
// under httpapi; none of them are imported here.
//
// # What this package must NOT do
//
//   - Expose database or Redis clients in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Return credential hashes, two-factor secrets, or token digests from
//     any sanitized projection.
//
// # Performance contract
//
// ValidateAccess is the hot path. It verifies the JWT signature locally and
// must not touch a store. Login, Refresh, and account operations are allowed
// store round-trips.
package authcore
