// Package goGate provides an edge authentication gate that resolves encrypted
// session cookies into tri-state credential decisions: valid, invalid with a
// reason, or error with a cause. It verifies provider-issued ID tokens against
// a cached JWKS, transparently refreshes expired tokens, and re-signs cookies
// across signing-key rotations without logging users out.
//
// The package is designed for concurrent server workloads: Gate methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goGate is the public surface. It exposes [Gate], [Builder], [Config], and value types
// (Decision, MetricsSnapshot, SecurityReport, etc.). All internal coordination — flow
// orchestration and audit dispatch — lives under internal/ and is never exported.
// Cookie encoding, key derivation, provider calls, and revocation storage live in
// their own importable packages (cookie, keyring, idp, revocation).
//
// # What this package must NOT do
//
//   - Expose Redis clients, the key ring, or wire-format details in its public API.
//   - Perform I/O outside of Gate methods (construction via Builder is allocation-only
//     until Build).
//   - Import any sub-package that re-imports goGate (no import cycles).
//
// # Performance contract
//
// Resolve is the hot path. A structurally invalid cookie must be rejected without any
// network call, and a live token must be resolved with at most one provider round-trip
// (the JWKS fetch, amortized by the key cache). Refresh is allowed one additional
// provider round-trip.
package goGate
