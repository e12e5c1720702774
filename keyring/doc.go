// Package keyring holds the ordered rotating signing secrets used to protect
// session cookies.
//
// # Design
//
// Each configured secret is expanded with HKDF-SHA256 into two independent
// subkeys: an HMAC-SHA256 key for the cookie signature and an AES-256-GCM key
// for the cookie payload. Rotation is operational, not programmatic: the
// operator prepends a new secret, waits out the longest cookie lifetime, and
// removes the oldest. The ring is immutable after construction and safe for
// concurrent reads.
//
// # What this package must NOT do
//
//   - Mutate or reload keys at runtime.
//   - Perform any I/O.
//   - Import goGate or any sibling package.
package keyring
