// Package cookie serializes a user's identity token pair to and from a
// signed, encrypted session cookie value.
//
// # Design
//
// The payload is a compact binary frame (length-prefixed fields, big-endian
// integers) holding the idToken, the refreshToken, a JSON snapshot of the
// decoded claims, and the issue/expiry timestamps. The frame is encrypted
// with AES-256-GCM and authenticated with HMAC-SHA256 under subkeys supplied
// by the keyring package. Decoding tries every key in the ring and reports
// which one verified, which is what lets the resolver migrate rotation-era
// cookies onto the current key.
//
// # Size policy
//
// Encoded values above 4096 bytes are rejected with [ErrCookieTooLarge].
// Chunking across multiple cookies is deliberately not supported: an
// oversized claims snapshot is a configuration problem, not a transport one.
//
// # What this package must NOT do
//
//   - Perform network I/O or touch the identity provider.
//   - Hold mutable state between calls.
//   - Import goGate or any sibling package other than keyring.
package cookie
