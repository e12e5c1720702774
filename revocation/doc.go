// Package revocation stores per-subject revocation marks in Redis for the
// gate's opt-in revocation check.
//
// # Design
//
// A revocation is recorded as "tokens for subject S issued before time T are
// dead" rather than as a per-token denylist, which keeps one small key per
// revoked subject and makes the check a single GET. A bounded, expiring LRU
// sits in front of Redis so hot subjects do not pay the round-trip on every
// request; the cache TTL bounds how stale a "not revoked" answer can be.
//
// # What this package must NOT do
//
//   - Talk to the identity provider (the remote revocation endpoint lives in
//     package idp).
//   - Cache across the configured TTL or hold unbounded state.
package revocation
