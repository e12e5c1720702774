// Package idp is the client for the remote identity provider: it verifies
// idTokens against the provider's published JWKS, exchanges refresh tokens
// for fresh pairs at the token endpoint, and optionally queries the
// provider's revocation status endpoint.
//
// # Architecture boundaries
//
// This package owns all network I/O toward the provider. Both suspension
// points (JWKS fetch, refresh/revocation round-trip) run under bounded
// timeouts; an unreachable provider surfaces as [ErrProviderUnavailable],
// never as an invalid-credential failure, so the resolver can tell "user not
// authenticated" apart from "system degraded".
//
// # Key caching
//
// The JWKS snapshot is held in an atomic.Value and replaced wholesale on
// refetch (copy-on-write), so concurrent request handlers read it without
// locks. A refetch is triggered by snapshot age or by an unknown kid, which
// is how provider-side key rotation is picked up mid-flight.
package idp
