package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goGate/cookie"
	"github.com/MrEthical07/goGate/idp"
)

// ResolveFailureKind classifies resolver failures for root-level mapping.
type ResolveFailureKind int

const (
	ResolveFailureNone ResolveFailureKind = iota
	ResolveFailureMissingCookie
	ResolveFailureMalformedCookie
	ResolveFailureBadSignature
	ResolveFailureMissingRefreshToken
	ResolveFailureInvalidToken
	ResolveFailureSystem
)

// ResolveResult carries either the verified credentials or failure metadata,
// plus any cookie rewrite the caller must attach to the response.
type ResolveResult struct {
	Failure ResolveFailureKind
	Err     error

	Pair   *cookie.TokenPair
	Claims *idp.Claims

	// SetCookie is the re-encoded cookie value when the pair was refreshed
	// or migrated onto the current signing key; empty otherwise.
	SetCookie   string
	Refreshed   bool
	KeyMigrated bool
}

// ResolveDeps captures the resolver pipeline's dependencies.
type ResolveDeps struct {
	Decode func(string) (*cookie.TokenPair, int, error)
	Verify func(context.Context, string) (*idp.Claims, error)
	Refresh func(context.Context, string) (*idp.RefreshedTokens, error)
	Encode func(*cookie.TokenPair) (string, error)

	ErrMalformedCookie     error
	ErrInvalidSignature    error
	ErrMissingRefreshToken error
	ErrTokenExpired        error
	ErrTokenInvalid        error
	ErrTokenRevoked        error
	ErrRefreshInvalid      error
	ErrRefreshMissingToken error
	ErrProviderUnavailable error
}

// RunResolve executes the per-request credential decision. The order is
// load-bearing: decode before verify avoids a network call on structurally
// invalid input, verify before refresh avoids a refresh call while the token
// is still live, and rotation-era cookies are only migrated onto the current
// key after a successful verification.
func RunResolve(ctx context.Context, rawCookie string, deps ResolveDeps) ResolveResult {
	if rawCookie == "" {
		return ResolveResult{Failure: ResolveFailureMissingCookie}
	}

	pair, keyIndex, err := deps.Decode(rawCookie)
	if err != nil {
		switch {
		case errors.Is(err, deps.ErrMalformedCookie):
			return ResolveResult{Failure: ResolveFailureMalformedCookie, Err: err}
		case errors.Is(err, deps.ErrInvalidSignature):
			return ResolveResult{Failure: ResolveFailureBadSignature, Err: err}
		case errors.Is(err, deps.ErrMissingRefreshToken):
			return ResolveResult{Failure: ResolveFailureMissingRefreshToken, Err: err}
		default:
			// MAC verified but the payload failed to open, or another
			// cryptographic fault: system error, not attacker input.
			return ResolveResult{Failure: ResolveFailureSystem, Err: err}
		}
	}

	claims, err := deps.Verify(ctx, pair.IDToken)
	if err == nil {
		result := ResolveResult{Pair: pair, Claims: claims}
		if keyIndex > 0 {
			encoded, encodeErr := reencode(pair, claims, deps)
			if encodeErr != nil {
				return ResolveResult{Failure: ResolveFailureSystem, Err: encodeErr}
			}
			result.SetCookie = encoded
			result.KeyMigrated = true
		}
		return result
	}

	switch {
	case errors.Is(err, deps.ErrTokenExpired):
		return runRefresh(ctx, pair, deps)
	case errors.Is(err, deps.ErrTokenInvalid), errors.Is(err, deps.ErrTokenRevoked):
		return ResolveResult{Failure: ResolveFailureInvalidToken, Err: err}
	default:
		return ResolveResult{Failure: ResolveFailureSystem, Err: err}
	}
}

func runRefresh(ctx context.Context, pair *cookie.TokenPair, deps ResolveDeps) ResolveResult {
	fresh, err := deps.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, deps.ErrRefreshMissingToken):
			return ResolveResult{Failure: ResolveFailureMissingRefreshToken, Err: err}
		case errors.Is(err, deps.ErrRefreshInvalid):
			return ResolveResult{Failure: ResolveFailureInvalidToken, Err: err}
		default:
			return ResolveResult{Failure: ResolveFailureSystem, Err: err}
		}
	}

	claims, err := deps.Verify(ctx, fresh.IDToken)
	if err != nil {
		switch {
		case errors.Is(err, deps.ErrTokenExpired), errors.Is(err, deps.ErrTokenInvalid), errors.Is(err, deps.ErrTokenRevoked):
			return ResolveResult{Failure: ResolveFailureInvalidToken, Err: err}
		default:
			return ResolveResult{Failure: ResolveFailureSystem, Err: err}
		}
	}

	renewed := &cookie.TokenPair{
		IDToken:      fresh.IDToken,
		RefreshToken: fresh.RefreshToken,
		IssuedAt:     fresh.IssuedAt,
		ExpiresAt:    fresh.ExpiresAt,
	}

	encoded, err := reencode(renewed, claims, deps)
	if err != nil {
		return ResolveResult{Failure: ResolveFailureSystem, Err: err}
	}

	return ResolveResult{
		Pair:      renewed,
		Claims:    claims,
		SetCookie: encoded,
		Refreshed: true,
	}
}

// reencode refreshes the claims snapshot and signs the pair with the current
// key via deps.Encode.
func reencode(pair *cookie.TokenPair, claims *idp.Claims, deps ResolveDeps) (string, error) {
	pair.Claims = claims.Custom
	if claims.IssuedAt > 0 {
		pair.IssuedAt = claims.IssuedAt
	}
	if claims.ExpiresAt > 0 {
		pair.ExpiresAt = claims.ExpiresAt
	}
	return deps.Encode(pair)
}
