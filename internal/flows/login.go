package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goGate/cookie"
	"github.com/MrEthical07/goGate/idp"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureMissingToken
	LoginFailureInvalidToken
	LoginFailureProvider
	LoginFailureEncode
)

// LoginResult carries either the issued cookie value or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error

	Claims    *idp.Claims
	Pair      *cookie.TokenPair
	SetCookie string
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Verify func(context.Context, string) (*idp.Claims, error)
	Encode func(*cookie.TokenPair) (string, error)

	ErrTokenExpired        error
	ErrTokenInvalid        error
	ErrTokenRevoked        error
	ErrProviderUnavailable error
}

// RunLogin verifies a bearer idToken and, on success, produces the signed
// session cookie value for the idToken/refreshToken pair. An expired bearer
// token is an invalid login, not a refresh trigger: the refresh pipeline only
// runs against credentials the gate itself issued.
func RunLogin(ctx context.Context, idToken, refreshToken string, deps LoginDeps) LoginResult {
	if idToken == "" {
		return LoginResult{Failure: LoginFailureMissingToken}
	}

	claims, err := deps.Verify(ctx, idToken)
	if err != nil {
		switch {
		case errors.Is(err, deps.ErrTokenExpired),
			errors.Is(err, deps.ErrTokenInvalid),
			errors.Is(err, deps.ErrTokenRevoked):
			return LoginResult{Failure: LoginFailureInvalidToken, Err: err}
		default:
			return LoginResult{Failure: LoginFailureProvider, Err: err}
		}
	}

	pair := &cookie.TokenPair{
		IDToken:      idToken,
		RefreshToken: refreshToken,
		Claims:       claims.Custom,
		IssuedAt:     claims.IssuedAt,
		ExpiresAt:    claims.ExpiresAt,
	}

	encoded, err := deps.Encode(pair)
	if err != nil {
		return LoginResult{Failure: LoginFailureEncode, Err: err}
	}

	return LoginResult{
		Claims:    claims,
		Pair:      pair,
		SetCookie: encoded,
	}
}
