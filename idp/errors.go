package idp

import "errors"

var (
	// ErrTokenExpired is an exported constant or variable used by the edge gate.
	ErrTokenExpired = errors.New("id token expired")
	// ErrTokenInvalid is an exported constant or variable used by the edge gate.
	ErrTokenInvalid = errors.New("id token invalid")
	// ErrTokenRevoked is an exported constant or variable used by the edge gate.
	ErrTokenRevoked = errors.New("id token revoked")
	// ErrRefreshInvalid is an exported constant or variable used by the edge gate.
	ErrRefreshInvalid = errors.New("refresh token rejected by provider")
	// ErrMissingRefreshToken is an exported constant or variable used by the edge gate.
	ErrMissingRefreshToken = errors.New("refresh token missing")
	// ErrProviderUnavailable is an exported constant or variable used by the edge gate.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)
