package goGate

import "errors"

var (
	// ErrMissingCredentials is an exported constant or variable used by the edge gate.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrMissingRefreshToken is an exported constant or variable used by the edge gate.
	ErrMissingRefreshToken = errors.New("missing refresh token")
	// ErrMalformedCredentials is an exported constant or variable used by the edge gate.
	ErrMalformedCredentials = errors.New("malformed credentials")
	// ErrInvalidSignature is an exported constant or variable used by the edge gate.
	ErrInvalidSignature = errors.New("invalid cookie signature")
	// ErrInvalidCredentials is an exported constant or variable used by the edge gate.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingIDToken is an exported constant or variable used by the edge gate.
	ErrMissingIDToken = errors.New("missing id token")
	// ErrProviderUnavailable is an exported constant or variable used by the edge gate.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	// ErrRevocationRequiresRedis is an exported constant or variable used by the edge gate.
	ErrRevocationRequiresRedis = errors.New("revocation checks require redis client")
	// ErrGateNotReady is an exported constant or variable used by the edge gate.
	ErrGateNotReady = errors.New("gate not initialized")
)
