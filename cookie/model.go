package cookie

import (
	"net/http"
	"time"
)

// TokenPair is the durable form of a user's identity-provider credentials:
// the short-lived idToken, the long-lived refreshToken, and a snapshot of the
// decoded claims taken at the last successful verification. It exists only
// inside a single request's processing; its persistent form is the signed
// cookie produced by [Encode].
//
// TokenPair instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenPair struct {
	IDToken      string
	RefreshToken string
	Claims       map[string]any
	IssuedAt     int64
	ExpiresAt    int64
}

// SerializeOptions controls the attributes of the emitted Set-Cookie header.
// The cookie name is configured separately on the gate.
//
// SerializeOptions instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SerializeOptions struct {
	Path     string
	Domain   string
	MaxAge   int
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
}

// New builds the session cookie carrying an encoded token pair.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(name, value string, opts SerializeOptions) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   opts.MaxAge,
		HttpOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	}
}

// Expired builds the clearing cookie emitted on logout.
//
// Expired may return an error when input validation, dependency calls, or security checks fail.
// Expired does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func Expired(name string, opts SerializeOptions) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	}
}
