package goGate

import (
	"io"
	"net/http"

	"github.com/MrEthical07/goGate/cookie"
	"github.com/MrEthical07/goGate/idp"
	internalaudit "github.com/MrEthical07/goGate/internal/audit"
)

// DecisionState is the tri-state outcome of credential resolution: the
// credentials are proven valid, proven invalid, or undetermined because a
// dependency failed.
type DecisionState uint8

const (
	// DecisionValid is an exported constant or variable used by the edge gate.
	DecisionValid DecisionState = iota
	// DecisionInvalid is an exported constant or variable used by the edge gate.
	DecisionInvalid
	// DecisionError is an exported constant or variable used by the edge gate.
	DecisionError
)

// String describes the string operation and its observable behavior.
func (s DecisionState) String() string {
	switch s {
	case DecisionValid:
		return "valid"
	case DecisionInvalid:
		return "invalid"
	case DecisionError:
		return "error"
	default:
		return "unknown"
	}
}

// InvalidReason identifies why credentials were rejected. It is only
// meaningful when the decision state is [DecisionInvalid].
type InvalidReason uint8

const (
	// ReasonNone is an exported constant or variable used by the edge gate.
	ReasonNone InvalidReason = iota
	// ReasonMissingCredentials is an exported constant or variable used by the edge gate.
	ReasonMissingCredentials
	// ReasonMissingRefreshToken is an exported constant or variable used by the edge gate.
	ReasonMissingRefreshToken
	// ReasonMalformedCredentials is an exported constant or variable used by the edge gate.
	ReasonMalformedCredentials
	// ReasonInvalidSignature is an exported constant or variable used by the edge gate.
	ReasonInvalidSignature
	// ReasonInvalidCredentials is an exported constant or variable used by the edge gate.
	ReasonInvalidCredentials
)

// String describes the string operation and its observable behavior.
func (r InvalidReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMissingCredentials:
		return "missing_credentials"
	case ReasonMissingRefreshToken:
		return "missing_refresh_token"
	case ReasonMalformedCredentials:
		return "malformed_credentials"
	case ReasonInvalidSignature:
		return "invalid_signature"
	case ReasonInvalidCredentials:
		return "invalid_credentials"
	default:
		return "unknown"
	}
}

// Err maps the reason onto the package-level sentinel so callers can use
// errors.Is against a Decision without switching on the enum.
func (r InvalidReason) Err() error {
	switch r {
	case ReasonMissingCredentials:
		return ErrMissingCredentials
	case ReasonMissingRefreshToken:
		return ErrMissingRefreshToken
	case ReasonMalformedCredentials:
		return ErrMalformedCredentials
	case ReasonInvalidSignature:
		return ErrInvalidSignature
	case ReasonInvalidCredentials:
		return ErrInvalidCredentials
	default:
		return nil
	}
}

// Decision is returned by [Gate.Resolve] and [Gate.Login]. It carries the
// resolution state, verified claims on success, the rejection reason on
// invalid credentials, and the underlying cause on system error. SetCookie,
// when non-nil, must be attached to the HTTP response: it carries either a
// refreshed session or a re-signed cookie after key rotation.
type Decision struct {
	ID     string
	State  DecisionState
	Reason InvalidReason
	Err    error

	Claims *Claims
	Tokens *TokenPair

	SetCookie   *http.Cookie
	Refreshed   bool
	KeyMigrated bool
}

// Valid describes the valid operation and its observable behavior.
func (d *Decision) Valid() bool {
	return d != nil && d.State == DecisionValid
}

// Claims is the verified identity extracted from an ID token.
type Claims = idp.Claims

// TokenPair is the credential set carried inside the session cookie.
type TokenPair = cookie.TokenPair

// AuditEvent is a structured audit record emitted by the gate.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the gate’s audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
