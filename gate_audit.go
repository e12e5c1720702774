package goGate

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goGate/cookie"
	"github.com/MrEthical07/goGate/idp"
)

const (
	auditEventLoginSuccess   = "login_success"
	auditEventLoginFailure   = "login_failure"
	auditEventLogout         = "logout"
	auditEventResolveInvalid = "resolve_invalid"
	auditEventResolveError   = "resolve_error"
	auditEventRefreshSuccess = "refresh_success"
	auditEventKeyMigration   = "key_migration"
	auditEventRevoked        = "subject_revoked"
)

// AuditErrorCode defines a public type used by goGate APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrMissingCredentials AuditErrorCode = "missing_credentials"
	auditErrMissingRefresh     AuditErrorCode = "missing_refresh_token"
	auditErrMalformed          AuditErrorCode = "malformed_credentials"
	auditErrBadSignature       AuditErrorCode = "invalid_signature"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrRevoked            AuditErrorCode = "revoked"
	auditErrUnavailable        AuditErrorCode = "provider_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (g *Gate) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	dec *Decision,
	metadataBuilder func() map[string]string,
) {
	if g == nil || g.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if dec != nil {
		event.DecisionID = dec.ID
		if dec.Claims != nil {
			event.Subject = dec.Claims.Subject
			event.TenantID = dec.Claims.TenantID
		}
		if code := auditErrorCode(dec.Err); code != "" {
			event.Error = string(code)
		}
	}
	if event.TenantID == "" {
		event.TenantID = g.config.Provider.TenantID
	}

	g.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrMissingCredentials),
		errors.Is(err, ErrMissingIDToken):
		return auditErrMissingCredentials
	case errors.Is(err, ErrMissingRefreshToken),
		errors.Is(err, cookie.ErrMissingRefreshToken),
		errors.Is(err, idp.ErrMissingRefreshToken):
		return auditErrMissingRefresh
	case errors.Is(err, ErrMalformedCredentials),
		errors.Is(err, cookie.ErrMalformedCookie):
		return auditErrMalformed
	case errors.Is(err, ErrInvalidSignature),
		errors.Is(err, cookie.ErrInvalidSignature):
		return auditErrBadSignature
	case errors.Is(err, idp.ErrTokenRevoked):
		return auditErrRevoked
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, idp.ErrTokenExpired),
		errors.Is(err, idp.ErrTokenInvalid),
		errors.Is(err, idp.ErrRefreshInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrProviderUnavailable),
		errors.Is(err, idp.ErrProviderUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
