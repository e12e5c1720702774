package goGate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/MrEthical07/goGate/cookie"
	"github.com/MrEthical07/goGate/idp"
	internalaudit "github.com/MrEthical07/goGate/internal/audit"
	"github.com/MrEthical07/goGate/internal/flows"
	"github.com/MrEthical07/goGate/keyring"
	"github.com/MrEthical07/goGate/revocation"
	"github.com/google/uuid"
)

// Gate defines a public type used by goGate APIs.
//
// Gate instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Gate struct {
	config      Config
	ring        *keyring.Ring
	provider    *idp.Client
	revocations *revocation.Store
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
}

// Close describes the close operation and its observable behavior.
//
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (g *Gate) Close() {
	if g == nil {
		return
	}
	if g.audit != nil {
		g.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (g *Gate) AuditDropped() uint64 {
	if g == nil || g.audit == nil {
		return 0
	}
	return g.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (g *Gate) MetricsSnapshot() MetricsSnapshot {
	if g == nil || g.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return g.metrics.Snapshot()
}

// Config describes the config operation and its observable behavior.
//
// Config does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (g *Gate) Config() Config {
	if g == nil {
		return Config{}
	}
	return cloneConfig(g.config)
}

func (g *Gate) metricInc(id MetricID) {
	if g == nil || g.metrics == nil {
		return
	}
	g.metrics.Inc(id)
}

func (g *Gate) debugf(format string, args ...any) {
	if g == nil || !g.config.Debug {
		return
	}
	log.Print("goGate: " + fmt.Sprintf(format, args...))
}

// Resolve describes the resolve operation and its observable behavior.
//
// Resolve may return an error when input validation, dependency calls, or security checks fail.
// Resolve does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Resolve executes the full credential decision for one request: decode the
// session cookie, verify the embedded ID token, refresh expired credentials
// against the identity provider, and re-sign cookies decoded under a rotated
// key. The returned Decision is never nil.
func (g *Gate) Resolve(ctx context.Context, rawCookie string) *Decision {
	if g == nil || g.provider == nil {
		return &Decision{ID: uuid.NewString(), State: DecisionError, Err: ErrGateNotReady}
	}

	start := time.Now()
	res := flows.RunResolve(ctx, rawCookie, g.resolveDeps())
	if g.metrics.LatencyEnabled() {
		g.metrics.Observe(MetricResolveLatency, time.Since(start))
	}

	dec := g.decisionFromResolve(ctx, res)

	switch dec.State {
	case DecisionValid:
		g.metricInc(MetricResolveValid)
		if res.Refreshed {
			g.metricInc(MetricRefreshSuccess)
			g.emitAudit(ctx, auditEventRefreshSuccess, true, dec, nil)
		}
		if res.KeyMigrated {
			g.metricInc(MetricKeyMigration)
			g.emitAudit(ctx, auditEventKeyMigration, true, dec, nil)
		}
	case DecisionInvalid:
		g.metricInc(MetricResolveInvalid)
		g.metricInc(resolveFailureMetric(res.Failure))
		if errors.Is(res.Err, idp.ErrRefreshInvalid) || errors.Is(res.Err, idp.ErrMissingRefreshToken) {
			g.metricInc(MetricRefreshFailure)
		}
		g.emitAudit(ctx, auditEventResolveInvalid, false, dec, func() map[string]string {
			return map[string]string{"reason": dec.Reason.String()}
		})
		g.debugf("resolve rejected: %s", dec.Reason)
	case DecisionError:
		g.metricInc(MetricResolveError)
		g.emitAudit(ctx, auditEventResolveError, false, dec, nil)
		g.debugf("resolve failed: %v", dec.Err)
	}

	return dec
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Login verifies a provider-issued ID token presented directly by the client
// and, on success, returns a Decision whose SetCookie establishes the
// session. An expired token is an invalid login; Login never refreshes.
func (g *Gate) Login(ctx context.Context, idToken, refreshToken string) *Decision {
	if g == nil || g.provider == nil {
		return &Decision{ID: uuid.NewString(), State: DecisionError, Err: ErrGateNotReady}
	}

	res := flows.RunLogin(ctx, idToken, refreshToken, g.loginDeps())
	dec := &Decision{ID: uuid.NewString()}

	switch res.Failure {
	case flows.LoginFailureNone:
		dec.State = DecisionValid
		dec.Claims = res.Claims
		dec.Tokens = res.Pair
		dec.SetCookie = g.SessionCookie(res.SetCookie)
		g.metricInc(MetricLoginSuccess)
		g.emitAudit(ctx, auditEventLoginSuccess, true, dec, nil)
	case flows.LoginFailureMissingToken:
		dec.State = DecisionInvalid
		dec.Reason = ReasonMissingCredentials
		dec.Err = ErrMissingIDToken
		g.metricInc(MetricLoginFailure)
		g.emitAudit(ctx, auditEventLoginFailure, false, dec, func() map[string]string {
			return map[string]string{"reason": "missing_id_token"}
		})
	case flows.LoginFailureInvalidToken:
		dec.State = DecisionInvalid
		dec.Reason = ReasonInvalidCredentials
		dec.Err = res.Err
		g.metricInc(MetricLoginFailure)
		g.emitAudit(ctx, auditEventLoginFailure, false, dec, nil)
	default:
		dec.State = DecisionError
		dec.Err = res.Err
		g.metricInc(MetricLoginFailure)
		g.emitAudit(ctx, auditEventLoginFailure, false, dec, nil)
		g.debugf("login failed: %v", res.Err)
	}

	return dec
}

// Logout describes the logout operation and its observable behavior.
//
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Logout returns the expired cookie that clears the session on the client.
// subject may be empty when the session could not be resolved.
func (g *Gate) Logout(ctx context.Context, subject string) *http.Cookie {
	if g == nil {
		return nil
	}

	g.metricInc(MetricLogout)
	g.emitAudit(ctx, auditEventLogout, true, &Decision{ID: uuid.NewString(), Claims: &Claims{Subject: subject}}, nil)

	return g.LogoutCookie()
}

// Revoke describes the revoke operation and its observable behavior.
//
// Revoke may return an error when input validation, dependency calls, or security checks fail.
// Revoke does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Revoke marks every credential issued to subject before now as rejected.
// The record lives in Redis for ttl, which should cover the longest ID token
// lifetime plus leeway.
func (g *Gate) Revoke(ctx context.Context, subject string, ttl time.Duration) error {
	if g == nil {
		return ErrGateNotReady
	}
	if g.revocations == nil {
		return ErrRevocationRequiresRedis
	}

	if err := g.revocations.Revoke(ctx, subject, ttl); err != nil {
		return err
	}

	g.emitAudit(ctx, auditEventRevoked, true, &Decision{ID: uuid.NewString(), Claims: &Claims{Subject: subject}}, nil)
	return nil
}

// SessionCookie describes the sessioncookie operation and its observable behavior.
//
// SessionCookie does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (g *Gate) SessionCookie(value string) *http.Cookie {
	if g == nil {
		return nil
	}
	return cookie.New(g.config.Cookie.Name, value, g.serializeOptions())
}

// LogoutCookie describes the logoutcookie operation and its observable behavior.
//
// LogoutCookie does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (g *Gate) LogoutCookie() *http.Cookie {
	if g == nil {
		return nil
	}
	return cookie.Expired(g.config.Cookie.Name, g.serializeOptions())
}

// CookieName describes the cookiename operation and its observable behavior.
//
// CookieName does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (g *Gate) CookieName() string {
	if g == nil {
		return ""
	}
	return g.config.Cookie.Name
}

func (g *Gate) serializeOptions() cookie.SerializeOptions {
	return cookie.SerializeOptions{
		Path:     g.config.Cookie.Path,
		Domain:   g.config.Cookie.Domain,
		MaxAge:   g.config.Cookie.MaxAge,
		Secure:   g.config.Cookie.Secure,
		HTTPOnly: g.config.Cookie.HTTPOnly,
		SameSite: g.config.Cookie.SameSite,
	}
}

// verify runs provider verification and layers the revocation checks on top.
// A revoked subject surfaces as idp.ErrTokenRevoked so the resolver treats it
// as invalid credentials; a revocation backend outage surfaces as
// idp.ErrProviderUnavailable so it stays an error, never a rejection.
func (g *Gate) verify(ctx context.Context, token string) (*idp.Claims, error) {
	claims, err := g.provider.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if g.revocations != nil {
		g.metricInc(MetricRevocationCheck)
		revoked, err := g.revocations.IsRevoked(ctx, claims.Subject, claims.IssuedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: revocation check: %v", idp.ErrProviderUnavailable, err)
		}
		if revoked {
			g.metricInc(MetricRevocationHit)
			return nil, fmt.Errorf("%w: subject revoked", idp.ErrTokenRevoked)
		}
	}

	if g.config.Provider.RevocationURL != "" {
		g.metricInc(MetricRevocationCheck)
		revoked, err := g.provider.RevocationStatus(ctx, claims.Subject, claims.IssuedAt)
		if err != nil {
			return nil, err
		}
		if revoked {
			g.metricInc(MetricRevocationHit)
			return nil, fmt.Errorf("%w: subject revoked upstream", idp.ErrTokenRevoked)
		}
	}

	return claims, nil
}

func (g *Gate) resolveDeps() flows.ResolveDeps {
	return flows.ResolveDeps{
		Decode: func(raw string) (*cookie.TokenPair, int, error) {
			return cookie.Decode(raw, g.ring.All())
		},
		Verify:  g.verify,
		Refresh: g.provider.Refresh,
		Encode: func(pair *cookie.TokenPair) (string, error) {
			return cookie.Encode(pair, g.ring.Current())
		},

		ErrMalformedCookie:     cookie.ErrMalformedCookie,
		ErrInvalidSignature:    cookie.ErrInvalidSignature,
		ErrMissingRefreshToken: cookie.ErrMissingRefreshToken,
		ErrTokenExpired:        idp.ErrTokenExpired,
		ErrTokenInvalid:        idp.ErrTokenInvalid,
		ErrTokenRevoked:        idp.ErrTokenRevoked,
		ErrRefreshInvalid:      idp.ErrRefreshInvalid,
		ErrRefreshMissingToken: idp.ErrMissingRefreshToken,
		ErrProviderUnavailable: idp.ErrProviderUnavailable,
	}
}

func (g *Gate) loginDeps() flows.LoginDeps {
	return flows.LoginDeps{
		Verify: g.verify,
		Encode: func(pair *cookie.TokenPair) (string, error) {
			return cookie.Encode(pair, g.ring.Current())
		},

		ErrTokenExpired:        idp.ErrTokenExpired,
		ErrTokenInvalid:        idp.ErrTokenInvalid,
		ErrTokenRevoked:        idp.ErrTokenRevoked,
		ErrProviderUnavailable: idp.ErrProviderUnavailable,
	}
}

func (g *Gate) decisionFromResolve(_ context.Context, res flows.ResolveResult) *Decision {
	dec := &Decision{ID: uuid.NewString()}

	switch res.Failure {
	case flows.ResolveFailureNone:
		dec.State = DecisionValid
		dec.Claims = res.Claims
		dec.Tokens = res.Pair
		dec.Refreshed = res.Refreshed
		dec.KeyMigrated = res.KeyMigrated
		if res.SetCookie != "" {
			dec.SetCookie = g.SessionCookie(res.SetCookie)
		}
	case flows.ResolveFailureMissingCookie:
		dec.State = DecisionInvalid
		dec.Reason = ReasonMissingCredentials
		dec.Err = ErrMissingCredentials
	case flows.ResolveFailureMalformedCookie:
		dec.State = DecisionInvalid
		dec.Reason = ReasonMalformedCredentials
		dec.Err = res.Err
	case flows.ResolveFailureBadSignature:
		dec.State = DecisionInvalid
		dec.Reason = ReasonInvalidSignature
		dec.Err = res.Err
	case flows.ResolveFailureMissingRefreshToken:
		dec.State = DecisionInvalid
		dec.Reason = ReasonMissingRefreshToken
		dec.Err = res.Err
	case flows.ResolveFailureInvalidToken:
		dec.State = DecisionInvalid
		dec.Reason = ReasonInvalidCredentials
		dec.Err = res.Err
	default:
		dec.State = DecisionError
		dec.Err = res.Err
	}

	return dec
}

func resolveFailureMetric(kind flows.ResolveFailureKind) MetricID {
	switch kind {
	case flows.ResolveFailureMissingCookie:
		return MetricResolveMissingCookie
	case flows.ResolveFailureMalformedCookie:
		return MetricResolveMalformed
	case flows.ResolveFailureBadSignature:
		return MetricResolveBadSignature
	case flows.ResolveFailureMissingRefreshToken:
		return MetricResolveMissingRefresh
	default:
		return MetricResolveInvalidToken
	}
}
