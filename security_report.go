package goGate

import "time"

// SecurityReport summarizes the gate's effective security posture for
// operator inspection.
//
// SecurityReport instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityReport struct {
	CookieName             string
	SigningKeys            int
	CookieSecure           bool
	CookieHTTPOnly         bool
	CookieMaxAge           int
	TokenLeeway            time.Duration
	ProviderTimeout        time.Duration
	KeyCacheTTL            time.Duration
	LocalRevocationActive  bool
	RemoteRevocationActive bool
	AuditActive            bool
	MetricsActive          bool
}

// SecurityReport describes the securityreport operation and its observable behavior.
//
// SecurityReport does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (g *Gate) SecurityReport() SecurityReport {
	if g == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		CookieName:             g.config.Cookie.Name,
		SigningKeys:            g.ring.Len(),
		CookieSecure:           g.config.Cookie.Secure,
		CookieHTTPOnly:         g.config.Cookie.HTTPOnly,
		CookieMaxAge:           g.config.Cookie.MaxAge,
		TokenLeeway:            g.config.Provider.Leeway,
		ProviderTimeout:        g.config.Provider.Timeout,
		KeyCacheTTL:            g.config.Provider.KeyCacheTTL,
		LocalRevocationActive:  g.revocations != nil,
		RemoteRevocationActive: g.config.Provider.RevocationURL != "",
		AuditActive:            g.config.Audit.Enabled,
		MetricsActive:          g.config.Metrics.Enabled,
	}
}
