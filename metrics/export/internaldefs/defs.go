package internaldefs

import (
	goGate "github.com/MrEthical07/goGate"
)

// CounterDef defines a public type used by goGate APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goGate APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the edge gate.
var CounterDefs = []CounterDef{
	{ID: goGate.MetricLoginSuccess, Name: "gogate_login_success_total", Help: "Successful login attempts."},
	{ID: goGate.MetricLoginFailure, Name: "gogate_login_failure_total", Help: "Failed login attempts."},
	{ID: goGate.MetricLogout, Name: "gogate_logout_total", Help: "Logout operations."},
	{ID: goGate.MetricResolveValid, Name: "gogate_resolve_valid_total", Help: "Resolutions that produced valid credentials."},
	{ID: goGate.MetricResolveInvalid, Name: "gogate_resolve_invalid_total", Help: "Resolutions rejected as invalid credentials."},
	{ID: goGate.MetricResolveError, Name: "gogate_resolve_error_total", Help: "Resolutions that failed on a dependency error."},
	{ID: goGate.MetricResolveMissingCookie, Name: "gogate_resolve_missing_cookie_total", Help: "Resolutions with no session cookie present."},
	{ID: goGate.MetricResolveMalformed, Name: "gogate_resolve_malformed_total", Help: "Resolutions rejected for malformed cookies."},
	{ID: goGate.MetricResolveBadSignature, Name: "gogate_resolve_bad_signature_total", Help: "Resolutions rejected for cookie signature mismatch."},
	{ID: goGate.MetricResolveMissingRefresh, Name: "gogate_resolve_missing_refresh_total", Help: "Resolutions rejected for a missing refresh token."},
	{ID: goGate.MetricResolveInvalidToken, Name: "gogate_resolve_invalid_token_total", Help: "Resolutions rejected for invalid, expired-unrefreshable, or revoked tokens."},
	{ID: goGate.MetricRefreshSuccess, Name: "gogate_refresh_success_total", Help: "Successful transparent token refreshes."},
	{ID: goGate.MetricRefreshFailure, Name: "gogate_refresh_failure_total", Help: "Failed transparent token refreshes."},
	{ID: goGate.MetricKeyMigration, Name: "gogate_key_migration_total", Help: "Cookies re-signed onto the current signing key."},
	{ID: goGate.MetricRevocationCheck, Name: "gogate_revocation_check_total", Help: "Revocation lookups performed during verification."},
	{ID: goGate.MetricRevocationHit, Name: "gogate_revocation_hit_total", Help: "Verifications rejected by a revocation record."},
}

// HistogramDefs is an exported constant or variable used by the edge gate.
var HistogramDefs = []HistogramDef{
	{ID: goGate.MetricResolveLatency, Name: "gogate_resolve_latency_seconds", Help: "Resolve latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the edge gate.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the edge gate.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
