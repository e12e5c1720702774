package goGate

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/goGate/idp"
	internalaudit "github.com/MrEthical07/goGate/internal/audit"
	"github.com/MrEthical07/goGate/keyring"
	"github.com/MrEthical07/goGate/revocation"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by goGate APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config     Config
	redis      *redis.Client
	httpClient *http.Client
	auditSink  AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient describes the withhttpclient operation and its observable behavior.
//
// WithHTTPClient does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Gate, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Revocation.Enabled && b.redis == nil {
		return nil, ErrRevocationRequiresRedis
	}

	// -------- KEY RING --------
	ring, err := keyring.New(cfg.Cookie.Secrets)
	if err != nil {
		return nil, err
	}

	// -------- PROVIDER CLIENT --------
	provider, err := idp.NewClient(idp.Config{
		APIKey:        cfg.Provider.APIKey,
		Issuer:        cfg.Provider.Issuer,
		Audience:      cfg.Provider.Audience,
		TenantID:      cfg.Provider.TenantID,
		TokenURL:      cfg.Provider.TokenURL,
		JWKSURL:       cfg.Provider.JWKSURL,
		RevocationURL: cfg.Provider.RevocationURL,
		ServiceAccount: idp.ServiceAccount{
			ClientEmail: cfg.Provider.ServiceAccount.ClientEmail,
			PrivateKey:  cloneBytes(cfg.Provider.ServiceAccount.PrivateKey),
		},
		Leeway:       cfg.Provider.Leeway,
		Timeout:      cfg.Provider.Timeout,
		KeyCacheTTL:  cfg.Provider.KeyCacheTTL,
		ValidMethods: cfg.Provider.ValidMethods,
		HTTPClient:   b.httpClient,
	})
	if err != nil {
		return nil, err
	}

	gate := &Gate{
		config:   cloneConfig(cfg),
		ring:     ring,
		provider: provider,
	}

	if cfg.Revocation.Enabled {
		gate.revocations = revocation.NewStore(
			b.redis,
			cfg.Revocation.RedisPrefix,
			cfg.Revocation.CacheSize,
			cfg.Revocation.CacheTTL,
		)
	}

	gate.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	gate.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return gate, nil
}
