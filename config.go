package goGate

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Config defines a public type used by goGate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Cookie     CookieConfig
	Provider   ProviderConfig
	Revocation RevocationConfig
	Routes     RouteConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
	Debug      bool
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig defines a public type used by goGate APIs.
//
// CookieConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CookieConfig struct {
	Name string

	// Secrets are the cookie signing/encryption secrets, current first.
	// Older entries remain valid for decode so rotation never logs
	// users out; each must be at least 16 bytes.
	Secrets [][]byte

	Path     string
	Domain   string
	MaxAge   int // seconds; 0 means session cookie
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

/*
====================================
PROVIDER CONFIG
====================================
*/

// ServiceAccountConfig holds the credentials the gate uses to authenticate
// its own calls to the identity provider's admin endpoints.
type ServiceAccountConfig struct {
	ClientEmail string
	PrivateKey  []byte // PEM-encoded RSA key
}

// ProviderConfig defines a public type used by goGate APIs.
//
// ProviderConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ProviderConfig struct {
	APIKey        string
	Issuer        string
	Audience      string
	TenantID      string
	TokenURL      string
	JWKSURL       string
	RevocationURL string

	ServiceAccount ServiceAccountConfig

	Leeway      time.Duration
	Timeout     time.Duration
	KeyCacheTTL time.Duration

	ValidMethods []string
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationConfig defines a public type used by goGate APIs.
//
// RevocationConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RevocationConfig struct {
	Enabled     bool
	RedisPrefix string
	CacheSize   int
	CacheTTL    time.Duration
}

/*
====================================
ROUTE CONFIG
====================================
*/

// RouteConfig defines a public type used by goGate APIs.
//
// RouteConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RouteConfig struct {
	LoginPath      string
	LogoutPath     string
	VerifiedHeader string
}

// AuditConfig defines a public type used by goGate APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goGate APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Cookie: CookieConfig{
			Name:     "gg_session",
			Path:     "/",
			MaxAge:   0,
			Secure:   true,
			HTTPOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		Provider: ProviderConfig{
			Leeway:      30 * time.Second,
			Timeout:     5 * time.Second,
			KeyCacheTTL: 10 * time.Minute,
		},
		Revocation: RevocationConfig{
			Enabled:     false,
			RedisPrefix: "gg",
			CacheSize:   4096,
			CacheTTL:    time.Minute,
		},
		Routes: RouteConfig{
			LoginPath:      "/auth/login",
			LogoutPath:     "/auth/logout",
			VerifiedHeader: "X-Gate-Verified",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if len(cfg.Cookie.Secrets) > 0 {
		out.Cookie.Secrets = make([][]byte, len(cfg.Cookie.Secrets))
		for i, s := range cfg.Cookie.Secrets {
			out.Cookie.Secrets[i] = cloneBytes(s)
		}
	}
	out.Provider.ServiceAccount.PrivateKey = cloneBytes(cfg.Provider.ServiceAccount.PrivateKey)
	if len(cfg.Provider.ValidMethods) > 0 {
		out.Provider.ValidMethods = append([]string(nil), cfg.Provider.ValidMethods...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Cookie
	if c.Cookie.Name == "" {
		return errors.New("Cookie Name is required")
	}
	if len(c.Cookie.Secrets) == 0 {
		return errors.New("Cookie Secrets must contain at least one secret")
	}
	for _, s := range c.Cookie.Secrets {
		if len(s) < 16 {
			return errors.New("Cookie Secrets entries must be >= 16 bytes")
		}
	}
	if c.Cookie.MaxAge < 0 {
		return errors.New("Cookie MaxAge must be >= 0")
	}
	if c.Cookie.Path == "" {
		return errors.New("Cookie Path is required")
	}

	// Provider
	if c.Provider.Issuer == "" {
		return errors.New("Provider Issuer is required")
	}
	if c.Provider.JWKSURL == "" {
		return errors.New("Provider JWKSURL is required")
	}
	if c.Provider.TokenURL == "" {
		return errors.New("Provider TokenURL is required")
	}
	if c.Provider.Leeway < 0 {
		return errors.New("Provider Leeway must be >= 0")
	}
	if c.Provider.Leeway > 2*time.Minute {
		return errors.New("Provider Leeway must be <= 2m")
	}
	if c.Provider.Timeout < 0 {
		return errors.New("Provider Timeout must be >= 0")
	}
	if c.Provider.KeyCacheTTL < 0 {
		return errors.New("Provider KeyCacheTTL must be >= 0")
	}
	if c.Provider.RevocationURL != "" {
		if c.Provider.ServiceAccount.ClientEmail == "" || len(c.Provider.ServiceAccount.PrivateKey) == 0 {
			return errors.New("Provider RevocationURL requires ServiceAccount credentials")
		}
	}

	// Revocation
	if c.Revocation.Enabled {
		if c.Revocation.RedisPrefix == "" {
			return errors.New("Revocation RedisPrefix is required when revocation is enabled")
		}
		if c.Revocation.CacheSize <= 0 {
			return errors.New("Revocation CacheSize must be > 0 when revocation is enabled")
		}
		if c.Revocation.CacheTTL < 0 {
			return errors.New("Revocation CacheTTL must be >= 0")
		}
	}

	// Routes
	if !strings.HasPrefix(c.Routes.LoginPath, "/") {
		return errors.New("Routes LoginPath must start with /")
	}
	if !strings.HasPrefix(c.Routes.LogoutPath, "/") {
		return errors.New("Routes LogoutPath must start with /")
	}
	if c.Routes.LoginPath == c.Routes.LogoutPath {
		return errors.New("Routes LoginPath and LogoutPath must differ")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	return nil
}
