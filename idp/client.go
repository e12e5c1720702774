package idp

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceAccount carries the server-side credentials used to authenticate
// revocation-status calls toward the provider.
//
// ServiceAccount instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ServiceAccount struct {
	ClientEmail string
	PrivateKey  []byte // PEM-encoded RSA private key
}

// Config defines a public type used by goGate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	APIKey        string
	Issuer        string
	Audience      string
	TenantID      string
	TokenURL      string
	JWKSURL       string
	RevocationURL string

	ServiceAccount ServiceAccount

	Leeway      time.Duration
	Timeout     time.Duration
	KeyCacheTTL time.Duration

	// ValidMethods restricts accepted idToken algorithms. Defaults to
	// RS256, ES256, and EdDSA.
	ValidMethods []string

	// HTTPClient overrides the internal client; used by tests.
	HTTPClient *http.Client
}

// Claims is the verified content of an idToken as seen by the resolver.
//
// Claims instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Claims struct {
	Subject   string
	TenantID  string
	IssuedAt  int64
	ExpiresAt int64
	Custom    map[string]any
}

// RefreshedTokens is returned by [Client.Refresh].
//
// RefreshedTokens instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RefreshedTokens struct {
	IDToken      string
	RefreshToken string
	IssuedAt     int64
	ExpiresAt    int64
}

// Client defines a public type used by goGate APIs.
//
// Client instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Client struct {
	config    Config
	http      *http.Client
	keys      atomic.Value // keySnapshot
	fetchMu   sync.Mutex   // serializes JWKS refetches
	assertion atomic.Value // signedAssertion
	saKey     *rsa.PrivateKey
	now       func() time.Time
}

// NewClient describes the newclient operation and its observable behavior.
//
// NewClient may return an error when input validation, dependency calls, or security checks fail.
// NewClient does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.JWKSURL) == "" {
		return nil, errors.New("provider JWKS URL required")
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		return nil, errors.New("provider token URL required")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.KeyCacheTTL <= 0 {
		cfg.KeyCacheTTL = 10 * time.Minute
	}
	if len(cfg.ValidMethods) == 0 {
		cfg.ValidMethods = []string{"RS256", "ES256", "EdDSA"}
	}

	c := &Client{
		config: cfg,
		now:    time.Now,
	}

	if cfg.HTTPClient != nil {
		c.http = cfg.HTTPClient
	} else {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}

	if len(cfg.ServiceAccount.PrivateKey) > 0 {
		if strings.TrimSpace(cfg.ServiceAccount.ClientEmail) == "" {
			return nil, errors.New("service account requires client email")
		}
		key, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.ServiceAccount.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("invalid service account key: %w", err)
		}
		c.saKey = key
	}

	return c, nil
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
}

type providerError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Refresh exchanges a refresh token for a fresh idToken pair at the
// provider's token endpoint. Provider rejections map to [ErrRefreshInvalid]
// or [ErrMissingRefreshToken]; transport failures and 5xx responses map to
// [ErrProviderUnavailable].
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshedTokens, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	endpoint := c.config.TokenURL
	if c.config.APIKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.config.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: token endpoint status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyRefreshRejection(body)
	}

	var parsed refreshResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: token endpoint response: %v", ErrProviderUnavailable, err)
	}
	if parsed.IDToken == "" {
		return nil, fmt.Errorf("%w: token endpoint returned no id token", ErrProviderUnavailable)
	}

	expiresIn := int64(3600)
	if parsed.ExpiresIn != "" {
		if n, err := strconv.ParseInt(parsed.ExpiresIn, 10, 64); err == nil && n > 0 {
			expiresIn = n
		}
	}

	now := c.now().Unix()
	fresh := &RefreshedTokens{
		IDToken:      parsed.IDToken,
		RefreshToken: parsed.RefreshToken,
		IssuedAt:     now,
		ExpiresAt:    now + expiresIn,
	}
	if fresh.RefreshToken == "" {
		// Provider kept the old refresh token alive.
		fresh.RefreshToken = refreshToken
	}

	return fresh, nil
}

func classifyRefreshRejection(body []byte) error {
	var pe providerError
	_ = json.Unmarshal(body, &pe)

	message := pe.Error.Message
	switch {
	case strings.HasPrefix(message, "MISSING_REFRESH_TOKEN"):
		return ErrMissingRefreshToken
	case strings.HasPrefix(message, "INVALID_REFRESH_TOKEN"),
		strings.HasPrefix(message, "TOKEN_EXPIRED"),
		strings.HasPrefix(message, "USER_DISABLED"),
		strings.HasPrefix(message, "USER_NOT_FOUND"),
		strings.HasPrefix(message, "INVALID_GRANT_TYPE"):
		return fmt.Errorf("%w: %s", ErrRefreshInvalid, message)
	case message != "":
		return fmt.Errorf("%w: %s", ErrRefreshInvalid, message)
	default:
		return ErrRefreshInvalid
	}
}

type revocationRequest struct {
	Subject string `json:"subject"`
}

type revocationResponse struct {
	ValidSince int64 `json:"valid_since"`
}

// RevocationStatus asks the provider whether tokens issued to the subject
// before issuedAt have been revoked server-side. This is an extra network
// round-trip per request and is only called when revocation checking is
// enabled.
//
// RevocationStatus may return an error when input validation, dependency calls, or security checks fail.
// RevocationStatus does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Client) RevocationStatus(ctx context.Context, subject string, issuedAt int64) (bool, error) {
	if c.config.RevocationURL == "" {
		return false, nil
	}

	payload, err := json.Marshal(revocationRequest{Subject: subject})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.RevocationURL, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.saKey != nil {
		assertion, err := c.serviceAssertion()
		if err != nil {
			return false, err
		}
		req.Header.Set("Authorization", "Bearer "+assertion)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: revocation endpoint status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var parsed revocationResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&parsed); err != nil {
		return false, fmt.Errorf("%w: revocation response: %v", ErrProviderUnavailable, err)
	}

	return issuedAt < parsed.ValidSince, nil
}

type signedAssertion struct {
	token   string
	expires time.Time
}

// serviceAssertion mints (and caches until near expiry) the RS256 assertion
// presented to the revocation endpoint.
func (c *Client) serviceAssertion() (string, error) {
	if cached, ok := c.assertion.Load().(signedAssertion); ok {
		if c.now().Add(5 * time.Minute).Before(cached.expires) {
			return cached.token, nil
		}
	}

	now := c.now()
	expires := now.Add(time.Hour)
	claims := jwt.RegisteredClaims{
		Issuer:    c.config.ServiceAccount.ClientEmail,
		Subject:   c.config.ServiceAccount.ClientEmail,
		Audience:  jwt.ClaimStrings{c.config.RevocationURL},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.saKey)
	if err != nil {
		return "", fmt.Errorf("service assertion signing: %w", err)
	}

	c.assertion.Store(signedAssertion{token: token, expires: expires})
	return token, nil
}
