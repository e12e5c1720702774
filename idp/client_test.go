package idp

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

const testKID = "test-key-1"

type testProvider struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey

	jwks   *httptest.Server
	tokens *httptest.Server

	jwksCalls    atomic.Int64
	refreshCalls int
}

func newTestProvider(t *testing.T) *testProvider {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}

	p := &testProvider{pub: pub, priv: priv}

	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
		{Key: pub, KeyID: testKID, Algorithm: "EdDSA", Use: "sig"},
	}}
	jwksBody, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("jwks marshal failed: %v", err)
	}

	p.jwks = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		p.jwksCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwksBody)
	}))
	t.Cleanup(p.jwks.Close)

	p.tokens = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.refreshCalls++
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		switch r.PostForm.Get("refresh_token") {
		case "good-refresh":
			fresh := p.mintToken(t, jwt.MapClaims{
				"sub": "user1",
				"iss": "https://issuer.test",
				"aud": "gate-audience",
				"iat": time.Now().Unix(),
				"exp": time.Now().Add(time.Hour).Unix(),
			})
			_ = json.NewEncoder(w).Encode(map[string]string{
				"id_token":      fresh,
				"refresh_token": "rotated-refresh",
				"expires_in":    "3600",
			})
		case "stale-refresh":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"INVALID_REFRESH_TOKEN"}}`))
		case "":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"MISSING_REFRESH_TOKEN"}}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(p.tokens.Close)

	return p
}

func (p *testProvider) mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = testKID
	signed, err := token.SignedString(p.priv)
	if err != nil {
		t.Fatalf("token signing failed: %v", err)
	}
	return signed
}

func (p *testProvider) client(t *testing.T) *Client {
	t.Helper()

	c, err := NewClient(Config{
		APIKey:   "test-api-key",
		Issuer:   "https://issuer.test",
		Audience: "gate-audience",
		TokenURL: p.tokens.URL,
		JWKSURL:  p.jwks.URL,
		Timeout:  2 * time.Second,
	})
	if err != nil {
		t.Fatalf("client construction failed: %v", err)
	}
	return c
}

func TestVerifyIDToken(t *testing.T) {
	p := newTestProvider(t)
	c := p.client(t)

	token := p.mintToken(t, jwt.MapClaims{
		"sub":   "user1",
		"iss":   "https://issuer.test",
		"aud":   "gate-audience",
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
		"email": "user1@example.com",
	})

	claims, err := c.VerifyIDToken(context.Background(), token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.Subject != "user1" {
		t.Fatalf("unexpected subject: %q", claims.Subject)
	}
	if claims.Custom["email"] != "user1@example.com" {
		t.Fatalf("custom claim missing: %+v", claims.Custom)
	}
	if claims.ExpiresAt <= time.Now().Unix() {
		t.Fatalf("unexpected expiry: %d", claims.ExpiresAt)
	}
}

func TestConcurrentVerifyCoalescesJWKSFetch(t *testing.T) {
	p := newTestProvider(t)
	c := p.client(t)

	token := p.mintToken(t, jwt.MapClaims{
		"sub": "user1",
		"iss": "https://issuer.test",
		"aud": "gate-audience",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	var (
		wg       sync.WaitGroup
		failures atomic.Int64
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.VerifyIDToken(context.Background(), token); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := failures.Load(); n != 0 {
		t.Fatalf("%d concurrent verifications failed", n)
	}
	if got := p.jwksCalls.Load(); got != 1 {
		t.Fatalf("jwks fetched %d times for a cold cache, want 1", got)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	p := newTestProvider(t)
	c := p.client(t)

	token := p.mintToken(t, jwt.MapClaims{
		"sub": "user1",
		"iss": "https://issuer.test",
		"aud": "gate-audience",
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	if _, err := c.VerifyIDToken(context.Background(), token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyWrongIssuer(t *testing.T) {
	p := newTestProvider(t)
	c := p.client(t)

	token := p.mintToken(t, jwt.MapClaims{
		"sub": "user1",
		"iss": "https://evil.test",
		"aud": "gate-audience",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := c.VerifyIDToken(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyTenantMismatch(t *testing.T) {
	p := newTestProvider(t)

	c, err := NewClient(Config{
		Issuer:   "https://issuer.test",
		Audience: "gate-audience",
		TenantID: "tenant-a",
		TokenURL: p.tokens.URL,
		JWKSURL:  p.jwks.URL,
	})
	if err != nil {
		t.Fatalf("client construction failed: %v", err)
	}

	token := p.mintToken(t, jwt.MapClaims{
		"sub":       "user1",
		"iss":       "https://issuer.test",
		"aud":       "gate-audience",
		"exp":       time.Now().Add(time.Hour).Unix(),
		"tenant_id": "tenant-b",
	})

	if _, err := c.VerifyIDToken(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyProviderDown(t *testing.T) {
	p := newTestProvider(t)
	c := p.client(t)
	p.jwks.Close()

	token := p.mintToken(t, jwt.MapClaims{
		"sub": "user1",
		"iss": "https://issuer.test",
		"aud": "gate-audience",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := c.VerifyIDToken(context.Background(), token); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	p := newTestProvider(t)
	c := p.client(t)

	fresh, err := c.Refresh(context.Background(), "good-refresh")
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if fresh.IDToken == "" || fresh.RefreshToken != "rotated-refresh" {
		t.Fatalf("unexpected refresh result: %+v", fresh)
	}
	if fresh.ExpiresAt <= fresh.IssuedAt {
		t.Fatalf("expiry not advanced: %+v", fresh)
	}

	// Fresh token must verify against the same JWKS.
	if _, err := c.VerifyIDToken(context.Background(), fresh.IDToken); err != nil {
		t.Fatalf("fresh token failed verification: %v", err)
	}
}

func TestRefreshRejections(t *testing.T) {
	p := newTestProvider(t)
	c := p.client(t)

	if _, err := c.Refresh(context.Background(), "stale-refresh"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid, got %v", err)
	}

	before := p.refreshCalls
	if _, err := c.Refresh(context.Background(), ""); !errors.Is(err, ErrMissingRefreshToken) {
		t.Fatalf("expected ErrMissingRefreshToken, got %v", err)
	}
	if p.refreshCalls != before {
		t.Fatal("empty refresh token must not reach the provider")
	}

	if _, err := c.Refresh(context.Background(), "boom"); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable on 5xx, got %v", err)
	}
}

func TestRevocationStatus(t *testing.T) {
	p := newTestProvider(t)

	var sawAuth string
	revocations := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]int64{"valid_since": 1700000000})
	}))
	defer revocations.Close()

	saKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa keygen failed: %v", err)
	}
	saPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(saKey),
	})

	c, err := NewClient(Config{
		Issuer:        "https://issuer.test",
		TokenURL:      p.tokens.URL,
		JWKSURL:       p.jwks.URL,
		RevocationURL: revocations.URL,
		ServiceAccount: ServiceAccount{
			ClientEmail: "gate@service.test",
			PrivateKey:  saPEM,
		},
	})
	if err != nil {
		t.Fatalf("client construction failed: %v", err)
	}

	revoked, err := c.RevocationStatus(context.Background(), "user1", 1699999999)
	if err != nil {
		t.Fatalf("revocation status failed: %v", err)
	}
	if !revoked {
		t.Fatal("token issued before valid_since must be revoked")
	}
	if sawAuth == "" {
		t.Fatal("revocation call must carry the service account assertion")
	}

	revoked, err = c.RevocationStatus(context.Background(), "user1", 1700000001)
	if err != nil {
		t.Fatalf("revocation status failed: %v", err)
	}
	if revoked {
		t.Fatal("token issued after valid_since must not be revoked")
	}
}
