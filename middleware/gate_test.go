package middleware

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/cookie"
	"github.com/MrEthical07/goGate/keyring"
	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

const testKID = "mw-key-1"

var testSecrets = [][]byte{
	[]byte("middleware-secret-0123456789abcdef"),
	[]byte("middleware-old-key-0123456789abcdef"),
}

type testHarness struct {
	priv ed25519.PrivateKey
	gate *goGate.Gate

	jwks   *httptest.Server
	tokens *httptest.Server
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}

	h := &testHarness{priv: priv}

	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
		{Key: pub, KeyID: testKID, Algorithm: "EdDSA", Use: "sig"},
	}}
	jwksBody, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("jwks marshal failed: %v", err)
	}

	h.jwks = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwksBody)
	}))
	t.Cleanup(h.jwks.Close)

	h.tokens = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("refresh_token") != "good-refresh" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"INVALID_REFRESH_TOKEN"}}`))
			return
		}
		fresh := h.mintToken(t, "user1", time.Now().Add(time.Hour))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id_token":      fresh,
			"refresh_token": "rotated-refresh",
			"expires_in":    "3600",
		})
	}))
	t.Cleanup(h.tokens.Close)

	cfg := goGate.Config{
		Cookie: goGate.CookieConfig{
			Name:     "gg_session",
			Secrets:  testSecrets,
			Path:     "/",
			HTTPOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		Provider: goGate.ProviderConfig{
			Issuer:   "https://issuer.test",
			Audience: "gate-audience",
			TokenURL: h.tokens.URL,
			JWKSURL:  h.jwks.URL,
			Timeout:  2 * time.Second,
		},
		Routes: goGate.RouteConfig{
			LoginPath:      "/auth/login",
			LogoutPath:     "/auth/logout",
			VerifiedHeader: "X-Gate-Verified",
		},
		Metrics: goGate.MetricsConfig{Enabled: true},
	}

	gate, err := goGate.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("gate build failed: %v", err)
	}
	t.Cleanup(gate.Close)
	h.gate = gate

	return h
}

func (h *testHarness) mintToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{
		"sub": subject,
		"iss": "https://issuer.test",
		"aud": "gate-audience",
		"iat": time.Now().Add(-time.Minute).Unix(),
		"exp": exp.Unix(),
	})
	token.Header["kid"] = testKID
	signed, err := token.SignedString(h.priv)
	if err != nil {
		t.Fatalf("token signing failed: %v", err)
	}
	return signed
}

// sessionCookie encodes a token pair with the same secrets the gate uses,
// optionally under an older ring key.
func (h *testHarness) sessionCookie(t *testing.T, idToken, refreshToken string, keyIndex int) *http.Cookie {
	t.Helper()

	ring, err := keyring.New(testSecrets)
	if err != nil {
		t.Fatalf("keyring failed: %v", err)
	}
	value, err := cookie.Encode(&cookie.TokenPair{
		IDToken:      idToken,
		RefreshToken: refreshToken,
		IssuedAt:     time.Now().Unix(),
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}, ring.All()[keyIndex])
	if err != nil {
		t.Fatalf("cookie encode failed: %v", err)
	}
	return &http.Cookie{Name: "gg_session", Value: value}
}

func TestRequireValidRejectsMissingCookie(t *testing.T) {
	h := newTestHarness(t)

	nextCalled := false
	handler := RequireValid(h.gate)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		nextCalled = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if nextCalled {
		t.Fatal("next handler must not run for missing credentials")
	}
}

func TestGateValidPassesThrough(t *testing.T) {
	h := newTestHarness(t)

	token := h.mintToken(t, "user1", time.Now().Add(time.Hour))

	var sawHeader string
	var sawDecision *goGate.Decision
	handler := Gate(h.gate, Handlers{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawHeader = r.Header.Get("X-Gate-Verified")
		sawDecision, _ = DecisionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(h.sessionCookie(t, token, "good-refresh", 0))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if sawHeader != "1" {
		t.Fatal("verified marker header missing on proxied request")
	}
	if sawDecision == nil || !sawDecision.Valid() || sawDecision.Claims.Subject != "user1" {
		t.Fatalf("decision missing from context: %+v", sawDecision)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("cookie under current key must not be rewritten")
	}
}

func TestGateStripsSpoofedMarkerHeader(t *testing.T) {
	h := newTestHarness(t)

	var sawHeader string
	handler := Gate(h.gate, Handlers{})(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		sawHeader = r.Header.Get("X-Gate-Verified")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-Gate-Verified", "1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if sawHeader != "" {
		t.Fatal("client-supplied marker header must be stripped on invalid credentials")
	}
}

func TestGateKeyMigrationRewritesCookie(t *testing.T) {
	h := newTestHarness(t)

	token := h.mintToken(t, "user1", time.Now().Add(time.Hour))

	handler := Gate(h.gate, Handlers{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(h.sessionCookie(t, token, "good-refresh", 1))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "gg_session" || cookies[0].Value == "" {
		t.Fatalf("expected re-signed session cookie, got %+v", cookies)
	}
}

func TestGateRefreshesExpiredToken(t *testing.T) {
	h := newTestHarness(t)

	expired := h.mintToken(t, "user1", time.Now().Add(-time.Hour))

	handler := Gate(h.gate, Handlers{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(h.sessionCookie(t, expired, "good-refresh", 0))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after transparent refresh, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value == "" {
		t.Fatalf("expected refreshed session cookie, got %+v", cookies)
	}
}

func TestNestedGateDoesNotReverify(t *testing.T) {
	h := newTestHarness(t)

	token := h.mintToken(t, "user1", time.Now().Add(time.Hour))

	inner := Gate(h.gate, Handlers{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	outer := Gate(h.gate, Handlers{})(inner)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(h.sessionCookie(t, token, "good-refresh", 0))
	rec := httptest.NewRecorder()
	outer.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := h.gate.MetricsSnapshot().Counters[goGate.MetricResolveValid]; got != 1 {
		t.Fatalf("expected exactly one resolution across nested gates, got %d", got)
	}
}

func TestZeroHandlersPassThrough(t *testing.T) {
	h := newTestHarness(t)

	nextCalled := false
	handler := Gate(h.gate, Handlers{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		nextCalled = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/open", nil))
	if !nextCalled {
		t.Fatal("zero handlers must pass unauthenticated traffic through")
	}
}

func TestInvalidTokenHandlerReceivesReason(t *testing.T) {
	h := newTestHarness(t)

	var sawReason goGate.InvalidReason
	handler := Gate(h.gate, Handlers{
		InvalidToken: func(w http.ResponseWriter, _ *http.Request, reason goGate.InvalidReason) {
			sawReason = reason
			w.WriteHeader(http.StatusUnauthorized)
		},
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "gg_session", Value: "not-a-cookie"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if sawReason != goGate.ReasonMalformedCredentials {
		t.Fatalf("expected malformed reason, got %v", sawReason)
	}
}

func TestLoginHandler(t *testing.T) {
	h := newTestHarness(t)
	handler := LoginHandler(h.gate)

	token := h.mintToken(t, "user1", time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(refreshTokenHeader, "good-refresh")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "gg_session" || cookies[0].Value == "" {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}
	if !strings.Contains(rec.Body.String(), `"subject":"user1"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	// Method guard.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	// Missing bearer token.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	// Expired bearer token is an invalid login, never a refresh.
	expired := h.mintToken(t, "user1", time.Now().Add(-time.Hour))
	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired bearer, got %d", rec.Code)
	}
}

func TestLogoutHandlerClearsCookie(t *testing.T) {
	h := newTestHarness(t)
	handler := LogoutHandler(h.gate)

	for _, method := range []string{http.MethodPost, http.MethodGet} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, "/auth/logout", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", method, rec.Code)
		}
		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].MaxAge != -1 {
			t.Fatalf("%s: expected expired cookie, got %+v", method, cookies)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/auth/logout", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for PUT, got %d", rec.Code)
	}
}

func TestRegisterMountsConfiguredPaths(t *testing.T) {
	h := newTestHarness(t)

	mux := http.NewServeMux()
	Register(mux, h.gate)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected logout mounted at configured path, got %d", rec.Code)
	}
}
