package cookie

import (
	"encoding/base64"
	"testing"

	"github.com/MrEthical07/goGate/keyring"
)

// FuzzDecode exercises the cookie decoder with arbitrary inputs.
// Goal: no panics, no unexpected nil dereferences, graceful error handling.
func FuzzDecode(f *testing.F) {
	ring, err := keyring.New([][]byte{[]byte("fuzz-secret-fuzz-secret-fuzz-sec")})
	if err != nil {
		f.Fatalf("ring construction failed: %v", err)
	}

	pair := &TokenPair{
		IDToken:      "header.payload.signature",
		RefreshToken: "refresh-opaque-value",
		Claims:       map[string]any{"sub": "fuzz"},
		IssuedAt:     1700000000,
		ExpiresAt:    1700003600,
	}
	if encoded, err := Encode(pair, ring.Current()); err == nil {
		f.Add(encoded)

		// Truncated at various offsets.
		if len(encoded) > 10 {
			f.Add(encoded[:10])
		}
		if len(encoded) > 60 {
			f.Add(encoded[:60])
		}
	}

	f.Add("")
	f.Add("A")
	f.Add(base64.RawURLEncoding.EncodeToString([]byte{1}))
	f.Add(base64.RawURLEncoding.EncodeToString(make([]byte, 64)))

	f.Fuzz(func(t *testing.T, value string) {
		// Must not panic. Errors are expected for malformed input.
		decoded, idx, err := Decode(value, ring.All())
		if err != nil {
			return
		}
		if decoded == nil || idx < 0 {
			t.Fatalf("successful decode returned decoded=%v idx=%d", decoded, idx)
		}
	})
}
