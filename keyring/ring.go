package keyring

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	minSecretSize = 16
	subKeySize    = 32
)

// Derivation labels. Changing either invalidates every issued cookie.
var (
	macInfo = []byte("goGate cookie mac v1")
	encInfo = []byte("goGate cookie enc v1")
)

// Key holds the two subkeys derived from one configured cookie signature
// secret: an HMAC-SHA256 key and an AES-256-GCM key. The raw secret is never
// retained after derivation.
//
// Key instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Key struct {
	MACKey []byte
	EncKey []byte
}

// Ring is an ordered, immutable list of signing keys. The first key is the
// current key and is used for all new cookies; every key is tried during
// verification so that cookies issued under an older-but-still-listed key
// remain valid across a rotation window.
//
// Ring instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Ring struct {
	keys []Key
}

// New derives a Ring from the ordered secret list (current secret first).
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(secrets [][]byte) (*Ring, error) {
	if len(secrets) == 0 {
		return nil, errors.New("key ring requires at least one secret")
	}

	keys := make([]Key, 0, len(secrets))
	for _, secret := range secrets {
		if len(secret) < minSecretSize {
			return nil, errors.New("key ring secret too short")
		}
		key, err := derive(secret)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return &Ring{keys: keys}, nil
}

// Current returns the key used for all new signatures.
//
// Current may return an error when input validation, dependency calls, or security checks fail.
// Current does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Ring) Current() Key {
	return r.keys[0]
}

// All returns every key in verification order, current first. The returned
// slice is a copy; the keys themselves are shared and must not be mutated.
//
// All may return an error when input validation, dependency calls, or security checks fail.
// All does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Ring) All() []Key {
	out := make([]Key, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len describes the len operation and its observable behavior.
//
// Len may return an error when input validation, dependency calls, or security checks fail.
// Len does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Ring) Len() int {
	return len(r.keys)
}

func derive(secret []byte) (Key, error) {
	mac := make([]byte, subKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, macInfo), mac); err != nil {
		return Key{}, errors.New("mac key derivation failed")
	}

	enc := make([]byte, subKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, encInfo), enc); err != nil {
		return Key{}, errors.New("encryption key derivation failed")
	}

	return Key{MACKey: mac, EncKey: enc}, nil
}
