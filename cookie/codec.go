package cookie

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/MrEthical07/goGate/keyring"
)

// ErrMalformedCookie is an exported constant or variable used by the edge gate.
var ErrMalformedCookie = errors.New("malformed session cookie")

// ErrInvalidSignature is an exported constant or variable used by the edge gate.
var ErrInvalidSignature = errors.New("session cookie signature mismatch")

// ErrMissingRefreshToken is an exported constant or variable used by the edge gate.
var ErrMissingRefreshToken = errors.New("session cookie missing refresh token")

// ErrCookieTooLarge is an exported constant or variable used by the edge gate.
var ErrCookieTooLarge = errors.New("encoded session cookie exceeds size limit")

const (
	formatVersionCurrent = 1

	nonceSize = 12
	macSize   = sha256.Size

	// Encoded values above this are rejected outright. Browsers cap a single
	// cookie around 4 KiB; chunking is deliberately not supported.
	maxEncodedSize = 4096

	maxFieldSize = 8192
)

// Encode serializes the token pair into a signed, encrypted cookie value
// under the given key (always the ring's current key in practice).
//
// Wire format: base64url( version(1) || nonce(12) || ciphertext || mac(32) ),
// where ciphertext is AES-256-GCM over the binary payload and mac is
// HMAC-SHA256 over everything before it.
//
// Encode may return an error when input validation, dependency calls, or security checks fail.
// Encode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func Encode(pair *TokenPair, key keyring.Key) (string, error) {
	payload, err := marshalPayload(pair)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key.EncKey)
	if err != nil {
		return "", fmt.Errorf("cookie cipher init: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cookie gcm init: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("cookie nonce: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteByte(formatVersionCurrent)
	buf.Write(nonce)
	buf.Write(gcm.Seal(nil, nonce, payload, nil))

	mac := hmac.New(sha256.New, key.MACKey)
	mac.Write(buf.Bytes())
	buf.Write(mac.Sum(nil))

	value := base64.RawURLEncoding.EncodeToString(buf.Bytes())
	if len(value) > maxEncodedSize {
		return "", ErrCookieTooLarge
	}

	return value, nil
}

// Decode verifies and decrypts a cookie value against every key in the ring,
// returning the token pair and the index of the key that verified. The MAC is
// evaluated under all keys without an early exit so that response timing does
// not reveal which rotation slot matched.
//
// Decode may return an error when input validation, dependency calls, or security checks fail.
// Decode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func Decode(value string, keys []keyring.Key) (*TokenPair, int, error) {
	if len(keys) == 0 {
		return nil, -1, errors.New("decode requires at least one key")
	}

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, -1, ErrMalformedCookie
	}
	if len(raw) < 1+nonceSize+macSize {
		return nil, -1, ErrMalformedCookie
	}
	if raw[0] != formatVersionCurrent {
		return nil, -1, ErrMalformedCookie
	}

	body := raw[:len(raw)-macSize]
	tag := raw[len(raw)-macSize:]

	matched := -1
	for i := range keys {
		mac := hmac.New(sha256.New, keys[i].MACKey)
		mac.Write(body)
		if hmac.Equal(tag, mac.Sum(nil)) && matched < 0 {
			matched = i
		}
	}
	if matched < 0 {
		return nil, -1, ErrInvalidSignature
	}

	block, err := aes.NewCipher(keys[matched].EncKey)
	if err != nil {
		return nil, -1, fmt.Errorf("cookie cipher init: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, -1, fmt.Errorf("cookie gcm init: %w", err)
	}

	nonce := body[1 : 1+nonceSize]
	payload, err := gcm.Open(nil, nonce, body[1+nonceSize:], nil)
	if err != nil {
		// MAC verified but the payload does not open: corrupted key material
		// rather than attacker input, so this is not a signature mismatch.
		return nil, -1, fmt.Errorf("cookie payload open: %w", err)
	}

	pair, err := unmarshalPayload(payload)
	if err != nil {
		return nil, -1, err
	}
	if pair.RefreshToken == "" {
		return nil, -1, ErrMissingRefreshToken
	}

	return pair, matched, nil
}

func marshalPayload(pair *TokenPair) ([]byte, error) {
	var claims []byte
	if len(pair.Claims) > 0 {
		encoded, err := json.Marshal(pair.Claims)
		if err != nil {
			return nil, fmt.Errorf("claims snapshot encode: %w", err)
		}
		claims = encoded
	}

	var buf bytes.Buffer
	if err := writeField(&buf, []byte(pair.IDToken)); err != nil {
		return nil, err
	}
	if err := writeField(&buf, []byte(pair.RefreshToken)); err != nil {
		return nil, err
	}
	if err := writeField(&buf, claims); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, pair.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, pair.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func unmarshalPayload(data []byte) (*TokenPair, error) {
	reader := bytes.NewReader(data)

	idToken, err := readField(reader)
	if err != nil {
		return nil, ErrMalformedCookie
	}
	refreshToken, err := readField(reader)
	if err != nil {
		return nil, ErrMalformedCookie
	}
	claimsRaw, err := readField(reader)
	if err != nil {
		return nil, ErrMalformedCookie
	}

	pair := &TokenPair{
		IDToken:      string(idToken),
		RefreshToken: string(refreshToken),
	}

	if len(claimsRaw) > 0 {
		if err := json.Unmarshal(claimsRaw, &pair.Claims); err != nil {
			return nil, ErrMalformedCookie
		}
	}

	if err := binary.Read(reader, binary.BigEndian, &pair.IssuedAt); err != nil {
		return nil, ErrMalformedCookie
	}
	if err := binary.Read(reader, binary.BigEndian, &pair.ExpiresAt); err != nil {
		return nil, ErrMalformedCookie
	}
	if reader.Len() != 0 {
		return nil, ErrMalformedCookie
	}

	return pair, nil
}

func writeField(buf *bytes.Buffer, field []byte) error {
	if len(field) > maxFieldSize {
		return ErrCookieTooLarge
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(field))); err != nil {
		return err
	}
	buf.Write(field)
	return nil
}

func readField(reader *bytes.Reader) ([]byte, error) {
	var size uint16
	if err := binary.Read(reader, binary.BigEndian, &size); err != nil {
		return nil, err
	}
	field := make([]byte, size)
	if _, err := io.ReadFull(reader, field); err != nil {
		return nil, err
	}
	return field, nil
}
