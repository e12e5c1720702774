package idp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	jose "github.com/go-jose/go-jose/v4"
)

type keySnapshot struct {
	keys    map[string]any
	fetched time.Time
}

// verifyKey resolves the public key for a kid, refetching the JWKS when the
// cached snapshot is stale or does not know the kid (provider-side rotation).
// Refetches are single-flight: the first request past the fast path fetches,
// the rest wait on fetchMu and are served from the snapshot it stored.
func (c *Client) verifyKey(kid string) (any, error) {
	if kid == "" {
		return nil, errors.New("missing kid")
	}

	if key, ok := c.cachedKey(kid); ok {
		return key, nil
	}

	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	// Another request may have refreshed the set while this one waited.
	if key, ok := c.cachedKey(kid); ok {
		return key, nil
	}

	snap, err := c.fetchKeys()
	if err != nil {
		return nil, err
	}

	key, found := snap.keys[kid]
	if !found {
		return nil, errors.New("unknown kid")
	}
	return key, nil
}

func (c *Client) cachedKey(kid string) (any, bool) {
	snap, ok := c.keys.Load().(keySnapshot)
	if !ok || c.now().Sub(snap.fetched) >= c.config.KeyCacheTTL {
		return nil, false
	}
	key, found := snap.keys[kid]
	return key, found
}

// fetchKeys replaces the JWKS snapshot wholesale; callers hold fetchMu.
// Readers on the fast path never see a partial key set.
func (c *Client) fetchKeys() (keySnapshot, error) {
	req, err := http.NewRequest(http.MethodGet, c.config.JWKSURL, nil)
	if err != nil {
		return keySnapshot{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return keySnapshot{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return keySnapshot{}, fmt.Errorf("%w: jwks endpoint status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return keySnapshot{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	var set jose.JSONWebKeySet
	if err := json.Unmarshal(body, &set); err != nil {
		return keySnapshot{}, fmt.Errorf("%w: jwks parse: %v", ErrProviderUnavailable, err)
	}

	keys := make(map[string]any, len(set.Keys))
	for _, k := range set.Keys {
		if k.KeyID == "" || !k.Valid() {
			continue
		}
		keys[k.KeyID] = k.Key
	}
	if len(keys) == 0 {
		return keySnapshot{}, fmt.Errorf("%w: jwks endpoint returned no usable keys", ErrProviderUnavailable)
	}

	snap := keySnapshot{keys: keys, fetched: c.now()}
	c.keys.Store(snap)
	return snap, nil
}
