package revocation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// ErrRevocationUnavailable is an exported constant or variable used by the edge gate.
var ErrRevocationUnavailable = errors.New("revocation backend unavailable")

const defaultCacheSize = 4096

// Store is the local revocation record: per subject, the unix time before
// which all issued tokens are considered revoked. It backs the cheap half of
// the revocation check; the provider's remote endpoint remains authoritative
// when both are configured.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	rdb    *redis.Client
	prefix string
	cache  *expirable.LRU[string, int64]
}

// NewStore describes the newstore operation and its observable behavior.
//
// NewStore may return an error when input validation, dependency calls, or security checks fail.
// NewStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewStore(rdb *redis.Client, prefix string, cacheSize int, cacheTTL time.Duration) *Store {
	if prefix == "" {
		prefix = "gg"
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}

	var cache *expirable.LRU[string, int64]
	if cacheTTL > 0 {
		cache = expirable.NewLRU[string, int64](cacheSize, nil, cacheTTL)
	}

	return &Store{
		rdb:    rdb,
		prefix: prefix,
		cache:  cache,
	}
}

func (s *Store) key(subject string) string {
	return s.prefix + ":revoked:" + subject
}

// Revoke marks every token issued to subject before now as revoked. The
// record lives for ttl, which should cover the longest refresh-token
// lifetime in circulation.
//
// Revoke may return an error when input validation, dependency calls, or security checks fail.
// Revoke does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Revoke(ctx context.Context, subject string, ttl time.Duration) error {
	validSince := time.Now().Unix()
	if err := s.rdb.Set(ctx, s.key(subject), validSince, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	if s.cache != nil {
		s.cache.Add(subject, validSince)
	}
	return nil
}

// IsRevoked reports whether a token issued to subject at issuedAt has been
// revoked locally.
//
// IsRevoked may return an error when input validation, dependency calls, or security checks fail.
// IsRevoked does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) IsRevoked(ctx context.Context, subject string, issuedAt int64) (bool, error) {
	validSince, err := s.validSince(ctx, subject)
	if err != nil {
		return false, err
	}
	return issuedAt < validSince, nil
}

func (s *Store) validSince(ctx context.Context, subject string) (int64, error) {
	if s.cache != nil {
		if validSince, ok := s.cache.Get(subject); ok {
			return validSince, nil
		}
	}

	raw, err := s.rdb.Get(ctx, s.key(subject)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		if s.cache != nil {
			s.cache.Add(subject, 0)
		}
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}

	validSince, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt record for subject", ErrRevocationUnavailable)
	}

	if s.cache != nil {
		s.cache.Add(subject, validSince)
	}
	return validSince, nil
}
