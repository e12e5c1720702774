package revocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, cacheTTL time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewStore(rdb, "gg", 16, cacheTTL), mr
}

func TestRevokeAndCheck(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "user1", time.Now().Unix())
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if revoked {
		t.Fatal("unknown subject must not be revoked")
	}

	issuedBefore := time.Now().Add(-time.Minute).Unix()
	if err := store.Revoke(ctx, "user1", time.Hour); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	revoked, err = store.IsRevoked(ctx, "user1", issuedBefore)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !revoked {
		t.Fatal("token issued before revocation must be revoked")
	}

	issuedAfter := time.Now().Add(time.Minute).Unix()
	revoked, err = store.IsRevoked(ctx, "user1", issuedAfter)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if revoked {
		t.Fatal("token issued after revocation must pass")
	}
}

func TestCacheAbsorbsRepeatedChecks(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Revoke(ctx, "user1", time.Hour); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := store.IsRevoked(ctx, "user1", 0); err != nil {
		t.Fatalf("check failed: %v", err)
	}

	// With the record cached, the check survives a Redis outage.
	mr.Close()
	revoked, err := store.IsRevoked(ctx, "user1", 0)
	if err != nil {
		t.Fatalf("cached check failed: %v", err)
	}
	if !revoked {
		t.Fatal("cached revocation lost")
	}
}

func TestBackendUnavailable(t *testing.T) {
	store, mr := newTestStore(t, 0)
	mr.Close()

	if _, err := store.IsRevoked(context.Background(), "user1", 0); !errors.Is(err, ErrRevocationUnavailable) {
		t.Fatalf("expected ErrRevocationUnavailable, got %v", err)
	}
}
