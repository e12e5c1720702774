package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goGate/cookie"
	"github.com/MrEthical07/goGate/keyring"
	"github.com/MrEthical07/goGate/revocation"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		cookies     = flag.Int("cookies", 100000, "number of session cookies to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (decode + revocation)")
		ringSize    = flag.Int("ring", 3, "number of signing keys in the ring")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gg", "revocation key prefix")
	)
	flag.Parse()

	if *cookies <= 0 || *concurrency <= 0 || *ops <= 0 || *ringSize <= 0 {
		fmt.Fprintln(os.Stderr, "cookies, concurrency, ops, and ring must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  *redis.Client
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	secrets := make([][]byte, *ringSize)
	for i := range secrets {
		secrets[i] = []byte(fmt.Sprintf("loadtest-secret-%02d-0123456789abcdef", i))
	}
	ring, err := keyring.New(secrets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keyring init failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeding %d cookies across %d keys...\n", *cookies, ring.Len())
	startSeed := time.Now()
	keys := ring.All()
	encoded := make([]string, *cookies)
	for i := 0; i < *cookies; i++ {
		pair := buildPair(i)
		value, err := cookie.Encode(pair, keys[i%len(keys)])
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode failed: %v\n", err)
			os.Exit(1)
		}
		encoded[i] = value
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	store := revocation.NewStore(client, *prefix, 4096, 0)
	for i := 0; i < *cookies/10; i++ {
		if err := store.Revoke(ctx, fmt.Sprintf("subject-%d", i*10), 24*time.Hour); err != nil {
			fmt.Fprintf(os.Stderr, "revoke seed failed: %v\n", err)
			os.Exit(1)
		}
	}

	decodeStats := runDecodePhase(encoded, keys, *ops, *concurrency)
	revocationStats := runRevocationPhase(ctx, store, *cookies, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("decode", decodeStats)
	printStats("revocation", revocationStats)
}

func runDecodePhase(encoded []string, keys []keyring.Key, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(encoded))
				t0 := time.Now()
				_, _, err := cookie.Decode(encoded[idx], keys)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runRevocationPhase(ctx context.Context, store *revocation.Store, subjects, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	issuedAt := time.Now().Add(-time.Hour).Unix()

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				subject := fmt.Sprintf("subject-%d", r.Intn(subjects))
				t0 := time.Now()
				_, err := store.IsRevoked(ctx, subject, issuedAt)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func buildPair(i int) *cookie.TokenPair {
	now := time.Now()
	return &cookie.TokenPair{
		IDToken:      fmt.Sprintf("header.payload-%d.signature", i),
		RefreshToken: fmt.Sprintf("refresh-%d", i),
		Claims:       map[string]any{"sub": fmt.Sprintf("subject-%d", i)},
		IssuedAt:     now.Unix(),
		ExpiresAt:    now.Add(time.Hour).Unix(),
	}
}
