// Command guard-loadtest hammers the guard's Check path across concurrent
// workers and reports throughput plus allow/deny ratios.
//
// With -backend=redis it talks to REDIS_ADDR (or -redis-addr), falling back
// to an embedded miniredis so no external Redis is required.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	authguard "github.com/farmstack/authguard"
)

func main() {
	var (
		backend     = flag.String("backend", "memory", "store backend: memory or redis")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 500000, "total check operations")
		keys        = flag.Int("keys", 1000, "number of distinct client keys")
		maxRequests = flag.Int("max-requests", 100, "policy budget per window")
		windowSecs  = flag.Int("window", 60, "policy window in seconds")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 || *keys <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency, ops, and keys must be > 0")
		os.Exit(2)
	}

	cfg := authguard.DefaultConfig()
	cfg.Sweep.Enabled = true
	cfg.Sweep.Interval = time.Second
	cfg.Metrics.Enabled = true

	builder := authguard.New().WithConfig(cfg)

	var cleanup func()
	switch *backend {
	case "memory":
	case "redis":
		client, done, err := redisClient(*redisAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis setup failed: %v\n", err)
			os.Exit(1)
		}
		cleanup = done
		builder = builder.WithRedis(client)
	default:
		fmt.Fprintf(os.Stderr, "unknown backend %q\n", *backend)
		os.Exit(2)
	}
	if cleanup != nil {
		defer cleanup()
	}

	guard, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "guard build failed: %v\n", err)
		os.Exit(1)
	}
	defer guard.Close()

	policy := authguard.Policy{
		Name:        "loadtest",
		Window:      time.Duration(*windowSecs) * time.Second,
		MaxRequests: *maxRequests,
		Message:     "too many requests",
		StatusCode:  429,
	}

	var (
		allowedCount atomic.Uint64
		deniedCount  atomic.Uint64
		errCount     atomic.Uint64
	)

	ctx := context.Background()
	perWorker := *ops / *concurrency

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < perWorker; i++ {
				key := "client-" + strconv.Itoa(rng.Intn(*keys))
				d, err := guard.Check(ctx, key, "/loadtest", policy)
				switch {
				case err != nil:
					errCount.Add(1)
				case d.Allowed:
					allowedCount.Add(1)
				default:
					deniedCount.Add(1)
				}
			}
		}(int64(w) + 1)
	}
	wg.Wait()
	elapsed := time.Since(start)

	total := allowedCount.Load() + deniedCount.Load() + errCount.Load()
	fmt.Printf("backend       %s\n", *backend)
	fmt.Printf("ops           %d in %v (%.0f ops/sec)\n", total, elapsed.Round(time.Millisecond), float64(total)/elapsed.Seconds())
	fmt.Printf("allowed       %d (%.1f%%)\n", allowedCount.Load(), pct(allowedCount.Load(), total))
	fmt.Printf("denied        %d (%.1f%%)\n", deniedCount.Load(), pct(deniedCount.Load(), total))
	fmt.Printf("errors        %d\n", errCount.Load())

	snap := guard.MetricsSnapshot()
	fmt.Printf("sweep evicted %d\n", snap.Counters[authguard.MetricSweepEvicted])
}

func redisClient(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	if addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func pct(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
