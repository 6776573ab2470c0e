// Command pairauth-loadtest drives an engine against Redis (or an embedded
// miniredis) and reports per-phase latency percentiles.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goPairAuth "github.com/MrEthical07/goPairAuth"
	"github.com/MrEthical07/goPairAuth/internal/logx"
	"github.com/MrEthical07/goPairAuth/userstore/memory"
)

const loadPassword = "load-test-password"

type userState struct {
	username string
	pair     goPairAuth.TokenPair
	mu       sync.Mutex
}

func main() {
	var (
		users       = flag.Int("users", 1000, "number of users to register before the run")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (validate, refresh)")
		loginOps    = flag.Int("login-ops", 500, "operations for the login phase")
		races       = flag.Int("races", 1000, "refresh tokens redeemed twice concurrently")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "pairauth-load", "session key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 || *loginOps < 0 || *races < 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := buildEngine(client, *prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]userState, *users)
	fmt.Printf("registering %d users...\n", *users)
	startSeed := time.Now()
	for i := range states {
		name := fmt.Sprintf("load-user-%d", i)
		pair, err := engine.Register(ctx, goPairAuth.RegisterRequest{
			Username:  name,
			Password:  loadPassword,
			Email:     name + "@example.com",
			FirstName: "Load",
			LastName:  "User",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
			os.Exit(1)
		}
		states[i].username = name
		states[i].pair = pair
	}
	fmt.Printf("registered in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		access := st.pair.Access
		st.mu.Unlock()
		_, err := engine.Authenticate(ctx, access)
		return err
	})

	refreshStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		defer st.mu.Unlock()
		next, err := engine.Refresh(ctx, st.pair.Refresh)
		if err == nil {
			st.pair = next
		}
		return err
	})

	var loginStats phaseStats
	if *loginOps > 0 {
		loginStats = runPhase(*loginOps, *concurrency, func(r *rand.Rand, _ int) error {
			st := &states[r.Intn(len(states))]
			pair, err := engine.Login(ctx, st.username, loadPassword)
			if err != nil {
				return err
			}
			return engine.LogoutCurrentDevice(ctx, pair.Access)
		})
	}

	doubleWins := runRaces(ctx, engine, states, *races, *concurrency)

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("refresh", refreshStats)
	if *loginOps > 0 {
		printStats("login+logout", loginStats)
	}
	fmt.Printf("double-redeem: races=%d double_wins=%d\n", *races, doubleWins)
	if doubleWins > 0 {
		os.Exit(1)
	}
}

func buildEngine(client redis.UniversalClient, prefix string) (*goPairAuth.Engine, error) {
	secret := make([]byte, 32)
	for i := range secret {
		secret[i] = byte(i*7 + 3)
	}

	cfg := goPairAuth.DefaultConfig()
	cfg.JWT.PrivateKey = secret
	cfg.JWT.AccessTTL = time.Hour
	cfg.JWT.RefreshTTL = 24 * time.Hour
	cfg.Session.RedisPrefix = prefix
	// Cheapest accepted argon2id cost; seeding and login stay CPU-bound otherwise.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	return goPairAuth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(memory.New()).
		WithLogger(logx.Discard()).
		Build()
}

// runPhase executes op exactly ops times across concurrency workers.
func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
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
				t0 := time.Now()
				err := op(r, i)
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

// runRaces redeems the same refresh token from two goroutines and counts
// races where both succeeded. Any non-zero result is a registry bug.
func runRaces(ctx context.Context, engine *goPairAuth.Engine, states []userState, races, concurrency int) int64 {
	var (
		wg         sync.WaitGroup
		cursor     int64
		doubleWins int64
	)
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= races {
					return
				}
				st := &states[i%len(states)]
				st.mu.Lock()
				pair, err := engine.Login(ctx, st.username, loadPassword)
				st.mu.Unlock()
				if err != nil {
					continue
				}

				var wins int64
				var inner sync.WaitGroup
				for k := 0; k < 2; k++ {
					inner.Add(1)
					go func() {
						defer inner.Done()
						_, err := engine.Refresh(ctx, pair.Refresh)
						if err == nil {
							atomic.AddInt64(&wins, 1)
						} else if !errors.Is(err, goPairAuth.ErrInvalidToken) {
							fmt.Fprintf(os.Stderr, "unexpected refresh error: %v\n", err)
						}
					}()
				}
				inner.Wait()
				if wins > 1 {
					atomic.AddInt64(&doubleWins, 1)
				}
			}
		}()
	}
	wg.Wait()
	return doubleWins
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
