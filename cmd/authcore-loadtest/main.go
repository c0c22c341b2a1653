// Command authcore-loadtest measures engine throughput under
// concurrent logins and session verifications. It runs against
// miniredis by default so no external Redis is required.
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

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	authcore "github.com/kwasu-clearance/authcore"
	"github.com/kwasu-clearance/authcore/password"
)

type roster struct {
	users map[string]authcore.UserRecord
}

func (r *roster) GetUserByEmail(_ context.Context, email string) (authcore.UserRecord, error) {
	u, ok := r.users[email]
	if !ok {
		return authcore.UserRecord{}, authcore.ErrUserNotFound
	}
	return u, nil
}

func main() {
	var (
		accounts    = flag.Int("accounts", 1000, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (login + verify)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
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
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	// Low argon2 costs keep the bottleneck on the engine and stores
	// rather than on deliberate KDF hardness.
	pwCfg := password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	hasher, err := password.NewHasher(pwCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init hasher: %v\n", err)
		os.Exit(1)
	}
	hash, err := hasher.Hash("load-test-pass")
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	emails := make([]string, *accounts)
	users := make(map[string]authcore.UserRecord, *accounts)
	for i := 0; i < *accounts; i++ {
		email := fmt.Sprintf("load-%d@kwasu.edu.ng", i)
		emails[i] = email
		users[email] = authcore.UserRecord{
			ID:           fmt.Sprintf("u-%d", i),
			Email:        email,
			Role:         authcore.RoleStudent,
			PasswordHash: hash,
			Active:       true,
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	cfg := authcore.Config{
		Token:    authcore.TokenConfig{Secret: []byte("load-test-secret-load-test-secret")},
		Password: authcore.PasswordConfig{Memory: pwCfg.Memory, Time: pwCfg.Time, Parallelism: pwCfg.Parallelism, SaltLength: pwCfg.SaltLength, KeyLength: pwCfg.KeyLength},
		// Rate limiting would dominate a load run keyed on a handful
		// of source IPs; lift the ceiling out of the way.
		RateLimit: authcore.RateLimitConfig{MaxRequests: 1 << 30},
		Metrics:   authcore.MetricsConfig{Enabled: true, EnableLatencyHistograms: true},
	}

	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserProvider(&roster{users: users}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	tokens := make([]string, 0, *ops)
	var tokenMu sync.Mutex

	loginStats := runPhase(*ops, *concurrency, func(r *rand.Rand, i int) error {
		email := emails[r.Intn(len(emails))]
		decision, err := engine.Authenticate(ctx, authcore.LoginRequest{
			Email:    email,
			Password: "load-test-pass",
			Role:     "student",
			ClientIP: fmt.Sprintf("198.51.100.%d", i%250),
		})
		if err != nil {
			return err
		}
		if !decision.OK {
			return fmt.Errorf("refused: %s", decision.Code)
		}
		tokenMu.Lock()
		tokens = append(tokens, decision.Token)
		tokenMu.Unlock()
		return nil
	})

	if len(tokens) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions issued; aborting verify phase")
		printStats("login", loginStats)
		os.Exit(1)
	}

	verifyStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		tokenMu.Lock()
		tok := tokens[r.Intn(len(tokens))]
		tokenMu.Unlock()
		_, err := engine.VerifySession(tok)
		return err
	})

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("verify", verifyStats)
}

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
