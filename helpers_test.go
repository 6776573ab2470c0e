package goPairAuth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testSecret = "pairauth-test-secret-0123456789abcdef"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memUserStore is a minimal UserStore keyed by username.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]User
	err   error

	findCalls int
	saveCalls int
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]User)}
}

func (s *memUserStore) FindByUsername(_ context.Context, username string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.err != nil {
		return User{}, s.err
	}
	u, ok := s.users[username]
	if !ok {
		return User{}, ErrNotFound
	}
	u.Roles = append([]string(nil), u.Roles...)
	return u, nil
}

func (s *memUserStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.users[username]
	return ok, nil
}

func (s *memUserStore) Save(_ context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.err != nil {
		return User{}, s.err
	}
	if existing, ok := s.users[u.Username]; ok && existing.ID != u.ID {
		return User{}, ErrAlreadyExists
	}
	u.Roles = append([]string(nil), u.Roles...)
	s.users[u.Username] = u
	return u, nil
}

func (s *memUserStore) setRoles(username string, roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[username]
	u.Roles = roles
	s.users[username] = u
}

func (s *memUserStore) delete(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, username)
}

func (s *memUserStore) hashOf(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[username].PasswordHash
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte(testSecret)
	cfg.JWT.AccessTTL = 5 * time.Minute
	cfg.JWT.RefreshTTL = time.Hour
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	return cfg
}

type testEnv struct {
	engine *Engine
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	store  *memUserStore
	clock  *testClock
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func newTestEnv(t testing.TB, mutate func(*Config), extra ...func(*Builder)) *testEnv {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	mr, rdb := newTestRedis(t)
	store := newMemUserStore()
	clock := newTestClock()

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(store).
		WithClock(clock)
	for _, fn := range extra {
		fn(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, mr: mr, rdb: rdb, store: store, clock: clock}
}

func (env *testEnv) register(t testing.TB, username, password string) TokenPair {
	t.Helper()
	pair, err := env.engine.Register(context.Background(), RegisterRequest{
		Username:  username,
		Password:  password,
		Email:     username + "@example.com",
		FirstName: "Test",
		LastName:  "User",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return pair
}

func (env *testEnv) sessions(t *testing.T, username string) []string {
	t.Helper()
	ids, err := env.engine.registry.List(context.Background(), username)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	return ids
}
