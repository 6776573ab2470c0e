package goPairAuth

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{name: "test config valid", mutate: func(*Config) {}, wantValid: true},
		{
			name:      "jwt leeway valid",
			mutate:    func(c *Config) { c.JWT.Leeway = 45 * time.Second },
			wantValid: true,
		},
		{
			name:      "jwt leeway invalid",
			mutate:    func(c *Config) { c.JWT.Leeway = 3 * time.Minute },
			wantValid: false,
		},
		{
			name:      "refresh shorter than access",
			mutate:    func(c *Config) { c.JWT.RefreshTTL = time.Minute },
			wantValid: false,
		},
		{
			name:      "short hs256 key",
			mutate:    func(c *Config) { c.JWT.PrivateKey = []byte("short") },
			wantValid: false,
		},
		{
			name:      "unknown signing method",
			mutate:    func(c *Config) { c.JWT.SigningMethod = "rs256" },
			wantValid: false,
		},
		{
			name:      "empty redis prefix",
			mutate:    func(c *Config) { c.Session.RedisPrefix = " " },
			wantValid: false,
		},
		{
			name:      "key ttl shorter than refresh ttl",
			mutate:    func(c *Config) { c.Session.KeyTTL = time.Minute },
			wantValid: false,
		},
		{
			name: "key ttl shorter than refresh ttl plus leeway",
			mutate: func(c *Config) {
				c.JWT.Leeway = 30 * time.Second
				c.Session.KeyTTL = c.JWT.RefreshTTL
			},
			wantValid: false,
		},
		{
			name:      "redis prefix equals replay namespace",
			mutate:    func(c *Config) { c.Session.RedisPrefix = "par:" },
			wantValid: false,
		},
		{
			name:      "replay prefix nested in redis prefix",
			mutate:    func(c *Config) { c.Session.ReplayPrefix = "pas:replay:" },
			wantValid: false,
		},
		{
			name:      "redis prefix overlaps login throttle",
			mutate:    func(c *Config) { c.Session.RedisPrefix = "pal" },
			wantValid: false,
		},
		{
			name: "custom disjoint prefixes",
			mutate: func(c *Config) {
				c.Session.RedisPrefix = "sess:"
				c.Session.ReplayPrefix = "replay:"
			},
			wantValid: true,
		},
		{
			name:      "key ttl disabled",
			mutate:    func(c *Config) { c.Session.KeyTTL = -1 },
			wantValid: true,
		},
		{
			name:      "no default roles",
			mutate:    func(c *Config) { c.Account.DefaultRoles = nil },
			wantValid: false,
		},
		{
			name:      "blank default role",
			mutate:    func(c *Config) { c.Account.DefaultRoles = []string{"ROLE_USER", ""} },
			wantValid: false,
		},
		{
			name: "throttle without attempts",
			mutate: func(c *Config) {
				c.Security.EnableLoginThrottle = true
				c.Security.MaxLoginAttempts = 0
			},
			wantValid: false,
		},
		{
			name:      "weak argon2 memory",
			mutate:    func(c *Config) { c.Password.Memory = 1024 },
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid config, got nil")
			}
		})
	}
}

func TestDefaultConfigNeedsOnlyAKey(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected default config without a key to be rejected")
	}
	cfg.JWT.PrivateKey = []byte(testSecret)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config with key to validate: %v", err)
	}
	if len(cfg.Account.DefaultRoles) != 1 || cfg.Account.DefaultRoles[0] != "ROLE_USER" {
		t.Fatalf("unexpected default roles %v", cfg.Account.DefaultRoles)
	}
	if cfg.JWT.Leeway != 0 {
		t.Fatalf("expected zero leeway by default, got %v", cfg.JWT.Leeway)
	}
}

func TestSessionKeyTTLResolution(t *testing.T) {
	cfg := testConfig()
	if got := cfg.sessionKeyTTL(); got != cfg.JWT.RefreshTTL {
		t.Fatalf("zero KeyTTL should follow RefreshTTL, got %v", got)
	}
	cfg.JWT.Leeway = 30 * time.Second
	if got := cfg.sessionKeyTTL(); got != cfg.JWT.RefreshTTL+30*time.Second {
		t.Fatalf("zero KeyTTL should cover the leeway window, got %v", got)
	}
	cfg.Session.KeyTTL = -1
	if got := cfg.sessionKeyTTL(); got != 0 {
		t.Fatalf("negative KeyTTL should disable expiry, got %v", got)
	}
}

func TestBuildConfigImmutabilityAgainstExternalMutation(t *testing.T) {
	cfg := testConfig()
	env := newTestEnv(t, func(c *Config) { *c = cfg })

	cfg.Account.DefaultRoles[0] = "ROLE_ROOT"
	cfg.JWT.PrivateKey[0] ^= 0xff

	pair := env.register(t, "alice", "pw")
	claims, err := env.engine.ValidateAccess(pair.Access)
	if err != nil {
		t.Fatalf("engine must keep its own key copy: %v", err)
	}
	if claims.Access.Roles[0] != "ROLE_USER" {
		t.Fatalf("engine must keep its own roles copy, got %v", claims.Access.Roles)
	}
}

func TestBuilderRequirements(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).WithUserStore(newMemUserStore()).Build(); err == nil {
		t.Fatal("expected error without redis")
	}
	_, rdb := newTestRedis(t)
	if _, err := New().WithConfig(testConfig()).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected error without user store")
	}

	b := New().WithConfig(testConfig()).WithRedis(rdb).WithUserStore(newMemUserStore())
	e, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected builder reuse to fail")
	}
}
