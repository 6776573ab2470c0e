package password

import (
	"errors"
	"strings"
	"testing"
)

// cheapConfig sits on the cost floor so the suite stays fast.
func cheapConfig() Config {
	return Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
}

func newTestArgon2(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	h, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

func TestDefaultConfigEncodesItsParameters(t *testing.T) {
	h := newTestArgon2(t, DefaultConfig())

	encoded, err := h.Hash("correct-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=65536,t=3,p=2$") {
		t.Fatalf("unexpected encoding %q", encoded)
	}
	ok, err := h.Verify("correct-password", encoded)
	if err != nil || !ok {
		t.Fatalf("verify: ok=%v err=%v", ok, err)
	}
	if up, err := h.NeedsUpgrade(encoded); err != nil || up {
		t.Fatalf("fresh hash flagged for upgrade: up=%v err=%v", up, err)
	}
}

func TestShortPasswordsAreAccepted(t *testing.T) {
	h := newTestArgon2(t, cheapConfig())

	encoded, err := h.Hash("pw")
	if err != nil {
		t.Fatalf("two-byte password rejected: %v", err)
	}
	if ok, _ := h.Verify("pw", encoded); !ok {
		t.Fatal("two-byte password did not verify")
	}
	if ok, _ := h.Verify("pW", encoded); ok {
		t.Fatal("case-changed password verified")
	}
}

func TestLengthSentinels(t *testing.T) {
	cfg := cheapConfig()
	cfg.MaxPasswordBytes = 16
	h := newTestArgon2(t, cfg)

	encoded, err := h.Hash(strings.Repeat("a", 16))
	if err != nil {
		t.Fatalf("password at the limit rejected: %v", err)
	}

	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("empty hash: got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("a", 17)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("long hash: got %v", err)
	}
	if _, err := h.Verify(strings.Repeat("a", 17), encoded); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("long verify: got %v", err)
	}
	if ok, err := h.Verify("", encoded); err != nil || ok {
		t.Fatalf("empty verify should be a plain mismatch: ok=%v err=%v", ok, err)
	}
}

func TestZeroMaxPasswordBytesUsesDefault(t *testing.T) {
	h := newTestArgon2(t, cheapConfig())

	if _, err := h.Hash(strings.Repeat("x", DefaultMaxPasswordBytes)); err != nil {
		t.Fatalf("password at default limit rejected: %v", err)
	}
	if _, err := h.Hash(strings.Repeat("x", DefaultMaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("got %v, want ErrPasswordTooLong", err)
	}
}

func TestHandles(t *testing.T) {
	h := newTestArgon2(t, cheapConfig())
	cases := map[string]bool{
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$a2V5":                    true,
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$a2V5":                     false,
		"$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy": false,
		"": false,
	}
	for encoded, want := range cases {
		if got := h.Handles(encoded); got != want {
			t.Fatalf("Handles(%q)=%v, want %v", encoded, got, want)
		}
	}
}

func TestMalformedHashes(t *testing.T) {
	h := newTestArgon2(t, cheapConfig())
	valid, err := h.Hash("correct-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	cases := map[string]string{
		"not phc":         "plain-text",
		"bcrypt":          "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy",
		"old version":     strings.Replace(valid, "$v=19$", "$v=16$", 1),
		"padded version":  strings.Replace(valid, "$v=19$", "$v=019$", 1),
		"trailing param":  strings.Replace(valid, ",p=1$", ",p=1x$", 1),
		"reordered param": strings.Replace(valid, "m=8192,t=1,p=1", "t=1,m=8192,p=1", 1),
		"below floor":     strings.Replace(valid, "m=8192", "m=1024", 1),
		"overflow p":      strings.Replace(valid, "p=1$", "p=300$", 1),
		"missing key":     valid[:strings.LastIndex(valid, "$")],
		"extra field":     strings.Replace(valid, "$m=8192,t=1,p=1$", "$m=8192,t=1,p=1$x$", 1),
		"short salt":      withField(valid, 4, "c2FsdA=="),
		"salt not base64": withField(valid, 4, "!!!!"),
		"empty key":       withField(valid, 5, ""),
	}
	for name, encoded := range cases {
		if _, err := h.Verify("correct-password", encoded); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("%s: Verify err=%v, want ErrMalformedHash", name, err)
		}
		if _, err := h.NeedsUpgrade(encoded); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("%s: NeedsUpgrade err=%v, want ErrMalformedHash", name, err)
		}
	}
}

// withField replaces the i-th "$"-separated field of encoded.
func withField(encoded string, i int, value string) string {
	fields := strings.Split(encoded, "$")
	fields[i] = value
	return strings.Join(fields, "$")
}

func TestNeedsUpgradeTracksEachParameter(t *testing.T) {
	current := cheapConfig()
	current.Memory = 16 * 1024
	current.Time = 2
	current.Parallelism = 2
	current.KeyLength = 32
	h := newTestArgon2(t, current)

	cases := map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = 8 * 1024 },
		"time":        func(c *Config) { c.Time = 1 },
		"parallelism": func(c *Config) { c.Parallelism = 1 },
		"longer key":  func(c *Config) { c.KeyLength = 64 },
	}
	for name, mutate := range cases {
		old := current
		mutate(&old)
		encoded, err := newTestArgon2(t, old).Hash("correct-password")
		if err != nil {
			t.Fatalf("%s: hash: %v", name, err)
		}
		up, err := h.NeedsUpgrade(encoded)
		if err != nil || !up {
			t.Fatalf("%s: up=%v err=%v, want upgrade", name, up, err)
		}
		// Old hashes keep verifying until they are replaced.
		if ok, err := h.Verify("correct-password", encoded); err != nil || !ok {
			t.Fatalf("%s: verify ok=%v err=%v", name, ok, err)
		}
	}

	stronger := current
	stronger.Memory = 32 * 1024
	encoded, err := newTestArgon2(t, stronger).Hash("correct-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if up, err := h.NeedsUpgrade(encoded); err != nil || up {
		t.Fatalf("stronger hash flagged: up=%v err=%v", up, err)
	}
}

func TestNewArgon2RejectsCostBelowFloor(t *testing.T) {
	cases := map[string]func(*Config){
		"memory":    func(c *Config) { c.Memory = 4 * 1024 },
		"time":      func(c *Config) { c.Time = 0 },
		"parallel":  func(c *Config) { c.Parallelism = 0 },
		"salt":      func(c *Config) { c.SaltLength = 8 },
		"key":       func(c *Config) { c.KeyLength = 8 },
		"max bytes": func(c *Config) { c.MaxPasswordBytes = -1 },
	}
	for name, mutate := range cases {
		cfg := cheapConfig()
		mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("%s: expected config error", name)
		}
	}
}

func TestSaltIsFreshPerHash(t *testing.T) {
	h := newTestArgon2(t, cheapConfig())
	a, _ := h.Hash("same-password")
	b, _ := h.Hash("same-password")
	if a == b {
		t.Fatal("two hashes of one password are identical")
	}
}
