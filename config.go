package goPairAuth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goPairAuth/internal/rate"
	"github.com/MrEthical07/goPairAuth/session"
)

// Config groups every engine setting. Start from DefaultConfig and override.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Password PasswordConfig
	Account  AccountConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token signing and lifetimes.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	// Leeway tolerates clock skew between issuer and verifier. Zero disables it.
	Leeway     time.Duration
	KeyID      string
	VerifyKeys map[string][]byte
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis session registry.
type SessionConfig struct {
	RedisPrefix string
	// ReplayPrefix namespaces per-user replay counters. Blank means "par:". It
	// must not overlap RedisPrefix or the login throttle keys.
	ReplayPrefix string
	// KeyTTL expires a user's whole session list after this long without a new
	// login or refresh. Zero means JWT.RefreshTTL plus JWT.Leeway; negative
	// disables expiry.
	KeyTTL time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig tunes the default argon2id hasher. It is ignored when a custom
// hasher is supplied through Builder.WithPasswordHasher.
type PasswordConfig struct {
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
	// AcceptBcrypt verifies legacy bcrypt hashes and lets UpgradeOnLogin replace them.
	AcceptBcrypt   bool
	UpgradeOnLogin bool
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls newly registered accounts.
type AccountConfig struct {
	DefaultRoles []string
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds the optional failed-login throttle.
type SecurityConfig struct {
	EnableLoginThrottle bool
	EnableIPThrottle    bool
	MaxLoginAttempts    int
	LoginCooldown       time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls asynchronous audit delivery.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns production defaults. Signing keys are left empty and
// must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "hs256",
		},
		Session: SessionConfig{
			RedisPrefix: "pas:",
		},
		Password: PasswordConfig{
			Memory:           65536,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MaxPasswordBytes: 1024,
			AcceptBcrypt:     true,
			UpgradeOnLogin:   true,
		},
		Account: AccountConfig{
			DefaultRoles: []string{"ROLE_USER"},
		},
		Security: SecurityConfig{
			EnableLoginThrottle: false,
			EnableIPThrottle:    false,
			MaxLoginAttempts:    5,
			LoginCooldown:       15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	out.Account.DefaultRoles = append([]string(nil), cfg.Account.DefaultRoles...)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// sessionKeyTTL resolves the effective registry key TTL. The default covers
// the last moment a refresh token can still validate, which is its expiry
// plus the leeway.
func (c *Config) sessionKeyTTL() time.Duration {
	switch {
	case c.Session.KeyTTL == 0:
		return c.JWT.RefreshTTL + c.JWT.Leeway
	case c.Session.KeyTTL < 0:
		return 0
	default:
		return c.Session.KeyTTL
	}
}

func (c *Config) sessionRegistryConfig() session.Config {
	return session.Config{
		Prefix:       c.Session.RedisPrefix,
		ReplayPrefix: c.Session.ReplayPrefix,
		KeyTTL:       c.sessionKeyTTL(),
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if err := c.sessionRegistryConfig().Validate(); err != nil {
		return err
	}
	for _, throttle := range []string{rate.UserKeyPrefix, rate.IPKeyPrefix} {
		for _, p := range []string{c.Session.RedisPrefix, c.Session.ReplayPrefix} {
			if p != "" && (strings.HasPrefix(p, throttle) || strings.HasPrefix(throttle, p)) {
				return fmt.Errorf("Session prefix %q overlaps login throttle keys %q", p, throttle)
			}
		}
	}
	if c.Session.KeyTTL > 0 && c.Session.KeyTTL < c.JWT.RefreshTTL+c.JWT.Leeway {
		return errors.New("Session KeyTTL must be >= JWT RefreshTTL + Leeway")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// Account
	if len(c.Account.DefaultRoles) == 0 {
		return errors.New("Account DefaultRoles must not be empty")
	}
	for _, r := range c.Account.DefaultRoles {
		if strings.TrimSpace(r) == "" {
			return errors.New("Account DefaultRoles contains an empty role")
		}
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0 when the login throttle is enabled")
		}
		if c.Security.LoginCooldown <= 0 {
			return errors.New("Security LoginCooldown must be > 0 when the login throttle is enabled")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
