package goPairAuth

import (
	"errors"
	"log/slog"

	"github.com/MrEthical07/goPairAuth/internal/audit"
	"github.com/MrEthical07/goPairAuth/internal/rate"
	"github.com/MrEthical07/goPairAuth/jwt"
	"github.com/MrEthical07/goPairAuth/password"
	"github.com/MrEthical07/goPairAuth/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userStore UserStore
	hasher    PasswordHasher
	clock     Clock
	logger    *slog.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the session registry and login throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.userStore = store
	return b
}

// WithPasswordHasher overrides the argon2id hasher derived from Config.Password.
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithClock overrides the wall clock. Tests use it to step through expiry.
func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where audit events go. It has no effect unless
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.userStore == nil {
		return nil, errors.New("user store required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = jwt.SystemClock{}
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- TOKEN CODEC --------
	codec, err := jwt.NewCodec(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cfg.JWT.VerifyKeys,
		Clock:         clock,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORD HASHER --------
	hasher := b.hasher
	if hasher == nil {
		hasher, err = defaultHasher(cfg.Password)
		if err != nil {
			return nil, err
		}
	}

	engine := &Engine{
		config:    cfg,
		codec:     codec,
		registry:  session.NewRegistry(b.redis, cfg.sessionRegistryConfig()),
		userStore: b.userStore,
		hasher:    hasher,
		clock:     clock,
		logger:    logger.With("component", "pairauth"),
		metrics:   NewMetrics(cfg.Metrics),
	}

	// -------- LOGIN THROTTLE --------
	if cfg.Security.EnableLoginThrottle {
		engine.throttle = rate.New(b.redis, rate.Config{
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldown,
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
		})
	}

	// -------- AUDIT --------
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, func(ev audit.Event) {
		engine.logger.Warn("audit event dropped", "event", ev.EventType)
	})

	engine.flows = engine.buildFlowDeps()

	b.built = true

	return engine, nil
}

func defaultHasher(cfg PasswordConfig) (PasswordHasher, error) {
	primary, err := password.NewArgon2(password.Config{
		Memory:           cfg.Memory,
		Time:             cfg.Time,
		Parallelism:      cfg.Parallelism,
		SaltLength:       cfg.SaltLength,
		KeyLength:        cfg.KeyLength,
		MaxPasswordBytes: cfg.MaxPasswordBytes,
	})
	if err != nil {
		return nil, err
	}
	if !cfg.AcceptBcrypt {
		return primary, nil
	}

	legacy, err := password.NewBcrypt(0)
	if err != nil {
		return nil, err
	}
	return password.NewMigrating(primary, legacy)
}
