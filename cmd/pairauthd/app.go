package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	goPairAuth "github.com/MrEthical07/goPairAuth"
	"github.com/MrEthical07/goPairAuth/httpapi"
	"github.com/MrEthical07/goPairAuth/internal/logx"
	promexport "github.com/MrEthical07/goPairAuth/metrics/export/prometheus"
	"github.com/MrEthical07/goPairAuth/userstore/memory"
	"github.com/MrEthical07/goPairAuth/userstore/postgres"
	"github.com/MrEthical07/goPairAuth/userstore/sqlite"
)

// App owns the process-wide resources of the server.
type App struct {
	cfg    Config
	logger *slog.Logger
	engine *goPairAuth.Engine
	server *http.Server

	// closers run in reverse order on shutdown.
	closers []func() error
}

func NewApp(cfg Config) (*App, error) {
	logger := logx.New(logx.Config{
		Service: "pairauthd",
		Version: cfg.Version,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
	slog.SetDefault(logger)

	app := &App{cfg: cfg, logger: logger}
	if err := app.init(); err != nil {
		_ = app.close()
		return nil, err
	}
	return app, nil
}

func (a *App) init() error {
	rdb, err := a.openRedis()
	if err != nil {
		return err
	}

	store, err := a.openUserStore()
	if err != nil {
		return err
	}

	engineCfg, err := a.engineConfig()
	if err != nil {
		return err
	}

	builder := goPairAuth.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithUserStore(store).
		WithLogger(a.logger).
		WithMetricsEnabled(true)
	if a.cfg.AuditEnabled {
		builder = builder.WithAuditSink(goPairAuth.NewSlogSink(a.logger.With("component", "audit")))
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	a.engine = engine
	a.closers = append(a.closers, func() error { engine.Close(); return nil })

	api := httpapi.New(httpapi.Config{
		Service: engine,
		Logger:  a.logger,
		Metrics: promexport.Handler(promexport.NewRegistry(engine)),
		AuthRateLimit: httpapi.RateLimitConfig{
			RequestsPerWindow: a.cfg.RateLimitRequests,
			Window:            a.cfg.RateLimitWindow,
		},
	})

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           api,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}

func (a *App) openRedis() (redis.UniversalClient, error) {
	addr := a.cfg.RedisAddr
	if addr == "memory" {
		if a.cfg.Env == "prod" {
			return nil, errors.New("REDIS_ADDR=memory is not allowed in prod")
		}
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start embedded redis: %w", err)
		}
		a.closers = append(a.closers, func() error { mr.Close(); return nil })
		a.logger.Warn("using embedded redis; sessions are lost on restart", "addr", mr.Addr())
		addr = mr.Addr()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	a.closers = append(a.closers, rdb.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func (a *App) openUserStore() (goPairAuth.UserStore, error) {
	switch a.cfg.UserStore {
	case "memory":
		a.logger.Warn("using in-memory user store; accounts are lost on restart")
		return memory.New(), nil

	case "sqlite":
		store, err := sqlite.NewStore(a.cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.ApplyMigrations(); err != nil {
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		a.logger.Info("user store ready", "driver", "sqlite", "path", a.cfg.SQLitePath)
		return store, nil

	case "postgres":
		if a.cfg.PostgresURL == "" {
			return nil, errors.New("DATABASE_URL is required for USER_STORE=postgres")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pool, err := pgxpool.New(ctx, a.cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		store, err := postgres.NewStore(pool, postgres.WithSchema(a.cfg.PostgresSchema))
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		a.logger.Info("user store ready", "driver", "postgres", "schema", a.cfg.PostgresSchema)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown USER_STORE %q", a.cfg.UserStore)
	}
}

func (a *App) engineConfig() (goPairAuth.Config, error) {
	cfg := goPairAuth.DefaultConfig()
	cfg.JWT.AccessTTL = a.cfg.AccessTTL
	cfg.JWT.RefreshTTL = a.cfg.RefreshTTL
	cfg.JWT.SigningMethod = strings.ToLower(a.cfg.JWTSigningMethod)
	cfg.JWT.Issuer = a.cfg.JWTIssuer
	cfg.JWT.Audience = a.cfg.JWTAudience
	cfg.JWT.Leeway = a.cfg.Leeway

	switch cfg.JWT.SigningMethod {
	case "ed25519":
		priv, err := readKeyFile("JWT_PRIVATE_KEY_FILE", a.cfg.JWTPrivateKeyFile)
		if err != nil {
			return cfg, err
		}
		pub, err := readKeyFile("JWT_PUBLIC_KEY_FILE", a.cfg.JWTPublicKeyFile)
		if err != nil {
			return cfg, err
		}
		cfg.JWT.PrivateKey, cfg.JWT.PublicKey = priv, pub
	default:
		secret := []byte(a.cfg.JWTSecret)
		if len(secret) == 0 {
			if a.cfg.Env == "prod" {
				return cfg, errors.New("JWT_SECRET is required in prod")
			}
			secret = make([]byte, 32)
			if _, err := io.ReadFull(rand.Reader, secret); err != nil {
				return cfg, fmt.Errorf("generate dev secret: %w", err)
			}
			a.logger.Warn("JWT_SECRET not set; using a random secret, tokens will not survive restart")
		}
		cfg.JWT.PrivateKey = secret
	}

	cfg.Account.DefaultRoles = a.cfg.DefaultRoles
	cfg.Password.AcceptBcrypt = a.cfg.AcceptBcrypt
	cfg.Password.UpgradeOnLogin = a.cfg.AcceptBcrypt
	cfg.Security.EnableLoginThrottle = a.cfg.LoginThrottle
	cfg.Security.MaxLoginAttempts = a.cfg.MaxLoginAttempts
	cfg.Security.LoginCooldown = a.cfg.LoginCooldown
	cfg.Audit.Enabled = a.cfg.AuditEnabled
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg, nil
}

func readKeyFile(name, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%s is required for ed25519", name)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return b, nil
}

// Run serves until SIGINT/SIGTERM or a server error, then shuts down.
func (a *App) Run() error {
	serverErrors := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return a.close()
		}
		_ = a.close()
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		a.logger.Info("shutdown started", "signal", sig.String())
		return a.Shutdown()
	}
}

// Shutdown drains in-flight requests within the grace period and releases
// resources.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGracePeriod)
	defer cancel()

	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("graceful shutdown: %w", err))
		_ = a.server.Close()
	}
	if err := a.close(); err != nil {
		errs = append(errs, err)
	}
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
