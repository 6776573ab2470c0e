package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Env:                 "dev",
		LogLevel:            "error",
		LogFormat:           "text",
		ShutdownGracePeriod: time.Second,
		RedisAddr:           "memory",
		UserStore:           "memory",
		JWTSigningMethod:    "hs256",
		JWTSecret:           "0123456789abcdef0123456789abcdef",
		AccessTTL:           time.Minute,
		RefreshTTL:          time.Hour,
		DefaultRoles:        []string{"ROLE_USER"},
		MaxLoginAttempts:    5,
		LoginCooldown:       time.Minute,
	}
}

func TestNewAppServesRegister(t *testing.T) {
	for _, storeKind := range []string{"memory", "sqlite"} {
		t.Run(storeKind, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.UserStore = storeKind
			cfg.SQLitePath = filepath.Join(t.TempDir(), "users.db")

			app, err := NewApp(cfg)
			require.NoError(t, err)
			t.Cleanup(func() { _ = app.close() })

			body := `{"username":"alice","password":"correct-password","email":"alice@example.com","first_name":"Alice","last_name":"Smith"}`
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			app.server.Handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"refresh"`)

			rec = httptest.NewRecorder()
			app.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "pairauth_register_success_total 1")
		})
	}
}

func TestNewAppRejectsUnknownStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.UserStore = "mongo"
	_, err := NewApp(cfg)
	assert.ErrorContains(t, err, "unknown USER_STORE")
}

func TestNewAppProdRequiresSecretAndRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "prod"
	_, err := NewApp(cfg)
	assert.ErrorContains(t, err, "REDIS_ADDR=memory")
}

func TestEngineConfigGeneratesDevSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTSecret = ""
	app, err := NewApp(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.close() })

	engineCfg, err := app.engineConfig()
	require.NoError(t, err)
	assert.Len(t, engineCfg.JWT.PrivateKey, 32)
}

func TestEngineConfigEd25519RequiresKeyFiles(t *testing.T) {
	app := &App{cfg: testConfig(t)}
	app.cfg.JWTSigningMethod = "ed25519"
	_, err := app.engineConfig()
	assert.ErrorContains(t, err, "JWT_PRIVATE_KEY_FILE")
}
