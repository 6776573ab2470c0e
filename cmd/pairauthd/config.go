package main

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the server configuration, loaded from the environment.
type Config struct {
	Env       string
	Version   string
	LogLevel  string
	LogFormat string

	Port                int
	ShutdownGracePeriod time.Duration

	// RedisAddr "memory" runs an embedded miniredis.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// UserStore is one of memory, sqlite or postgres.
	UserStore      string
	SQLitePath     string
	PostgresURL    string
	PostgresSchema string

	JWTSigningMethod  string
	JWTSecret         string
	JWTPrivateKeyFile string
	JWTPublicKeyFile  string
	JWTIssuer         string
	JWTAudience       string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	Leeway            time.Duration

	DefaultRoles []string
	AcceptBcrypt bool

	LoginThrottle    bool
	MaxLoginAttempts int
	LoginCooldown    time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	AuditEnabled bool
}

func LoadConfig() Config {
	return Config{
		Env:       getEnvOrDefault("ENV", "dev"),
		Version:   getEnvOrDefault("VERSION", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "memory"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),

		UserStore:      strings.ToLower(getEnvOrDefault("USER_STORE", "memory")),
		SQLitePath:     getEnvOrDefault("SQLITE_PATH", "pairauth.db"),
		PostgresURL:    os.Getenv("DATABASE_URL"),
		PostgresSchema: getEnvOrDefault("DATABASE_SCHEMA", "pairauth"),

		JWTSigningMethod:  getEnvOrDefault("JWT_SIGNING_METHOD", "hs256"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTPrivateKeyFile: os.Getenv("JWT_PRIVATE_KEY_FILE"),
		JWTPublicKeyFile:  os.Getenv("JWT_PUBLIC_KEY_FILE"),
		JWTIssuer:         os.Getenv("JWT_ISSUER"),
		JWTAudience:       os.Getenv("JWT_AUDIENCE"),
		AccessTTL:         getEnvDurationOrDefault("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:        getEnvDurationOrDefault("JWT_REFRESH_TTL", 7*24*time.Hour),
		Leeway:            getEnvDurationOrDefault("JWT_LEEWAY", 0),

		DefaultRoles: getEnvListOrDefault("DEFAULT_ROLES", []string{"ROLE_USER"}),
		AcceptBcrypt: getEnvBoolOrDefault("PASSWORD_ACCEPT_BCRYPT", false),

		LoginThrottle:    getEnvBoolOrDefault("LOGIN_THROTTLE", false),
		MaxLoginAttempts: getEnvIntOrDefault("LOGIN_MAX_ATTEMPTS", 5),
		LoginCooldown:    getEnvDurationOrDefault("LOGIN_COOLDOWN", 15*time.Minute),

		RateLimitRequests: getEnvIntOrDefault("RATELIMIT_AUTH_REQUESTS", 10),
		RateLimitWindow:   getEnvDurationOrDefault("RATELIMIT_AUTH_WINDOW", time.Minute),

		AuditEnabled: getEnvBoolOrDefault("AUDIT_ENABLED", true),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go durations ("90s", "1h") or bare integer
// seconds.
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvListOrDefault splits a comma-separated value, dropping empty items.
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
