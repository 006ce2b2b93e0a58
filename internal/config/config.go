package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters. Signing keys are versioned:
// each entry is kid:secret, and the key id travels in the credential header so
// keys can rotate without invalidating outstanding sessions at once. Access
// and refresh keysets are disjoint.
type AuthConfig struct {
	AccessKeys            map[string]string
	AccessActiveKID       string
	RefreshKeys           map[string]string
	RefreshActiveKID      string
	AccessTokenTTLMinutes int
	RefreshTokenTTLDays   int
	BcryptCost            int
}

// RateLimitConfig controls limiter housekeeping.
type RateLimitConfig struct {
	SweepIntervalMinutes int
}

// AuditConfig holds the audit/notification sink endpoints.
type AuditConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	accessKeys, err := parseKeyList(getEnv("AUTH_ACCESS_KEYS", "v1:dev-access-secret"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_ACCESS_KEYS: %w", err)
	}
	refreshKeys, err := parseKeyList(getEnv("AUTH_REFRESH_KEYS", "v1:dev-refresh-secret"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_REFRESH_KEYS: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "attendance-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			AccessKeys:            accessKeys,
			AccessActiveKID:       getEnv("AUTH_ACCESS_ACTIVE_KID", "v1"),
			RefreshKeys:           refreshKeys,
			RefreshActiveKID:      getEnv("AUTH_REFRESH_ACTIVE_KID", "v1"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 15),
			RefreshTokenTTLDays:   getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_DAYS", 7),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		RateLimit: RateLimitConfig{
			SweepIntervalMinutes: getEnvAsInt("RATE_LIMIT_SWEEP_INTERVAL_MINUTES", 10),
		},
		Audit: AuditConfig{
			EmailFrom:  getEnv("AUDIT_EMAIL_FROM", "security@example.com"),
			WebhookURL: getEnv("AUDIT_WEBHOOK_URL", ""),
		},
	}

	if _, ok := cfg.Auth.AccessKeys[cfg.Auth.AccessActiveKID]; !ok {
		return nil, fmt.Errorf("AUTH_ACCESS_ACTIVE_KID %q not present in AUTH_ACCESS_KEYS", cfg.Auth.AccessActiveKID)
	}
	if _, ok := cfg.Auth.RefreshKeys[cfg.Auth.RefreshActiveKID]; !ok {
		return nil, fmt.Errorf("AUTH_REFRESH_ACTIVE_KID %q not present in AUTH_REFRESH_KEYS", cfg.Auth.RefreshActiveKID)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the fixed access credential validity window.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	if a.AccessTokenTTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh credential validity window.
func (a AuthConfig) RefreshTokenTTL() time.Duration {
	if a.RefreshTokenTTLDays <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(a.RefreshTokenTTLDays) * 24 * time.Hour
}

// SweepInterval returns the limiter/registry cleanup cadence.
func (r RateLimitConfig) SweepInterval() time.Duration {
	if r.SweepIntervalMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(r.SweepIntervalMinutes) * time.Minute
}

// parseKeyList parses "kid:secret[,kid:secret...]" into a keyset map.
func parseKeyList(raw string) (map[string]string, error) {
	keys := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kid, secret, ok := strings.Cut(part, ":")
		if !ok || kid == "" || secret == "" {
			return nil, fmt.Errorf("malformed key entry %q", part)
		}
		keys[kid] = secret
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no signing keys configured")
	}
	return keys, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
