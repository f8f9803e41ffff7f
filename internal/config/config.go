// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"encoding/base64"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// AllowedOrigin is the single browser origin allowed to make credentialed
	// cross-origin requests (default: "http://localhost:3000").
	AllowedOrigin string

	// TrustedProxies lists CIDRs whose forwarding headers are believed when
	// resolving the client IP.
	TrustedProxies []string

	// MigrationsPath is the directory holding the SQL migration files.
	MigrationsPath string

	// MetricsAddr is the listen address of the Prometheus endpoint. Empty
	// disables the metrics listener.
	MetricsAddr string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Auth holds authentication-related settings.
	Auth AuthConfig

	// SMTP holds outbound mail settings for OTP delivery.
	SMTP SMTPConfig
}

// DatabaseConfig holds MariaDB connection parameters. If DATABASE_URL is set,
// it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	Host string

	User     string
	Password string
	Name     string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. Individual fields
// are formatted through the driver's Config so special characters in
// passwords survive.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.MultiStatements = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// SMTPConfig holds outbound mail settings. An empty Host leaves OTP codes
// in the debug log instead of mailing them.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string

	// Encryption is "starttls", "ssl", or "none".
	Encryption string
}

// AuthConfig holds authentication settings. Longevities are read from the
// environment in whole seconds.
type AuthConfig struct {
	// SecretKey is the base64-encoded HMAC-SHA256 signing secret.
	SecretKey string

	// AccessTokenTTL bounds the lifetime of bearer access tokens.
	AccessTokenTTL time.Duration

	// RefreshTokenTTL bounds the lifetime of the refresh token cookie.
	RefreshTokenTTL time.Duration

	// OTPTTL is how long an issued one-time password stays usable.
	OTPTTL time.Duration

	// BcryptCost is the work factor for password and OTP hashes.
	BcryptCost int

	// SessionLock serializes revoke-then-insert per user through Redis.
	SessionLock bool

	// SessionLockWait is how long a login waits for the per-user lock.
	SessionLockWait time.Duration
}

// SigningKey decodes the base64 secret into raw HMAC key bytes.
func (a AuthConfig) SigningKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(a.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("decoding JWT_SECRET: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("JWT_SECRET is empty")
	}
	return key, nil
}

// devSecret is base64("dev-secret-key-do-not-use-in-production!!").
const devSecret = "ZGV2LXNlY3JldC1rZXktZG8tbm90LXVzZS1pbi1wcm9kdWN0aW9uISE="

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if required variables are missing or malformed.
func Load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "development"),
		Port:           getEnvInt("PORT", 8080),
		LogLevel:       getEnv("LOG_LEVEL", "debug"),
		AllowedOrigin:  getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES", []string{"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "fd00::/8"}),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "db/migrations"),
		MetricsAddr:    getEnv("METRICS_ADDR", ":9100"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "authserver"),
			Password:        getEnv("DB_PASSWORD", "authserver"),
			Name:            getEnv("DB_NAME", "authserver"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Auth: AuthConfig{
			SecretKey:       getEnv("JWT_SECRET", ""),
			AccessTokenTTL:  getEnvSeconds("ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTokenTTL: getEnvSeconds("REFRESH_TOKEN_TTL", 7*24*time.Hour),
			OTPTTL:          getEnvSeconds("OTP_TTL", 5*time.Minute),
			BcryptCost:      getEnvInt("BCRYPT_COST", 10),
			SessionLock:     getEnvBool("SESSION_LOCK", true),
			SessionLockWait: getEnvDuration("SESSION_LOCK_WAIT", 2*time.Second),
		},

		SMTP: SMTPConfig{
			Host:        getEnv("SMTP_HOST", ""),
			Port:        getEnvInt("SMTP_PORT", 587),
			Username:    getEnv("SMTP_USERNAME", ""),
			Password:    getEnv("SMTP_PASSWORD", ""),
			FromAddress: getEnv("SMTP_FROM", "no-reply@localhost"),
			FromName:    getEnv("SMTP_FROM_NAME", "Auth Server"),
			Encryption:  strings.ToLower(getEnv("SMTP_ENCRYPTION", "starttls")),
		},
	}

	if cfg.IsProduction() {
		if cfg.Auth.SecretKey == "" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		key, err := cfg.Auth.SigningKey()
		if err != nil {
			return nil, err
		}
		if len(key) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must decode to at least 32 bytes in production")
		}
	}

	// Dev-only default secret so local dev works without .env.
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = devSecret
	}
	if _, err := cfg.Auth.SigningKey(); err != nil {
		return nil, err
	}

	if cfg.Auth.AccessTokenTTL <= 0 || cfg.Auth.RefreshTokenTTL <= 0 || cfg.Auth.OTPTTL <= 0 {
		return nil, fmt.Errorf("token and OTP longevities must be positive")
	}
	switch cfg.SMTP.Encryption {
	case "starttls", "ssl", "none":
	default:
		return nil, fmt.Errorf("SMTP_ENCRYPTION must be starttls, ssl, or none")
	}

	if cfg.Auth.AccessTokenTTL >= cfg.Auth.RefreshTokenTTL {
		return nil, fmt.Errorf("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL")
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true for "production" and its common spellings.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated env var or returns the default.
func getEnvList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvBool reads a boolean env var ("true", "1", "false", ...) or returns the default.
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvSeconds reads a whole number of seconds or returns the default.
func getEnvSeconds(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "2s") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
