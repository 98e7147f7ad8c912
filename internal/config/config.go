// Package config provides configuration management for the portal admin backend.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Env       string
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Mail      MailConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
	Workflow  WorkflowConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigin      string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	SSLMode        string
	MaxConnections int
}

// URL returns the connection URL used by golang-migrate
func (c PostgresConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// RedisConfig holds Redis configuration. An empty host disables the settings cache.
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// Enabled reports whether Redis is configured
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// ClickHouseConfig holds ClickHouse configuration. An empty host disables the
// ledger event sink.
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// Enabled reports whether ClickHouse is configured
func (c ClickHouseConfig) Enabled() bool {
	return c.Host != ""
}

// AuthConfig holds session token configuration
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration
}

// MailConfig holds SMTP configuration. An empty host logs mails instead of sending them.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	SettingsTTL time.Duration
}

// RateLimitConfig holds per-user API rate limits
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	LoginAttempts     int
	LoginWindow       time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// WorkflowConfig holds settings for the balance workflows and background dispatch
type WorkflowConfig struct {
	Timeout       time.Duration
	NotifyWorkers int
	NotifyQueue   int
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Env: getEnv("APP_ENV", "dev"),
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSOrigin:      getEnv("CORS_ORIGIN", "*"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "portal_admin"),
				User:           getEnv("POSTGRES_USER", "portal"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				SSLMode:        getEnv("POSTGRES_SSLMODE", "disable"),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 25),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", ""),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", ""),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "portal_admin"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			JWTIssuer: getEnv("JWT_ISSUER", "portal-admin"),
			TokenTTL:  getEnvAsDuration("JWT_TTL", 24*time.Hour),
		},
		Mail: MailConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@portal.local"),
		},
		Cache: CacheConfig{
			SettingsTTL: getEnvAsDuration("CACHE_SETTINGS_TTL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsInt("RATE_LIMIT_RPS", 20),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 40),
			LoginAttempts:     getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
			LoginWindow:       getEnvAsDuration("LOGIN_WINDOW", 15*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Workflow: WorkflowConfig{
			Timeout:       getEnvAsDuration("WORKFLOW_TIMEOUT", 10*time.Second),
			NotifyWorkers: getEnvAsInt("NOTIFY_WORKERS", 2),
			NotifyQueue:   getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks settings that have no safe default
func (c *Config) Validate() error {
	var problems []string

	if c.Auth.JWTSecret == "" {
		if c.Env != "dev" {
			problems = append(problems, "JWT_SECRET is required outside dev")
		} else {
			c.Auth.JWTSecret = "dev-insecure-secret"
		}
	}
	if c.Auth.TokenTTL <= 0 {
		problems = append(problems, "JWT_TTL must be positive")
	}
	if c.Database.Postgres.MaxConnections <= 0 {
		problems = append(problems, "POSTGRES_MAX_CONNECTIONS must be positive")
	}
	if c.Workflow.Timeout <= 0 {
		problems = append(problems, "WORKFLOW_TIMEOUT must be positive")
	}
	if c.Workflow.NotifyWorkers <= 0 {
		problems = append(problems, "NOTIFY_WORKERS must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
