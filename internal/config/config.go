// Package config provides configuration management for the connection broker.
// It loads configuration from environment variables with sensible defaults and
// validates it so the application refuses to start in an unsafe state.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - FRONTEND_URL: Base URL the OAuth callback redirects to (default: http://localhost)
//
// Database Configuration:
//   - DATABASE_TYPE: "sqlite" or "postgres" (default: sqlite)
//   - DATABASE_PATH: SQLite database file path (default: ./connection_broker.db)
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB, POSTGRES_USER,
//     POSTGRES_PASSWORD, POSTGRES_SSL_MODE: PostgreSQL connection settings
//
// Redis Configuration (optional, enables single-use OAuth state and refresh locks):
//   - REDIS_ADDRESS: Redis server address (default: empty, Redis disabled)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//
// Security Configuration:
//   - JWT_SECRET: Signing secret for admin tokens and OAuth state (required, minimum 32 characters)
//   - ENCRYPTION_KEY: Key for encrypting stored secrets (required, exactly 32 characters)
//   - ADMIN_USERNAME, ADMIN_PASSWORD: Admin console credentials (password required)
//   - LOGIN_RATE_LIMIT: Login attempts allowed per client per window, 0 disables (default: 10)
//   - LOGIN_RATE_WINDOW: Login rate limit window in seconds (default: 60)
//
// CRM Configuration:
//   - BITRIX_TIMEOUT: CRM request timeout in seconds (default: 10)
//   - BITRIX_OAUTH_REDIRECT_URI: OAuth redirect URI registered with the CRM
//     (default: http://localhost/api/bitrix/oauth/callback)
//   - OAUTH_STATE_TTL: Lifetime of an OAuth state value in seconds (default: 600)
//
// AI Provider Configuration:
//   - OPENAI_TIMEOUT: OpenAI request timeout in seconds (default: 30)
//   - ANTHROPIC_TIMEOUT: Anthropic request timeout in seconds (default: 60)
//   - OPENAI_BASE_URL, ANTHROPIC_BASE_URL: Endpoint overrides for proxies
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the connection broker.
type Config struct {
	// Application settings
	Port        string
	LogLevel    string
	FrontendURL string

	// Database configuration
	DatabaseType     string
	DatabasePath     string
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string

	// Redis configuration
	RedisAddress  string
	RedisPassword string
	RedisDB       string

	// Security configuration
	JWTSecret     string
	EncryptionKey string
	AdminUsername string
	AdminPassword string

	// Login throttling
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// CRM configuration
	BitrixTimeout          time.Duration
	BitrixOAuthRedirectURI string
	OAuthStateTTL          time.Duration

	// AI provider configuration
	OpenAITimeout    time.Duration
	AnthropicTimeout time.Duration
	OpenAIBaseURL    string
	AnthropicBaseURL string
}

// Load creates a new Config from environment variables. Unset variables take
// their default. Load does not validate; call Validate on the result.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost"),

		DatabaseType:     getEnv("DATABASE_TYPE", "sqlite"),
		DatabasePath:     getEnv("DATABASE_PATH", "./connection_broker.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:       getEnv("POSTGRES_DB", "connection_broker"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		LoginRateLimit:  getIntEnv("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: getSecondsEnv("LOGIN_RATE_WINDOW", time.Minute),

		BitrixTimeout:          getSecondsEnv("BITRIX_TIMEOUT", 10*time.Second),
		BitrixOAuthRedirectURI: getEnv("BITRIX_OAUTH_REDIRECT_URI", "http://localhost/api/bitrix/oauth/callback"),
		OAuthStateTTL:          getSecondsEnv("OAUTH_STATE_TTL", 10*time.Minute),

		OpenAITimeout:    getSecondsEnv("OPENAI_TIMEOUT", 30*time.Second),
		AnthropicTimeout: getSecondsEnv("ANTHROPIC_TIMEOUT", 60*time.Second),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv reads an integer. Unparseable values yield -1 so Validate can
// report them.
func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return n
}

// getSecondsEnv reads a whole number of seconds. Unparseable values yield -1s
// so Validate can report them.
func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return -time.Second
	}
	return time.Duration(seconds) * time.Second
}

// Validate checks required fields, formats and cross-field dependencies.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long for security")
	}

	if c.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY environment variable is required")
	}
	if len(c.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 characters (256 bits)")
	}

	if c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD environment variable is required")
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	switch c.DatabaseType {
	case "sqlite":
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required when using SQLite")
		}
	case "postgres", "postgresql":
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when using PostgreSQL")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required when using PostgreSQL")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required when using PostgreSQL")
		}
		if port, err := strconv.Atoi(c.PostgresPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("POSTGRES_PORT must be a valid port number")
		}
	default:
		return fmt.Errorf("DATABASE_TYPE must be 'sqlite' or 'postgres'")
	}

	if c.RedisAddress != "" {
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
	}

	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"BITRIX_TIMEOUT", c.BitrixTimeout},
		{"OPENAI_TIMEOUT", c.OpenAITimeout},
		{"ANTHROPIC_TIMEOUT", c.AnthropicTimeout},
		{"OAUTH_STATE_TTL", c.OAuthStateTTL},
		{"LOGIN_RATE_WINDOW", c.LoginRateWindow},
	}
	for _, t := range timeouts {
		if t.value <= 0 {
			return fmt.Errorf("%s must be a positive number of seconds", t.name)
		}
	}

	if c.LoginRateLimit < 0 {
		return fmt.Errorf("LOGIN_RATE_LIMIT must be zero or a positive number")
	}

	if _, err := url.ParseRequestURI(c.BitrixOAuthRedirectURI); err != nil {
		return fmt.Errorf("BITRIX_OAUTH_REDIRECT_URI must be an absolute URL")
	}

	for name, value := range map[string]string{"OPENAI_BASE_URL": c.OpenAIBaseURL, "ANTHROPIC_BASE_URL": c.AnthropicBaseURL} {
		if value == "" {
			continue
		}
		if _, err := url.ParseRequestURI(value); err != nil {
			return fmt.Errorf("%s must be an absolute URL", name)
		}
	}

	return nil
}

// PostgresDSN returns the pgx connection string
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.PostgresUser),
		url.QueryEscape(c.PostgresPassword),
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
		c.PostgresSSLMode)
}
