package postgres

import (
	"fmt"
	"net/url"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/crypto"
)

type Config struct {
	Host      string
	Port      int
	Database  string
	Username  string
	Password  string
	SSLMode   string
	Encryptor *crypto.SecretEncryptor
}

func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.ConfigError("PostgreSQL host is required")
	}

	if c.Port <= 0 {
		c.Port = 5432
	}

	if c.Database == "" {
		return errors.ConfigError("PostgreSQL database name is required")
	}

	if c.Username == "" {
		return errors.ConfigError("PostgreSQL username is required")
	}

	if c.SSLMode == "" {
		c.SSLMode = "prefer"
	}

	return nil
}

func (c *Config) GetType() string {
	return "postgres"
}

func (c *Config) GetConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// NewConfigFromURL parses a postgres:// URL
func NewConfigFromURL(connStr string) (*Config, error) {
	u, err := url.Parse(connStr)
	if err != nil || u.Path == "" {
		return nil, errors.ConfigError("invalid PostgreSQL URL")
	}

	config := &Config{
		Host:     u.Hostname(),
		Database: u.Path[1:],
		Username: u.User.Username(),
		Port:     5432,
		SSLMode:  "prefer",
	}

	if u.Port() != "" {
		port := 5432
		if _, err := fmt.Sscanf(u.Port(), "%d", &port); err == nil {
			config.Port = port
		}
	}

	if password, ok := u.User.Password(); ok {
		config.Password = password
	}

	if sslMode := u.Query().Get("sslmode"); sslMode != "" {
		config.SSLMode = sslMode
	}

	return config, nil
}

func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		Database: "connection_broker",
		Username: "postgres",
		SSLMode:  "prefer",
	}
}
