package sqlite

import (
	"connection-broker/internal/common/errors"
	"connection-broker/internal/crypto"
)

type Config struct {
	DatabasePath string
	Encryptor    *crypto.SecretEncryptor
}

func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return errors.ConfigError("database path is required")
	}
	return nil
}

func (c *Config) GetType() string {
	return "sqlite"
}

// GetConnectionString enables foreign keys and a busy timeout so concurrent
// status write-backs wait instead of failing with SQLITE_BUSY
func (c *Config) GetConnectionString() string {
	return "file:" + c.DatabasePath + "?_foreign_keys=on&_busy_timeout=5000"
}

func DefaultConfig() *Config {
	return &Config{
		DatabasePath: "./connection_broker.db",
	}
}
