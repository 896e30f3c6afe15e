package storage

import (
	"fmt"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/config"
	"connection-broker/internal/crypto"
)

// NewStorage creates the configured storage adapter. The matching adapter
// package must be imported so its factory is registered.
func NewStorage(cfg *config.Config, encryptor *crypto.SecretEncryptor) (Storage, error) {
	var storageConfig GenericConfig

	switch cfg.DatabaseType {
	case "sqlite":
		storageConfig = GenericConfig{
			"type": "sqlite",
			"path": cfg.DatabasePath,
		}

	case "postgres":
		storageConfig = GenericConfig{
			"type":              "postgres",
			"connection_string": cfg.PostgresDSN(),
		}

	default:
		return nil, errors.ConfigError(fmt.Sprintf("unsupported database type: %s", cfg.DatabaseType))
	}

	storageConfig["encryptor"] = encryptor
	return Create(cfg.DatabaseType, storageConfig)
}

// Encryptor returns the secret encryptor carried by a GenericConfig
func (gc GenericConfig) Encryptor() *crypto.SecretEncryptor {
	enc, _ := gc["encryptor"].(*crypto.SecretEncryptor)
	return enc
}
