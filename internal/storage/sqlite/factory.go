package sqlite

import (
	"connection-broker/internal/common/errors"
	"connection-broker/internal/storage"
)

type Factory struct{}

func (f *Factory) Create(config storage.StorageConfig) (storage.Storage, error) {
	switch cfg := config.(type) {
	case *Config:
		return NewAdapter(cfg)
	case storage.GenericConfig:
		return NewAdapter(&Config{
			DatabasePath: cfg.String("path"),
			Encryptor:    cfg.Encryptor(),
		})
	default:
		return nil, errors.ConfigError("invalid config type for SQLite storage")
	}
}

func (f *Factory) GetType() string {
	return "sqlite"
}

func init() {
	storage.Register("sqlite", &Factory{})
}
