package postgres

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
		pgConfig, err := NewConfigFromURL(cfg.GetConnectionString())
		if err != nil {
			return nil, err
		}
		pgConfig.Encryptor = cfg.Encryptor()
		return NewAdapter(pgConfig)
	default:
		return nil, errors.ConfigError("invalid config type for PostgreSQL storage")
	}
}

func (f *Factory) GetType() string {
	return "postgres"
}

func init() {
	storage.Register("postgres", &Factory{})
}
