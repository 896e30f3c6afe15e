// Package postgres provides the PostgreSQL credential store
package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/storage/sqldb"
)

type Adapter struct {
	*sqldb.Store
	config *Config
}

func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", config.GetConnectionString())
	if err != nil {
		return nil, errors.InternalError("failed to open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.InternalError("failed to connect to PostgreSQL", err)
	}

	adapter := &Adapter{
		Store:  sqldb.New(db, sqldb.Dollar, config.Encryptor),
		config: config,
	}

	if err := adapter.Migrate(context.Background(), migrations); err != nil {
		db.Close()
		return nil, err
	}

	return adapter, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS crm_connections (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		domain TEXT NOT NULL,
		webhook_user_id INTEGER NOT NULL DEFAULT 0,
		webhook_code TEXT NOT NULL DEFAULT '',
		auth_mode TEXT NOT NULL DEFAULT 'webhook',
		client_id TEXT NOT NULL DEFAULT '',
		client_secret TEXT NOT NULL DEFAULT '',
		access_token TEXT NOT NULL DEFAULT '',
		refresh_token TEXT NOT NULL DEFAULT '',
		token_expires_at TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_status TEXT NOT NULL DEFAULT 'disconnected',
		last_checked_at TIMESTAMPTZ,
		server_time TEXT,
		available_scopes TEXT,
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ai_connections (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT 'gpt-4o',
		api_key TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 1,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_status TEXT NOT NULL DEFAULT 'disconnected',
		last_checked_at TIMESTAMPTZ,
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ai_connections_active_priority
		ON ai_connections(is_active, priority, created_at)`,
}
