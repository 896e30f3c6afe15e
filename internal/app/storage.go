package app

import (
	"connection-broker/internal/common/errors"
	"connection-broker/internal/common/logging"
	"connection-broker/internal/storage"

	// Register storage backends with the default registry
	_ "connection-broker/internal/storage/postgres"
	_ "connection-broker/internal/storage/sqlite"
)

func (app *App) initializeStorage() error {
	switch app.Config.DatabaseType {
	case "postgres", "postgresql":
		app.Logger.Info("Database: PostgreSQL",
			logging.Field{"host", app.Config.PostgresHost},
			logging.Field{"port", app.Config.PostgresPort},
			logging.Field{"database", app.Config.PostgresDB},
		)
	default:
		app.Logger.Info("Database: SQLite", logging.Field{"path", app.Config.DatabasePath})
	}

	store, err := storage.NewStorage(app.Config, app.Encryptor)
	if err != nil {
		return errors.InternalError("failed to initialize storage", err)
	}

	app.Storage = store
	return nil
}
