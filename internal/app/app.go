package app

import (
	"context"

	"connection-broker/internal/ai"
	"connection-broker/internal/auth"
	"connection-broker/internal/circuitbreaker"
	"connection-broker/internal/common/logging"
	"connection-broker/internal/config"
	"connection-broker/internal/crm"
	"connection-broker/internal/crypto"
	"connection-broker/internal/locks"
	"connection-broker/internal/oauth2"
	"connection-broker/internal/ratelimit"
	"connection-broker/internal/redis"
	"connection-broker/internal/storage"
)

// App holds all the application dependencies
type App struct {
	Config       *config.Config
	Storage      storage.Storage
	Encryptor    *crypto.SecretEncryptor
	RedisClient  *redis.Client
	Locker       locks.Locker
	Auth         *auth.Auth
	OAuthManager *oauth2.Manager
	States       *oauth2.StateManager
	Prober       *crm.Prober
	Dispatcher   *ai.Dispatcher
	Breakers     *circuitbreaker.Manager
	LoginLimiter *ratelimit.Limiter
	Logger       logging.Logger
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.Field{"component", "app"}),
	}

	if err := app.initializeEncryption(); err != nil {
		return nil, err
	}

	if err := app.initializeStorage(); err != nil {
		return nil, err
	}

	if err := app.initializeRedis(); err != nil {
		// Redis is optional, just log the error
		app.Logger.Warn("Redis initialization failed, continuing without Redis",
			logging.Field{"error", err.Error()})
		app.RedisClient = nil
	}
	app.initializeLocks()

	if err := app.initializeRateLimiter(); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializeAuth(); err != nil {
		app.Cleanup()
		return nil, err
	}

	app.initializeOAuth()
	app.initializeCRM()
	app.initializeAI()

	return app, nil
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown(ctx context.Context) error {
	if app.Breakers == nil {
		return nil
	}
	for _, stats := range app.Breakers.AllStats() {
		app.Logger.Info("Circuit breaker state at shutdown",
			logging.Field{"name", stats.Name},
			logging.Field{"state", stats.State},
			logging.Field{"failures", stats.Failures},
		)
	}
	return nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Storage != nil {
		app.Storage.Close()
	}
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
