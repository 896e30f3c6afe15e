package app

import (
	"connection-broker/internal/common/logging"
	"connection-broker/internal/ratelimit"
)

func (app *App) initializeRateLimiter() error {
	if app.Config.LoginRateLimit == 0 {
		app.Logger.Info("Login Rate Limiting: Disabled")
		return nil
	}

	cfg := ratelimit.Config{
		Limit:   app.Config.LoginRateLimit,
		Window:  app.Config.LoginRateWindow,
		Enabled: true,
	}
	logger := app.Logger.WithFields(logging.Field{"component", "ratelimit"})

	var (
		limiter *ratelimit.Limiter
		err     error
		backend = "local"
	)
	if app.RedisClient != nil {
		limiter, err = ratelimit.NewRedisLimiter(app.RedisClient, cfg, logger)
		backend = "redis"
	} else {
		limiter, err = ratelimit.NewLocalLimiter(cfg, logger)
	}
	if err != nil {
		return err
	}

	app.LoginLimiter = limiter
	app.Logger.Info("Login Rate Limiting: Enabled",
		logging.Field{"limit", cfg.Limit},
		logging.Field{"window", cfg.Window.String()},
		logging.Field{"backend", backend},
	)
	return nil
}
