package app

import (
	"strconv"
	"time"

	"connection-broker/internal/common/logging"
	"connection-broker/internal/locks"
	"connection-broker/internal/redis"
)

const refreshLockExpiry = 30 * time.Second

func (app *App) initializeRedis() error {
	if app.Config.RedisAddress == "" {
		app.Logger.Info("Redis: Not configured (OAuth state and refresh locks are process-local)")
		return nil
	}

	redisDB, _ := strconv.Atoi(app.Config.RedisDB)

	redisClient, err := redis.NewClient(&redis.Config{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       redisDB,
	})
	if err != nil {
		return err
	}

	app.RedisClient = redisClient
	app.Logger.Info("Redis: Connected", logging.Field{"address", app.Config.RedisAddress})
	return nil
}

func (app *App) initializeLocks() {
	if app.RedisClient != nil {
		locker, err := locks.NewRedsyncLocker(app.RedisClient, refreshLockExpiry)
		if err == nil {
			app.Locker = locker
			app.Logger.Info("Distributed Locks: Enabled")
			return
		}
		app.Logger.Warn("Distributed locks unavailable, using local locks", logging.Field{"error", err.Error()})
	}
	app.Locker = locks.NewLocalLocker()
}
