package app

import (
	"connection-broker/internal/auth"
	"connection-broker/internal/common/logging"
	"connection-broker/internal/crypto"
	"connection-broker/internal/oauth2"
)

func (app *App) initializeEncryption() error {
	encryptor, err := crypto.NewSecretEncryptor(app.Config.EncryptionKey)
	if err != nil {
		return err
	}

	app.Encryptor = encryptor
	app.Logger.Info("Secret encryption enabled")
	return nil
}

func (app *App) initializeAuth() error {
	var revoked auth.TokenStore
	if app.RedisClient != nil {
		revoked = app.RedisClient
	}

	authInstance, err := auth.New(app.Config, revoked)
	if err != nil {
		return err
	}
	app.Auth = authInstance
	return nil
}

func (app *App) initializeOAuth() {
	var nonces oauth2.NonceStore = oauth2.NewMemoryNonceStore()
	storage := "memory"
	if app.RedisClient != nil {
		nonces = oauth2.NewRedisNonceStore(app.RedisClient)
		storage = "redis"
	}
	app.States = oauth2.NewStateManager(app.Config.JWTSecret, app.Config.OAuthStateTTL, nonces)

	app.OAuthManager = oauth2.NewManager(
		app.crmClient(),
		app.Storage,
		app.Config.BitrixOAuthRedirectURI,
		oauth2.WithLocker(app.Locker),
		oauth2.WithTokenReader(app.Storage),
		oauth2.WithLogger(app.Logger.WithFields(logging.Field{"component", "oauth2"})),
	)

	app.Logger.Info("OAuth2 manager initialized", logging.Field{"state_storage", storage})
}
