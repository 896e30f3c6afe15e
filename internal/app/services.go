package app

import (
	"connection-broker/internal/ai"
	"connection-broker/internal/circuitbreaker"
	commonhttp "connection-broker/internal/common/http"
	"connection-broker/internal/common/logging"
	"connection-broker/internal/crm"
	"connection-broker/internal/models"
)

func (app *App) crmClient() *commonhttp.Client {
	return commonhttp.NewClient(commonhttp.WithTimeout(app.Config.BitrixTimeout))
}

func (app *App) initializeCRM() {
	logger := app.Logger.WithFields(logging.Field{"component", "crm"})
	authenticator := crm.NewAuthenticator(app.OAuthManager, logger)
	app.Prober = crm.NewProber(app.crmClient(), authenticator, app.Storage, logger)
}

func (app *App) initializeAI() {
	logger := app.Logger.WithFields(logging.Field{"component", "ai"})

	registry := ai.Registry{
		models.ProviderOpenAI: ai.NewOpenAIAdapter(ai.OpenAIConfig{
			BaseURL: app.Config.OpenAIBaseURL,
			Timeout: app.Config.OpenAITimeout,
		}, app.Storage, logger),
		models.ProviderAnthropic: ai.NewAnthropicAdapter(ai.AnthropicConfig{
			BaseURL: app.Config.AnthropicBaseURL,
			Timeout: app.Config.AnthropicTimeout,
		}, app.Storage, logger),
	}

	app.Breakers = circuitbreaker.NewManager(circuitbreaker.ProviderConfig, logger)
	app.Dispatcher = ai.NewDispatcher(registry, app.Storage, app.Storage, app.Breakers, logger)
}
