package app

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "connection-broker/docs"
	"connection-broker/internal/common/logging"
	"connection-broker/internal/handlers"
	"connection-broker/internal/middleware"
	"connection-broker/internal/ratelimit"
	"connection-broker/internal/server"
)

// Handler builds the HTTP router with every route registered
func (app *App) Handler() http.Handler {
	h := handlers.New(
		app.Storage,
		app.Auth,
		app.Prober,
		app.OAuthManager,
		app.States,
		app.Dispatcher,
		app.Config,
		app.Logger.WithFields(logging.Field{"component", "http"}),
	)
	if app.RedisClient != nil {
		h.AddHealthCheck("redis", app.RedisClient.Health)
	}
	if app.LoginLimiter != nil {
		h.UseLoginLimiter(app.LoginLimiter.HTTPMiddleware(ratelimit.IPBasedKey))
	}

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)
	h.RegisterRoutes(router)

	// Swagger UI (no auth required)
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	return router
}

// RunServer creates the HTTP server for the application
func (app *App) RunServer() *server.Server {
	return server.New(app.Handler(), app.Config.Port, app.Logger)
}
