package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the admin API on router. Everything under /api except
// login and the OAuth callback requires a bearer token.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	var login http.Handler = http.HandlerFunc(h.Login)
	if h.loginGuard != nil {
		login = h.loginGuard(login)
	}
	api.Handle("/auth/login", login).Methods(http.MethodPost)
	api.HandleFunc("/bitrix/oauth/callback", h.OAuthCallback).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(h.auth.RequireAuth)

	protected.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)
	protected.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)

	protected.HandleFunc("/connections", h.ListConnections).Methods(http.MethodGet)
	protected.HandleFunc("/connections", h.CreateConnection).Methods(http.MethodPost)
	protected.HandleFunc("/connections/{id}", h.GetConnection).Methods(http.MethodGet)
	protected.HandleFunc("/connections/{id}", h.UpdateConnection).Methods(http.MethodPut)
	protected.HandleFunc("/connections/{id}", h.DeleteConnection).Methods(http.MethodDelete)
	protected.HandleFunc("/connections/{id}/test", h.TestConnection).Methods(http.MethodPost)
	protected.HandleFunc("/connections/{id}/status", h.ConnectionStatus).Methods(http.MethodGet)

	protected.HandleFunc("/bitrix/oauth/initiate/{id}", h.InitiateOAuth).Methods(http.MethodGet)

	protected.HandleFunc("/ai-connections", h.ListAiConnections).Methods(http.MethodGet)
	protected.HandleFunc("/ai-connections", h.CreateAiConnection).Methods(http.MethodPost)
	protected.HandleFunc("/ai-connections/{id}", h.GetAiConnection).Methods(http.MethodGet)
	protected.HandleFunc("/ai-connections/{id}", h.UpdateAiConnection).Methods(http.MethodPut)
	protected.HandleFunc("/ai-connections/{id}", h.DeleteAiConnection).Methods(http.MethodDelete)
	protected.HandleFunc("/ai-connections/{id}/test", h.TestAiConnection).Methods(http.MethodPost)

	protected.HandleFunc("/ai/chat", h.Chat).Methods(http.MethodPost)
	protected.HandleFunc("/dashboard/status", h.DashboardStatus).Methods(http.MethodGet)
}
