package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/common/logging"
	"connection-broker/internal/models"
)

const msgExchangeFailed = "OAuth token exchange failed."

// InitiateOAuth redirects the browser to the CRM authorize page
// @Summary Start CRM OAuth authorization
// @Tags oauth
// @Success 302
// @Failure 400 {object} envelope "Connection is not configured for OAuth"
// @Router /api/bitrix/oauth/initiate/{id} [get]
func (h *Handlers) InitiateOAuth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := h.storage.GetCrmConnection(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if !conn.IsOAuth() {
		writeMessage(w, http.StatusBadRequest, "Connection is not configured for OAuth.")
		return
	}

	state, err := h.states.Issue(ctx, conn.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	http.Redirect(w, r, h.oauth.BuildAuthorizationURL(conn, state), http.StatusFound)
}

// OAuthCallback completes the authorization-code grant and redirects back to
// the frontend with the outcome in the query string.
// @Summary CRM OAuth callback
// @Tags oauth
// @Success 302
// @Router /api/bitrix/oauth/callback [get]
func (h *Handlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.WithContext(ctx)
	query := r.URL.Query()
	state, code, providerErr := query.Get("state"), query.Get("code"), query.Get("error")

	if providerErr != "" {
		id := ""
		if state != "" {
			id, _ = h.states.Verify(ctx, state)
		}
		logger.Warn("OAuth authorization denied", logging.Field{"connection_id", id}, logging.Field{"error", providerErr})
		h.redirectOAuth(w, r, id, "error", providerErr)
		return
	}

	if state == "" || code == "" {
		h.redirectOAuth(w, r, "", "error", "missing_parameters")
		return
	}

	id, err := h.states.Verify(ctx, state)
	if err != nil {
		logger.Warn("OAuth callback rejected", logging.Field{"reason", errors.Message(err)})
		h.redirectOAuth(w, r, "", "error", "invalid_state")
		return
	}

	conn, err := h.storage.GetCrmConnection(ctx, id)
	if err != nil {
		h.redirectOAuth(w, r, "", "error", "connection_not_found")
		return
	}

	if err := h.oauth.ExchangeAuthorizationCode(ctx, conn, code); err != nil {
		h.saveOAuthStatus(r, conn, models.StatusError, msgExchangeFailed)
		h.redirectOAuth(w, r, conn.ID, "error", "token_exchange_failed")
		return
	}

	h.saveOAuthStatus(r, conn, models.StatusConnected, "")
	h.redirectOAuth(w, r, conn.ID, "success", "")
}

// saveOAuthStatus records the grant outcome and keeps the last probe data
func (h *Handlers) saveOAuthStatus(r *http.Request, conn *models.CrmConnection, status models.ConnectionStatus, message string) {
	err := h.storage.SaveCrmStatus(r.Context(), conn.ID, models.CrmStatusUpdate{
		Status:       status,
		CheckedAt:    h.now(),
		ServerTime:   conn.ServerTime,
		Scopes:       conn.AvailableScopes,
		ErrorMessage: message,
	})
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to save OAuth status", err,
			logging.Field{"connection_id", conn.ID},
		)
	}
}

func (h *Handlers) redirectOAuth(w http.ResponseWriter, r *http.Request, connectionID, outcome, message string) {
	target := strings.TrimRight(h.config.FrontendURL, "/") + "/"
	if connectionID != "" {
		target += "settings/" + url.PathEscape(connectionID)
	}

	params := url.Values{"oauth": {outcome}}
	if message != "" {
		params.Set("message", message)
	}
	http.Redirect(w, r, target+"?"+params.Encode(), http.StatusFound)
}
