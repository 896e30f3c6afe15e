// Package crm talks to Bitrix24 portals: it authenticates outbound REST calls
// for webhook and OAuth connections and probes a connection's health.
package crm

import (
	"context"
	"fmt"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/common/logging"
	"connection-broker/internal/models"
)

// TokenRefresher renews OAuth tokens. It is satisfied by *oauth2.Manager.
type TokenRefresher interface {
	IsExpiredOrExpiringSoon(conn *models.CrmConnection) bool
	RefreshAccessToken(ctx context.Context, conn *models.CrmConnection) error
}

// Authenticator derives the REST base URL and auth headers for a connection.
type Authenticator struct {
	tokens TokenRefresher
	logger logging.Logger
}

// NewAuthenticator creates an Authenticator. tokens may be nil when no OAuth
// connections are served, in which case stale tokens are used as-is.
func NewAuthenticator(tokens TokenRefresher, logger logging.Logger) *Authenticator {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Authenticator{tokens: tokens, logger: logger}
}

// WebhookURL returns the REST base of a webhook connection. The result embeds
// the webhook code and must never be logged or returned to clients.
func WebhookURL(conn *models.CrmConnection) string {
	return fmt.Sprintf("%s/rest/%d/%s/", conn.BaseURL(), conn.WebhookUserID, conn.WebhookCode)
}

// BaseURL returns the REST base URL for conn, ending in "/".
//
// For OAuth connections whose token is expired or about to expire it first
// refreshes the token. A failed refresh is logged and the stale token is kept;
// the following REST call then reports the auth failure.
func (a *Authenticator) BaseURL(ctx context.Context, conn *models.CrmConnection) string {
	if !conn.IsOAuth() {
		return WebhookURL(conn)
	}

	if a.tokens != nil && a.tokens.IsExpiredOrExpiringSoon(conn) {
		if err := a.tokens.RefreshAccessToken(ctx, conn); err != nil {
			a.logger.WithContext(ctx).Warn("Token refresh failed, using stored token",
				logging.Field{"connection_id", conn.ID},
				logging.Field{"error", errors.Scrub(errors.Message(err), conn.Secrets()...)},
			)
		}
	}

	return conn.BaseURL() + "/rest/"
}

// Headers returns the auth headers for conn. Webhook connections carry their
// credential in the path and get none.
func (a *Authenticator) Headers(conn *models.CrmConnection) map[string]string {
	if conn.IsOAuth() && conn.AccessToken != "" {
		return map[string]string{"Authorization": "Bearer " + conn.AccessToken}
	}
	return nil
}
