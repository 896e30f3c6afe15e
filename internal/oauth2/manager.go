package oauth2

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"connection-broker/internal/common/errors"
	commonhttp "connection-broker/internal/common/http"
	"connection-broker/internal/common/logging"
	"connection-broker/internal/locks"
	"connection-broker/internal/models"
)

const (
	// ExpiryMargin is how long before the recorded expiry a token is treated as expired
	ExpiryMargin = 5 * time.Minute
	// DefaultExpiresIn is assumed when the token endpoint omits expires_in
	DefaultExpiresIn = 3600
)

// TokenResponse is the CRM token endpoint response body
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
	MemberID     string `json:"member_id,omitempty"`
}

// TokenErrorResponse is the body of a rejected grant
type TokenErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// TokenWriter persists a token set granted for a CRM connection
type TokenWriter interface {
	SaveCrmTokens(ctx context.Context, connectionID string, tokens models.OAuthTokens) error
}

// TokenReader loads the current stored record for a CRM connection
type TokenReader interface {
	GetCrmConnection(ctx context.Context, id string) (*models.CrmConnection, error)
}

// Manager performs the authorization-code and refresh-token grants against a
// CRM portal and tracks token expiry. Tokens are persisted through the
// TokenWriter only after a successful grant; a failed grant writes nothing.
type Manager struct {
	client      *commonhttp.Client
	writer      TokenWriter
	reader      TokenReader
	redirectURI string
	locker      locks.Locker
	logger      logging.Logger
	now         func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithLocker serializes refresh grants per connection
func WithLocker(locker locks.Locker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithTokenReader lets a refresh that waited on the lock pick up tokens
// another holder already granted instead of spending a rotated refresh token.
func WithTokenReader(reader TokenReader) Option {
	return func(m *Manager) {
		m.reader = reader
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a token manager.
//
// Parameters:
//   - client: HTTP client bounded by the CRM timeout
//   - writer: Persists granted tokens
//   - redirectURI: The redirect URI registered with the CRM application
func NewManager(client *commonhttp.Client, writer TokenWriter, redirectURI string, opts ...Option) *Manager {
	m := &Manager{
		client:      client,
		writer:      writer,
		redirectURI: redirectURI,
		logger:      logging.GetGlobalLogger(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BuildAuthorizationURL returns the portal's consent URL for conn. The state
// value is echoed back on the callback and must identify conn.
func (m *Manager) BuildAuthorizationURL(conn *models.CrmConnection, state string) string {
	params := url.Values{}
	params.Set("client_id", conn.ClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", m.redirectURI)
	params.Set("state", state)

	return conn.BaseURL() + "/oauth/authorize/?" + params.Encode()
}

// ExchangeAuthorizationCode trades an authorization code for tokens and
// persists them. On success conn carries the new tokens.
func (m *Manager) ExchangeAuthorizationCode(ctx context.Context, conn *models.CrmConnection, code string) error {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", conn.ClientID)
	form.Set("client_secret", conn.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", m.redirectURI)

	tokens, err := m.requestToken(ctx, conn, form, code)
	if err != nil {
		m.logger.Error("OAuth token exchange failed", err,
			logging.Field{"connection_id", conn.ID},
		)
		return err
	}

	return m.persist(ctx, conn, tokens)
}

// RefreshAccessToken runs the refresh-token grant and persists the result.
// It fails without a network call when no refresh token is stored.
func (m *Manager) RefreshAccessToken(ctx context.Context, conn *models.CrmConnection) error {
	if conn.RefreshToken == "" {
		return errors.ConfigError("no refresh token stored")
	}

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, "oauth2:refresh:"+conn.ID)
		if err != nil {
			return err
		}
		defer unlock()

		done, err := m.adoptStoredTokens(ctx, conn)
		if err != nil || done {
			return err
		}
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", conn.ClientID)
	form.Set("client_secret", conn.ClientSecret)
	form.Set("refresh_token", conn.RefreshToken)

	tokens, err := m.requestToken(ctx, conn, form)
	if err != nil {
		m.logger.Warn("OAuth token refresh failed",
			logging.Field{"connection_id", conn.ID},
			logging.Field{"error", errors.Message(err)},
		)
		return err
	}

	if tokens.RefreshToken == "" {
		tokens.RefreshToken = conn.RefreshToken
	}

	return m.persist(ctx, conn, tokens)
}

// adoptStoredTokens re-reads conn under the refresh lock. A fresh stored
// access token means another holder already refreshed, so conn takes the
// stored tokens and no grant is needed. A rotated but stale stored pair is
// copied onto conn so the grant spends the current refresh token.
func (m *Manager) adoptStoredTokens(ctx context.Context, conn *models.CrmConnection) (bool, error) {
	if m.reader == nil {
		return false, nil
	}

	stored, err := m.reader.GetCrmConnection(ctx, conn.ID)
	if err != nil {
		return false, errors.InternalError("failed to reload OAuth tokens", err)
	}
	if stored.RefreshToken == "" || stored.TokenExpiresAt == nil {
		return false, nil
	}

	fresh := !m.IsExpiredOrExpiringSoon(stored)
	if !fresh && stored.RefreshToken == conn.RefreshToken {
		return false, nil
	}

	conn.ApplyTokens(models.OAuthTokens{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		ExpiresAt:    *stored.TokenExpiresAt,
	})
	if fresh {
		m.logger.Debug("OAuth tokens already refreshed by another holder",
			logging.Field{"connection_id", conn.ID},
		)
	}
	return fresh, nil
}

// IsExpiredOrExpiringSoon reports whether conn's access token is missing an
// expiry or is within ExpiryMargin of it.
func (m *Manager) IsExpiredOrExpiringSoon(conn *models.CrmConnection) bool {
	if conn.TokenExpiresAt == nil {
		return true
	}
	return !m.now().Before(conn.TokenExpiresAt.Add(-ExpiryMargin))
}

func (m *Manager) persist(ctx context.Context, conn *models.CrmConnection, tokens models.OAuthTokens) error {
	if err := m.writer.SaveCrmTokens(ctx, conn.ID, tokens); err != nil {
		return errors.InternalError("failed to persist OAuth tokens", err)
	}
	conn.ApplyTokens(tokens)
	return nil
}

// requestToken posts a grant to the token endpoint. extraSecrets are scrubbed
// from any message built from the response.
func (m *Manager) requestToken(ctx context.Context, conn *models.CrmConnection, form url.Values, extraSecrets ...string) (models.OAuthTokens, error) {
	resp, err := m.client.PostForm(ctx, conn.BaseURL()+"/oauth/token/", form, nil)
	if err != nil {
		return models.OAuthTokens{}, err
	}

	secrets := append(conn.Secrets(), extraSecrets...)

	if !resp.Successful() {
		var errResp TokenErrorResponse
		msg := fmt.Sprintf("token request failed with status %d", resp.StatusCode)
		if resp.DecodeJSON(&errResp) == nil && errResp.Error != "" {
			msg = fmt.Sprintf("token request failed: %s", errResp.Error)
			if errResp.Description != "" {
				msg += " - " + errResp.Description
			}
		}
		return models.OAuthTokens{}, errors.ProtocolError(errors.Scrub(msg, secrets...), resp.StatusCode).
			WithCode(errResp.Error)
	}

	var tokenResp TokenResponse
	if err := resp.DecodeJSON(&tokenResp); err != nil {
		return models.OAuthTokens{}, errors.ProtocolError("failed to decode token response", resp.StatusCode)
	}
	if tokenResp.AccessToken == "" {
		return models.OAuthTokens{}, errors.ProtocolError("token response has no access_token", resp.StatusCode)
	}

	expiresIn := tokenResp.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = DefaultExpiresIn
	}

	return models.OAuthTokens{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresAt:    m.now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}
