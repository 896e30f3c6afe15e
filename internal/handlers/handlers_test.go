package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connection-broker/internal/auth"
	"connection-broker/internal/common/errors"
	"connection-broker/internal/common/logging"
	"connection-broker/internal/config"
	"connection-broker/internal/crypto"
	"connection-broker/internal/models"
	"connection-broker/internal/oauth2"
	"connection-broker/internal/storage/sqlite"
)

const testJWTSecret = "handlers-test-secret-at-least-32-chars"

type fakeProber struct {
	mu     sync.Mutex
	seen   []*models.CrmConnection
	result models.ConnectionTestResult
}

func (f *fakeProber) TestConnection(ctx context.Context, conn *models.CrmConnection) models.ConnectionTestResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, conn)
	return f.result
}

type fakeOAuth struct {
	codes []string
	err   error
}

func (f *fakeOAuth) BuildAuthorizationURL(conn *models.CrmConnection, state string) string {
	return conn.BaseURL() + "/oauth/authorize/?" + url.Values{"state": {state}}.Encode()
}

func (f *fakeOAuth) ExchangeAuthorizationCode(ctx context.Context, conn *models.CrmConnection, code string) error {
	f.codes = append(f.codes, code)
	return f.err
}

type fakeBroker struct {
	reply     string
	err       error
	messages  []models.ChatMessage
	forgotten []string
	result    models.ConnectionTestResult
}

func (f *fakeBroker) Dispatch(ctx context.Context, messages []models.ChatMessage) (string, error) {
	f.messages = messages
	return f.reply, f.err
}

func (f *fakeBroker) TestConnection(ctx context.Context, conn *models.AiConnection) models.ConnectionTestResult {
	return f.result
}

func (f *fakeBroker) Forget(id string) {
	f.forgotten = append(f.forgotten, id)
}

type fixture struct {
	t        *testing.T
	handlers *Handlers
	router   *mux.Router
	store    *sqlite.Adapter
	prober   *fakeProber
	oauth    *fakeOAuth
	broker   *fakeBroker
	token    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	enc, err := crypto.NewSecretEncryptor("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	store, err := sqlite.NewAdapter(&sqlite.Config{
		DatabasePath: filepath.Join(t.TempDir(), "handlers.db"),
		Encryptor:    enc,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{
		FrontendURL:   "http://frontend.local/",
		JWTSecret:     testJWTSecret,
		AdminUsername: "admin",
		AdminPassword: "s3cret-pass",
	}
	authService, err := auth.New(cfg, nil)
	require.NoError(t, err)

	f := &fixture{
		t:      t,
		store:  store,
		prober: &fakeProber{result: models.ConnectionTestResult{Status: models.StatusConnected, Message: "ok"}},
		oauth:  &fakeOAuth{},
		broker: &fakeBroker{},
	}
	states := oauth2.NewStateManager(testJWTSecret, oauth2.DefaultStateTTL, oauth2.NewMemoryNonceStore())
	f.handlers = New(store, authService, f.prober, f.oauth, states, f.broker, cfg, logging.NewNopLogger())
	f.router = mux.NewRouter()
	f.handlers.RegisterRoutes(f.router)

	f.token, _, err = authService.Login("admin", "s3cret-pass")
	require.NoError(t, err)
	return f
}

func (f *fixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

type response struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

func (f *fixture) createWebhookConnection() models.CrmConnectionAPI {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/connections", map[string]interface{}{
		"name":           "Main portal",
		"domain":         "portal.bitrix24.com",
		"bitrix_user_id": 1,
		"webhook_code":   "whsecret123",
	})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	var conn models.CrmConnectionAPI
	decodeResponse(f.t, rec, &conn)
	return conn
}

func (f *fixture) createOAuthConnection() models.CrmConnectionAPI {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/connections", map[string]interface{}{
		"name":           "OAuth portal",
		"domain":         "https://oauth.bitrix24.com/",
		"bitrix_user_id": 1,
		"auth_type":      "oauth",
		"client_id":      "local.abc",
		"client_secret":  "client-secret-xyz",
	})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	var conn models.CrmConnectionAPI
	decodeResponse(f.t, rec, &conn)
	return conn
}

func TestRoutes_RequireAuth(t *testing.T) {
	f := newFixture(t)
	f.token = ""

	for _, path := range []string{"/api/connections", "/api/ai-connections", "/api/dashboard/status", "/api/auth/me"} {
		rec := f.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.token = ""

	rec := f.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login loginResponse
	decodeResponse(t, rec, &login)
	assert.NotEmpty(t, login.Token)
	assert.NotEmpty(t, login.ExpiresAt)

	f.token = login.Token
	rec = f.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me meResponse
	decodeResponse(t, rec, &me)
	assert.Equal(t, "admin", me.Username)

	f.token = ""
	rec = f.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials.", decodeResponse(t, rec, nil).Message)

	rec = f.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestConnections_CRUD(t *testing.T) {
	f := newFixture(t)

	created := f.createWebhookConnection()
	assert.Equal(t, models.AuthModeWebhook, created.AuthType)
	assert.Equal(t, models.StatusDisconnected, created.LastStatus)
	assert.True(t, created.IsActive)
	assert.False(t, created.OAuthConnected)

	rec := f.do(http.MethodGet, "/api/connections/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "whsecret123")

	rec = f.do(http.MethodPut, "/api/connections/"+created.ID, map[string]interface{}{
		"name":           "Renamed",
		"domain":         "portal.bitrix24.com",
		"bitrix_user_id": 2,
		"is_active":      false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.CrmConnectionAPI
	resp := decodeResponse(t, rec, &updated)
	assert.Equal(t, "Connection updated successfully.", resp.Message)
	assert.Equal(t, "Renamed", updated.Name)
	assert.False(t, updated.IsActive)

	stored, err := f.store.GetCrmConnection(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "whsecret123", stored.WebhookCode)

	rec = f.do(http.MethodGet, "/api/connections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.CrmConnectionAPI
	decodeResponse(t, rec, &list)
	assert.Len(t, list, 1)

	rec = f.do(http.MethodDelete, "/api/connections/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/connections/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CRM connection not found.", decodeResponse(t, rec, nil).Message)
}

func TestConnections_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		body    map[string]interface{}
		message string
	}{
		{
			name:    "webhook without code",
			body:    map[string]interface{}{"name": "x", "domain": "x.bitrix24.com", "bitrix_user_id": 1},
			message: "Webhook code is required.",
		},
		{
			name:    "oauth without secret",
			body:    map[string]interface{}{"name": "x", "domain": "x.bitrix24.com", "bitrix_user_id": 1, "auth_type": "oauth", "client_id": "app"},
			message: "OAuth Client Secret is required.",
		},
		{
			name:    "oauth without client id",
			body:    map[string]interface{}{"name": "x", "domain": "x.bitrix24.com", "bitrix_user_id": 1, "auth_type": "oauth", "client_secret": "s"},
			message: "field 'client_id' is required",
		},
		{
			name:    "missing user id",
			body:    map[string]interface{}{"name": "x", "domain": "x.bitrix24.com", "webhook_code": "c"},
			message: "field 'bitrix_user_id' is required",
		},
		{
			name:    "unknown auth type",
			body:    map[string]interface{}{"name": "x", "domain": "x.bitrix24.com", "bitrix_user_id": 1, "auth_type": "basic", "webhook_code": "c"},
			message: "field 'auth_type' must be one of: webhook oauth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/connections", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, tt.message, decodeResponse(t, rec, nil).Message)
		})
	}
}

func TestConnections_TestAndStatus(t *testing.T) {
	f := newFixture(t)
	created := f.createWebhookConnection()

	hasTask := true
	f.prober.result = models.ConnectionTestResult{
		Status:       models.StatusConnected,
		Message:      "Connection successful. Task scope is available.",
		Scopes:       []string{"crm", "task"},
		HasTaskScope: &hasTask,
	}

	rec := f.do(http.MethodPost, "/api/connections/"+created.ID+"/test", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.ConnectionTestResult
	decodeResponse(t, rec, &result)
	assert.Equal(t, models.StatusConnected, result.Status)
	require.NotNil(t, result.HasTaskScope)
	assert.True(t, *result.HasTaskScope)

	require.Len(t, f.prober.seen, 1)
	assert.Equal(t, "whsecret123", f.prober.seen[0].WebhookCode, "probe receives decrypted secrets")

	rec = f.do(http.MethodGet, "/api/connections/"+created.ID+"/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status models.CrmStatusAPI
	decodeResponse(t, rec, &status)
	assert.Equal(t, created.ID, status.ID)
	assert.Equal(t, models.StatusDisconnected, status.Status)

	rec = f.do(http.MethodPost, "/api/connections/missing/test", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOAuth_InitiateRejectsWebhookConnection(t *testing.T) {
	f := newFixture(t)
	created := f.createWebhookConnection()

	rec := f.do(http.MethodGet, "/api/bitrix/oauth/initiate/"+created.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Connection is not configured for OAuth.", decodeResponse(t, rec, nil).Message)
}

func (f *fixture) initiate(id string) string {
	f.t.Helper()
	rec := f.do(http.MethodGet, "/api/bitrix/oauth/initiate/"+id, nil)
	require.Equal(f.t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(f.t, err)
	assert.Equal(f.t, "oauth.bitrix24.com", location.Host)
	state := location.Query().Get("state")
	require.NotEmpty(f.t, state)
	assert.NotEqual(f.t, id, state, "state is signed, not the raw id")
	return state
}

func TestOAuth_CallbackSuccess(t *testing.T) {
	f := newFixture(t)
	created := f.createOAuthConnection()
	state := f.initiate(created.ID)

	f.token = ""
	rec := f.do(http.MethodGet, "/api/bitrix/oauth/callback?"+url.Values{"state": {state}, "code": {"auth-code"}}.Encode(), nil)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://frontend.local/settings/"+created.ID+"?oauth=success", rec.Header().Get("Location"))
	assert.Equal(t, []string{"auth-code"}, f.oauth.codes)

	stored, err := f.store.GetCrmConnection(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConnected, stored.LastStatus)
	assert.NotNil(t, stored.LastCheckedAt)

	rec = f.do(http.MethodGet, "/api/bitrix/oauth/callback?"+url.Values{"state": {state}, "code": {"auth-code"}}.Encode(), nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://frontend.local/?message=invalid_state&oauth=error", rec.Header().Get("Location"))
	assert.Len(t, f.oauth.codes, 1, "replayed state never reaches the token endpoint")
}

func TestOAuth_CallbackExchangeFailure(t *testing.T) {
	f := newFixture(t)
	created := f.createOAuthConnection()
	state := f.initiate(created.ID)
	f.oauth.err = errors.ProtocolError("token request failed: invalid_grant", http.StatusBadRequest)

	rec := f.do(http.MethodGet, "/api/bitrix/oauth/callback?"+url.Values{"state": {state}, "code": {"bad"}}.Encode(), nil)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://frontend.local/settings/"+created.ID+"?message=token_exchange_failed&oauth=error", rec.Header().Get("Location"))

	stored, err := f.store.GetCrmConnection(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, stored.LastStatus)
	assert.Equal(t, "OAuth token exchange failed.", stored.ErrorMessage)
}

func TestOAuth_CallbackEdgeCases(t *testing.T) {
	f := newFixture(t)
	created := f.createOAuthConnection()

	tests := []struct {
		name     string
		query    func() url.Values
		location string
	}{
		{
			name:     "missing code",
			query:    func() url.Values { return url.Values{"state": {"x"}} },
			location: "http://frontend.local/?message=missing_parameters&oauth=error",
		},
		{
			name:     "raw connection id as state",
			query:    func() url.Values { return url.Values{"state": {created.ID}, "code": {"c"}} },
			location: "http://frontend.local/?message=invalid_state&oauth=error",
		},
		{
			name: "provider denied",
			query: func() url.Values {
				return url.Values{"state": {f.initiate(created.ID)}, "error": {"access_denied"}}
			},
			location: "http://frontend.local/settings/" + created.ID + "?message=access_denied&oauth=error",
		},
		{
			name:     "provider error without state",
			query:    func() url.Values { return url.Values{"error": {"access_denied"}} },
			location: "http://frontend.local/?message=access_denied&oauth=error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query()
			rec := f.do(http.MethodGet, "/api/bitrix/oauth/callback?"+q.Encode(), nil)
			require.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}
	assert.Empty(t, f.oauth.codes)
}

func TestOAuth_CallbackDeletedConnection(t *testing.T) {
	f := newFixture(t)
	created := f.createOAuthConnection()
	state := f.initiate(created.ID)
	require.NoError(t, f.store.DeleteCrmConnection(context.Background(), created.ID))

	rec := f.do(http.MethodGet, "/api/bitrix/oauth/callback?"+url.Values{"state": {state}, "code": {"c"}}.Encode(), nil)

	assert.Equal(t, "http://frontend.local/?message=connection_not_found&oauth=error", rec.Header().Get("Location"))
}

func TestAiConnections_CRUD(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/ai-connections", map[string]interface{}{
		"name":     "Primary",
		"provider": "openai",
		"api_key":  "sk-live-abc",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "sk-live-abc")
	var created models.AiConnectionAPI
	decodeResponse(t, rec, &created)
	assert.Equal(t, models.DefaultModel, created.Model)
	assert.Equal(t, models.DefaultPriority, created.Priority)
	assert.Equal(t, "OpenAI", created.ProviderLabel)
	assert.True(t, created.IsActive)

	rec = f.do(http.MethodPut, "/api/ai-connections/"+created.ID, map[string]interface{}{
		"name":     "Primary",
		"provider": "anthropic",
		"model":    "claude-3-5-sonnet-latest",
		"priority": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.AiConnectionAPI
	decodeResponse(t, rec, &updated)
	assert.Equal(t, models.ProviderAnthropic, updated.Provider)
	assert.Equal(t, 3, updated.Priority)
	assert.Equal(t, []string{created.ID}, f.broker.forgotten)

	stored, err := f.store.GetAiConnection(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "sk-live-abc", stored.APIKey)

	f.broker.result = models.ConnectionTestResult{Status: models.StatusConnected, Message: "Anthropic (Claude) connection successful."}
	rec = f.do(http.MethodPost, "/api/ai-connections/"+created.ID+"/test", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Anthropic (Claude) connection successful.")

	rec = f.do(http.MethodDelete, "/api/ai-connections/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{created.ID, created.ID}, f.broker.forgotten)
}

func TestAiConnections_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		body    map[string]interface{}
		message string
	}{
		{"missing key", map[string]interface{}{"name": "x", "provider": "openai"}, "API key is required."},
		{"unknown provider", map[string]interface{}{"name": "x", "provider": "gemini", "api_key": "k"}, "field 'provider' must be one of: openai, anthropic"},
		{"priority zero", map[string]interface{}{"name": "x", "provider": "openai", "api_key": "k", "priority": 0}, "field 'priority' must be at least 1"},
		{"priority too high", map[string]interface{}{"name": "x", "provider": "openai", "api_key": "k", "priority": 101}, "field 'priority' must be at most 100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/ai-connections", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, tt.message, decodeResponse(t, rec, nil).Message)
		})
	}
}

func TestChat(t *testing.T) {
	f := newFixture(t)
	body := map[string]interface{}{
		"messages": []map[string]string{
			{"role": "system", "content": "be brief"},
			{"role": "user", "content": "hi"},
		},
	}

	t.Run("success", func(t *testing.T) {
		f.broker.reply, f.broker.err = "hello", nil
		rec := f.do(http.MethodPost, "/api/ai/chat", body)
		require.Equal(t, http.StatusOK, rec.Code)
		var out chatResponse
		decodeResponse(t, rec, &out)
		assert.Equal(t, "hello", out.Content)
		assert.Len(t, f.broker.messages, 2)
	})

	t.Run("all providers failed", func(t *testing.T) {
		f.broker.err = errors.CompositeError("All AI providers failed. Last error: Anthropic API error: overloaded", nil)
		rec := f.do(http.MethodPost, "/api/ai/chat", body)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "All AI providers failed. Last error: Anthropic API error: overloaded", decodeResponse(t, rec, nil).Message)
	})

	t.Run("no active connections", func(t *testing.T) {
		f.broker.err = errors.ConfigError("No active AI connections configured.")
		rec := f.do(http.MethodPost, "/api/ai/chat", body)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "No active AI connections configured.", decodeResponse(t, rec, nil).Message)
	})

	t.Run("invalid role", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/ai/chat", map[string]interface{}{
			"messages": []map[string]string{{"role": "tool", "content": "x"}},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("empty conversation", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/ai/chat", map[string]interface{}{"messages": []string{}})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestDashboardStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	crm := f.createWebhookConnection()
	f.createOAuthConnection()
	require.NoError(t, f.store.SaveCrmStatus(ctx, crm.ID, models.CrmStatusUpdate{Status: models.StatusError, ErrorMessage: "down"}))

	rec := f.do(http.MethodPost, "/api/ai-connections", map[string]interface{}{"name": "a", "provider": "openai", "api_key": "k"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodGet, "/api/dashboard/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Bitrix struct {
			Total, Connected, Error, Disconnected int
		}
		AI struct {
			Total, Connected, Error, Disconnected int
		}
	}
	decodeResponse(t, rec, &status)
	assert.Equal(t, 2, status.Bitrix.Total)
	assert.Equal(t, 1, status.Bitrix.Error)
	assert.Equal(t, 1, status.Bitrix.Disconnected)
	assert.Equal(t, 1, status.AI.Total)
	assert.Equal(t, 1, status.AI.Disconnected)
	assert.False(t, strings.Contains(rec.Body.String(), "whsecret123"))
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthResponse
	decodeResponse(t, rec, &health)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "ok", health.Checks["database"])

	f.handlers.AddHealthCheck("redis", func(ctx context.Context) error {
		return errors.InternalError("redis unavailable", nil)
	})
	rec = f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	decodeResponse(t, rec, &health)
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "unhealthy", health.Checks["redis"])
}
