package crm

import (
	"context"
	"encoding/json"
	"time"

	"connection-broker/internal/common/errors"
	commonhttp "connection-broker/internal/common/http"
	"connection-broker/internal/common/logging"
	"connection-broker/internal/models"
)

const (
	// RequiredScope is the capability the task integration depends on
	RequiredScope = "task"

	msgConnectedWithTask    = "Connection successful. Task scope available."
	msgConnectedWithoutTask = `Connection successful, but "task" scope is missing. Please add it in Bitrix24 webhook settings.`
	msgUnreachable          = "Connection failed: unable to reach Bitrix24 server. Check the domain."
	msgUnexpectedPrefix     = "Unexpected error: "
)

// StatusWriter persists the outcome of a probe
type StatusWriter interface {
	SaveCrmStatus(ctx context.Context, connectionID string, update models.CrmStatusUpdate) error
}

// Prober runs the server.time / scope health check against a portal.
type Prober struct {
	client *commonhttp.Client
	auth   *Authenticator
	writer StatusWriter
	logger logging.Logger
	now    func() time.Time
}

// NewProber creates a Prober. client must be bounded by the CRM timeout.
func NewProber(client *commonhttp.Client, auth *Authenticator, writer StatusWriter, logger logging.Logger) *Prober {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Prober{
		client: client,
		auth:   auth,
		writer: writer,
		logger: logger,
		now:    time.Now,
	}
}

type restResponse struct {
	APIError
	Result json.RawMessage `json:"result"`
}

// TestConnection probes conn and persists the outcome. It never returns an
// error: every failure is reported as a StatusError result.
func (p *Prober) TestConnection(ctx context.Context, conn *models.CrmConnection) models.ConnectionTestResult {
	baseURL := p.auth.BaseURL(ctx, conn)
	headers := p.auth.Headers(conn)

	timeResp, err := p.client.Get(ctx, baseURL+"server.time.json", headers)
	if err != nil {
		return p.handleException(ctx, conn, err)
	}

	var timeBody restResponse
	decodeErr := timeResp.DecodeJSON(&timeBody)
	if !timeResp.Successful() || (decodeErr == nil && timeBody.Code != "") {
		return p.handleAPIError(ctx, conn, timeResp.StatusCode, timeBody.APIError)
	}
	serverTime := resultString(timeBody.Result)

	scopes := []string{}
	if scopeResp, err := p.client.Get(ctx, baseURL+"scope.json", headers); err == nil && scopeResp.Successful() {
		var scopeBody restResponse
		if scopeResp.DecodeJSON(&scopeBody) == nil {
			var list []string
			if json.Unmarshal(scopeBody.Result, &list) == nil && list != nil {
				scopes = list
			}
		}
	}

	p.save(ctx, conn, models.CrmStatusUpdate{
		Status:     models.StatusConnected,
		CheckedAt:  p.now(),
		ServerTime: serverTime,
		Scopes:     scopes,
	})

	hasTask := containsScope(scopes, RequiredScope)
	msg := msgConnectedWithoutTask
	if hasTask {
		msg = msgConnectedWithTask
	}

	return models.ConnectionTestResult{
		Status:       models.StatusConnected,
		Message:      msg,
		ServerTime:   serverTime,
		Scopes:       scopes,
		HasTaskScope: &hasTask,
	}
}

func (p *Prober) handleAPIError(ctx context.Context, conn *models.CrmConnection, statusCode int, apiErr APIError) models.ConnectionTestResult {
	code := apiErr.Code
	if code == "" {
		code = "UNKNOWN"
	}
	description := apiErr.Description
	if description == "" {
		description = "Unknown error"
	}

	msg := errors.Scrub(MapError(code, statusCode, description), conn.Secrets()...)
	p.saveError(ctx, conn, msg)

	return models.ConnectionTestResult{
		Status:    models.StatusError,
		Message:   msg,
		ErrorCode: code,
	}
}

func (p *Prober) handleException(ctx context.Context, conn *models.CrmConnection, err error) models.ConnectionTestResult {
	var msg string
	if errors.IsType(err, errors.ErrTypeTransport) {
		msg = msgUnreachable
	} else {
		msg = msgUnexpectedPrefix + errors.Scrub(errors.Message(err), conn.Secrets()...)
		p.logger.WithContext(ctx).Error("Bitrix24 connection test failed", nil,
			logging.Field{"connection_id", conn.ID},
			logging.Field{"error", msg},
		)
	}

	p.saveError(ctx, conn, msg)

	return models.ConnectionTestResult{
		Status:  models.StatusError,
		Message: msg,
	}
}

func (p *Prober) saveError(ctx context.Context, conn *models.CrmConnection, msg string) {
	p.save(ctx, conn, models.CrmStatusUpdate{
		Status:       models.StatusError,
		CheckedAt:    p.now(),
		ErrorMessage: msg,
	})
}

func (p *Prober) save(ctx context.Context, conn *models.CrmConnection, update models.CrmStatusUpdate) {
	if err := p.writer.SaveCrmStatus(ctx, conn.ID, update); err != nil {
		p.logger.WithContext(ctx).Error("Failed to persist connection status", err,
			logging.Field{"connection_id", conn.ID},
		)
		return
	}
	conn.ApplyStatus(update)
}

// resultString reads the "result" field as text. JSON strings are unquoted;
// other values keep their JSON form.
func resultString(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	s = string(raw)
	return &s
}

func containsScope(scopes []string, scope string) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}
