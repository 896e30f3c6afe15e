package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"connection-broker/internal/common/errors"
	commonhttp "connection-broker/internal/common/http"
	"connection-broker/internal/common/logging"
	"connection-broker/internal/models"
)

const (
	DefaultAnthropicBaseURL = "https://api.anthropic.com/"
	DefaultAnthropicTimeout = 60 * time.Second

	anthropicChatMaxTokens = 4096
)

// AnthropicConfig configures the Anthropic adapter
type AnthropicConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AnthropicAdapter talks to the Messages API. The system prompt travels in
// its own field and max_tokens is always set.
type AnthropicAdapter struct {
	baseURL    string
	httpClient *http.Client
	status     *statusRecorder
	logger     logging.Logger
}

// NewAnthropicAdapter creates an Anthropic adapter
func NewAnthropicAdapter(cfg AnthropicConfig, writer StatusWriter, logger logging.Logger) *AnthropicAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAnthropicBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultAnthropicTimeout
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &AnthropicAdapter{
		baseURL:    cfg.BaseURL,
		httpClient: commonhttp.NewHTTPClient(commonhttp.WithTimeout(cfg.Timeout)),
		status:     newStatusRecorder(writer, logger),
		logger:     logger,
	}
}

func (a *AnthropicAdapter) client(apiKey string) anthropic.Client {
	return anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(a.baseURL),
		option.WithHTTPClient(a.httpClient),
		option.WithMaxRetries(0),
	)
}

func (a *AnthropicAdapter) send(ctx context.Context, conn *models.AiConnection, params anthropic.MessageNewParams) (string, error) {
	client := a.client(conn.APIKey)
	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", nil
	}
	return resp.Content[0].Text, nil
}

// Chat sends the conversation with any system prompt lifted into the system field
func (a *AnthropicAdapter) Chat(ctx context.Context, conn *models.AiConnection, messages []models.ChatMessage) (string, error) {
	system, rest := ExtractSystem(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(conn.Model),
		MaxTokens: anthropicChatMaxTokens,
		Messages:  toAnthropicMessages(rest),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}

	text, err := a.send(ctx, conn, params)
	if err != nil {
		if msg, status, ok := anthropicErrorMessage(err); ok {
			return "", errors.ProtocolError("Anthropic API error: "+errors.Scrub(orDefault(msg, "Unknown Anthropic error"), conn.APIKey), status)
		}
		return "", errors.TransportError("Anthropic request failed: "+describe(err, conn.APIKey), err)
	}
	return text, nil
}

// TestConnection sends a five-token probe and persists the outcome
func (a *AnthropicAdapter) TestConnection(ctx context.Context, conn *models.AiConnection) models.ConnectionTestResult {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(conn.Model),
		MaxTokens: probeMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(probePrompt)),
		},
	}

	if _, err := a.send(ctx, conn, params); err != nil {
		if msg, _, ok := anthropicErrorMessage(err); ok {
			message := "Anthropic error: " + errors.Scrub(orDefault(msg, "Unknown error"), conn.APIKey)
			a.status.failed(ctx, conn, message)
			return models.ConnectionTestResult{Status: models.StatusError, Message: message}
		}

		reason := describe(err, conn.APIKey)
		a.logger.WithContext(ctx).Error("Anthropic connection test failed", nil,
			logging.Field{"connection_id", conn.ID},
			logging.Field{"error", reason},
		)
		a.status.failed(ctx, conn, reason)
		return models.ConnectionTestResult{Status: models.StatusError, Message: "Anthropic test failed: " + reason}
	}

	a.status.connected(ctx, conn)
	return models.ConnectionTestResult{
		Status:  models.StatusConnected,
		Message: "Anthropic (Claude) connection successful.",
		Model:   conn.Model,
	}
}

func toAnthropicMessages(messages []models.ChatMessage) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == models.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
			continue
		}
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
	}
	return out
}

type anthropicErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// anthropicErrorMessage extracts error.message from a non-2xx response.
// ok is false for transport failures.
func anthropicErrorMessage(err error) (msg string, status int, ok bool) {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return "", 0, false
	}

	var body anthropicErrorBody
	if raw := apiErr.RawJSON(); raw != "" && json.Unmarshal([]byte(raw), &body) == nil {
		msg = body.Error.Message
	}
	return msg, apiErr.StatusCode, true
}
