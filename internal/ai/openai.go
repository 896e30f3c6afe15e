package ai

import (
	"context"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"connection-broker/internal/common/errors"
	commonhttp "connection-broker/internal/common/http"
	"connection-broker/internal/common/logging"
	"connection-broker/internal/models"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAITimeout = 30 * time.Second
)

// OpenAIConfig configures the OpenAI adapter
type OpenAIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// OpenAIAdapter talks to the chat completions API. Messages are sent as-is,
// system prompts included.
type OpenAIAdapter struct {
	baseURL    string
	httpClient *http.Client
	status     *statusRecorder
	logger     logging.Logger
}

// NewOpenAIAdapter creates an OpenAI adapter
func NewOpenAIAdapter(cfg OpenAIConfig, writer StatusWriter, logger logging.Logger) *OpenAIAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultOpenAITimeout
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &OpenAIAdapter{
		baseURL:    cfg.BaseURL,
		httpClient: commonhttp.NewHTTPClient(commonhttp.WithTimeout(cfg.Timeout)),
		status:     newStatusRecorder(writer, logger),
		logger:     logger,
	}
}

func (a *OpenAIAdapter) client(apiKey string) *openai.Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = a.baseURL
	config.HTTPClient = a.httpClient
	return openai.NewClientWithConfig(config)
}

func (a *OpenAIAdapter) complete(ctx context.Context, conn *models.AiConnection, messages []openai.ChatCompletionMessage, maxTokens int) (string, error) {
	resp, err := a.client(conn.APIKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     conn.Model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Chat sends the conversation and returns the first choice's content
func (a *OpenAIAdapter) Chat(ctx context.Context, conn *models.AiConnection, messages []models.ChatMessage) (string, error) {
	payload := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		payload = append(payload, openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content})
	}

	text, err := a.complete(ctx, conn, payload, 0)
	if err != nil {
		if msg, status, ok := openAIErrorMessage(err); ok {
			return "", errors.ProtocolError("OpenAI API error: "+errors.Scrub(orDefault(msg, "Unknown OpenAI error"), conn.APIKey), status)
		}
		return "", errors.TransportError("OpenAI request failed: "+describe(err, conn.APIKey), err)
	}
	return text, nil
}

// TestConnection sends a five-token probe and persists the outcome
func (a *OpenAIAdapter) TestConnection(ctx context.Context, conn *models.AiConnection) models.ConnectionTestResult {
	probe := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: probePrompt}}

	if _, err := a.complete(ctx, conn, probe, probeMaxTokens); err != nil {
		if msg, _, ok := openAIErrorMessage(err); ok {
			message := "OpenAI error: " + errors.Scrub(orDefault(msg, "Unknown error"), conn.APIKey)
			a.status.failed(ctx, conn, message)
			return models.ConnectionTestResult{Status: models.StatusError, Message: message}
		}

		reason := describe(err, conn.APIKey)
		a.logger.WithContext(ctx).Error("OpenAI connection test failed", nil,
			logging.Field{"connection_id", conn.ID},
			logging.Field{"error", reason},
		)
		a.status.failed(ctx, conn, reason)
		return models.ConnectionTestResult{Status: models.StatusError, Message: "OpenAI test failed: " + reason}
	}

	a.status.connected(ctx, conn)
	return models.ConnectionTestResult{
		Status:  models.StatusConnected,
		Message: "OpenAI connection successful.",
		Model:   conn.Model,
	}
}

// openAIErrorMessage extracts the provider message from a non-2xx response.
// ok is false for transport failures.
func openAIErrorMessage(err error) (msg string, status int, ok bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message, apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return "", reqErr.HTTPStatusCode, true
	}
	return "", 0, false
}
