// Package ai sends chat requests to generative AI providers and fails over
// between configured provider connections in priority order.
package ai

import (
	"context"
	"time"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/common/logging"
	"connection-broker/internal/models"
)

const (
	probePrompt    = `Say "OK" and nothing else.`
	probeMaxTokens = 5
)

// Adapter translates provider-agnostic chat requests to one provider's API.
type Adapter interface {
	// Chat returns the assistant reply. Errors are ProtocolError for provider
	// rejections and TransportError for network failures.
	Chat(ctx context.Context, conn *models.AiConnection, messages []models.ChatMessage) (string, error)
	// TestConnection sends a minimal prompt and persists the outcome. It never fails.
	TestConnection(ctx context.Context, conn *models.AiConnection) models.ConnectionTestResult
}

// Registry maps a provider to its adapter
type Registry map[models.Provider]Adapter

// StatusWriter persists the outcome of a probe or chat attempt
type StatusWriter interface {
	SaveAiStatus(ctx context.Context, connectionID string, update models.AiStatusUpdate) error
}

// ExtractSystem splits the system prompt from the conversation. When several
// system messages are present the last one wins.
func ExtractSystem(messages []models.ChatMessage) (string, []models.ChatMessage) {
	var system string
	rest := make([]models.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == models.RoleSystem {
			system = msg.Content
			continue
		}
		rest = append(rest, msg)
	}
	return system, rest
}

// statusRecorder persists connection status and mirrors it on the record
type statusRecorder struct {
	writer StatusWriter
	logger logging.Logger
	now    func() time.Time
}

func newStatusRecorder(writer StatusWriter, logger logging.Logger) *statusRecorder {
	return &statusRecorder{writer: writer, logger: logger, now: time.Now}
}

func (r *statusRecorder) connected(ctx context.Context, conn *models.AiConnection) {
	r.save(ctx, conn, models.AiStatusUpdate{
		Status:    models.StatusConnected,
		CheckedAt: r.now(),
	})
}

func (r *statusRecorder) failed(ctx context.Context, conn *models.AiConnection, msg string) {
	r.save(ctx, conn, models.AiStatusUpdate{
		Status:       models.StatusError,
		CheckedAt:    r.now(),
		ErrorMessage: msg,
	})
}

func (r *statusRecorder) save(ctx context.Context, conn *models.AiConnection, update models.AiStatusUpdate) {
	if err := r.writer.SaveAiStatus(ctx, conn.ID, update); err != nil {
		r.logger.WithContext(ctx).Error("Failed to persist AI connection status", err,
			logging.Field{"connection_id", conn.ID},
		)
		return
	}
	conn.ApplyStatus(update)
}

// describe renders a transport failure without request URLs or the API key
func describe(err error, apiKey string) string {
	return errors.Scrub(errors.StripURL(err).Error(), apiKey)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
