package ai

import (
	"context"
	"fmt"
	"sort"

	"connection-broker/internal/circuitbreaker"
	"connection-broker/internal/common/errors"
	"connection-broker/internal/common/logging"
	"connection-broker/internal/models"
)

// ConnectionLister returns active AI connections ordered by ascending priority
type ConnectionLister interface {
	ListActiveAiConnections(ctx context.Context) ([]*models.AiConnection, error)
}

// Dispatcher tries active AI connections one at a time, lowest priority
// number first, and returns the first successful reply.
type Dispatcher struct {
	registry Registry
	lister   ConnectionLister
	status   *statusRecorder
	breakers *circuitbreaker.Manager
	logger   logging.Logger
}

// NewDispatcher creates a Dispatcher. breakers only track provider health:
// every active connection is still tried. breakers may be nil.
func NewDispatcher(registry Registry, lister ConnectionLister, writer StatusWriter, breakers *circuitbreaker.Manager, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Dispatcher{
		registry: registry,
		lister:   lister,
		status:   newStatusRecorder(writer, logger),
		breakers: breakers,
		logger:   logger,
	}
}

// Dispatch sends messages through the fallback chain. It fails with a
// configuration error when nothing is active and with a composite error
// naming the last failure when every connection failed.
func (d *Dispatcher) Dispatch(ctx context.Context, messages []models.ChatMessage) (string, error) {
	conns, err := d.lister.ListActiveAiConnections(ctx)
	if err != nil {
		return "", errors.InternalError("failed to load AI connections", err)
	}
	if len(conns) == 0 {
		return "", errors.ConfigError("No active AI connections configured.")
	}

	sort.SliceStable(conns, func(i, j int) bool {
		return conns[i].Priority < conns[j].Priority
	})

	logger := d.logger.WithContext(ctx)
	var lastErr error

	for _, conn := range conns {
		adapter, ok := d.registry[conn.Provider]
		if !ok {
			continue
		}

		text, err := d.attempt(ctx, adapter, conn, messages)
		if err == nil {
			d.status.connected(ctx, conn)
			return text, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", errors.TransportError("chat request cancelled", ctxErr)
		}

		lastErr = err
		msg := errors.Scrub(errors.Message(err), conn.APIKey)
		logger.Warn("AI provider failed, trying next",
			logging.Field{"connection_id", conn.ID},
			logging.Field{"provider", string(conn.Provider)},
			logging.Field{"error", msg},
		)
		d.status.failed(ctx, conn, msg)
	}

	last := "Unknown"
	if lastErr != nil {
		last = errors.Message(lastErr)
	}
	return "", errors.CompositeError(fmt.Sprintf("All AI providers failed. Last error: %s", last), lastErr)
}

func (d *Dispatcher) attempt(ctx context.Context, adapter Adapter, conn *models.AiConnection, messages []models.ChatMessage) (string, error) {
	if d.breakers == nil {
		return adapter.Chat(ctx, conn, messages)
	}

	var text string
	err := d.breakers.Observe("ai:"+conn.ID, func() error {
		var err error
		text, err = adapter.Chat(ctx, conn, messages)
		return err
	})
	return text, err
}

// TestConnection probes conn with its provider's adapter
func (d *Dispatcher) TestConnection(ctx context.Context, conn *models.AiConnection) models.ConnectionTestResult {
	adapter, ok := d.registry[conn.Provider]
	if !ok {
		return models.ConnectionTestResult{
			Status:  models.StatusError,
			Message: fmt.Sprintf("Unsupported provider: %s", conn.Provider),
		}
	}
	return adapter.TestConnection(ctx, conn)
}

// Forget drops per-connection state such as the circuit breaker, for use
// after a connection is edited or deleted.
func (d *Dispatcher) Forget(connectionID string) {
	if d.breakers != nil {
		d.breakers.Remove("ai:" + connectionID)
	}
}
