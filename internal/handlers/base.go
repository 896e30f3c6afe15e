// Package handlers implements the admin API: CRUD and health probes for CRM
// and AI connections, the CRM OAuth flow, AI chat and the dashboard.
package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"connection-broker/internal/auth"
	"connection-broker/internal/common/logging"
	"connection-broker/internal/common/validation"
	"connection-broker/internal/config"
	"connection-broker/internal/models"
	"connection-broker/internal/storage"
)

// CrmProber runs the CRM health sequence and persists its outcome
type CrmProber interface {
	TestConnection(ctx context.Context, conn *models.CrmConnection) models.ConnectionTestResult
}

// OAuthFlow performs the CRM authorization-code grant
type OAuthFlow interface {
	BuildAuthorizationURL(conn *models.CrmConnection, state string) string
	ExchangeAuthorizationCode(ctx context.Context, conn *models.CrmConnection, code string) error
}

// StateSigner issues and verifies single-use OAuth state values
type StateSigner interface {
	Issue(ctx context.Context, connectionID string) (string, error)
	Verify(ctx context.Context, state string) (string, error)
}

// AiBroker is the AI fallback chain plus per-connection probes
type AiBroker interface {
	Dispatch(ctx context.Context, messages []models.ChatMessage) (string, error)
	TestConnection(ctx context.Context, conn *models.AiConnection) models.ConnectionTestResult
	Forget(connectionID string)
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

type Handlers struct {
	storage   storage.Storage
	auth      *auth.Auth
	prober    CrmProber
	oauth     OAuthFlow
	states    StateSigner
	ai        AiBroker
	config    *config.Config
	validator *validation.Validator
	logger    logging.Logger
	checks    map[string]HealthCheck
	now       func() time.Time

	loginGuard func(http.Handler) http.Handler
}

func New(store storage.Storage, authService *auth.Auth, prober CrmProber, oauth OAuthFlow, states StateSigner, ai AiBroker, cfg *config.Config, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Handlers{
		storage:   store,
		auth:      authService,
		prober:    prober,
		oauth:     oauth,
		states:    states,
		ai:        ai,
		config:    cfg,
		validator: validation.New(),
		logger:    logger,
		checks:    map[string]HealthCheck{"database": store.Health},
		now:       time.Now,
	}
}

// AddHealthCheck registers an extra dependency for the health endpoint
func (h *Handlers) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// UseLoginLimiter wraps the login endpoint, typically with a rate limiter.
// Call it before RegisterRoutes.
func (h *Handlers) UseLoginLimiter(mw func(http.Handler) http.Handler) {
	h.loginGuard = mw
}

func (h *Handlers) checkNames() []string {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
