package handlers

import (
	"context"
	"net/http"
	"time"

	"connection-broker/internal/common/logging"
	"connection-broker/internal/models"
)

const healthTimeout = 3 * time.Second

// DashboardStatus summarizes the stored health of every connection
// @Summary Dashboard status
// @Tags dashboard
// @Produce json
// @Router /api/dashboard/status [get]
func (h *Handlers) DashboardStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	crm, err := h.storage.ListCrmConnections(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ai, err := h.storage.ListAiConnections(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, models.BuildDashboard(crm, ai), "")
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health reports store and Redis reachability
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} healthResponse
// @Failure 503 {object} healthResponse
// @Router /health [get]
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "healthy", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK

	for _, name := range h.checkNames() {
		if err := h.checks[name](ctx); err != nil {
			h.logger.WithContext(ctx).Warn("health check failed",
				logging.Field{"check", name},
				logging.Field{"error", err.Error()},
			)
			resp.Checks[name] = "unhealthy"
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, envelope{Data: resp})
}
