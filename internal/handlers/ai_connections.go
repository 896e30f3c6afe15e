package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/models"
)

type aiConnectionRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Provider string `json:"provider" validate:"required,ai_provider"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model" validate:"max=255"`
	Priority *int   `json:"priority" validate:"omitempty,min=1,max=100"`
	IsActive *bool  `json:"is_active"`
}

func (req *aiConnectionRequest) apply(conn *models.AiConnection) {
	conn.Name = req.Name
	conn.Provider = models.Provider(req.Provider)
	conn.APIKey = req.APIKey
	if req.Model != "" {
		conn.Model = req.Model
	}
	if req.Priority != nil {
		conn.Priority = *req.Priority
	}
	if req.IsActive != nil {
		conn.IsActive = *req.IsActive
	}
}

// ListAiConnections returns AI connections in fallback order
// @Summary List AI connections
// @Tags ai
// @Produce json
// @Router /api/ai-connections [get]
func (h *Handlers) ListAiConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.storage.ListAiConnections(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]*models.AiConnectionAPI, 0, len(conns))
	for _, c := range conns {
		out = append(out, models.ToAiConnectionAPI(c))
	}
	writeData(w, http.StatusOK, out, "")
}

// CreateAiConnection stores a new AI connection
// @Summary Create AI connection
// @Tags ai
// @Accept json
// @Produce json
// @Router /api/ai-connections [post]
func (h *Handlers) CreateAiConnection(w http.ResponseWriter, r *http.Request) {
	var req aiConnectionRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.APIKey == "" {
		h.writeError(w, r, errors.ValidationError("API key is required."))
		return
	}

	conn := &models.AiConnection{IsActive: true}
	req.apply(conn)

	if err := h.storage.CreateAiConnection(r.Context(), conn); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, models.ToAiConnectionAPI(conn), "AI connection created successfully.")
}

// GetAiConnection returns one AI connection
// @Summary Get AI connection
// @Tags ai
// @Produce json
// @Router /api/ai-connections/{id} [get]
func (h *Handlers) GetAiConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.storage.GetAiConnection(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, models.ToAiConnectionAPI(conn), "")
}

// UpdateAiConnection edits an AI connection. An empty api_key keeps the stored one.
// @Summary Update AI connection
// @Tags ai
// @Accept json
// @Produce json
// @Router /api/ai-connections/{id} [put]
func (h *Handlers) UpdateAiConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := h.storage.GetAiConnection(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req aiConnectionRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	req.apply(conn)
	if err := h.storage.UpdateAiConnection(ctx, conn); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.ai.Forget(conn.ID)

	fresh, err := h.storage.GetAiConnection(ctx, conn.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, models.ToAiConnectionAPI(fresh), "AI connection updated successfully.")
}

// DeleteAiConnection removes an AI connection
// @Summary Delete AI connection
// @Tags ai
// @Router /api/ai-connections/{id} [delete]
func (h *Handlers) DeleteAiConnection(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.storage.DeleteAiConnection(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.ai.Forget(id)
	writeMessage(w, http.StatusOK, "AI connection deleted successfully.")
}

// TestAiConnection sends a probe through the connection's provider adapter
// @Summary Test AI connection
// @Tags ai
// @Produce json
// @Router /api/ai-connections/{id}/test [post]
func (h *Handlers) TestAiConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.storage.GetAiConnection(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, h.ai.TestConnection(r.Context(), conn), "")
}
