package handlers

import (
	"net/http"

	"connection-broker/internal/models"
)

type chatRequest struct {
	Messages []models.ChatMessage `json:"messages" validate:"required,min=1,dive"`
}

type chatResponse struct {
	Content string `json:"content"`
}

// Chat sends a conversation through the AI fallback chain
// @Summary AI chat with provider fallback
// @Tags ai
// @Accept json
// @Produce json
// @Failure 503 {object} envelope "No provider available or all providers failed"
// @Router /api/ai/chat [post]
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	text, err := h.ai.Dispatch(r.Context(), req.Messages)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, chatResponse{Content: text}, "")
}
