package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/models"
)

type crmConnectionRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	Domain       string `json:"domain" validate:"required,max=255,crm_domain"`
	BitrixUserID int    `json:"bitrix_user_id" validate:"required,min=1"`
	AuthType     string `json:"auth_type" validate:"omitempty,oneof=webhook oauth"`
	WebhookCode  string `json:"webhook_code" validate:"max=255"`
	ClientID     string `json:"client_id" validate:"required_if=AuthType oauth,max=255"`
	ClientSecret string `json:"client_secret"`
	IsActive     *bool  `json:"is_active"`
}

func (req *crmConnectionRequest) authMode() models.AuthMode {
	if req.AuthType == string(models.AuthModeOAuth) {
		return models.AuthModeOAuth
	}
	return models.AuthModeWebhook
}

// requireSecrets enforces the secret for the chosen auth mode. Updates may
// omit secrets to keep the stored ones.
func (req *crmConnectionRequest) requireSecrets() error {
	if req.authMode() == models.AuthModeOAuth {
		if req.ClientSecret == "" {
			return errors.ValidationError("OAuth Client Secret is required.")
		}
		return nil
	}
	if req.WebhookCode == "" {
		return errors.ValidationError("Webhook code is required.")
	}
	return nil
}

func (req *crmConnectionRequest) apply(conn *models.CrmConnection) {
	conn.Name = req.Name
	conn.Domain = req.Domain
	conn.WebhookUserID = req.BitrixUserID
	conn.AuthMode = req.authMode()
	conn.WebhookCode = req.WebhookCode
	conn.ClientID = req.ClientID
	conn.ClientSecret = req.ClientSecret
	if req.IsActive != nil {
		conn.IsActive = *req.IsActive
	}
}

// ListConnections returns every CRM connection
// @Summary List CRM connections
// @Tags connections
// @Produce json
// @Router /api/connections [get]
func (h *Handlers) ListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.storage.ListCrmConnections(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]*models.CrmConnectionAPI, 0, len(conns))
	for _, c := range conns {
		out = append(out, models.ToCrmConnectionAPI(c))
	}
	writeData(w, http.StatusOK, out, "")
}

// CreateConnection stores a new CRM connection
// @Summary Create CRM connection
// @Tags connections
// @Accept json
// @Produce json
// @Router /api/connections [post]
func (h *Handlers) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var req crmConnectionRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.requireSecrets(); err != nil {
		h.writeError(w, r, err)
		return
	}

	conn := &models.CrmConnection{IsActive: true}
	req.apply(conn)

	if err := h.storage.CreateCrmConnection(r.Context(), conn); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, models.ToCrmConnectionAPI(conn), "Connection created successfully.")
}

// GetConnection returns one CRM connection
// @Summary Get CRM connection
// @Tags connections
// @Produce json
// @Router /api/connections/{id} [get]
func (h *Handlers) GetConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.storage.GetCrmConnection(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, models.ToCrmConnectionAPI(conn), "")
}

// UpdateConnection edits a CRM connection. Empty secrets keep the stored ones.
// @Summary Update CRM connection
// @Tags connections
// @Accept json
// @Produce json
// @Router /api/connections/{id} [put]
func (h *Handlers) UpdateConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := h.storage.GetCrmConnection(ctx, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req crmConnectionRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	req.apply(conn)
	if err := h.storage.UpdateCrmConnection(ctx, conn); err != nil {
		h.writeError(w, r, err)
		return
	}

	fresh, err := h.storage.GetCrmConnection(ctx, conn.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, models.ToCrmConnectionAPI(fresh), "Connection updated successfully.")
}

// DeleteConnection removes a CRM connection
// @Summary Delete CRM connection
// @Tags connections
// @Router /api/connections/{id} [delete]
func (h *Handlers) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.DeleteCrmConnection(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Connection deleted successfully.")
}

// TestConnection runs the CRM health probe. The probe persists its own outcome.
// @Summary Test CRM connection
// @Tags connections
// @Produce json
// @Router /api/connections/{id}/test [post]
func (h *Handlers) TestConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.storage.GetCrmConnection(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, h.prober.TestConnection(r.Context(), conn), "")
}

// ConnectionStatus returns the stored health of a CRM connection
// @Summary CRM connection status
// @Tags connections
// @Produce json
// @Router /api/connections/{id}/status [get]
func (h *Handlers) ConnectionStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := h.storage.GetCrmConnection(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, models.ToCrmStatusAPI(conn), "")
}
