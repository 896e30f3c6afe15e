package handlers

import (
	"net/http"
	"time"

	"connection-broker/internal/auth"
	"connection-broker/internal/common/errors"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	ExpiresAt string `json:"expires_at"`
}

type meResponse struct {
	Username  string `json:"username"`
	ExpiresAt string `json:"expires_at"`
}

// Login exchanges admin credentials for a bearer token
// @Summary Admin login
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} loginResponse
// @Failure 401 {object} envelope "Invalid credentials"
// @Router /api/auth/login [post]
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	token, session, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, errors.AuthError("Invalid credentials."))
		return
	}

	writeData(w, http.StatusOK, loginResponse{
		Token:     token,
		Username:  session.Username,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	}, "")
}

// Me returns the authenticated admin
// @Summary Current admin
// @Tags auth
// @Produce json
// @Router /api/auth/me [get]
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		h.writeError(w, r, errors.AuthError("Authentication required"))
		return
	}

	writeData(w, http.StatusOK, meResponse{
		Username:  session.Username,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	}, "")
}

// Logout revokes the presented token
// @Summary Admin logout
// @Tags auth
// @Router /api/auth/logout [post]
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), auth.BearerToken(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Logged out successfully.")
}
