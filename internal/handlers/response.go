package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/common/logging"
)

const maxRequestBody = 1 << 20

type envelope struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data interface{}, message string) {
	writeJSON(w, status, envelope{Data: data, Message: message})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Message: message})
}

// writeError maps an error to a status code. Internal errors are logged and
// replaced by a generic message.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		appErr = errors.InternalError("unexpected error", err)
	}

	switch appErr.Type {
	case errors.ErrTypeValidation:
		writeJSON(w, http.StatusUnprocessableEntity, envelope{Message: appErr.Message, Errors: appErr.Context["fields"]})
	case errors.ErrTypeNotFound:
		writeMessage(w, http.StatusNotFound, appErr.Message+".")
	case errors.ErrTypeAuth:
		writeMessage(w, http.StatusUnauthorized, appErr.Message)
	case errors.ErrTypeConfig, errors.ErrTypeComposite:
		writeMessage(w, http.StatusServiceUnavailable, appErr.Message)
	default:
		h.logger.WithContext(r.Context()).Error("request failed", err,
			logging.Field{"method", r.Method},
			logging.Field{"path", r.URL.Path},
		)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decode reads a JSON body into v and validates it
func (h *Handlers) decode(r *http.Request, v interface{}) error {
	body := io.LimitReader(r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return errors.ValidationError("invalid JSON body")
	}
	return h.validator.ValidateStruct(v)
}
