package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"invagro/internal/chat"
	"invagro/internal/core"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeCreated writes a JSON response with status 201.
func writeCreated(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(v)
}

// fail maps a service error to a status code. Validation failures are shown
// verbatim; anything unexpected is logged and replaced by a generic message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		status, code := http.StatusBadRequest, "VALIDATION_ERROR"
		switch {
		case errors.Is(err, core.ErrDuplicate), errors.Is(err, core.ErrInvalidState):
			status, code = http.StatusConflict, "CONFLICT"
		case errors.Is(err, core.ErrRangeExhausted):
			status, code = http.StatusUnprocessableEntity, "RANGE_EXHAUSTED"
		}
		writeError(w, r, err.Error(), code, status)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, core.ErrNotFound.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrInvalidCredentials):
		writeError(w, r, err.Error(), "UNAUTHORIZED", http.StatusUnauthorized)
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
	case errors.Is(err, chat.ErrSessionForbidden):
		writeError(w, r, "la sesión de chat pertenece a otro usuario", "FORBIDDEN", http.StatusForbidden)
	case errors.Is(err, chat.ErrProcessing):
		writeError(w, r, chat.FailureReply, "CHAT_ERROR", http.StatusInternalServerError)
	default:
		h.logger.Error("request failed",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, r, "error interno del servidor", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
