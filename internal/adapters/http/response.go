package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"millaudit/internal/domain"
	"millaudit/internal/services/audits"
	"millaudit/internal/services/templates"
)

type successResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

type errorResponse struct {
	Status    string `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successResponse{Status: "success", Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	writeJSON(w, status, errorResponse{
		Status:    "error",
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: requestIDFromContext(r.Context()),
	})
}

// writeDomainError maps err onto a status and code. Template validation
// failures and incomplete submissions carry their issue lists as details.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *templates.ValidationError
	if errors.As(err, &verr) {
		writeError(w, r, http.StatusUnprocessableEntity, "TEMPLATE_INVALID", err.Error(), verr.Issues)
		return
	}
	var ierr *audits.IncompleteError
	if errors.As(err, &ierr) {
		writeError(w, r, http.StatusUnprocessableEntity, "INCOMPLETE", err.Error(), ierr.Problems)
		return
	}
	status, code := mapDomainError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, r, status, code, msg, nil)
}

func mapDomainError(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrSessionClosed):
		return http.StatusConflict, "SESSION_CLOSED"
	case errors.Is(err, domain.ErrIncomplete):
		return http.StatusUnprocessableEntity, "INCOMPLETE"
	case errors.Is(err, domain.ErrTampered):
		return http.StatusConflict, "TAMPERED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
