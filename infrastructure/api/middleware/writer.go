package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/inquira/kgraph/application/service"
	"github.com/inquira/kgraph/domain/graph"
	"github.com/inquira/kgraph/internal/database"
	"github.com/inquira/kgraph/internal/log"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteErrorStatus writes a JSON error body with an explicit status.
func WriteErrorStatus(w http.ResponseWriter, status int, detail string) {
	WriteJSON(w, status, ErrorResponse{Error: http.StatusText(status), Detail: detail})
}

// WriteError maps an error to an HTTP status and writes the JSON error body.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *log.Logger) {
	status := statusFor(err)

	if logger == nil {
		logger = log.Default()
	}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		logger.DebugContext(r.Context(), "request rejected",
			"method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	WriteErrorStatus(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation),
		errors.Is(err, graph.ErrMissingKB):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrNotFound),
		errors.Is(err, service.ErrDomainNotFound),
		errors.Is(err, service.ErrTypeNotFound),
		errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, service.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDomainExists),
		errors.Is(err, service.ErrJobTerminal),
		errors.Is(err, service.ErrTypeInUse):
		return http.StatusConflict
	case errors.Is(err, service.ErrTemplateReadOnly):
		return http.StatusForbidden
	case errors.Is(err, graph.ErrQueryLimitExceeded):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
