package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"graphable/internal/domain"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// statusFromError maps domain errors onto HTTP status codes.
func statusFromError(err error) int {
	var (
		notFound     *domain.NotFoundError
		validation   *domain.ValidationError
		accessDenied *domain.AccessDeniedError
		conflict     *domain.ConflictError
		notImpl      *domain.NotImplementedError
		execution    *domain.ExecutionError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &notImpl):
		return http.StatusNotImplemented
	case errors.As(err, &execution):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)
	body := ErrorBody{Code: status, Message: err.Error()}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		body.Errors = ve.Errors
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		body.Message = "internal error"
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
