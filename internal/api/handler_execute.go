package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"graphable/internal/domain"
)

type executeRequest struct {
	Parameters map[string]any `json:"parameters"`
}

type queryRequest struct {
	Graph      *domain.Graph  `json:"graph" validate:"required"`
	Parameters map[string]any `json:"parameters"`
}

// decodeOptional accepts an empty body as the zero request.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return decode(w, r, v)
}

func (h *Handler) executeGraph(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeOptional(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.Graphs.ExecuteGraph(r.Context(), chi.URLParam(r, "ws"), chi.URLParam(r, "graphID"), req.Parameters)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) executeQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.Graphs.ExecuteQuery(r.Context(), chi.URLParam(r, "ws"), req.Graph, req.Parameters)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) executeDashboard(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeOptional(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.Graphs.ExecuteDashboard(r.Context(), chi.URLParam(r, "ws"), chi.URLParam(r, "dashboardID"), req.Parameters)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
