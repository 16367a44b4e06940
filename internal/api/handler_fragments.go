package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"graphable/internal/domain"
	"graphable/internal/sqlrewrite"
)

// === Graphs ===

func (h *Handler) listGraphs(w http.ResponseWriter, r *http.Request) {
	page := pageRequest(r)
	items, total, err := h.GraphRepo.List(r.Context(), chi.URLParam(r, "ws"), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(items, total, page))
}

func (h *Handler) saveGraph(w http.ResponseWriter, r *http.Request) {
	var g domain.Graph
	if err := decode(w, r, &g); err != nil {
		h.writeError(w, r, err)
		return
	}
	g.WorkspaceID = chi.URLParam(r, "ws")
	if err := validateGraph(&g); err != nil {
		h.writeError(w, r, err)
		return
	}
	saved, err := h.GraphRepo.Save(r.Context(), &g)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// validateGraph rejects definitions that could never execute.
func validateGraph(g *domain.Graph) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if g.IsLegacy() {
		return sqlrewrite.ValidateQuery(g.Query)
	}
	for _, q := range g.Queries {
		if q.Kind != domain.QueryKindSQL {
			continue
		}
		if err := sqlrewrite.ValidateQuery(q.Text); err != nil {
			return domain.ErrValidation("query %s: %s", q.RefID, err.Error())
		}
	}
	return nil
}

func (h *Handler) getGraph(w http.ResponseWriter, r *http.Request) {
	g, err := h.GraphRepo.Get(r.Context(), chi.URLParam(r, "ws"), chi.URLParam(r, "graphID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handler) deleteGraph(w http.ResponseWriter, r *http.Request) {
	if err := h.GraphRepo.Delete(r.Context(), chi.URLParam(r, "ws"), chi.URLParam(r, "graphID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === Dashboards ===

func (h *Handler) listDashboards(w http.ResponseWriter, r *http.Request) {
	page := pageRequest(r)
	items, total, err := h.Dashboards.List(r.Context(), chi.URLParam(r, "ws"), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(items, total, page))
}

func (h *Handler) saveDashboard(w http.ResponseWriter, r *http.Request) {
	var d domain.Dashboard
	if err := decode(w, r, &d); err != nil {
		h.writeError(w, r, err)
		return
	}
	d.WorkspaceID = chi.URLParam(r, "ws")
	if err := d.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}
	saved, err := h.Dashboards.Save(r.Context(), &d)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Dashboards.Get(r.Context(), chi.URLParam(r, "ws"), chi.URLParam(r, "dashboardID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) deleteDashboard(w http.ResponseWriter, r *http.Request) {
	if err := h.Dashboards.Delete(r.Context(), chi.URLParam(r, "ws"), chi.URLParam(r, "dashboardID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === Data sources ===

type dataSourceRequest struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name" validate:"required"`
	Description string                  `json:"description"`
	Secret      *domain.SecretReference `json:"secret"`
}

func (h *Handler) listDataSources(w http.ResponseWriter, r *http.Request) {
	page := pageRequest(r)
	items, total, err := h.DataSources.List(r.Context(), chi.URLParam(r, "ws"), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(items, total, page))
}

func (h *Handler) saveDataSource(w http.ResponseWriter, r *http.Request) {
	var req dataSourceRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ws := chi.URLParam(r, "ws")
	saved, err := h.DataSources.Save(r.Context(), &domain.DataSource{
		ID:          req.ID,
		WorkspaceID: ws,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Secret != nil {
		if err := h.Secrets.SetReference(r.Context(), ws, saved.ID, *req.Secret); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) getDataSource(w http.ResponseWriter, r *http.Request) {
	ds, err := h.DataSources.Get(r.Context(), chi.URLParam(r, "ws"), chi.URLParam(r, "dsID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (h *Handler) deleteDataSource(w http.ResponseWriter, r *http.Request) {
	if err := h.DataSources.Delete(r.Context(), chi.URLParam(r, "ws"), chi.URLParam(r, "dsID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type secretRequest struct {
	Payload string `json:"payload" validate:"required"`
}

// putSecret stores connection credentials. The payload is never echoed.
func (h *Handler) putSecret(w http.ResponseWriter, r *http.Request) {
	var req secretRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ref, err := h.Secrets.PutSecret(r.Context(), chi.URLParam(r, "ws"), chi.URLParam(r, "dsID"), req.Payload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}
