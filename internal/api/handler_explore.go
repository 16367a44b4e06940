package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"graphable/internal/domain"
	"graphable/internal/sqlrewrite"
)

type exploreQueryRequest struct {
	SQL      string `json:"sql" validate:"required"`
	Page     int    `json:"page" validate:"min=0"`
	PageSize int    `json:"pageSize" validate:"min=0,max=10000"`
}

type validateSQLRequest struct {
	SQL string `json:"sql"`
}

func (h *Handler) listSchemas(w http.ResponseWriter, r *http.Request) {
	items, err := h.Explore.ListSchemas(r.Context(), chi.URLParam(r, "ws"), chi.URLParam(r, "dsID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemas": items})
}

func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	items, err := h.Explore.ListTables(r.Context(), chi.URLParam(r, "ws"), chi.URLParam(r, "dsID"), r.URL.Query().Get("schema"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": items})
}

func (h *Handler) listColumns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.Explore.ListColumns(r.Context(), chi.URLParam(r, "ws"), chi.URLParam(r, "dsID"), q.Get("schema"), q.Get("table"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": items})
}

func (h *Handler) exploreQuery(w http.ResponseWriter, r *http.Request) {
	var req exploreQueryRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.Explore.RunQuery(r.Context(), chi.URLParam(r, "ws"), chi.URLParam(r, "dsID"), req.SQL, req.Page, req.PageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// validateSQL always answers 200; the verdict is in the body.
func (h *Handler) validateSQL(w http.ResponseWriter, r *http.Request) {
	var req validateSQLRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sqlrewrite.Validate(req.SQL))
}

// listAudit returns execution audit entries. Admin only.
func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	p, _ := domain.PrincipalFromContext(r.Context())
	if !p.IsAdmin {
		h.writeError(w, r, domain.ErrAccessDenied("admin privileges required"))
		return
	}
	q := r.URL.Query()
	filter := domain.AuditFilter{Page: pageRequest(r)}
	if v := q.Get("workspace"); v != "" {
		filter.WorkspaceID = &v
	}
	if v := strings.ToUpper(q.Get("action")); v != "" {
		filter.Action = &v
	}
	if v := strings.ToUpper(q.Get("status")); v != "" {
		filter.Status = &v
	}
	items, total, err := h.Audit.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(items, total, filter.Page))
}
