// Package api serves the Graphable REST API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"graphable/internal/domain"
	"graphable/internal/service/connection"
	"graphable/internal/service/explore"
	"graphable/internal/service/graph"
	"graphable/internal/validation"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Deps are the services and repositories the handlers call.
type Deps struct {
	Graphs      *graph.Service
	Explore     *explore.Service
	Secrets     *connection.SecretService
	GraphRepo   domain.GraphRepository
	Dashboards  domain.DashboardRepository
	DataSources domain.DataSourceRepository
	Audit       domain.AuditRepository
	Logger      *slog.Logger
}

// Handler implements the HTTP endpoints.
type Handler struct {
	Deps
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{Deps: d, logger: logger}
}

// Routes registers the versioned API on r. Callers add authentication
// before calling Routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sql/validate", h.validateSQL)
	r.Get("/audit", h.listAudit)

	r.Route("/workspaces/{ws}", func(r chi.Router) {
		r.Use(requireWorkspace)

		r.Post("/query", h.executeQuery)

		r.Route("/graphs", func(r chi.Router) {
			r.Get("/", h.listGraphs)
			r.Post("/", h.saveGraph)
			r.Get("/{graphID}", h.getGraph)
			r.Delete("/{graphID}", h.deleteGraph)
			r.Post("/{graphID}/execute", h.executeGraph)
		})
		r.Route("/dashboards", func(r chi.Router) {
			r.Get("/", h.listDashboards)
			r.Post("/", h.saveDashboard)
			r.Get("/{dashboardID}", h.getDashboard)
			r.Delete("/{dashboardID}", h.deleteDashboard)
			r.Post("/{dashboardID}/execute", h.executeDashboard)
		})
		r.Route("/datasources", func(r chi.Router) {
			r.Get("/", h.listDataSources)
			r.Post("/", h.saveDataSource)
			r.Get("/{dsID}", h.getDataSource)
			r.Delete("/{dsID}", h.deleteDataSource)
			r.Put("/{dsID}/secret", h.putSecret)
			r.Get("/{dsID}/schemas", h.listSchemas)
			r.Get("/{dsID}/tables", h.listTables)
			r.Get("/{dsID}/columns", h.listColumns)
			r.Post("/{dsID}/query", h.exploreQuery)
		})
	})
}

// requireWorkspace rejects principals whose token is not scoped to {ws}.
func requireWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws := chi.URLParam(r, "ws")
		p, ok := domain.PrincipalFromContext(r.Context())
		if !ok || !p.CanAccessWorkspace(ws) {
			writeJSON(w, http.StatusForbidden, ErrorBody{
				Code:    http.StatusForbidden,
				Message: fmt.Sprintf("access denied to workspace %q", ws),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decode reads a JSON body into v and applies its validate tags.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.ErrValidation("request body exceeds %d bytes", tooLarge.Limit)
		}
		return domain.ErrValidation("invalid request body: %v", err)
	}
	return validation.Struct(v)
}

// pageRequest reads max_results and page_token query parameters.
func pageRequest(r *http.Request) domain.PageRequest {
	p := domain.PageRequest{PageToken: r.URL.Query().Get("page_token")}
	if n, err := strconv.Atoi(r.URL.Query().Get("max_results")); err == nil {
		p.MaxResults = n
	}
	return p
}

// listResponse is the envelope of every list endpoint.
type listResponse[T any] struct {
	Items         []T    `json:"items"`
	TotalCount    int64  `json:"totalCount"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

func newListResponse[T any](items []T, total int64, page domain.PageRequest) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{
		Items:         items,
		TotalCount:    total,
		NextPageToken: domain.NextPageToken(page.Offset(), page.Limit(), total),
	}
}
