package declarative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"graphable/internal/domain"
)

// ReferenceSetter points a data source at its secret. Implemented by
// connection.SecretService.
type ReferenceSetter interface {
	SetReference(ctx context.Context, workspaceID, dataSourceID string, ref domain.SecretReference) error
}

// Applier plans and applies documents against the metadata store.
type Applier struct {
	dataSources domain.DataSourceRepository
	graphs      domain.GraphRepository
	dashboards  domain.DashboardRepository
	refs        domain.SecretReferenceRepository
	secrets     ReferenceSetter
	logger      *slog.Logger
}

// NewApplier creates an Applier.
func NewApplier(dataSources domain.DataSourceRepository, graphs domain.GraphRepository, dashboards domain.DashboardRepository, refs domain.SecretReferenceRepository, secrets ReferenceSetter, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Applier{dataSources: dataSources, graphs: graphs, dashboards: dashboards, refs: refs, secrets: secrets, logger: logger}
}

// Plan compares doc against the stored state without writing anything.
func (a *Applier) Plan(ctx context.Context, doc *Document) (*Plan, error) {
	plan := &Plan{Workspace: doc.Workspace}
	ws := doc.Workspace

	for _, spec := range doc.DataSources {
		op, err := a.planDataSource(ctx, ws, spec)
		if err != nil {
			return nil, err
		}
		plan.Actions = append(plan.Actions, Action{Operation: op, Kind: KindDataSource, ID: spec.ID, Name: spec.Name})
	}
	for i := range doc.Graphs {
		g := &doc.Graphs[i]
		op, err := planDocument(ctx, a.graphs.Get, ws, g.ID, g, stripGraph)
		if err != nil {
			return nil, err
		}
		plan.Actions = append(plan.Actions, Action{Operation: op, Kind: KindGraph, ID: g.ID, Name: g.Name})
	}
	for i := range doc.Dashboards {
		d := &doc.Dashboards[i]
		op, err := planDocument(ctx, a.dashboards.Get, ws, d.ID, d, stripDashboard)
		if err != nil {
			return nil, err
		}
		plan.Actions = append(plan.Actions, Action{Operation: op, Kind: KindDashboard, ID: d.ID, Name: d.Name})
	}
	return plan, nil
}

// Apply writes every changed resource in dependency order and returns the
// plan it executed. Unchanged resources are not rewritten, so their
// updatedAt and any cached results stay valid.
func (a *Applier) Apply(ctx context.Context, doc *Document) (*Plan, error) {
	plan, err := a.Plan(ctx, doc)
	if err != nil {
		return nil, err
	}
	ws := doc.Workspace
	for i, act := range plan.Actions {
		if act.Operation == OpUnchanged {
			continue
		}
		switch act.Kind {
		case KindDataSource:
			err = a.applyDataSource(ctx, ws, doc.DataSources[i])
		case KindGraph:
			g := doc.Graphs[i-len(doc.DataSources)]
			_, err = a.graphs.Save(ctx, &g)
		case KindDashboard:
			d := doc.Dashboards[i-len(doc.DataSources)-len(doc.Graphs)]
			_, err = a.dashboards.Save(ctx, &d)
		}
		if err != nil {
			return nil, fmt.Errorf("%s %s %q: %w", act.Operation, act.Kind, act.ID, err)
		}
		a.logger.Info("declarative apply", "workspace", ws, "kind", act.Kind, "id", act.ID, "operation", act.Operation)
	}
	return plan, nil
}

func (a *Applier) planDataSource(ctx context.Context, ws string, spec DataSourceSpec) (Operation, error) {
	cur, err := a.dataSources.Get(ctx, ws, spec.ID)
	if isNotFound(err) {
		return OpCreate, nil
	}
	if err != nil {
		return "", err
	}
	if cur.Name != spec.Name || cur.Description != spec.Description {
		return OpUpdate, nil
	}
	if spec.Secret == nil {
		return OpUnchanged, nil
	}
	ref, err := a.refs.Get(ctx, ws, spec.ID)
	if isNotFound(err) {
		return OpUpdate, nil
	}
	if err != nil {
		return "", err
	}
	if *ref != *spec.Secret {
		return OpUpdate, nil
	}
	return OpUnchanged, nil
}

func (a *Applier) applyDataSource(ctx context.Context, ws string, spec DataSourceSpec) error {
	if _, err := a.dataSources.Save(ctx, &domain.DataSource{
		ID:          spec.ID,
		WorkspaceID: ws,
		Name:        spec.Name,
		Description: spec.Description,
	}); err != nil {
		return err
	}
	if spec.Secret == nil {
		return nil
	}
	return a.secrets.SetReference(ctx, ws, spec.ID, *spec.Secret)
}

// planDocument compares desired with the stored copy after strip removes
// store-managed fields from both.
func planDocument[T any](ctx context.Context, get func(context.Context, string, string) (*T, error), ws, id string, desired *T, strip func(T) T) (Operation, error) {
	cur, err := get(ctx, ws, id)
	if isNotFound(err) {
		return OpCreate, nil
	}
	if err != nil {
		return "", err
	}
	same, err := equalJSON(strip(*cur), strip(*desired))
	if err != nil {
		return "", err
	}
	if same {
		return OpUnchanged, nil
	}
	return OpUpdate, nil
}

func stripGraph(g domain.Graph) domain.Graph {
	g.WorkspaceID = ""
	g.CreatedAt, g.UpdatedAt = time.Time{}, time.Time{}
	return g
}

func stripDashboard(d domain.Dashboard) domain.Dashboard {
	d.WorkspaceID = ""
	d.CreatedAt, d.UpdatedAt = time.Time{}, time.Time{}
	return d
}

func equalJSON(a, b any) (bool, error) {
	ja, err := json.Marshal(a)
	if err != nil {
		return false, err
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false, err
	}
	return string(ja) == string(jb), nil
}

func isNotFound(err error) bool {
	var nf *domain.NotFoundError
	return errors.As(err, &nf)
}
