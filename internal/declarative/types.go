// Package declarative imports data sources, graphs and dashboards for one
// workspace from a YAML document.
package declarative

import "graphable/internal/domain"

// Document is the top-level YAML shape.
type Document struct {
	Workspace   string             `yaml:"workspace"`
	DataSources []DataSourceSpec   `yaml:"dataSources,omitempty"`
	Graphs      []domain.Graph     `yaml:"graphs,omitempty"`
	Dashboards  []domain.Dashboard `yaml:"dashboards,omitempty"`
}

// DataSourceSpec declares a data source and optionally where its
// credentials live.
type DataSourceSpec struct {
	ID          string                  `yaml:"id"`
	Name        string                  `yaml:"name"`
	Description string                  `yaml:"description,omitempty"`
	Secret      *domain.SecretReference `yaml:"secret,omitempty"`
}

// ResourceKind names the kind of resource an action touches.
type ResourceKind string

// Resource kinds, in apply order.
const (
	KindDataSource ResourceKind = "data_source"
	KindGraph      ResourceKind = "graph"
	KindDashboard  ResourceKind = "dashboard"
)

// Operation is what applying an action does.
type Operation string

// Operations.
const (
	OpCreate    Operation = "create"
	OpUpdate    Operation = "update"
	OpUnchanged Operation = "unchanged"
)

// Action is one planned change.
type Action struct {
	Operation Operation    `json:"operation"`
	Kind      ResourceKind `json:"kind"`
	ID        string       `json:"id"`
	Name      string       `json:"name"`
}

// Plan is the ordered list of actions for a document.
type Plan struct {
	Workspace string   `json:"workspace"`
	Actions   []Action `json:"actions"`
}

// Summary counts actions by operation.
type Summary struct {
	Creates   int `json:"creates"`
	Updates   int `json:"updates"`
	Unchanged int `json:"unchanged"`
}

// Summary returns the action counts.
func (p *Plan) Summary() Summary {
	var s Summary
	for _, a := range p.Actions {
		switch a.Operation {
		case OpCreate:
			s.Creates++
		case OpUpdate:
			s.Updates++
		case OpUnchanged:
			s.Unchanged++
		}
	}
	return s
}

// HasChanges reports whether applying the plan would write anything.
func (p *Plan) HasChanges() bool {
	s := p.Summary()
	return s.Creates+s.Updates > 0
}
