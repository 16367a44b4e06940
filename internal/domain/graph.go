package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ParameterType enumerates the value types a graph parameter may declare.
type ParameterType string

// Supported parameter types.
const (
	ParamString      ParameterType = "string"
	ParamNumber      ParameterType = "number"
	ParamBoolean     ParameterType = "boolean"
	ParamDate        ParameterType = "date"
	ParamTimestamp   ParameterType = "timestamp"
	ParamEnum        ParameterType = "enum"
	ParamStringArray ParameterType = "string[]"
	ParamNumberArray ParameterType = "number[]"
)

// Valid reports whether t is a known parameter type.
func (t ParameterType) Valid() bool {
	switch t {
	case ParamString, ParamNumber, ParamBoolean, ParamDate, ParamTimestamp,
		ParamEnum, ParamStringArray, ParamNumberArray:
		return true
	}
	return false
}

// IsArray reports whether t is one of the homogeneous array types.
func (t ParameterType) IsArray() bool {
	return t == ParamStringArray || t == ParamNumberArray
}

// ParameterDefinition declares one named value a query may reference.
type ParameterDefinition struct {
	Name       string        `json:"name" yaml:"name"`
	Type       ParameterType `json:"type" yaml:"type"`
	Required   bool          `json:"required,omitempty" yaml:"required,omitempty"`
	Default    any           `json:"default,omitempty" yaml:"default,omitempty"`
	EnumValues []string      `json:"enumValues,omitempty" yaml:"enumValues,omitempty"`
	Min        *float64      `json:"min,omitempty" yaml:"min,omitempty"`
	Max        *float64      `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern    string        `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// QueryKind discriminates SQL queries from derived expressions.
type QueryKind string

// Query definition kinds.
const (
	QueryKindSQL        QueryKind = "sql"
	QueryKindExpression QueryKind = "expression"
)

// ExpressionOperation is the operation an expression definition performs.
type ExpressionOperation string

// Expression operations. Only math is evaluated.
const (
	OperationMath     ExpressionOperation = "math"
	OperationReduce   ExpressionOperation = "reduce"
	OperationResample ExpressionOperation = "resample"
)

// QueryDefinition is one entry of a multi-query graph. Kind selects which of
// the SQL or expression fields apply.
type QueryDefinition struct {
	Kind   QueryKind `json:"kind" yaml:"kind"`
	RefID  string    `json:"refId" yaml:"refId"`
	Name   string    `json:"name,omitempty" yaml:"name,omitempty"`
	Hidden bool      `json:"hidden,omitempty" yaml:"hidden,omitempty"`

	// SQL
	Dialect       string                `json:"dialect,omitempty" yaml:"dialect,omitempty"`
	Text          string                `json:"text,omitempty" yaml:"text,omitempty"`
	DataSourceRef string                `json:"dataSourceRef,omitempty" yaml:"dataSourceRef,omitempty"`
	Parameters    []ParameterDefinition `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Expression
	Operation  ExpressionOperation `json:"operation,omitempty" yaml:"operation,omitempty"`
	Expression string              `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// UnmarshalJSON decodes a definition, inferring Kind from the dialect or
// operation field for documents written before the discriminant existed.
func (q *QueryDefinition) UnmarshalJSON(data []byte) error {
	type plain QueryDefinition
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*q = QueryDefinition(p)
	if q.Kind == "" {
		switch {
		case q.Operation != "":
			q.Kind = QueryKindExpression
		case q.Dialect != "" || q.Text != "":
			q.Kind = QueryKindSQL
		}
	}
	return nil
}

// Validate checks the definition's shape.
func (q *QueryDefinition) Validate() error {
	if !IsRefID(q.RefID) {
		return ErrValidation("refId %q must be a single uppercase letter", q.RefID)
	}
	switch q.Kind {
	case QueryKindSQL:
		if q.Dialect != "" && q.Dialect != "sql" {
			return ErrValidation("query %s: unsupported dialect %q", q.RefID, q.Dialect)
		}
		if q.Text == "" {
			return ErrValidation("query %s: text is required", q.RefID)
		}
	case QueryKindExpression:
		switch q.Operation {
		case OperationMath, OperationReduce, OperationResample:
		default:
			return ErrValidation("expression %s: unknown operation %q", q.RefID, q.Operation)
		}
		if q.Expression == "" {
			return ErrValidation("expression %s: expression is required", q.RefID)
		}
	default:
		return ErrValidation("query %s: unknown kind %q", q.RefID, q.Kind)
	}
	return nil
}

// IsRefID reports whether s is a single uppercase ASCII letter.
func IsRefID(s string) bool {
	return len(s) == 1 && s[0] >= 'A' && s[0] <= 'Z'
}

// Visualization describes how the front end renders a graph.
type Visualization struct {
	Type    string         `json:"type,omitempty" yaml:"type,omitempty"`
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// OptionDisableTimeRange is the visualization option that turns off time-range injection.
const OptionDisableTimeRange = "disableTimeRange"

// CachePolicy controls in-memory caching of a graph's execution result.
type CachePolicy struct {
	Enabled    bool `json:"enabled" yaml:"enabled"`
	TTLSeconds int  `json:"ttlSeconds,omitempty" yaml:"ttlSeconds,omitempty"`
}

// Time ranges with special meaning.
const (
	TimeRangeAll    = "all"
	TimeRangeCustom = "custom"
)

// Graph is a stored set of queries and expressions plus presentation settings.
// A graph with no Queries is in legacy form and runs its inline Query.
type Graph struct {
	ID            string                `json:"id" yaml:"id"`
	WorkspaceID   string                `json:"workspaceId" yaml:"-"`
	Name          string                `json:"name" yaml:"name"`
	Description   string                `json:"description,omitempty" yaml:"description,omitempty"`
	Query         string                `json:"query,omitempty" yaml:"query,omitempty"`
	Queries       []QueryDefinition     `json:"queries,omitempty" yaml:"queries,omitempty"`
	DataSourceRef string                `json:"dataSourceRef,omitempty" yaml:"dataSourceRef,omitempty"`
	Parameters    []ParameterDefinition `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Visualization Visualization         `json:"visualization" yaml:"visualization,omitempty"`
	TimeRange     string                `json:"timeRange,omitempty" yaml:"timeRange,omitempty"`
	CachePolicy   *CachePolicy          `json:"cachePolicy,omitempty" yaml:"cachePolicy,omitempty"`
	CreatedAt     time.Time             `json:"createdAt" yaml:"-"`
	UpdatedAt     time.Time             `json:"updatedAt" yaml:"-"`
}

// IsLegacy reports whether the graph uses the single inline query form.
func (g *Graph) IsLegacy() bool {
	return len(g.Queries) == 0
}

// TimeRangeEnabled reports whether time-range injection applies to this graph.
func (g *Graph) TimeRangeEnabled() bool {
	if g.TimeRange == "" {
		return false
	}
	disabled, _ := g.Visualization.Options[OptionDisableTimeRange].(bool)
	return !disabled
}

// Validate checks the graph definition for structural errors.
func (g *Graph) Validate() error {
	if g.Name == "" {
		return ErrValidation("graph name is required")
	}
	if g.IsLegacy() {
		if g.Query == "" {
			return ErrValidation("graph %q has no queries", g.Name)
		}
	}
	seen := make(map[string]bool, len(g.Queries))
	for i := range g.Queries {
		q := &g.Queries[i]
		if err := q.Validate(); err != nil {
			return err
		}
		if seen[q.RefID] {
			return ErrValidation("duplicate refId %q", q.RefID)
		}
		seen[q.RefID] = true
	}
	for _, p := range g.Parameters {
		if p.Name == "" {
			return ErrValidation("parameter name is required")
		}
		if !p.Type.Valid() {
			return ErrValidation("parameter %q: unknown type %q", p.Name, p.Type)
		}
	}
	return nil
}

// ParameterSchema returns the graph-level parameters followed by any
// query-level parameters not already declared, in order.
func (g *Graph) ParameterSchema() []ParameterDefinition {
	out := make([]ParameterDefinition, 0, len(g.Parameters))
	seen := make(map[string]bool)
	for _, p := range g.Parameters {
		if !seen[p.Name] {
			seen[p.Name] = true
			out = append(out, p)
		}
	}
	for _, q := range g.Queries {
		for _, p := range q.Parameters {
			if !seen[p.Name] {
				seen[p.Name] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// Position is a tile's placement on the dashboard grid.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

// Tile places one graph on a dashboard with optional parameter overrides.
type Tile struct {
	ID         string         `json:"id" yaml:"id"`
	GraphRef   string         `json:"graphRef" yaml:"graphRef"`
	Position   Position       `json:"position" yaml:"position"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Dashboard is an arrangement of graph tiles sharing global parameters.
type Dashboard struct {
	ID          string         `json:"id" yaml:"id"`
	WorkspaceID string         `json:"workspaceId" yaml:"-"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Tiles       []Tile         `json:"tiles" yaml:"tiles"`
	CreatedAt   time.Time      `json:"createdAt" yaml:"-"`
	UpdatedAt   time.Time      `json:"updatedAt" yaml:"-"`
}

// Validate checks the dashboard definition.
func (d *Dashboard) Validate() error {
	if d.Name == "" {
		return ErrValidation("dashboard name is required")
	}
	for i, t := range d.Tiles {
		if t.GraphRef == "" {
			return ErrValidation("tile %d: graphRef is required", i)
		}
	}
	return nil
}

// TileParameters merges tile overrides over the dashboard's global parameters.
func (d *Dashboard) TileParameters(t Tile) map[string]any {
	out := make(map[string]any, len(d.Parameters)+len(t.Parameters))
	for k, v := range d.Parameters {
		out[k] = v
	}
	for k, v := range t.Parameters {
		out[k] = v
	}
	return out
}

// String implements fmt.Stringer for log output.
func (p Position) String() string {
	return fmt.Sprintf("%d,%d %dx%d", p.X, p.Y, p.W, p.H)
}
