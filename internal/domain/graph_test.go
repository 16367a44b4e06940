package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryDefinition_UnmarshalInfersKind(t *testing.T) {
	tests := []struct {
		name string
		json string
		want QueryKind
	}{
		{"explicit kind", `{"kind":"expression","refId":"C","operation":"math","expression":"$A"}`, QueryKindExpression},
		{"dialect implies sql", `{"refId":"A","dialect":"sql","text":"SELECT 1"}`, QueryKindSQL},
		{"operation implies expression", `{"refId":"B","operation":"math","expression":"$A * 2"}`, QueryKindExpression},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q QueryDefinition
			require.NoError(t, json.Unmarshal([]byte(tt.json), &q))
			assert.Equal(t, tt.want, q.Kind)
		})
	}
}

func TestGraph_Validate(t *testing.T) {
	tests := []struct {
		name    string
		graph   Graph
		wantErr bool
	}{
		{
			name:  "legacy query",
			graph: Graph{Name: "g", Query: "SELECT 1"},
		},
		{
			name:    "missing name",
			graph:   Graph{Query: "SELECT 1"},
			wantErr: true,
		},
		{
			name:    "no queries",
			graph:   Graph{Name: "g"},
			wantErr: true,
		},
		{
			name: "duplicate refId",
			graph: Graph{Name: "g", Queries: []QueryDefinition{
				{Kind: QueryKindSQL, RefID: "A", Text: "SELECT 1"},
				{Kind: QueryKindSQL, RefID: "A", Text: "SELECT 2"},
			}},
			wantErr: true,
		},
		{
			name: "lowercase refId",
			graph: Graph{Name: "g", Queries: []QueryDefinition{
				{Kind: QueryKindSQL, RefID: "a", Text: "SELECT 1"},
			}},
			wantErr: true,
		},
		{
			name: "unknown parameter type",
			graph: Graph{Name: "g", Query: "SELECT 1", Parameters: []ParameterDefinition{
				{Name: "p", Type: "uuid"},
			}},
			wantErr: true,
		},
		{
			name: "query and expression",
			graph: Graph{Name: "g", Queries: []QueryDefinition{
				{Kind: QueryKindSQL, RefID: "A", Text: "SELECT 1"},
				{Kind: QueryKindExpression, RefID: "B", Operation: OperationMath, Expression: "$A * 2"},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.graph.Validate()
			if tt.wantErr {
				var valErr *ValidationError
				assert.ErrorAs(t, err, &valErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestGraph_TimeRangeEnabled(t *testing.T) {
	g := Graph{TimeRange: "7d"}
	assert.True(t, g.TimeRangeEnabled())

	g.Visualization.Options = map[string]any{OptionDisableTimeRange: true}
	assert.False(t, g.TimeRangeEnabled())

	assert.False(t, (&Graph{}).TimeRangeEnabled())
}

func TestDashboard_TileParametersOverrideGlobals(t *testing.T) {
	d := Dashboard{Parameters: map[string]any{"region": "eu", "status": "active"}}
	got := d.TileParameters(Tile{Parameters: map[string]any{"status": "All"}})
	assert.Equal(t, map[string]any{"region": "eu", "status": "All"}, got)
	assert.Equal(t, "active", d.Parameters["status"], "globals must not be mutated")
}

func TestSecretReference_CacheKey(t *testing.T) {
	a := SecretReference{Provider: "local", VaultURL: "v", SecretName: "s", Version: "1"}
	b := a
	b.Version = "2"
	assert.NotEqual(t, a.CacheKey(), b.CacheKey())
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
	assert.Equal(t, 0, TotalPages(5, 0))
}
