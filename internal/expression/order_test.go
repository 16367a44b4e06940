package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphable/internal/domain"
)

func refIDs(defs []domain.QueryDefinition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.RefID
	}
	return out
}

func TestOrder(t *testing.T) {
	tests := []struct {
		name string
		defs []domain.QueryDefinition
		want []string
	}{
		{
			name: "independent keep declaration order",
			defs: []domain.QueryDefinition{
				{RefID: "C", Expression: "$A + 1"},
				{RefID: "D", Expression: "$B + 1"},
			},
			want: []string{"C", "D"},
		},
		{
			name: "dependency declared later moves first",
			defs: []domain.QueryDefinition{
				{RefID: "E", Expression: "$D * 2"},
				{RefID: "D", Expression: "$C + $A"},
				{RefID: "C", Expression: "$A / $B"},
			},
			want: []string{"C", "D", "E"},
		},
		{
			name: "unknown references do not constrain",
			defs: []domain.QueryDefinition{
				{RefID: "C", Expression: "$Z + 1"},
			},
			want: []string{"C"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Order(tt.defs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, refIDs(got))
		})
	}
}

func TestOrder_Cycle(t *testing.T) {
	for _, defs := range [][]domain.QueryDefinition{
		{{RefID: "C", Expression: "$D"}, {RefID: "D", Expression: "$C"}},
		{{RefID: "C", Expression: "$C + 1"}},
	} {
		_, err := Order(defs)
		var valErr *domain.ValidationError
		assert.ErrorAs(t, err, &valErr)
	}
}
