package params

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphable/internal/domain"
)

func floatPtr(f float64) *float64 { return &f }

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		def      domain.ParameterDefinition
		value    any
		wantErrs int
	}{
		{"string ok", domain.ParameterDefinition{Name: "s", Type: domain.ParamString}, "abc", 0},
		{"string wrong type", domain.ParameterDefinition{Name: "s", Type: domain.ParamString}, 12.0, 1},
		{"pattern match", domain.ParameterDefinition{Name: "s", Type: domain.ParamString, Pattern: `^[a-z]+$`}, "abc", 0},
		{"pattern mismatch", domain.ParameterDefinition{Name: "s", Type: domain.ParamString, Pattern: `^[a-z]+$`}, "ABC", 1},
		{"bad pattern", domain.ParameterDefinition{Name: "s", Type: domain.ParamString, Pattern: `(`}, "x", 1},
		{"number ok", domain.ParameterDefinition{Name: "n", Type: domain.ParamNumber}, 3.5, 0},
		{"number from string", domain.ParameterDefinition{Name: "n", Type: domain.ParamNumber}, "42", 0},
		{"number int", domain.ParameterDefinition{Name: "n", Type: domain.ParamNumber}, 7, 0},
		{"number NaN", domain.ParameterDefinition{Name: "n", Type: domain.ParamNumber}, math.NaN(), 1},
		{"number text", domain.ParameterDefinition{Name: "n", Type: domain.ParamNumber}, "abc", 1},
		{"number below min", domain.ParameterDefinition{Name: "n", Type: domain.ParamNumber, Min: floatPtr(10)}, 5.0, 1},
		{"number above max", domain.ParameterDefinition{Name: "n", Type: domain.ParamNumber, Max: floatPtr(10)}, 11.0, 1},
		{"boolean ok", domain.ParameterDefinition{Name: "b", Type: domain.ParamBoolean}, true, 0},
		{"boolean string", domain.ParameterDefinition{Name: "b", Type: domain.ParamBoolean}, "false", 0},
		{"boolean wrong", domain.ParameterDefinition{Name: "b", Type: domain.ParamBoolean}, "yes please", 1},
		{"date iso", domain.ParameterDefinition{Name: "d", Type: domain.ParamDate}, "2024-01-31", 0},
		{"timestamp iso", domain.ParameterDefinition{Name: "d", Type: domain.ParamTimestamp}, "2024-01-31T10:00:00Z", 0},
		{"date value", domain.ParameterDefinition{Name: "d", Type: domain.ParamDate}, time.Now(), 0},
		{"date garbage", domain.ParameterDefinition{Name: "d", Type: domain.ParamDate}, "yesterday", 1},
		{"enum ok", domain.ParameterDefinition{Name: "e", Type: domain.ParamEnum, EnumValues: []string{"a", "b"}}, "b", 0},
		{"enum bad", domain.ParameterDefinition{Name: "e", Type: domain.ParamEnum, EnumValues: []string{"a", "b"}}, "c", 1},
		{"string array ok", domain.ParameterDefinition{Name: "a", Type: domain.ParamStringArray}, []any{"x", "y"}, 0},
		{"string array mixed", domain.ParameterDefinition{Name: "a", Type: domain.ParamStringArray}, []any{"x", 1.0}, 1},
		{"number array ok", domain.ParameterDefinition{Name: "a", Type: domain.ParamNumberArray}, []any{1.0, "2"}, 0},
		{"number array bad", domain.ParameterDefinition{Name: "a", Type: domain.ParamNumberArray}, []any{1.0, "two"}, 1},
		{"array scalar", domain.ParameterDefinition{Name: "a", Type: domain.ParamNumberArray}, 1.0, 1},
		{"array too long", domain.ParameterDefinition{Name: "a", Type: domain.ParamStringArray, Max: floatPtr(1)}, []string{"x", "y"}, 1},
		{"array too short", domain.ParameterDefinition{Name: "a", Type: domain.ParamStringArray, Min: floatPtr(3)}, []string{"x"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate([]domain.ParameterDefinition{tt.def}, map[string]any{tt.def.Name: tt.value})
			assert.Len(t, res.Errors, tt.wantErrs, res.Errors)
			assert.Equal(t, tt.wantErrs == 0, res.Valid)
		})
	}
}

func TestValidate_RequiredMissing(t *testing.T) {
	schema := []domain.ParameterDefinition{
		{Name: "region", Type: domain.ParamString, Required: true},
		{Name: "limit", Type: domain.ParamNumber, Required: true, Default: 10.0},
		{Name: "optional", Type: domain.ParamString},
	}
	res := Validate(schema, map[string]any{"region": nil})
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], `"region"`)
}

func TestValidate_ReportsEveryError(t *testing.T) {
	schema := []domain.ParameterDefinition{
		{Name: "a", Type: domain.ParamString, Required: true},
		{Name: "b", Type: domain.ParamNumber},
		{Name: "c", Type: domain.ParamEnum, EnumValues: []string{"x"}},
	}
	res := Validate(schema, map[string]any{"b": "nope", "c": "y", "extra": 1})
	assert.Len(t, res.Errors, 3)

	err := ValidateParameters(schema, map[string]any{"b": "nope", "c": "y"})
	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Len(t, valErr.Errors, 3)
}

func TestValidateParameters_Valid(t *testing.T) {
	schema := []domain.ParameterDefinition{{Name: "a", Type: domain.ParamString, Required: true}}
	assert.NoError(t, ValidateParameters(schema, map[string]any{"a": "x"}))
}
