package params

import (
	"regexp"
	"strconv"
	"strings"

	"graphable/internal/coerce"
	"graphable/internal/domain"
	"graphable/internal/sqlrewrite"
)

// IsSelectAll reports whether v is the "All" sentinel that disables a filter.
// A single-element array holding the sentinel counts too.
func IsSelectAll(v any) bool {
	if s, ok := v.(string); ok {
		return s == "All" || s == "all"
	}
	if items, ok := coerce.Slice(v); ok && len(items) == 1 {
		return IsSelectAll(items[0])
	}
	return false
}

// EffectiveValue resolves the value bound for def: the provided value, else
// the default. ok is false when the parameter should be skipped.
func EffectiveValue(def domain.ParameterDefinition, provided map[string]any) (any, bool) {
	v, present := provided[def.Name]
	if !present || v == nil {
		v = def.Default
	}
	if v == nil || IsSelectAll(v) {
		return nil, false
	}
	return normalize(def.Type, v), true
}

// WithDefaults returns provided with declared defaults filled in for absent
// parameters. The input map is not modified.
func WithDefaults(schema []domain.ParameterDefinition, provided map[string]any) map[string]any {
	out := make(map[string]any, len(provided)+len(schema))
	for k, v := range provided {
		out[k] = v
	}
	for _, def := range schema {
		if v, ok := out[def.Name]; (!ok || v == nil) && def.Default != nil {
			out[def.Name] = def.Default
		}
	}
	return out
}

// Bind rewrites :name references in sql into $1..$n placeholders and
// collects the values in placeholder order. Values never enter the SQL text.
//
// Parameters without a value, set to the "All" sentinel, or not referenced
// by sql consume no placeholder. Every occurrence of one name shares its
// placeholder. References inside quoted text and PostgreSQL ::casts are left
// alone.
func Bind(sql string, defs []domain.ParameterDefinition, provided map[string]any) domain.BoundQuery {
	bound := domain.BoundQuery{Query: sql}
	for _, def := range defs {
		v, ok := EffectiveValue(def, provided)
		if !ok {
			continue
		}
		ref := namedRef(def.Name)
		if !referenced(bound.Query, ref) {
			continue
		}
		placeholder := "${1}$$" + strconv.Itoa(len(bound.Values)+1)
		bound.Query = sqlrewrite.MapUnquoted(bound.Query, func(s string) string {
			return ref.ReplaceAllString(s, placeholder)
		})
		bound.Values = append(bound.Values, v)
	}
	return bound
}

func namedRef(name string) *regexp.Regexp {
	return regexp.MustCompile(`(^|[^:\w]):` + regexp.QuoteMeta(name) + `\b`)
}

func referenced(sql string, ref *regexp.Regexp) bool {
	found := false
	sqlrewrite.MapUnquoted(sql, func(s string) string {
		if !found && ref.MatchString(s) {
			found = true
		}
		return s
	})
	return found
}

func normalize(typ domain.ParameterType, v any) any {
	switch typ {
	case domain.ParamDate, domain.ParamTimestamp:
		if t, ok := coerce.Time(v); ok {
			return t.UTC().Format(coerce.ISOLayout)
		}
	case domain.ParamNumber:
		if s, ok := v.(string); ok {
			if f, ok := coerce.Float(s); ok {
				return f
			}
		}
	case domain.ParamBoolean:
		if s, ok := v.(string); ok {
			if b, ok := coerce.Bool(s); ok {
				return b
			}
		}
	case domain.ParamStringArray:
		items := arrayItems(v)
		out := make([]string, len(items))
		for i, item := range items {
			out[i] = coerce.String(item)
		}
		return out
	case domain.ParamNumberArray:
		items := arrayItems(v)
		out := make([]float64, 0, len(items))
		for _, item := range items {
			if f, ok := coerce.Float(item); ok {
				out = append(out, f)
			}
		}
		return out
	}
	return v
}

// arrayItems accepts an array, a comma-separated string, or a scalar.
func arrayItems(v any) []any {
	if items, ok := coerce.Slice(v); ok {
		return items
	}
	if s, ok := v.(string); ok {
		parts := strings.Split(s, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out
	}
	return []any{v}
}
