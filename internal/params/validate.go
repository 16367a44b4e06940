package params

import (
	"fmt"
	"regexp"
	"slices"

	"graphable/internal/coerce"
	"graphable/internal/domain"
)

// Result lists every violation found in a parameter set.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validate checks provided values against schema and reports all errors.
// Undeclared keys in provided are ignored.
func Validate(schema []domain.ParameterDefinition, provided map[string]any) Result {
	var errs []string
	for _, def := range schema {
		v, present := provided[def.Name]
		if !present || v == nil {
			if def.Required && def.Default == nil {
				errs = append(errs, fmt.Sprintf("parameter %q is required", def.Name))
			}
			continue
		}
		errs = append(errs, checkValue(def, v)...)
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}

// ValidateParameters is Validate returning a *domain.ValidationError that
// carries every message.
func ValidateParameters(schema []domain.ParameterDefinition, provided map[string]any) error {
	res := Validate(schema, provided)
	if res.Valid {
		return nil
	}
	return domain.ErrValidationList(res.Errors)
}

func checkValue(def domain.ParameterDefinition, v any) []string {
	name := def.Name
	switch def.Type {
	case domain.ParamString:
		s, ok := v.(string)
		if !ok {
			return []string{fmt.Sprintf("parameter %q must be a string", name)}
		}
		return checkPattern(def, s)

	case domain.ParamNumber:
		f, ok := coerce.Float(v)
		if !ok {
			return []string{fmt.Sprintf("parameter %q must be a number", name)}
		}
		return checkRange(def, f, "")

	case domain.ParamBoolean:
		if _, ok := coerce.Bool(v); !ok {
			return []string{fmt.Sprintf("parameter %q must be a boolean", name)}
		}

	case domain.ParamDate, domain.ParamTimestamp:
		if _, ok := coerce.Time(v); !ok {
			return []string{fmt.Sprintf("parameter %q must be a valid %s", name, def.Type)}
		}

	case domain.ParamEnum:
		if !slices.Contains(def.EnumValues, coerce.String(v)) {
			return []string{fmt.Sprintf("parameter %q must be one of %v", name, def.EnumValues)}
		}

	case domain.ParamStringArray, domain.ParamNumberArray:
		items, ok := coerce.Slice(v)
		if !ok {
			return []string{fmt.Sprintf("parameter %q must be an array", name)}
		}
		for i, item := range items {
			if def.Type == domain.ParamStringArray {
				if _, ok := item.(string); !ok {
					return []string{fmt.Sprintf("parameter %q: element %d must be a string", name, i)}
				}
				continue
			}
			if _, ok := coerce.Float(item); !ok {
				return []string{fmt.Sprintf("parameter %q: element %d must be a number", name, i)}
			}
		}
		return checkRange(def, float64(len(items)), " length")

	default:
		return []string{fmt.Sprintf("parameter %q has unknown type %q", name, def.Type)}
	}
	return nil
}

func checkRange(def domain.ParameterDefinition, f float64, what string) []string {
	var errs []string
	if def.Min != nil && f < *def.Min {
		errs = append(errs, fmt.Sprintf("parameter %q%s must be at least %v", def.Name, what, *def.Min))
	}
	if def.Max != nil && f > *def.Max {
		errs = append(errs, fmt.Sprintf("parameter %q%s must be at most %v", def.Name, what, *def.Max))
	}
	return errs
}

func checkPattern(def domain.ParameterDefinition, s string) []string {
	if def.Pattern == "" {
		return nil
	}
	re, err := regexp.Compile(def.Pattern)
	if err != nil {
		return []string{fmt.Sprintf("parameter %q has an invalid pattern: %v", def.Name, err)}
	}
	if !re.MatchString(s) {
		return []string{fmt.Sprintf("parameter %q does not match pattern %s", def.Name, def.Pattern)}
	}
	return nil
}
