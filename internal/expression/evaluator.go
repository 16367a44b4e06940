// Package expression evaluates derived series defined over the results of a
// graph's SQL queries.
package expression

import (
	"log/slog"

	"graphable/internal/coerce"
	"graphable/internal/domain"
	"graphable/internal/resultset"
)

// ValueColumn is the name of the computed column in every expression result.
const ValueColumn = "value"

// numericSampleRows bounds how many rows are inspected to find a numeric column.
const numericSampleRows = 10

// Evaluator computes expression definitions.
type Evaluator struct {
	logger *slog.Logger
}

// NewEvaluator creates an Evaluator. A nil logger discards output.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{logger: logger}
}

// Evaluate runs def against the results computed so far.
func (e *Evaluator) Evaluate(def domain.QueryDefinition, results map[string]*domain.QueryResult) (*domain.QueryResult, error) {
	switch def.Operation {
	case domain.OperationMath:
		return e.EvaluateMath(def.Expression, results)
	case domain.OperationReduce, domain.OperationResample:
		return nil, domain.ErrNotImplemented("expression operation %q is not implemented", def.Operation)
	default:
		return nil, domain.ErrValidation("unknown expression operation %q", def.Operation)
	}
}

type series struct {
	keyCol string
	values map[string]float64
}

// EvaluateMath computes expr for every key present in all referenced
// results. Rows whose computation fails are logged and dropped.
func (e *Evaluator) EvaluateMath(expr string, results map[string]*domain.QueryResult) (*domain.QueryResult, error) {
	refs := References(expr)
	if len(refs) == 0 {
		return nil, domain.ErrValidation("expression %q references no queries", expr)
	}
	for _, ref := range refs {
		if results[ref] == nil {
			return nil, domain.ErrValidation("expression references unknown query $%s", ref)
		}
	}
	prog, err := compile(expr)
	if err != nil {
		return nil, err
	}

	keys := resultset.NewKeySet()
	bySeries := make(map[string]series, len(refs))
	for _, ref := range refs {
		s, err := extractSeries(ref, results[ref], keys)
		if err != nil {
			return nil, err
		}
		bySeries[ref] = s
	}
	keyCol := bySeries[refs[0]].keyCol

	data := make([]map[string]any, 0)
	for _, key := range keys.Sorted() {
		vars := make(map[string]float64, len(refs))
		complete := true
		for _, ref := range refs {
			v, ok := bySeries[ref].values[key.ID]
			if !ok {
				complete = false
				break
			}
			vars[ref] = v
		}
		if !complete {
			continue
		}
		v, err := prog.eval(vars)
		if err != nil {
			e.logger.Warn("expression row skipped", "expression", expr, "key", key.ID, "error", err)
			continue
		}
		data = append(data, map[string]any{keyCol: key.Value, ValueColumn: v})
	}
	return &domain.QueryResult{Data: data, Columns: []string{keyCol, ValueColumn}}, nil
}

// extractSeries maps each key of res to the value of its first numeric
// column, adding every key to keys.
func extractSeries(ref string, res *domain.QueryResult, keys *resultset.KeySet) (series, error) {
	if len(res.Columns) == 0 {
		return series{}, domain.ErrValidation("query $%s returned no columns", ref)
	}
	s := series{keyCol: res.Columns[0], values: map[string]float64{}}
	if len(res.Data) == 0 {
		return s, nil
	}
	valueCol := numericColumn(res)
	if valueCol == "" {
		return series{}, domain.ErrValidation("query $%s has no numeric column", ref)
	}
	for _, row := range res.Data {
		key := row[s.keyCol]
		keys.Add(key)
		id := resultset.KeyString(key)
		if _, dup := s.values[id]; dup {
			continue
		}
		if f, ok := coerce.Float(row[valueCol]); ok {
			s.values[id] = f
		}
	}
	return s, nil
}

// numericColumn returns the first non-key column holding a finite number in
// any sampled row. Numeric strings count.
func numericColumn(res *domain.QueryResult) string {
	sample := res.Data
	if len(sample) > numericSampleRows {
		sample = sample[:numericSampleRows]
	}
	for _, col := range res.Columns[1:] {
		for _, row := range sample {
			if _, ok := coerce.Float(row[col]); ok {
				return col
			}
		}
	}
	return ""
}
