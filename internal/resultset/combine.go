package resultset

import (
	"fmt"

	"graphable/internal/domain"
)

// Empty returns a result with no rows and no columns.
func Empty() *domain.QueryResult {
	return &domain.QueryResult{Data: []map[string]any{}, Columns: []string{}}
}

// Combine merges the visible results of defs, in order, into one table.
//
// Hidden definitions are left out of the output. A single visible result is
// returned as is, with its value column renamed to the definition's name when
// it has exactly one. Several results are joined on the union of their key
// columns (the first column of each), sorted; a series without a row for a key
// contributes nulls. Value columns take the definition's name under the same
// one-value-column rule and are otherwise prefixed with the refId. A name
// already used by an earlier column falls back to the refId prefix.
func Combine(results map[string]*domain.QueryResult, defs []domain.QueryDefinition) *domain.QueryResult {
	type series struct {
		def    domain.QueryDefinition
		result *domain.QueryResult
	}
	var visible []series
	for _, def := range defs {
		if def.Hidden {
			continue
		}
		res, ok := results[def.RefID]
		if !ok || res == nil {
			continue
		}
		visible = append(visible, series{def: def, result: res})
	}

	switch len(visible) {
	case 0:
		return Empty()
	case 1:
		return renameSingle(visible[0].def, visible[0].result)
	}

	keyCol := ""
	keys := NewKeySet()
	byKey := make([]map[string]map[string]any, len(visible))
	for i, s := range visible {
		if len(s.result.Columns) == 0 {
			continue
		}
		col := s.result.Columns[0]
		if keyCol == "" {
			keyCol = col
		}
		index := make(map[string]map[string]any, len(s.result.Data))
		for _, row := range s.result.Data {
			keys.Add(row[col])
			id := KeyString(row[col])
			if _, dup := index[id]; !dup {
				index[id] = row
			}
		}
		byKey[i] = index
	}
	if keyCol == "" {
		return Empty()
	}

	columns := []string{keyCol}
	taken := map[string]bool{keyCol: true}
	names := make([][]string, len(visible))
	for i, s := range visible {
		names[i] = make([]string, len(s.result.Columns))
		for j, col := range s.result.Columns {
			if j == 0 {
				continue
			}
			name := uniqueColumn(taken, s.def, s.result, col)
			taken[name] = true
			names[i][j] = name
			columns = append(columns, name)
		}
	}

	sorted := keys.Sorted()
	data := make([]map[string]any, 0, len(sorted))
	for _, key := range sorted {
		row := map[string]any{keyCol: key.Value}
		for i, s := range visible {
			var src map[string]any
			if byKey[i] != nil {
				src = byKey[i][key.ID]
			}
			for j, col := range s.result.Columns {
				if j == 0 {
					continue
				}
				var v any
				if src != nil {
					v = src[col]
				}
				row[names[i][j]] = v
			}
		}
		data = append(data, row)
	}
	return &domain.QueryResult{Data: data, Columns: columns}
}

// usesCustomName reports whether a series' single value column takes the
// definition's name.
func usesCustomName(def domain.QueryDefinition, res *domain.QueryResult) bool {
	return def.Name != "" && len(res.Columns) == 2
}

func outputColumn(def domain.QueryDefinition, res *domain.QueryResult, col string) string {
	if usesCustomName(def, res) {
		return def.Name
	}
	return def.RefID + "_" + col
}

// uniqueColumn returns the output name for col, falling back to the refId
// prefix and then a numeric suffix when the preferred name is already taken.
func uniqueColumn(taken map[string]bool, def domain.QueryDefinition, res *domain.QueryResult, col string) string {
	name := outputColumn(def, res, col)
	if !taken[name] {
		return name
	}
	name = def.RefID + "_" + col
	for n := 2; taken[name]; n++ {
		name = fmt.Sprintf("%s_%s_%d", def.RefID, col, n)
	}
	return name
}

func renameSingle(def domain.QueryDefinition, res *domain.QueryResult) *domain.QueryResult {
	if !usesCustomName(def, res) || res.Columns[1] == def.Name {
		return res
	}
	keyCol, valueCol := res.Columns[0], res.Columns[1]
	data := make([]map[string]any, len(res.Data))
	for i, row := range res.Data {
		data[i] = map[string]any{keyCol: row[keyCol], def.Name: row[valueCol]}
	}
	return &domain.QueryResult{Data: data, Columns: []string{keyCol, def.Name}}
}
