package engine

import (
	"database/sql"
	"sort"
)

// scanRows reads every row into a map keyed by column name. When names
// repeat, the last value wins. []byte values become strings.
func scanRows(rows *sql.Rows) ([]string, []map[string]any, error) {
	fields, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	data := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(fields))
		ptrs := make([]any, len(fields))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make(map[string]any, len(fields))
		for i, name := range fields {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = values[i]
			}
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return fields, data, nil
}

// resolveColumns returns the driver-reported fields when they are unique and
// match the keys of the first row one to one. Otherwise the names are taken
// from the row itself, in field order.
func resolveColumns(fields []string, first map[string]any) []string {
	if first == nil {
		return dedupe(fields)
	}
	if fieldsMatchRow(fields, first) {
		return fields
	}

	cols := make([]string, 0, len(first))
	seen := make(map[string]bool, len(first))
	for _, f := range fields {
		if _, ok := first[f]; ok && !seen[f] {
			seen[f] = true
			cols = append(cols, f)
		}
	}
	var extra []string
	for k := range first {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

func fieldsMatchRow(fields []string, row map[string]any) bool {
	if len(fields) != len(row) {
		return false
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f] {
			return false
		}
		seen[f] = true
		if _, ok := row[f]; !ok {
			return false
		}
	}
	return true
}

func dedupe(fields []string) []string {
	out := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
