package expression

import (
	"strings"

	"graphable/internal/domain"
)

// Order sorts expression definitions so that each one follows every
// expression it references. Definitions without dependencies between them
// keep their declaration order. References to SQL queries or to unknown
// refIds do not constrain the order. A reference cycle is a validation error.
func Order(defs []domain.QueryDefinition) ([]domain.QueryDefinition, error) {
	index := make(map[string]int, len(defs))
	for i, d := range defs {
		index[d.RefID] = i
	}

	pending := make([]int, len(defs))
	dependents := make([][]int, len(defs))
	for i, d := range defs {
		seen := make(map[int]bool)
		for _, ref := range References(d.Expression) {
			j, ok := index[ref]
			if !ok || seen[j] {
				continue
			}
			seen[j] = true
			pending[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	out := make([]domain.QueryDefinition, 0, len(defs))
	done := make([]bool, len(defs))
	for len(out) < len(defs) {
		next := -1
		for i := range defs {
			if !done[i] && pending[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var cycle []string
			for i, d := range defs {
				if !done[i] {
					cycle = append(cycle, "$"+d.RefID)
				}
			}
			return nil, domain.ErrValidation("expressions reference each other in a cycle: %s", strings.Join(cycle, ", "))
		}
		done[next] = true
		out = append(out, defs[next])
		for _, dep := range dependents[next] {
			pending[dep]--
		}
	}
	return out, nil
}
