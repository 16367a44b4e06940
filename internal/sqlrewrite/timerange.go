package sqlrewrite

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"graphable/internal/domain"
)

// dateColumnPatterns are tried in order; the first that names a column wins.
var dateColumnPatterns = []string{
	"created_at", "updated_at", "date", "timestamp", "created", "updated", "time", "datetime",
}

var relativeRange = regexp.MustCompile(`^(\d+)([hd])$`)

// clauses that end a WHERE condition, in the order they may appear.
var trailingClauses = []string{"GROUP", "HAVING", "WINDOW", "ORDER", "LIMIT", "OFFSET", "FETCH"}

// RangeInterval parses a relative range such as "1h" or "7d" into a
// PostgreSQL interval literal body. ok is false for anything else.
func RangeInterval(timeRange string) (interval string, ok bool) {
	m := relativeRange.FindStringSubmatch(timeRange)
	if m == nil {
		return "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return "", false
	}
	unit := "hours"
	if m[2] == "d" {
		unit = "days"
	}
	return fmt.Sprintf("%d %s", n, unit), true
}

// InjectTimeRange restricts sql to rows whose date column falls inside the
// relative window timeRange. It is a no-op for "", "all" and "custom", and
// when no date column can be found. The rewritten query is re-validated.
func InjectTimeRange(sql, timeRange string) (string, error) {
	switch timeRange {
	case "", domain.TimeRangeAll, domain.TimeRangeCustom:
		return sql, nil
	}
	interval, ok := RangeInterval(timeRange)
	if !ok {
		return "", domain.ErrValidation("unsupported time range %q", timeRange)
	}

	cleaned := trimTrailingSemicolon(strings.TrimSpace(StripComments(sql)))
	all, err := lex(cleaned)
	if err != nil {
		return "", domain.ErrValidation("query could not be parsed: %v", err)
	}
	toks := code(all)

	fromIdx := indexTopLevel(toks, 0, "FROM")
	if fromIdx < 0 {
		return sql, nil
	}
	column := findDateColumn(cleaned, toks, fromIdx)
	if column == "" {
		return sql, nil
	}
	condition := fmt.Sprintf("%s >= NOW() - INTERVAL '%s'", column, interval)

	clauseIdx := firstTrailingClause(toks, fromIdx+1)
	clausePos := len(cleaned)
	if clauseIdx >= 0 {
		clausePos = toks[clauseIdx].start
	}

	var out string
	whereIdx := indexTopLevel(toks, fromIdx+1, "WHERE")
	if whereIdx >= 0 && (clauseIdx < 0 || whereIdx < clauseIdx) {
		existing := strings.TrimSpace(cleaned[toks[whereIdx].end:clausePos])
		out = cleaned[:toks[whereIdx].start] + "WHERE (" + existing + ") AND " + condition
	} else {
		out = strings.TrimRight(cleaned[:clausePos], " \t\r\n\f\v") + " WHERE " + condition
	}
	if clausePos < len(cleaned) {
		out += " " + cleaned[clausePos:]
	}

	if err := ValidateQuery(out); err != nil {
		return "", err
	}
	return out, nil
}

// findDateColumn looks for a date-like column in the SELECT list, then in the
// whole query. It returns the column as written, including any alias prefix.
func findDateColumn(sql string, toks []token, fromIdx int) string {
	selectIdx := indexTopLevel(toks, 0, "SELECT")
	if selectIdx >= 0 && selectIdx < fromIdx {
		if col := matchDateColumn(sql, toks, selectIdx+1, fromIdx); col != "" {
			return col
		}
	}
	return matchDateColumn(sql, toks, 0, len(toks))
}

func matchDateColumn(sql string, toks []token, from, to int) string {
	for _, pattern := range dateColumnPatterns {
		for i := from; i < to; i++ {
			name, first, ok := columnRef(toks, i)
			if ok && strings.EqualFold(name, pattern) {
				return sql[toks[first].start:toks[i].end]
			}
		}
	}
	return ""
}

// columnRef returns the unqualified column name referenced by toks[i] and
// the index of the first token of its qualified form. ok is false when the
// token is not a column reference: qualifiers, keywords used as types or
// literal prefixes, function names, aliases after AS, and AT TIME ZONE.
func columnRef(toks []token, i int) (name string, first int, ok bool) {
	t := toks[i]
	switch t.kind {
	case tokWord:
		name = t.text
	case tokQuotedIdent:
		name = strings.Trim(t.text, `"`)
	default:
		return "", 0, false
	}
	if i+1 < len(toks) {
		next := toks[i+1]
		if next.punct(".") || next.punct("(") || next.kind == tokString || next.is("ZONE") {
			return "", 0, false
		}
	}
	first = i
	for first >= 2 && toks[first-1].punct(".") &&
		(toks[first-2].kind == tokWord || toks[first-2].kind == tokQuotedIdent) {
		first -= 2
	}
	if first > 0 {
		prev := toks[first-1]
		if prev.is("AS") || prev.is("AT") || prev.punct("::") {
			return "", 0, false
		}
	}
	return name, first, true
}

// indexTopLevel returns the index of the first depth-0 keyword at or after
// start, or -1.
func indexTopLevel(toks []token, start int, keyword string) int {
	for i := start; i < len(toks); i++ {
		if toks[i].depth == 0 && toks[i].is(keyword) {
			return i
		}
	}
	return -1
}

// firstTrailingClause returns the index of the first depth-0 clause keyword
// that must follow WHERE, or -1.
func firstTrailingClause(toks []token, start int) int {
	for i := start; i < len(toks); i++ {
		if toks[i].depth != 0 {
			continue
		}
		for _, kw := range trailingClauses {
			if !toks[i].is(kw) {
				continue
			}
			if kw == "GROUP" || kw == "ORDER" {
				if i+1 >= len(toks) || !toks[i+1].is("BY") {
					continue
				}
			}
			return i
		}
	}
	return -1
}
