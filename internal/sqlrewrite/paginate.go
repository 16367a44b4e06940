package sqlrewrite

import "strings"

// IsSelect reports whether sql, ignoring comments, begins with SELECT.
func IsSelect(sql string) bool {
	return selectPrefix.MatchString(strings.TrimSpace(StripComments(sql)))
}

// Embeddable returns sql without comments or a trailing statement terminator,
// ready to be wrapped as a subquery.
func Embeddable(sql string) string {
	return trimTrailingSemicolon(strings.TrimSpace(StripComments(sql)))
}

// HasLimitOrOffset reports whether sql has a top-level LIMIT, OFFSET or
// FETCH clause.
func HasLimitOrOffset(sql string) bool {
	toks, err := lex(sql)
	if err != nil {
		return false
	}
	for _, t := range code(toks) {
		if t.depth == 0 && (t.is("LIMIT") || t.is("OFFSET") || t.is("FETCH")) {
			return true
		}
	}
	return false
}
