// Package sqlrewrite validates and rewrites user-authored SQL before it is
// sent to a data source.
//
// Validation enforces a read-only subset: a single SELECT statement with no
// data-modifying or privileged keywords. Rewriting adds a relative time
// window predicate to a query whose date column can be located.
package sqlrewrite

import (
	"regexp"
	"strings"

	"graphable/internal/domain"
)

// MaxQueryLength is the longest SQL text accepted, in characters.
const MaxQueryLength = 10000

// ForbiddenKeywords may not appear as whole words anywhere in a query.
var ForbiddenKeywords = []string{
	"DROP", "DELETE", "INSERT", "UPDATE", "ALTER", "CREATE", "TRUNCATE",
	"EXEC", "EXECUTE", "GRANT", "REVOKE", "MERGE", "REPLACE",
}

var (
	forbiddenPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(ForbiddenKeywords, "|") + `)\b`)
	selectPrefix     = regexp.MustCompile(`(?i)^SELECT\b`)
)

// ValidationResult reports whether SQL passed validation and why not.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Validate checks sql against the read-only rules.
func Validate(sql string) ValidationResult {
	if err := ValidateQuery(sql); err != nil {
		return ValidationResult{Error: err.Error()}
	}
	return ValidationResult{Valid: true}
}

// ValidateQuery is Validate returning a *domain.ValidationError on failure.
func ValidateQuery(sql string) error {
	if len([]rune(sql)) > MaxQueryLength {
		return domain.ErrValidation("query exceeds maximum length of %d characters", MaxQueryLength)
	}
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return domain.ErrValidation("query is empty")
	}
	if !selectPrefix.MatchString(trimmed) {
		return domain.ErrValidation("only SELECT queries are allowed")
	}

	toks, err := lex(trimmed)
	if err != nil {
		return domain.ErrValidation("query could not be parsed: %v", err)
	}
	cleaned := strings.TrimSpace(stripTokens(trimmed, toks))
	if cleaned == "" {
		return domain.ErrValidation("query is empty after removing comments")
	}
	if !selectPrefix.MatchString(cleaned) {
		return domain.ErrValidation("only SELECT queries are allowed")
	}

	if m := forbiddenPattern.FindString(cleaned); m != "" {
		return domain.ErrValidation("query contains forbidden keyword: %s", strings.ToUpper(m))
	}

	if hasTrailingStatement(code(toks)) {
		return domain.ErrValidation("multiple statements are not allowed")
	}
	return nil
}

// hasTrailingStatement reports whether any token follows the first
// statement terminator.
func hasTrailingStatement(toks []token) bool {
	for i, t := range toks {
		if t.punct(";") {
			return i < len(toks)-1
		}
	}
	return false
}

// trimTrailingSemicolon drops one statement terminator and any whitespace
// around it.
func trimTrailingSemicolon(sql string) string {
	s := strings.TrimRight(sql, " \t\r\n\f\v")
	s = strings.TrimSuffix(s, ";")
	return strings.TrimRight(s, " \t\r\n\f\v")
}
