package sqlrewrite

import "strings"

// StripComments removes -- line comments and /* */ block comments, including
// nested ones. Standard, escape and dollar-quoted string constants
// and quoted identifiers are copied unchanged. A block comment is replaced by
// a single space so adjacent tokens stay separated. An unterminated block
// comment truncates the text at the comment start. SQL the scanner rejects is
// returned unchanged.
func StripComments(sql string) string {
	toks, err := lex(sql)
	if err != nil {
		return sql
	}
	return stripTokens(sql, toks)
}

func stripTokens(sql string, toks []token) string {
	var b strings.Builder
	b.Grow(len(sql))
	last := 0
	for _, t := range toks {
		if t.kind != tokComment {
			continue
		}
		b.WriteString(sql[last:t.start])
		if strings.HasPrefix(t.text, "/*") && t.end < len(sql) {
			b.WriteByte(' ')
		}
		last = t.end
	}
	b.WriteString(sql[last:])
	return b.String()
}
