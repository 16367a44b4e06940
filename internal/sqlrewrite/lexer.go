package sqlrewrite

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// maxCommentNesting bounds how many open block comments lex will close when
// the input ends inside one.
const maxCommentNesting = 8

type tokenKind int

const (
	tokWord tokenKind = iota
	tokNumber
	tokString
	tokQuotedIdent
	tokComment
	tokPunct
)

// token is a lexical unit of SQL as reported by the PostgreSQL scanner.
// Depth is the parenthesis nesting level the token appears at.
type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
	depth int
}

func (t token) is(keyword string) bool {
	return t.kind == tokWord && strings.EqualFold(t.text, keyword)
}

func (t token) punct(p string) bool {
	return t.kind == tokPunct && t.text == p
}

// lex scans sql with the PostgreSQL scanner. Dollar-quoted and escape
// strings, nested block comments and quoted identifiers follow server
// rules. When the input ends inside a block comment, the comment is closed
// at the end of input; any other lexical error is returned.
func lex(sql string) ([]token, error) {
	res, err := pg_query.Scan(sql)
	if err == nil {
		return convertTokens(sql, res.Tokens), nil
	}
	for depth := 1; depth <= maxCommentNesting; depth++ {
		padded := sql + strings.Repeat("*/", depth)
		closed, perr := pg_query.Scan(padded)
		if perr != nil {
			continue
		}
		n := len(closed.Tokens)
		if n == 0 {
			break
		}
		last := closed.Tokens[n-1]
		if last.Token != pg_query.Token_C_COMMENT || int(last.End) != len(padded) {
			break
		}
		toks := convertTokens(padded, closed.Tokens)
		toks[n-1].end = len(sql)
		toks[n-1].text = sql[toks[n-1].start:]
		return toks, nil
	}
	return nil, err
}

func convertTokens(sql string, scanned []*pg_query.ScanToken) []token {
	toks := make([]token, 0, len(scanned))
	depth := 0
	for _, st := range scanned {
		t := token{
			kind:  classify(sql, st),
			start: int(st.Start),
			end:   int(st.End),
		}
		t.text = sql[t.start:t.end]
		switch st.Token {
		case pg_query.Token_ASCII_40:
			t.depth = depth
			depth++
		case pg_query.Token_ASCII_41:
			if depth > 0 {
				depth--
			}
			t.depth = depth
		default:
			t.depth = depth
		}
		toks = append(toks, t)
	}
	return toks
}

func classify(sql string, st *pg_query.ScanToken) tokenKind {
	switch st.Token {
	case pg_query.Token_SQL_COMMENT, pg_query.Token_C_COMMENT:
		return tokComment
	case pg_query.Token_SCONST, pg_query.Token_USCONST, pg_query.Token_BCONST, pg_query.Token_XCONST:
		return tokString
	case pg_query.Token_ICONST, pg_query.Token_FCONST:
		return tokNumber
	case pg_query.Token_UIDENT:
		return tokQuotedIdent
	case pg_query.Token_IDENT:
		if sql[st.Start] == '"' {
			return tokQuotedIdent
		}
		return tokWord
	}
	if st.KeywordKind != pg_query.KeywordKind_NO_KEYWORD {
		return tokWord
	}
	return tokPunct
}

// code drops comment tokens.
func code(toks []token) []token {
	out := make([]token, 0, len(toks))
	for _, t := range toks {
		if t.kind != tokComment {
			out = append(out, t)
		}
	}
	return out
}

// MapUnquoted applies fn to every part of sql outside string constants and
// quoted identifiers and returns the reassembled text. SQL that cannot be
// scanned is returned unchanged.
func MapUnquoted(sql string, fn func(string) string) string {
	toks, err := lex(sql)
	if err != nil {
		return sql
	}
	var b strings.Builder
	b.Grow(len(sql))
	last := 0
	for _, t := range toks {
		if t.kind != tokString && t.kind != tokQuotedIdent {
			continue
		}
		b.WriteString(fn(sql[last:t.start]))
		b.WriteString(t.text)
		last = t.end
	}
	b.WriteString(fn(sql[last:]))
	return b.String()
}
