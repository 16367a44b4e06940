package sqlrewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphable/internal/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		valid   bool
		errPart string
	}{
		{"simple select", "SELECT * FROM events", true, ""},
		{"lowercase select", "  select id from events  ", true, ""},
		{"trailing semicolon", "SELECT 1;", true, ""},
		{"trailing semicolon and space", "SELECT 1;  \n", true, ""},
		{"updated_at is not UPDATE", "SELECT updated_at, created_at FROM t", true, ""},
		{"semicolon inside string", "SELECT 'a; DROP' AS x", false, "forbidden keyword"},
		{"semicolon inside string only", "SELECT 'a;b' AS x FROM t", true, ""},
		{"comment after select", "SELECT 1 -- trailing note", true, ""},
		{"block comment", "SELECT /* columns */ id FROM t", true, ""},
		{"empty", "   ", false, "empty"},
		{"insert", "INSERT INTO t VALUES (1)", false, "only SELECT"},
		{"with cte", "WITH x AS (SELECT 1) SELECT * FROM x", false, "only SELECT"},
		{"selectx prefix", "SELECTX 1", false, "only SELECT"},
		{"drop keyword", "SELECT * FROM t; DROP TABLE t", false, "forbidden keyword: DROP"},
		{"lowercase delete", "SELECT * FROM t WHERE id IN (delete from x)", false, "DELETE"},
		{"replace function", "SELECT replace(name, 'a', 'b') FROM t", false, "REPLACE"},
		{"second statement", "SELECT 1; SELECT 2", false, "multiple statements"},
		{"double semicolon", "SELECT 1;;", false, "multiple statements"},
		{"only comment", "SELECT", true, ""},
		{"unterminated comment truncates", "SELECT 1 /* unterminated", true, ""},
		{"too long", "SELECT " + strings.Repeat("x", MaxQueryLength), false, "maximum length"},
		{"dollar quote hides comment marker", "SELECT $$--$$; DELETE FROM users", false, "forbidden keyword: DELETE"},
		{"dollar quote hides second statement", "SELECT $$--$$; SELECT 2", false, "multiple statements"},
		{"semicolon in dollar quote", "SELECT $$ ; $$ AS x", true, ""},
		{"semicolon in tagged dollar quote", "SELECT $body$ a; /* b */ $body$ AS x", true, ""},
		{"escape string quote", `SELECT E'\'' ; SELECT pg_sleep(100)`, false, "multiple statements"},
		{"escape string single statement", `SELECT E'\'; --' AS x`, true, ""},
		{"nested block comment", "SELECT 1 /* outer /* inner */ still comment */", true, ""},
		{"nested comment hides nothing after", "SELECT 1 /* a /* b */ c */; SELECT 2", false, "multiple statements"},
		{"unterminated string", "SELECT 'open", false, "could not be parsed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.sql)
			assert.Equal(t, tt.valid, res.Valid, res.Error)
			if tt.errPart != "" {
				assert.Contains(t, res.Error, tt.errPart)
			}
		})
	}
}

func TestValidateQuery_ReturnsValidationError(t *testing.T) {
	err := ValidateQuery("DELETE FROM t")
	require.Error(t, err)
	var valErr *domain.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestValidate_CommentedOutSelect(t *testing.T) {
	res := Validate("SELECT--\n")
	assert.True(t, res.Valid)

	res = Validate("/* SELECT */ DELETE FROM t")
	assert.False(t, res.Valid)
}

func TestValidate_NonSelectAlwaysInvalid(t *testing.T) {
	for _, sql := range []string{
		"UPDATE t SET a = 1",
		"-- SELECT\nDELETE FROM t",
		"EXPLAIN SELECT 1",
		"VALUES (1)",
		"TABLE events",
	} {
		assert.False(t, Validate(sql).Valid, sql)
	}
}

func TestStripComments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"line comment", "SELECT 1 -- note\nFROM t", "SELECT 1 \nFROM t"},
		{"block comment", "SELECT /* x */1", "SELECT  1"},
		{"dash in string", "SELECT '--not a comment' FROM t", "SELECT '--not a comment' FROM t"},
		{"block in string", `SELECT "/*col*/" FROM t`, `SELECT "/*col*/" FROM t`},
		{"escaped quote", "SELECT 'it''s -- fine' -- gone", "SELECT 'it''s -- fine' "},
		{"unterminated block", "SELECT 1 /* open", "SELECT 1 "},
		{"line comment at end", "SELECT 1 --", "SELECT 1 "},
		{"dollar quote", "SELECT $$--$$ -- gone", "SELECT $$--$$ "},
		{"tagged dollar quote", "SELECT $t$ /* kept */ $t$", "SELECT $t$ /* kept */ $t$"},
		{"escape string", `SELECT E'\' -- kept' AS x -- gone`, `SELECT E'\' -- kept' AS x `},
		{"nested block", "SELECT 1 /* outer /* inner */ still comment */", "SELECT 1 "},
		{"nested block then code", "SELECT /* a /* b */ c */1", "SELECT  1"},
		{"unterminated nested block", "SELECT 1 /* a /* b */ c", "SELECT 1 "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripComments(tt.in))
		})
	}
}

func TestMapUnquoted(t *testing.T) {
	got := MapUnquoted(`SELECT :a, ':a', ":a" FROM t WHERE x = :a`, func(s string) string {
		return strings.ReplaceAll(s, ":a", "$1")
	})
	assert.Equal(t, `SELECT $1, ':a', ":a" FROM t WHERE x = $1`, got)

	got = MapUnquoted(`SELECT $$ :a $$, E'\' :a', :a FROM t`, func(s string) string {
		return strings.ReplaceAll(s, ":a", "$1")
	})
	assert.Equal(t, `SELECT $$ :a $$, E'\' :a', $1 FROM t`, got)
}
