package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"collapses whitespace", "SELECT  a,\n\tb\r\nFROM   t", "select a, b from t"},
		{"line comment", "select a -- the code\nfrom t", "select a from t"},
		{"trailing line comment", "select a from t -- done", "select a from t"},
		{"block comment", "select /* all */ a from t", "select a from t"},
		{"nested block comment", "select /* outer /* inner */ still */ a from t", "select a from t"},
		{"string literal keeps case", "SELECT 'Open' FROM T", "select 'Open' from t"},
		{"escaped quote", "select 'it''s -- not a comment' from t", "select 'it''s -- not a comment' from t"},
		{"bracket identifier", "SELECT [Item Code] FROM dbo.[Items]", "select [Item Code] from dbo.[Items]"},
		{"double quoted identifier", `SELECT "Name" FROM t`, `select "Name" from t`},
		{"trailing semicolon", "select 1;", "select 1"},
		{"semicolon on its own line", "select 1\n;", "select 1"},
		{"leading whitespace", "\n\n  select 1", "select 1"},
		{"unterminated literal", "select 'abc", "select 'abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.query))
		})
	}
}

func TestSHA256_CalculateRaw(t *testing.T) {
	calc := New()
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		calc.CalculateRaw(nil))
	assert.NotEqual(t,
		calc.CalculateRaw([]byte("select 1")),
		calc.CalculateRaw([]byte("select  1")),
		"raw checksums see every byte")
}

func TestSHA256_CalculateNormalized(t *testing.T) {
	calc := New()
	a := calc.CalculateNormalized([]byte("SELECT code, descr\nFROM dbo.items -- master data"))
	b := calc.CalculateNormalized([]byte("select code,   descr from dbo.items;"))
	c := calc.CalculateNormalized([]byte("select code, descr from dbo.items where active = 1"))

	assert.Equal(t, a, b, "formatting and comments must not matter")
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestShort(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc", Short("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"))
	assert.Equal(t, "abc", Short("abc"))
}
