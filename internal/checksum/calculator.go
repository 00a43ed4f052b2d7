package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Calculator computes content checksums.
type Calculator interface {
	CalculateRaw(content []byte) string
	CalculateNormalized(content []byte) string
}

// SHA256 is the default Calculator.
type SHA256 struct{}

func New() SHA256 {
	return SHA256{}
}

func (SHA256) CalculateRaw(content []byte) string {
	return hexSum(content)
}

func (SHA256) CalculateNormalized(content []byte) string {
	return hexSum([]byte(Normalize(string(content))))
}

// Short returns the first 12 characters of a checksum for log lines.
func Short(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}

func hexSum(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// Normalize rewrites a query into a formatting-independent form.
// Comments become whitespace, whitespace runs become one space and text
// outside '...', "..." and [...] is lowercased. Block comments nest as in T-SQL.
// A trailing semicolon is dropped.
func Normalize(query string) string {
	var b strings.Builder
	b.Grow(len(query))

	space := false
	emit := func(r rune) {
		if unicode.IsSpace(r) {
			space = true
			return
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}

	for i := 0; i < len(query); {
		r, size := utf8.DecodeRuneInString(query[i:])
		rest := query[i:]
		switch {
		case strings.HasPrefix(rest, "--"):
			end := strings.IndexByte(rest, '\n')
			if end < 0 {
				end = len(rest)
			}
			i += end
			space = true
		case strings.HasPrefix(rest, "/*"):
			i += blockCommentLen(rest)
			space = true
		case r == '\'' || r == '"' || r == '[':
			n := quotedLen(rest, r)
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteString(rest[:n])
			i += n
		default:
			emit(unicode.ToLower(r))
			i += size
		}
	}

	return strings.TrimSpace(strings.TrimSuffix(b.String(), ";"))
}

// blockCommentLen returns the byte length of the (possibly nested) comment at the start of s.
func blockCommentLen(s string) int {
	depth := 0
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "/*"):
			depth++
			i += 2
		case strings.HasPrefix(s[i:], "*/"):
			depth--
			i += 2
			if depth == 0 {
				return i
			}
		default:
			i++
		}
	}
	return len(s)
}

// quotedLen returns the byte length of the quoted token at the start of s.
// A doubled closing quote is an escape; an unterminated token runs to the end.
func quotedLen(s string, open rune) int {
	closing := byte(open)
	if open == '[' {
		closing = ']'
	}
	for i := 1; i < len(s); i++ {
		if s[i] != closing {
			continue
		}
		if i+1 < len(s) && s[i+1] == closing {
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}

var _ Calculator = SHA256{}
