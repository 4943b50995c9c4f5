package expressions

import (
	"strings"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenOp
	tokenPunct
	tokenSpace
)

// token is a single lexical unit of an expression body. Text always holds the
// raw source slice (including quotes for strings) so the translator can emit
// unmodified tokens byte-for-byte.
type token struct {
	kind tokenKind
	text string
	pos  int
}

// multi-char operators, longest first.
var multiOps = []string{
	"===", "!==", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "=>",
}

const singleOps = "+-*/%<>!?:="

const punctChars = ".,()[]{}"

// lex splits an expression body into tokens. Whitespace is preserved as
// tokenSpace so the translator can reproduce the original spacing. Returns an
// error for unterminated strings or characters outside the grammar; callers
// treat that as "not translatable" and pass the input through unchanged.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	n := len(src)

	for i < n {
		c := src[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			j := i
			for j < n && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
				j++
			}
			toks = append(toks, token{kind: tokenSpace, text: src[i:j], pos: i})
			i = j

		case c == '\'' || c == '"':
			j, err := scanString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokenString, text: src[i:j], pos: i})
			i = j

		case isDigit(c):
			j := i
			for j < n && isDigit(src[j]) {
				j++
			}
			// A fractional part only when the dot is followed by a digit;
			// "1.name" lexes as number 1, dot, ident.
			if j+1 < n && src[j] == '.' && isDigit(src[j+1]) {
				j++
				for j < n && isDigit(src[j]) {
					j++
				}
			}
			toks = append(toks, token{kind: tokenNumber, text: src[i:j], pos: i})
			i = j

		case isIdentStart(c):
			j := i
			for j < n && isIdentPart(src[j]) {
				j++
			}
			toks = append(toks, token{kind: tokenIdent, text: src[i:j], pos: i})
			i = j

		case strings.IndexByte(punctChars, c) >= 0:
			toks = append(toks, token{kind: tokenPunct, text: src[i : i+1], pos: i})
			i++

		default:
			if op := matchOp(src[i:]); op != "" {
				toks = append(toks, token{kind: tokenOp, text: op, pos: i})
				i += len(op)
				continue
			}
			return nil, schema.NewErrorf(schema.ErrCodeParse,
				"unexpected character %q at position %d", string(c), i)
		}
	}

	toks = append(toks, token{kind: tokenEOF, pos: n})
	return toks, nil
}

// scanString scans a quoted string starting at i, returning the index past the
// closing quote.
func scanString(src string, i int) (int, error) {
	quote := src[i]
	j := i + 1
	for j < len(src) {
		switch src[j] {
		case '\\':
			j += 2
		case quote:
			return j + 1, nil
		default:
			j++
		}
	}
	return 0, schema.NewErrorf(schema.ErrCodeParse,
		"unterminated string starting at position %d", i)
}

func matchOp(s string) string {
	for _, op := range multiOps {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	if len(s) > 0 && strings.IndexByte(singleOps, s[0]) >= 0 {
		return s[:1]
	}
	return ""
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '$' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

// unquote strips the quotes from a string token and resolves the common
// escapes. Unknown escapes keep the escaped character.
func unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	inner := raw[1 : len(raw)-1]
	if !strings.ContainsRune(inner, '\\') {
		return inner
	}
	var b strings.Builder
	b.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
			switch inner[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(inner[i])
			}
			continue
		}
		b.WriteByte(inner[i])
	}
	return b.String()
}
