package emit

import (
	"fmt"
	"strings"
	"unicode"
)

// reserved are JavaScript reserved words that cannot be import bindings.
var reserved = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "enum": true, "export": true, "extends": true, "false": true,
	"finally": true, "for": true, "function": true, "if": true, "import": true,
	"in": true, "instanceof": true, "let": true, "new": true, "null": true,
	"return": true, "static": true, "super": true, "switch": true, "this": true,
	"throw": true, "true": true, "try": true, "typeof": true, "var": true,
	"void": true, "while": true, "with": true, "yield": true, "await": true,
}

// isIdentifier reports whether s can be used unquoted as a binding or object key.
func isIdentifier(s string) bool {
	if s == "" || reserved[s] {
		return false
	}
	for i, r := range s {
		if !isIdentRune(r, i == 0) {
			return false
		}
	}
	return true
}

func isIdentRune(r rune, first bool) bool {
	if r == '_' || r == '$' || unicode.IsLetter(r) {
		return true
	}
	return !first && unicode.IsDigit(r)
}

// sanitize maps a reducer name to a valid identifier.
func sanitize(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if isIdentRune(r, i == 0) {
			sb.WriteRune(r)
			continue
		}
		if i == 0 && unicode.IsDigit(r) {
			sb.WriteByte('_')
			sb.WriteRune(r)
			continue
		}
		sb.WriteByte('_')
	}
	ident := sb.String()
	if ident == "" || reserved[ident] {
		ident = "_" + ident
	}
	return ident
}

// bindingSet hands out unique import bindings.
type bindingSet map[string]bool

func newBindingSet() bindingSet {
	return bindingSet{}
}

func (s bindingSet) add(name string) string {
	base := sanitize(name)
	ident := base
	for n := 2; s[ident]; n++ {
		ident = fmt.Sprintf("%s_%d", base, n)
	}
	s[ident] = true
	return ident
}

// objectKey returns name as an object literal key.
func objectKey(name string) string {
	if isIdentifier(name) {
		return name
	}
	return quote(name, '"')
}

// quote returns s as a JavaScript string literal delimited by q.
func quote(s string, q byte) string {
	var sb strings.Builder
	sb.WriteByte(q)
	for _, r := range s {
		switch {
		case r == rune(q) || r == '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r < 0x20 || r == 0x2028 || r == 0x2029:
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte(q)
	return sb.String()
}
