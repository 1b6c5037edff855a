package source

import "strings"

// lexer is a byte cursor over a source file. It is copied by value to checkpoint and rewind.
type lexer struct {
	src  []byte
	pos  int
	line int
}

func (lx *lexer) peek(n int) byte {
	if lx.pos+n >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos+n]
}

func (lx *lexer) skipLineComment() {
	for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
		lx.pos++
	}
}

func (lx *lexer) skipBlockComment() {
	lx.pos += 2
	for lx.pos < len(lx.src) {
		if lx.src[lx.pos] == '*' && lx.peek(1) == '/' {
			lx.pos += 2
			return
		}
		if lx.src[lx.pos] == '\n' {
			lx.line++
		}
		lx.pos++
	}
}

// skipSpace skips whitespace and comments.
func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		switch c := lx.src[lx.pos]; {
		case c == '\n':
			lx.line++
			lx.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			lx.pos++
		case c == '/' && lx.peek(1) == '/':
			lx.skipLineComment()
		case c == '/' && lx.peek(1) == '*':
			lx.skipBlockComment()
		default:
			return
		}
	}
}

// skipString moves past the string literal starting at the current quote. Quoted strings
// end at an unescaped newline; template literals may span lines.
func (lx *lexer) skipString() {
	quote := lx.src[lx.pos]
	lx.pos++
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\\':
			if lx.peek(1) == '\n' {
				lx.line++
			}
			lx.pos += 2
			continue
		case c == quote:
			lx.pos++
			return
		case c == '\n':
			if quote != '`' {
				return
			}
			lx.line++
		}
		lx.pos++
	}
}

// readString reads a string literal and returns its value. Template literals with
// substitutions are not literals. The lexer does not move on failure.
func (lx *lexer) readString() (string, bool) {
	quote := lx.peek(0)
	if !isQuote(quote) {
		return "", false
	}
	saved := *lx
	lx.pos++

	var sb strings.Builder
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\\' && lx.pos+1 < len(lx.src):
			sb.WriteByte(lx.src[lx.pos+1])
			lx.pos += 2
			continue
		case c == quote:
			lx.pos++
			return sb.String(), true
		case c == '\n' && quote != '`':
			*lx = saved
			return "", false
		case c == '$' && quote == '`' && lx.peek(1) == '{':
			*lx = saved
			return "", false
		case c == '\n':
			lx.line++
		}
		sb.WriteByte(c)
		lx.pos++
	}
	*lx = saved
	return "", false
}

func (lx *lexer) readIdent() string {
	start := lx.pos
	if start >= len(lx.src) || !isIdentStart(lx.src[start]) {
		return ""
	}
	for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
		lx.pos++
	}
	return string(lx.src[start:lx.pos])
}

// precededByDot reports whether the identifier at start is a member access such as
// `module.require`, including chains broken across lines. A spread (`...require(x)`) is not.
func (lx *lexer) precededByDot(start int) bool {
	i := start - 1
	for i >= 0 && isSpace(lx.src[i]) {
		i--
	}
	if i < 0 || lx.src[i] != '.' {
		return false
	}
	return !(i >= 2 && lx.src[i-1] == '.' && lx.src[i-2] == '.')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isQuote(c byte) bool {
	return c == '\'' || c == '"' || c == '`'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
