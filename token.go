package symexpr

import (
	"fmt"
	"strings"
)

// TokenType represents the lexical class of a token.
type TokenType int

// Token types.
const (
	TokenEOF TokenType = iota
	TokenLeftParen
	TokenRightParen
	TokenBitVector
	TokenSymbol
)

var tokenTypes = [...]string{
	TokenEOF:        "end of input",
	TokenLeftParen:  "left parenthesis",
	TokenRightParen: "right parenthesis",
	TokenBitVector:  "bit vector",
	TokenSymbol:     "symbol",
}

// String returns the string representation of the token type.
func (typ TokenType) String() string {
	if typ >= 0 && int(typ) < len(tokenTypes) {
		return tokenTypes[typ]
	}
	return fmt.Sprintf("TokenType<%d>", typ)
}

// Token represents a single lexeme and its position in the input.
//
// Width and Width2 hold the optional "[N]" or "[N->M]" suffix; zero means
// the part was absent. Bits is only set for bit-vector tokens.
type Token struct {
	Type   TokenType
	Lexeme string
	Width  uint
	Width2 uint
	Bits   *ConstantExpr

	Line   int // 1-origin
	Column int // 0-origin
}

// String returns the lexeme followed by its width suffix, if any.
func (tok Token) String() string {
	switch tok.Type {
	case TokenEOF:
		return "EOF"
	case TokenLeftParen:
		return "("
	case TokenRightParen:
		return ")"
	}
	s := EscapeSymbol(tok.Lexeme)
	if tok.Type == TokenBitVector {
		s = tok.Lexeme
	}
	switch {
	case tok.Width2 != 0:
		return fmt.Sprintf("%s[%d->%d]", s, tok.Width, tok.Width2)
	case tok.Width != 0:
		return fmt.Sprintf("%s[%d]", s, tok.Width)
	}
	return s
}

// SyntaxError returns an error positioned at the token.
func (tok Token) SyntaxError(format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{
		Message: fmt.Sprintf(format, args...),
		Line:    tok.Line,
		Column:  tok.Column,
	}
}

// EscapeSymbol returns s in a form that lexes back to a single symbol token
// with lexeme s.
func EscapeSymbol(s string) string {
	// An identifier-shaped start would stop the symbol at the first
	// non-identifier character, so such a start is escaped.
	escapeFirst := len(s) > 0 && (isDigit(int(s[0])) || (isIdentStart(int(s[0])) && !isIdentifier(s)))

	var buf strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case i == 0 && escapeFirst:
			fmt.Fprintf(&buf, `\%03o`, c)
		case i == 0 && c == '-' && len(s) > 1 && isDigit(int(s[1])):
			buf.WriteString(`\-`)
		case c == '\a':
			buf.WriteString(`\a`)
		case c == '\b':
			buf.WriteString(`\b`)
		case c == '\t':
			buf.WriteString(`\t`)
		case c == '\n':
			buf.WriteString(`\n`)
		case c == '\v':
			buf.WriteString(`\v`)
		case c == '\f':
			buf.WriteString(`\f`)
		case c == '\r':
			buf.WriteString(`\r`)
		case c == 0x1b:
			buf.WriteString(`\e`)
		case strings.IndexByte("\\()<>[] ", c) >= 0:
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&buf, `\%03o`, c)
		default:
			buf.WriteByte(c)
		}
	}
	return buf.String()
}
