package symexpr

import (
	"bufio"
	"io"
	"math/bits"
	"strconv"
	"strings"
)

// TokenStream splits its input into tokens on demand. Tokens are buffered so
// that any number of them may be looked at before being consumed. Once the
// input is exhausted the stream returns EOF tokens indefinitely.
//
// A lexical error is sticky: every later attempt to look past the buffered
// tokens returns the same error.
type TokenStream struct {
	r    *bufio.Reader
	name string

	line   int
	column int
	offset int // bytes read from r
	ioErr  error

	tokens   []Token
	ends     []int // input offset just past each buffered token
	consumed int   // input offset just past the last shifted token
	err      error
}

// NewTokenStream returns a stream reading from r. The name is used when
// reporting errors.
func NewTokenStream(r io.Reader, name string) *TokenStream {
	return NewTokenStreamAt(r, name, 1, 0)
}

// NewTokenStreamAt returns a stream whose first character is reported at the
// given 1-origin line and 0-origin column.
func NewTokenStreamAt(r io.Reader, name string, line, column int) *TokenStream {
	return &TokenStream{
		r:      bufio.NewReader(r),
		name:   name,
		line:   line,
		column: column,
	}
}

// Name returns the input name given to the stream.
func (ts *TokenStream) Name() string { return ts.name }

// Line returns the 1-origin line of the next unread character.
func (ts *TokenStream) Line() int { return ts.line }

// Column returns the 0-origin column of the next unread character.
func (ts *TokenStream) Column() int { return ts.column }

// Offset returns the number of input bytes up to the end of the last token
// consumed by Shift.
func (ts *TokenStream) Offset() int { return ts.consumed }

// Err returns the lexical error encountered, if any.
func (ts *TokenStream) Err() error { return ts.err }

// Peek returns the token i positions ahead of the current token without
// consuming anything. Peek(0) is the current token.
func (ts *TokenStream) Peek(i int) (Token, error) {
	for len(ts.tokens) <= i {
		if ts.err != nil {
			return Token{Type: TokenEOF, Line: ts.line, Column: ts.column}, ts.err
		}
		tok, err := ts.scan()
		if err != nil {
			if err, ok := err.(*SyntaxError); ok && err.InputName == "" {
				err.InputName = ts.name
			}
			ts.err = err
			continue
		}
		ts.tokens = append(ts.tokens, tok)
		ts.ends = append(ts.ends, ts.offset)
	}
	return ts.tokens[i], nil
}

// Shift consumes n tokens. It stops early at a lexical error.
func (ts *TokenStream) Shift(n int) {
	for ; n > 0; n-- {
		if _, err := ts.Peek(0); err != nil {
			return
		}
		ts.consumed = ts.ends[0]
		ts.tokens, ts.ends = ts.tokens[1:], ts.ends[1:]
	}
}

// peekByte returns the byte i positions past the cursor or -1 at end of input.
func (ts *TokenStream) peekByte(i int) int {
	buf, err := ts.r.Peek(i + 1)
	if len(buf) <= i {
		if err != nil && err != io.EOF && ts.ioErr == nil {
			ts.ioErr = err
		}
		return -1
	}
	return int(buf[i])
}

// nextByte consumes and returns the byte at the cursor or -1 at end of input.
func (ts *TokenStream) nextByte() int {
	c := ts.peekByte(0)
	if c < 0 {
		return c
	}
	ts.r.ReadByte()
	ts.offset++
	if c == '\n' {
		ts.line++
		ts.column = 0
	} else {
		ts.column++
	}
	return c
}

// errorf returns a syntax error at the cursor.
func (ts *TokenStream) errorf(format string, args ...interface{}) *SyntaxError {
	return Token{Line: ts.line, Column: ts.column}.SyntaxError(format, args...)
}

// scan reads the next token.
func (ts *TokenStream) scan() (Token, error) {
	if err := ts.skipSpace(); err != nil {
		return Token{}, err
	}

	tok := Token{Line: ts.line, Column: ts.column}
	c := ts.peekByte(0)
	switch {
	case c < 0:
		if ts.ioErr != nil {
			return tok, ts.ioErr
		}
		tok.Type = TokenEOF
		return tok, nil
	case c == '(':
		ts.nextByte()
		tok.Type = TokenLeftParen
		return tok, nil
	case c == ')':
		ts.nextByte()
		tok.Type = TokenRightParen
		return tok, nil
	case c == '[' || c == ']' || c == '>':
		return tok, ts.errorf("unexpected %q", rune(c))
	case isDigit(c) || (c == '-' && isDigit(ts.peekByte(1))):
		tok.Type = TokenBitVector
		if err := ts.scanBitVector(&tok); err != nil {
			return tok, err
		}
	default:
		tok.Type = TokenSymbol
		if err := ts.scanSymbol(&tok); err != nil {
			return tok, err
		}
	}

	if ts.peekByte(0) == '[' {
		if err := ts.scanWidth(&tok); err != nil {
			return tok, err
		}
	}

	if tok.Type == TokenBitVector {
		bits, err := bitVectorValue(tok)
		if err != nil {
			return tok, err
		}
		tok.Bits = bits
	}
	return tok, ts.ioErr
}

// skipSpace skips whitespace and comments. Comments are delimited by angle
// brackets and may nest.
func (ts *TokenStream) skipSpace() error {
	for {
		switch c := ts.peekByte(0); {
		case isSpace(c):
			ts.nextByte()
		case c == '<':
			if err := ts.skipComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (ts *TokenStream) skipComment() error {
	start := Token{Line: ts.line, Column: ts.column}
	ts.nextByte()
	for depth := 1; depth > 0; {
		switch ts.nextByte() {
		case -1:
			err := start.SyntaxError("unterminated comment")
			err.Incomplete = true
			return err
		case '\\':
			if ts.nextByte() < 0 {
				err := start.SyntaxError("unterminated comment")
				err.Incomplete = true
				return err
			}
		case '<':
			depth++
		case '>':
			depth--
		}
	}
	return nil
}

// scanSymbol reads a symbol. A symbol starting like an identifier consists
// of identifier characters only; any other symbol extends to the next
// unescaped whitespace, angle bracket, parenthesis or square bracket.
func (ts *TokenStream) scanSymbol(tok *Token) error {
	var buf strings.Builder
	if isIdentStart(ts.peekByte(0)) {
		for isIdentChar(ts.peekByte(0)) {
			buf.WriteByte(byte(ts.nextByte()))
		}
		tok.Lexeme = buf.String()
		return nil
	}

	for {
		c := ts.peekByte(0)
		if c < 0 || isSpace(c) || strings.IndexByte("<>()[]", byte(c)) >= 0 {
			break
		}
		ts.nextByte()
		if c != '\\' {
			buf.WriteByte(byte(c))
			continue
		}
		ch, err := ts.scanEscape()
		if err != nil {
			return err
		}
		buf.WriteByte(ch)
	}
	tok.Lexeme = buf.String()
	return nil
}

// scanEscape reads the character after a backslash.
func (ts *TokenStream) scanEscape() (byte, error) {
	c := ts.nextByte()
	switch c {
	case -1:
		return 0, ts.errorf("unterminated escape sequence")
	case 'a':
		return '\a', nil
	case 'b':
		return '\b', nil
	case 't':
		return '\t', nil
	case 'n':
		return '\n', nil
	case 'v':
		return '\v', nil
	case 'f':
		return '\f', nil
	case 'r':
		return '\r', nil
	case 'e':
		return 0x1b, nil
	case 'x':
		v, n := 0, 0
		for ; n < 2 && isHexDigit(ts.peekByte(0)); n++ {
			v = v*16 + hexValue(ts.nextByte())
		}
		if n == 0 {
			return 0, ts.errorf("malformed hexadecimal escape sequence")
		}
		return byte(v), nil
	}

	if isOctalDigit(c) {
		v := c - '0'
		for n := 1; n < 3 && isOctalDigit(ts.peekByte(0)); n++ {
			v = v*8 + ts.nextByte() - '0'
		}
		if v > 0xff {
			return 0, ts.errorf("octal escape sequence out of range")
		}
		return byte(v), nil
	}
	return byte(c), nil
}

// scanBitVector reads the digits of a constant into the token lexeme.
func (ts *TokenStream) scanBitVector(tok *Token) error {
	var buf strings.Builder
	if ts.peekByte(0) == '-' {
		buf.WriteByte(byte(ts.nextByte()))
	}

	digit := isDigit
	if ts.peekByte(0) == '0' && (ts.peekByte(1) == 'x' || ts.peekByte(1) == 'X') {
		buf.WriteByte(byte(ts.nextByte()))
		buf.WriteByte(byte(ts.nextByte()))
		digit = isHexDigit
		if !digit(ts.peekByte(0)) {
			return ts.errorf("malformed hexadecimal constant")
		}
	}
	for digit(ts.peekByte(0)) {
		buf.WriteByte(byte(ts.nextByte()))
	}
	if isIdentChar(ts.peekByte(0)) {
		return ts.errorf("malformed constant %q", buf.String()+string(rune(ts.peekByte(0))))
	}
	tok.Lexeme = buf.String()
	return nil
}

// scanWidth reads a "[N]" or "[N->M]" suffix.
func (ts *TokenStream) scanWidth(tok *Token) error {
	ts.nextByte() // '['

	w, err := ts.scanWidthNumber()
	if err != nil {
		return err
	}
	tok.Width = w

	if ts.peekByte(0) == '-' {
		ts.nextByte()
		if ts.peekByte(0) != '>' {
			return ts.errorf("expected \"->\" in width")
		}
		ts.nextByte()
		if tok.Width2, err = ts.scanWidthNumber(); err != nil {
			return err
		}
	}

	if ts.peekByte(0) != ']' {
		return ts.errorf("expected ']' after width")
	}
	ts.nextByte()
	return nil
}

func (ts *TokenStream) scanWidthNumber() (uint, error) {
	pos := Token{Line: ts.line, Column: ts.column}
	var buf strings.Builder
	for isDigit(ts.peekByte(0)) {
		buf.WriteByte(byte(ts.nextByte()))
	}
	if buf.Len() == 0 {
		return 0, ts.errorf("malformed width")
	}
	n, err := strconv.ParseUint(buf.String(), 10, 32)
	if err != nil {
		return 0, pos.SyntaxError("width out of range: %s", buf.String())
	} else if n == 0 {
		return 0, pos.SyntaxError("width must be positive")
	}
	return uint(n), nil
}

// bitVectorValue returns the constant a bit-vector token denotes. Without a
// width suffix the constant is as narrow as the value allows.
func bitVectorValue(tok Token) (*ConstantExpr, error) {
	s := tok.Lexeme
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	mag, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return nil, tok.SyntaxError("constant too wide: %s", tok.Lexeme)
	}

	// Minimum width holding the value.
	minWidth := uint(bits.Len64(mag))
	if neg && mag != 0 {
		minWidth = uint(bits.Len64(mag-1)) + 1
		if minWidth > MaxWidth {
			return nil, tok.SyntaxError("constant too wide: %s", tok.Lexeme)
		}
	}
	if minWidth == 0 {
		minWidth = 1
	}

	width := tok.Width
	if width == 0 {
		width = minWidth
	} else if width > MaxWidth {
		return nil, tok.SyntaxError("constant too wide: %s[%d] exceeds %d bits", tok.Lexeme, width, MaxWidth)
	} else if width < minWidth {
		return nil, tok.SyntaxError("constant %s does not fit in %d bits", tok.Lexeme, width)
	}

	value := mag
	if neg {
		value = -mag
	}
	return NewConstantExpr(value, width), nil
}

func isSpace(c int) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\v' || c == '\f' || c == '\r'
}

func isDigit(c int) bool { return c >= '0' && c <= '9' }

func isOctalDigit(c int) bool { return c >= '0' && c <= '7' }

func isHexDigit(c int) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c int) int {
	switch {
	case isDigit(c):
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func isIdentStart(c int) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c int) bool { return isIdentStart(c) || isDigit(c) }

// isIdentifier returns true if s is a non-empty identifier.
func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(int(s[0])) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentChar(int(s[i])) {
			return false
		}
	}
	return true
}
