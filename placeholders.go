package symexpr

// TermPlaceholders maps every symbol that is not a numbered variable to a
// placeholder variable. Each distinct name gets its own placeholder, created
// the first time the name is seen and reused afterward.
type TermPlaceholders struct {
	BaseExpansion
	m *BiMap
}

// NewTermPlaceholders returns a new instance of TermPlaceholders.
func NewTermPlaceholders() *TermPlaceholders {
	return &TermPlaceholders{
		BaseExpansion: NewBaseExpansion(
			"Term placeholders",
			"Any other symbol is replaced by a placeholder variable, the same one each time\n"+
				"the symbol appears. The width is taken from the first occurrence; later width\n"+
				"suffixes must match it.",
		),
		m: NewBiMap(stringComparer{}),
	}
}

// ImmediateExpansion returns the placeholder for the symbol named by tok.
func (e *TermPlaceholders) ImmediateExpansion(tok Token) (Expr, error) {
	if tok.Type != TokenSymbol || numberedVariableRegex.MatchString(tok.Lexeme) {
		return nil, nil
	} else if tok.Width2 != 0 {
		return nil, tok.SyntaxError("%s cannot have a two-part width", EscapeSymbol(tok.Lexeme))
	} else if tok.Width > MaxWidth {
		return nil, tok.SyntaxError("%s: width %d exceeds %d bits", EscapeSymbol(tok.Lexeme), tok.Width, MaxWidth)
	}

	if expr, ok := e.m.Forward(tok.Lexeme); ok {
		if w := ExprWidth(expr); tok.Width != 0 && tok.Width != w {
			return nil, tok.SyntaxError("%s is %d bits, not %d", EscapeSymbol(tok.Lexeme), w, tok.Width)
		}
		return expr, nil
	}

	return e.m.GetOrInsert(tok.Lexeme, func() Expr { return NewFreshVariable(tok.Width) }), nil
}

// Map returns a snapshot of the name to placeholder mapping. Keys are strings.
func (e *TermPlaceholders) Map() *BiMap { return e.m.Snapshot() }
