package symexpr

import (
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strconv"
	"strings"
)

// Parser builds expressions from their textual form.
//
//	expr := constant | symbol | '(' symbol expr* ')'
//
// Constants and symbols are offered to the atom expansions and parenthesized
// applications to the operator expansions, each in the order they were
// appended. The first expansion returning a non-nil expression wins. Atoms no
// expansion claims are variables: "v" followed by digits is a numbered
// variable and any other identifier is a named variable.
//
// The zero value has no expansions. Use NewParser for a parser with the
// built-in operators.
type Parser struct {
	atoms     []AtomExpansion
	operators []OperatorExpansion

	// Solver, if set, is used to simplify if-then-else expressions whose
	// condition is provably constant.
	Solver Solver

	// Logger receives a line for each expansion applied. Nil discards.
	Logger *log.Logger
}

// NewParser returns a parser with the built-in atom and operator expansions.
func NewParser() *Parser {
	p := &Parser{}
	p.appendBuiltins()
	return p
}

// AppendAtomExpansion adds e to the end of the atom table.
func (p *Parser) AppendAtomExpansion(e AtomExpansion) {
	p.atoms = append(p.atoms, e)
}

// AppendOperatorExpansion adds e to the end of the operator table.
func (p *Parser) AppendOperatorExpansion(e OperatorExpansion) {
	p.operators = append(p.operators, e)
}

// AtomTable returns a copy of the atom expansions in order.
func (p *Parser) AtomTable() []AtomExpansion {
	return append([]AtomExpansion(nil), p.atoms...)
}

// OperatorTable returns a copy of the operator expansions in order.
func (p *Parser) OperatorTable() []OperatorExpansion {
	return append([]OperatorExpansion(nil), p.operators...)
}

// DefineRegisters makes register names parse as their current values in ops.
func (p *Parser) DefineRegisters(ops Operators) *RegisterToValue {
	e := NewRegisterToValue(ops)
	p.AppendAtomExpansion(e)
	return e
}

// DefineRegisterDictionary makes register names parse as placeholders that
// DelayedExpansion later replaces by register values. Set the Operators field
// of the returned expansion before calling DelayedExpansion.
func (p *Parser) DefineRegisterDictionary(dict RegisterDictionary) *RegisterSubstituter {
	e := NewRegisterSubstituter(dict)
	p.AppendAtomExpansion(e)
	return e
}

// Parse parses a single expression from s. Anything other than whitespace
// and comments after the expression is an error.
func (p *Parser) Parse(s, inputName string) (Expr, error) {
	return p.ParseReader(strings.NewReader(s), inputName, 1, 0)
}

// ParseReader parses a single expression from r, which is reported as
// starting at the given 1-origin line and 0-origin column. Anything other
// than whitespace and comments after the expression is an error.
func (p *Parser) ParseReader(r io.Reader, filename string, line, column int) (Expr, error) {
	ts := NewTokenStreamAt(r, filename, line, column)
	expr, err := p.ParseTokens(ts)
	if err != nil {
		return nil, err
	}

	tok, err := ts.Peek(0)
	if err != nil {
		return nil, err
	} else if tok.Type != TokenEOF {
		return nil, p.tokenError(ts, tok, tok.SyntaxError("unexpected %s %q after expression", tok.Type, tok))
	}
	return expr, nil
}

// ParsePrefix parses the first expression in s and returns the text
// following it.
func (p *Parser) ParsePrefix(s, inputName string) (expr Expr, rest string, err error) {
	ts := NewTokenStream(strings.NewReader(s), inputName)
	if expr, err = p.ParseTokens(ts); err != nil {
		return nil, s, err
	}
	return expr, s[ts.Offset():], nil
}

// ParseAll parses every expression in s. Expressions are separated by
// whitespace or comments.
func (p *Parser) ParseAll(s, inputName string) ([]Expr, error) {
	var a []Expr
	ts := NewTokenStream(strings.NewReader(s), inputName)
	for {
		if tok, err := ts.Peek(0); err != nil {
			return nil, err
		} else if tok.Type == TokenEOF {
			return a, nil
		}

		expr, err := p.ParseTokens(ts)
		if err != nil {
			return nil, err
		}
		a = append(a, expr)
	}
}

// ParseTokens parses the next expression from ts and leaves the stream
// positioned after it.
func (p *Parser) ParseTokens(ts *TokenStream) (Expr, error) {
	tok, err := ts.Peek(0)
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case TokenEOF:
		err := tok.SyntaxError("unexpected end of input, expected an expression")
		err.Incomplete = true
		return nil, p.tokenError(ts, tok, err)

	case TokenRightParen:
		return nil, p.tokenError(ts, tok, tok.SyntaxError("unexpected ')'"))

	case TokenBitVector, TokenSymbol:
		ts.Shift(1)
		return p.expandAtom(ts, tok)

	default: // TokenLeftParen
		ts.Shift(1)
		op, err := ts.Peek(0)
		if err != nil {
			return nil, err
		}
		switch op.Type {
		case TokenSymbol:
		case TokenEOF:
			err := op.SyntaxError("unexpected end of input, expected an operator name")
			err.Incomplete = true
			return nil, p.tokenError(ts, op, err)
		default:
			return nil, p.tokenError(ts, op, op.SyntaxError("expected an operator name after '(' but found %s", op.Type))
		}
		ts.Shift(1)

		var operands []Expr
		for {
			next, err := ts.Peek(0)
			if err != nil {
				return nil, err
			} else if next.Type == TokenRightParen {
				ts.Shift(1)
				break
			} else if next.Type == TokenEOF {
				err := tok.SyntaxError("missing ')' for operator %q", op.Lexeme)
				err.Incomplete = true
				return nil, p.tokenError(ts, tok, err)
			}

			operand, err := p.ParseTokens(ts)
			if err != nil {
				return nil, err
			}
			operands = append(operands, operand)
		}
		return p.expandOperator(ts, op, operands)
	}
}

func (p *Parser) expandAtom(ts *TokenStream, tok Token) (Expr, error) {
	for _, e := range p.atoms {
		expr, err := e.ImmediateExpansion(tok)
		if err != nil {
			return nil, p.tokenError(ts, tok, err)
		} else if expr != nil {
			p.logf("%s: %s -> %s", e.Title(), tok, expr)
			return expr, nil
		}
	}

	expr, err := literal(tok)
	if err != nil {
		return nil, p.tokenError(ts, tok, err)
	}
	return expr, nil
}

func (p *Parser) expandOperator(ts *TokenStream, tok Token, operands []Expr) (Expr, error) {
	for _, e := range p.operators {
		expr, err := e.ImmediateExpansion(tok, operands)
		if err != nil {
			return nil, p.tokenError(ts, tok, err)
		} else if expr != nil {
			p.logf("%s: %s -> %s", e.Title(), tok, expr)
			return expr, nil
		}
	}
	return nil, p.tokenError(ts, tok, tok.SyntaxError("unrecognized operator %q", tok.Lexeme))
}

var numberedVariableRegex = regexp.MustCompile(`^v[0-9]+$`)

// literal returns the expression for an atom no expansion claimed.
func literal(tok Token) (Expr, error) {
	if tok.Width2 != 0 {
		return nil, tok.SyntaxError("%s cannot have a two-part width", tok.Type)
	} else if tok.Width > MaxWidth {
		return nil, tok.SyntaxError("%s: width %d exceeds %d bits", tok.Lexeme, tok.Width, MaxWidth)
	}

	switch {
	case tok.Type == TokenBitVector:
		return tok.Bits, nil
	case numberedVariableRegex.MatchString(tok.Lexeme):
		id, err := strconv.ParseUint(tok.Lexeme[1:], 10, 64)
		if err != nil {
			return nil, tok.SyntaxError("variable number out of range: %s", tok.Lexeme)
		}
		return NewVariableExpr(id, tok.Width), nil
	case isIdentifier(tok.Lexeme):
		return NewNamedVariableExpr(tok.Lexeme, tok.Width), nil
	default:
		return nil, tok.SyntaxError("unrecognized symbol %q", tok.Lexeme)
	}
}

// tokenError returns err as a syntax error positioned at tok within ts.
func (p *Parser) tokenError(ts *TokenStream, tok Token, err error) error {
	var e *SyntaxError
	if !errors.As(err, &e) {
		e = tok.SyntaxError("%s", err)
		e.Err = err
	}
	if e.Line == 0 {
		e.Line, e.Column = tok.Line, tok.Column
	}
	if e.InputName == "" {
		e.InputName = ts.Name()
	}
	return e
}

// DelayedExpansion offers every node of expr to all expansions in turn, atom
// expansions first, each seeing the previous one's result. The operands of
// the resulting node are then expanded the same way.
func (p *Parser) DelayedExpansion(expr Expr) (Expr, error) {
	return RewriteExpr(expr, func(expr Expr) (Expr, error) {
		for _, e := range p.expansions() {
			other, err := e.DelayedExpansion(expr, p)
			if err != nil {
				var se *SubstitutionError
				if !errors.As(err, &se) {
					err = &SubstitutionError{Message: e.Title(), Err: err}
				}
				return nil, err
			} else if other != nil && other != expr {
				p.logf("%s: %s -> %s", e.Title(), expr, other)
				expr = other
			}
		}
		return expr, nil
	})
}

func (p *Parser) expansions() []Expansion {
	a := make([]Expansion, 0, len(p.atoms)+len(p.operators))
	for _, e := range p.atoms {
		a = append(a, e)
	}
	for _, e := range p.operators {
		a = append(a, e)
	}
	return a
}

// DocString returns documentation for all expansions in table order.
func (p *Parser) DocString() string {
	var buf strings.Builder
	writeSection := func(heading string, a []Expansion) {
		if len(a) == 0 {
			return
		}
		fmt.Fprintf(&buf, "%s:\n", heading)
		for _, e := range a {
			fmt.Fprintf(&buf, "  %s\n", e.Title())
			for _, line := range strings.Split(strings.TrimSpace(e.DocString()), "\n") {
				if line == "" {
					buf.WriteString("\n")
					continue
				}
				fmt.Fprintf(&buf, "    %s\n", line)
			}
		}
	}

	all := p.expansions()
	writeSection("Atoms", all[:len(p.atoms)])
	if len(p.atoms) > 0 && len(p.operators) > 0 {
		buf.WriteString("\n")
	}
	writeSection("Operators", all[len(p.atoms):])
	return buf.String()
}

func (p *Parser) logf(format string, args ...interface{}) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}
