package symexpr

import (
	"strings"
)

// ExprValue is a command-line flag value holding a parsed expression. It
// satisfies flag.Value and pflag.Value.
type ExprValue struct {
	// Parser parses the flag text. A parser from NewParser is used if nil.
	Parser *Parser

	Expr Expr
}

// NewExprValue returns a flag value parsing with p.
func NewExprValue(p *Parser) *ExprValue {
	return &ExprValue{Parser: p}
}

// Set parses s and stores the expression.
func (v *ExprValue) Set(s string) error {
	expr, err := parseFlag(v.Parser, s)
	if err != nil {
		return err
	}
	v.Expr = expr
	return nil
}

// String returns the printed form of the expression or a blank string.
func (v *ExprValue) String() string {
	if v == nil || v.Expr == nil {
		return ""
	}
	return v.Expr.String()
}

// Type returns the value type name used in help output.
func (v *ExprValue) Type() string { return "expr" }

// ExprSliceValue is a repeatable command-line flag collecting expressions.
// Each argument may hold several expressions.
type ExprSliceValue struct {
	// Parser parses the flag text. A parser from NewParser is used if nil.
	Parser *Parser

	Exprs []Expr
}

// NewExprSliceValue returns a flag value parsing with p.
func NewExprSliceValue(p *Parser) *ExprSliceValue {
	return &ExprSliceValue{Parser: p}
}

// Set parses every expression in s and appends them. An argument holding no
// expression is an error.
func (v *ExprSliceValue) Set(s string) error {
	p := v.Parser
	if p == nil {
		p = NewParser()
	}

	exprs, err := p.ParseAll(s, "flag")
	if err != nil {
		return err
	} else if len(exprs) == 0 {
		_, err := p.Parse(s, "flag")
		return err
	}
	v.Exprs = append(v.Exprs, exprs...)
	return nil
}

// String returns the printed expressions separated by commas.
func (v *ExprSliceValue) String() string {
	if v == nil {
		return ""
	}
	a := make([]string, len(v.Exprs))
	for i, expr := range v.Exprs {
		a[i] = expr.String()
	}
	return "[" + strings.Join(a, ",") + "]"
}

// Type returns the value type name used in help output.
func (v *ExprSliceValue) Type() string { return "exprs" }

// parseFlag parses s as exactly one expression. A flag.Value receives the
// whole argument, so trailing text is an error rather than a remainder.
func parseFlag(p *Parser, s string) (Expr, error) {
	if p == nil {
		p = NewParser()
	}
	return p.Parse(s, "flag")
}
