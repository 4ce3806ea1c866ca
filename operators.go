package symexpr

import (
	"fmt"
)

// builtinOperator describes an operator installed by NewParser.
type builtinOperator struct {
	name    string
	title   string
	doc     string
	minArgs int
	maxArgs int // -1 for no limit
	apply   func(p *Parser, tok Token, args []Expr) (Expr, error)
}

var builtinOperators = []builtinOperator{
	foldOperator("add", "Addition", ADD),
	binaryOperator("sub", "Subtraction", SUB),
	foldOperator("mul", "Multiplication", MUL),
	binaryOperator("udiv", "Unsigned division", UDIV),
	binaryOperator("sdiv", "Signed division", SDIV),
	binaryOperator("urem", "Unsigned remainder", UREM),
	binaryOperator("srem", "Signed remainder", SREM),
	foldOperator("and", "Bitwise and", AND),
	foldOperator("or", "Bitwise or", OR),
	foldOperator("xor", "Bitwise exclusive or", XOR),
	binaryOperator("shl", "Shift left", SHL),
	binaryOperator("lshr", "Logical shift right", LSHR),
	binaryOperator("ashr", "Arithmetic shift right", ASHR),
	binaryOperator("eq", "Equal", EQ),
	binaryOperator("ne", "Not equal", NE),
	binaryOperator("ult", "Unsigned less than", ULT),
	binaryOperator("ule", "Unsigned less than or equal", ULE),
	binaryOperator("ugt", "Unsigned greater than", UGT),
	binaryOperator("uge", "Unsigned greater than or equal", UGE),
	binaryOperator("slt", "Signed less than", SLT),
	binaryOperator("sle", "Signed less than or equal", SLE),
	binaryOperator("sgt", "Signed greater than", SGT),
	binaryOperator("sge", "Signed greater than or equal", SGE),
	{
		name:    "not",
		title:   "Bitwise not",
		doc:     "(not X) inverts every bit of X.",
		minArgs: 1, maxArgs: 1,
		apply: func(p *Parser, tok Token, args []Expr) (Expr, error) {
			return NewNotExpr(args[0]), nil
		},
	},
	{
		name:    "negate",
		title:   "Negation",
		doc:     "(negate X) is the two's complement negation of X.",
		minArgs: 1, maxArgs: 1,
		apply: func(p *Parser, tok Token, args []Expr) (Expr, error) {
			return NewNegateExpr(args[0]), nil
		},
	},
	{
		name:    "concat",
		title:   "Concatenation",
		doc:     "(concat X Y ...) joins its operands. The first operand holds the most significant bits.",
		minArgs: 2, maxArgs: -1,
		apply: func(p *Parser, tok Token, args []Expr) (Expr, error) {
			var w uint
			for _, arg := range args {
				if w += ExprWidth(arg); w > MaxWidth {
					return nil, tok.SyntaxError("concat: result exceeds %d bits", MaxWidth)
				}
			}

			expr := args[0]
			for _, arg := range args[1:] {
				expr = NewConcatExpr(expr, arg)
			}
			return expr, nil
		},
	},
	{
		name:    "extract",
		title:   "Bit extraction",
		doc:     "(extract LO HI X) returns bits LO up to but not including HI of X. LO and HI are constants.",
		minArgs: 3, maxArgs: 3,
		apply: func(p *Parser, tok Token, args []Expr) (Expr, error) {
			lo, ok := args[0].(*ConstantExpr)
			if !ok {
				return nil, tok.SyntaxError("extract: low bit must be a constant")
			}
			hi, ok := args[1].(*ConstantExpr)
			if !ok {
				return nil, tok.SyntaxError("extract: high bit must be a constant")
			}
			w := uint64(ExprWidth(args[2]))
			if lo.Value >= hi.Value || hi.Value > w {
				return nil, tok.SyntaxError("extract: invalid bit range [%d, %d) for %d-bit operand", lo.Value, hi.Value, w)
			}
			return NewExtractExpr(args[2], uint(lo.Value), uint(hi.Value-lo.Value)), nil
		},
	},
	extendOperator("zext", "Zero extension", false),
	extendOperator("sext", "Sign extension", true),
	{
		name:    "ite",
		title:   "If-then-else",
		doc:     "(ite C X Y) is X if the one-bit condition C is set and Y otherwise.",
		minArgs: 3, maxArgs: 3,
		apply: func(p *Parser, tok Token, args []Expr) (Expr, error) {
			if w := ExprWidth(args[0]); w != WidthBool {
				return nil, tok.SyntaxError("ite: condition must be 1 bit, not %d", w)
			} else if err := checkSameWidth(tok, args[1:]); err != nil {
				return nil, err
			}
			return p.simplifyIte(args[0], args[1], args[2]), nil
		},
	},
	{
		name:    "memory",
		title:   "Memory read",
		doc:     "(memory[N->M] ADDR) reads an M-bit cell at the N-bit address ADDR.",
		minArgs: 1, maxArgs: 1,
		apply: func(p *Parser, tok Token, args []Expr) (Expr, error) {
			if tok.Width > MaxWidth {
				return nil, tok.SyntaxError("memory: address width %d exceeds %d bits", tok.Width, MaxWidth)
			} else if tok.Width2 > MaxWidth {
				return nil, tok.SyntaxError("memory: cell width %d exceeds %d bits", tok.Width2, MaxWidth)
			} else if w := ExprWidth(args[0]); w != tok.Width {
				return nil, tok.SyntaxError("memory: address is %d bits, expected %d", w, tok.Width)
			}
			return NewMemory(tok.Width, tok.Width2).Select(args[0], tok.Width2, true), nil
		},
	},
}

// foldOperator returns an operator that applies op to two or more operands
// from left to right.
func foldOperator(name, title string, op BinaryOp) builtinOperator {
	return builtinOperator{
		name:    name,
		title:   title,
		doc:     fmt.Sprintf("(%s X Y ...) folds two or more operands of equal width from left to right.", name),
		minArgs: 2, maxArgs: -1,
		apply: func(p *Parser, tok Token, args []Expr) (Expr, error) {
			if err := checkSameWidth(tok, args); err != nil {
				return nil, err
			}
			expr := args[0]
			for _, arg := range args[1:] {
				expr = NewBinaryExpr(op, expr, arg)
			}
			return expr, nil
		},
	}
}

// binaryOperator returns an operator that applies op to exactly two operands.
func binaryOperator(name, title string, op BinaryOp) builtinOperator {
	doc := fmt.Sprintf("(%s X Y) takes two operands of equal width.", name)
	if op.IsCompare() {
		doc += " The result is 1 bit."
	} else if op.IsShift() {
		doc += " A narrower shift amount is zero extended."
	}

	return builtinOperator{
		name:    name,
		title:   title,
		doc:     doc,
		minArgs: 2, maxArgs: 2,
		apply: func(p *Parser, tok Token, args []Expr) (Expr, error) {
			lhs, rhs := args[0], args[1]
			if op.IsShift() && ExprWidth(rhs) < ExprWidth(lhs) {
				rhs = NewCastExpr(rhs, ExprWidth(lhs), false)
			}
			if err := checkSameWidth(tok, []Expr{lhs, rhs}); err != nil {
				return nil, err
			}
			if op.IsDivision() && IsConstantZero(rhs) {
				return nil, tok.SyntaxError("%s: division by zero", name)
			}
			return NewBinaryExpr(op, lhs, rhs), nil
		},
	}
}

// extendOperator returns an operator taking a constant width and an operand.
func extendOperator(name, title string, signed bool) builtinOperator {
	return builtinOperator{
		name:    name,
		title:   title,
		doc:     fmt.Sprintf("(%s W X) extends X to W bits, or truncates it if W is narrower. W is a constant.", name),
		minArgs: 2, maxArgs: 2,
		apply: func(p *Parser, tok Token, args []Expr) (Expr, error) {
			w, ok := args[0].(*ConstantExpr)
			if !ok {
				return nil, tok.SyntaxError("%s: width must be a constant", name)
			} else if w.Value == 0 {
				return nil, tok.SyntaxError("%s: width must be positive", name)
			} else if w.Value > MaxWidth {
				return nil, tok.SyntaxError("%s: width %d exceeds %d bits", name, w.Value, MaxWidth)
			}
			return NewCastExpr(args[1], uint(w.Value), signed), nil
		},
	}
}

// checkSameWidth returns an error unless all operands have the same,
// specified width.
func checkSameWidth(tok Token, args []Expr) error {
	for i, arg := range args {
		if w := ExprWidth(arg); w != ExprWidth(args[0]) {
			return tok.SyntaxError("%s: operand %d is %d bits, expected %d", tok.Lexeme, i+1, w, ExprWidth(args[0]))
		}
	}
	return nil
}

// expansion returns the operator as an expansion bound to p.
func (op builtinOperator) expansion(p *Parser) OperatorExpansion {
	return NewOperatorExpansion(op.title, op.doc, func(tok Token, args []Expr) (Expr, error) {
		if tok.Lexeme != op.name {
			return nil, nil
		}

		// Only the memory operator takes a two-part width, and requires it.
		if op.name == "memory" {
			if tok.Width2 == 0 {
				return nil, nil
			}
		} else if tok.Width2 != 0 {
			return nil, tok.SyntaxError("%s: operator cannot have a two-part width", op.name)
		}

		if len(args) < op.minArgs || (op.maxArgs >= 0 && len(args) > op.maxArgs) {
			return nil, tok.SyntaxError("%s: %s", op.name, arityString(op.minArgs, op.maxArgs, len(args)))
		}
		for i, arg := range args {
			if w := ExprWidth(arg); w == 0 {
				return nil, tok.SyntaxError("%s: operand %d has no width", op.name, i+1)
			} else if w > MaxWidth {
				return nil, tok.SyntaxError("%s: operand %d is %d bits, exceeds %d", op.name, i+1, w, MaxWidth)
			}
		}

		expr, err := op.apply(p, tok, args)
		if err != nil {
			return nil, err
		}

		if op.name != "memory" && tok.Width != 0 && tok.Width != ExprWidth(expr) {
			return nil, tok.SyntaxError("%s: result is %d bits, not %d", op.name, ExprWidth(expr), tok.Width)
		}
		return expr, nil
	})
}

func arityString(min, max, n int) string {
	switch {
	case min == max && min == 1:
		return fmt.Sprintf("expected 1 operand, got %d", n)
	case min == max:
		return fmt.Sprintf("expected %d operands, got %d", min, n)
	default:
		return fmt.Sprintf("expected at least %d operands, got %d", min, n)
	}
}

// booleanAtom parses the symbols true and false as one-bit constants.
func booleanAtom(tok Token) (Expr, error) {
	if tok.Type != TokenSymbol || (tok.Lexeme != "true" && tok.Lexeme != "false") {
		return nil, nil
	} else if tok.Width2 != 0 || (tok.Width != 0 && tok.Width != WidthBool) {
		return nil, tok.SyntaxError("%s is a 1-bit constant", tok.Lexeme)
	}
	return NewBoolConstantExpr(tok.Lexeme == "true"), nil
}

// appendBuiltins installs the boolean atoms and the built-in operators.
func (p *Parser) appendBuiltins() {
	p.AppendAtomExpansion(NewAtomExpansion("Boolean constants", "true and false are the 1-bit constants 1 and 0.", booleanAtom))
	for _, op := range builtinOperators {
		p.AppendOperatorExpansion(op.expansion(p))
	}
}

// simplifyIte returns the ite expression, replaced by one of its branches if
// the solver proves the condition constant.
func (p *Parser) simplifyIte(cond, then, els Expr) Expr {
	if p.Solver == nil || IsConstantExpr(cond) {
		return NewIteExpr(cond, then, els)
	}

	if sat, _, err := p.Solver.Solve([]Expr{NewNotExpr(cond)}, nil); err != nil {
		p.logf("ite: solver: %s", err)
	} else if !sat {
		return then
	}

	if sat, _, err := p.Solver.Solve([]Expr{cond}, nil); err != nil {
		p.logf("ite: solver: %s", err)
	} else if !sat {
		return els
	}
	return NewIteExpr(cond, then, els)
}
