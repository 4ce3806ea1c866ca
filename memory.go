package symexpr

import (
	"fmt"
)

// MemorySubstituter replaces memory reads written "(memory[N] ADDRESS)" by
// placeholder variables while parsing. N is a byte count. Delayed expansion
// replaces each placeholder by the 8*N-bit value Operators reads at the
// address.
type MemorySubstituter struct {
	BaseExpansion
	m *BiMap

	// Operators provides memory values for delayed expansion. When nil,
	// delayed expansion leaves placeholders unchanged.
	Operators Operators
}

// MemoryKey identifies a memory read by its address expression and width.
type MemoryKey struct {
	Address Expr
	Width   uint // in bits
}

// NewMemorySubstituter returns a new instance of MemorySubstituter.
func NewMemorySubstituter(ops Operators) *MemorySubstituter {
	return &MemorySubstituter{
		BaseExpansion: NewBaseExpansion(
			"Memory substitution",
			"(memory[N] ADDRESS) reads N bytes and is replaced by an 8*N-bit placeholder\n"+
				"variable, the same one for every read of a structurally equal address with the\n"+
				"same size. Delayed expansion expands the address and replaces the placeholder\n"+
				"by the value read from memory.",
		),
		m:         NewBiMap(memoryKeyComparer{}),
		Operators: ops,
	}
}

// ImmediateExpansion returns the placeholder for a memory read.
func (e *MemorySubstituter) ImmediateExpansion(tok Token, operands []Expr) (Expr, error) {
	if tok.Lexeme != "memory" || tok.Width2 != 0 {
		return nil, nil
	} else if tok.Width == 0 {
		return nil, tok.SyntaxError("memory: byte count is required")
	} else if tok.Width > MaxWidth/8 {
		return nil, tok.SyntaxError("memory: %d bytes exceeds %d", tok.Width, MaxWidth/8)
	} else if len(operands) != 1 {
		return nil, tok.SyntaxError("memory: expected 1 operand, got %d", len(operands))
	} else if ExprWidth(operands[0]) == 0 {
		return nil, tok.SyntaxError("memory: address has no width")
	}

	key := MemoryKey{Address: operands[0], Width: 8 * tok.Width}
	return e.m.GetOrInsert(key, func() Expr { return NewFreshVariable(key.Width) }), nil
}

// DelayedExpansion replaces a memory placeholder by the value in memory.
func (e *MemorySubstituter) DelayedExpansion(expr Expr, p *Parser) (Expr, error) {
	if e.Operators == nil {
		return expr, nil
	}
	v, ok := expr.(*VariableExpr)
	if !ok {
		return expr, nil
	}
	k, ok := e.m.Reverse(v)
	if !ok {
		return expr, nil
	}
	key := k.(MemoryKey)

	addr, err := p.DelayedExpansion(key.Address)
	if err != nil {
		return nil, err
	}
	value, err := e.Operators.ReadMemory(addr, key.Width)
	if err != nil {
		return nil, &SubstitutionError{Message: fmt.Sprintf("cannot read memory at %s", addr), Err: err}
	} else if w := ExprWidth(value); w != key.Width {
		return nil, &SubstitutionError{Message: fmt.Sprintf("memory at %s has a %d-bit value, expected %d", addr, w, key.Width)}
	}
	return value, nil
}

// Map returns a snapshot of the read to placeholder mapping. Keys have type
// MemoryKey.
func (e *MemorySubstituter) Map() *BiMap { return e.m.Snapshot() }

// memoryKeyComparer orders reads by width and then address.
// Implements immutable.Comparer.
type memoryKeyComparer struct{}

func (memoryKeyComparer) Compare(a, b interface{}) int {
	x, y := a.(MemoryKey), b.(MemoryKey)
	if cmp := compareUint(uint64(x.Width), uint64(y.Width)); cmp != 0 {
		return cmp
	}
	return CompareExpr(x.Address, y.Address)
}
