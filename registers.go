package symexpr

import (
	"fmt"
	"sort"
)

// RegisterDescriptor identifies a register, or part of one, by its major and
// minor numbers and the bit offset and width within it.
type RegisterDescriptor struct {
	Major  uint
	Minor  uint
	Offset uint
	Width  uint
}

// String returns the string representation of the descriptor.
func (r RegisterDescriptor) String() string {
	return fmt.Sprintf("{%d,%d,%d,%d}", r.Major, r.Minor, r.Offset, r.Width)
}

// RegisterDictionary maps register names to descriptors.
type RegisterDictionary interface {
	LookupRegister(name string) (RegisterDescriptor, bool)
	RegisterName(reg RegisterDescriptor) string
}

// Operators provides access to the register and memory state of a machine.
type Operators interface {
	RegisterDictionary() RegisterDictionary
	ReadRegister(reg RegisterDescriptor) (Expr, error)
	ReadMemory(addr Expr, width uint) (Expr, error)
}

// Registers is a RegisterDictionary backed by a map.
type Registers map[string]RegisterDescriptor

// LookupRegister returns the descriptor for name.
func (m Registers) LookupRegister(name string) (RegisterDescriptor, bool) {
	reg, ok := m[name]
	return reg, ok
}

// RegisterName returns the first name, in sorted order, that maps to reg, or
// the formatted descriptor if no name does.
func (m Registers) RegisterName(reg RegisterDescriptor) string {
	var names []string
	for name, r := range m {
		if r == reg {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return reg.String()
	}
	sort.Strings(names)
	return names[0]
}

// lookupRegisterToken returns the register named by tok, if any, after
// checking its width suffix.
func lookupRegisterToken(dict RegisterDictionary, tok Token) (RegisterDescriptor, bool, error) {
	if tok.Type != TokenSymbol || dict == nil {
		return RegisterDescriptor{}, false, nil
	}
	reg, ok := dict.LookupRegister(tok.Lexeme)
	if !ok {
		return reg, false, nil
	} else if tok.Width2 != 0 {
		return reg, true, tok.SyntaxError("register %s cannot have a two-part width", tok.Lexeme)
	} else if tok.Width != 0 && tok.Width != reg.Width {
		return reg, true, tok.SyntaxError("register %s is %d bits, not %d", tok.Lexeme, reg.Width, tok.Width)
	} else if reg.Width > MaxWidth {
		return reg, true, tok.SyntaxError("register %s is %d bits, exceeds %d", tok.Lexeme, reg.Width, MaxWidth)
	}
	return reg, true, nil
}

// RegisterToValue replaces register names by the registers' current values
// while parsing.
type RegisterToValue struct {
	BaseExpansion
	ops Operators
}

// NewRegisterToValue returns an expansion reading registers from ops.
func NewRegisterToValue(ops Operators) *RegisterToValue {
	return &RegisterToValue{
		BaseExpansion: NewBaseExpansion(
			"Register values",
			"A register name is replaced by the register's current value. A width suffix, if present, must match the register width.",
		),
		ops: ops,
	}
}

// ImmediateExpansion returns the value of the register named by tok.
func (e *RegisterToValue) ImmediateExpansion(tok Token) (Expr, error) {
	reg, ok, err := lookupRegisterToken(e.ops.RegisterDictionary(), tok)
	if !ok || err != nil {
		return nil, err
	}

	value, err := e.ops.ReadRegister(reg)
	if err != nil {
		return nil, tok.SyntaxError("cannot read register %s: %s", tok.Lexeme, err)
	} else if w := ExprWidth(value); w != reg.Width {
		return nil, tok.SyntaxError("register %s has a %d-bit value, expected %d", tok.Lexeme, w, reg.Width)
	}
	return value, nil
}

// RegisterSubstituter replaces register names by placeholder variables while
// parsing. The placeholders are replaced by register values read from
// Operators during delayed expansion.
type RegisterSubstituter struct {
	BaseExpansion
	dict RegisterDictionary
	m    *BiMap

	// Operators provides the register values for delayed expansion. When
	// nil, delayed expansion leaves placeholders unchanged.
	Operators Operators
}

// NewRegisterSubstituter returns an expansion recognizing the registers of dict.
func NewRegisterSubstituter(dict RegisterDictionary) *RegisterSubstituter {
	return &RegisterSubstituter{
		BaseExpansion: NewBaseExpansion(
			"Register substitution",
			"A register name is replaced by a placeholder variable, the same one for every\n"+
				"occurrence of the register. Delayed expansion replaces each placeholder by\n"+
				"the register's value at that time.",
		),
		dict: dict,
		m:    NewBiMap(registerComparer{}),
	}
}

// ImmediateExpansion returns the placeholder for the register named by tok.
func (e *RegisterSubstituter) ImmediateExpansion(tok Token) (Expr, error) {
	reg, ok, err := lookupRegisterToken(e.dict, tok)
	if !ok || err != nil {
		return nil, err
	}
	return e.m.GetOrInsert(reg, func() Expr { return NewFreshVariable(reg.Width) }), nil
}

// DelayedExpansion replaces a register placeholder by the register's value.
func (e *RegisterSubstituter) DelayedExpansion(expr Expr, p *Parser) (Expr, error) {
	if e.Operators == nil {
		return expr, nil
	}
	v, ok := expr.(*VariableExpr)
	if !ok {
		return expr, nil
	}
	key, ok := e.m.Reverse(v)
	if !ok {
		return expr, nil
	}
	reg := key.(RegisterDescriptor)

	value, err := e.Operators.ReadRegister(reg)
	if err != nil {
		return nil, &SubstitutionError{Message: fmt.Sprintf("cannot read register %s", e.dict.RegisterName(reg)), Err: err}
	} else if w := ExprWidth(value); w != reg.Width {
		return nil, &SubstitutionError{Message: fmt.Sprintf("register %s has a %d-bit value, expected %d", e.dict.RegisterName(reg), w, reg.Width)}
	}
	return value, nil
}

// Map returns a snapshot of the register to placeholder mapping.
func (e *RegisterSubstituter) Map() *BiMap { return e.m.Snapshot() }

// registerComparer orders register descriptors. Implements immutable.Comparer.
type registerComparer struct{}

func (registerComparer) Compare(a, b interface{}) int {
	x, y := a.(RegisterDescriptor), b.(RegisterDescriptor)
	if cmp := compareUint(uint64(x.Major), uint64(y.Major)); cmp != 0 {
		return cmp
	} else if cmp := compareUint(uint64(x.Minor), uint64(y.Minor)); cmp != 0 {
		return cmp
	} else if cmp := compareUint(uint64(x.Offset), uint64(y.Offset)); cmp != 0 {
		return cmp
	}
	return compareUint(uint64(x.Width), uint64(y.Width))
}
