// Package symexpr parses the textual notation for symbolic bit-vector
// expressions and expands it through extensible tables of atom and operator
// expansions.
package symexpr

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// Standard widths.
const (
	WidthBool = 1
	Width8    = 8
	Width16   = 16
	Width32   = 32
	Width64   = 64
)

// MaxWidth is the widest bit vector that can be represented as a constant.
const MaxWidth = Width64

var (
	ErrSolverTimeout       = errors.New("Solver timeout")
	ErrSolverCanceled      = errors.New("Solver canceled")
	ErrSolverResourceLimit = errors.New("Solver resource limit")
	ErrSolverUnknown       = errors.New("Solver unknown error")

	ErrUnknownRegister  = errors.New("unknown register")
	ErrAddressNotMapped = errors.New("address not mapped")
)

// Solver represents a constraint solver. Solve returns whether the conjunction
// of constraints is satisfiable and, if so, a value for each variable in vars.
type Solver interface {
	Solve(constraints []Expr, vars []*VariableExpr) (satisfiable bool, values []*ConstantExpr, err error)
}

// nextVariableID is the last fresh variable id handed out.
var nextVariableID uint64

// NewFreshVariable returns a numbered variable whose id has not been returned
// before within the process. Safe for concurrent use.
func NewFreshVariable(width uint) *VariableExpr {
	return &VariableExpr{ID: atomic.AddUint64(&nextVariableID, 1), Width: width}
}

// reserveVariableID ensures ids up to id are never handed out as fresh ids.
func reserveVariableID(id uint64) {
	for {
		cur := atomic.LoadUint64(&nextVariableID)
		if cur >= id || atomic.CompareAndSwapUint64(&nextVariableID, cur, id) {
			return
		}
	}
}

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
