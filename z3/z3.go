package z3

import (
	"fmt"
	"strings"
	"time"
	"unsafe"

	"github.com/benbjohnson/symexpr"
)

/*
#cgo LDFLAGS: -lz3
#include <z3.h>
#include <stdlib.h>
#include <stdio.h>
*/
import "C"

// Ensure solver implements interface.
var _ symexpr.Solver = (*Solver)(nil)

// Solver represents a solver that uses an embedded Z3 solver.
type Solver struct {
	ctx   *Context
	stats Stats
}

// NewSolver returns a new instance of Solver.
func NewSolver() *Solver {
	return &Solver{
		ctx: NewContext(),
	}
}

// Close deletes the underlying Z3 context.
func (s *Solver) Close() error {
	return s.ctx.Close()
}

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats {
	return s.stats
}

// Solve checks the conjunction of the 1-bit constraints. If satisfiable, a
// value is returned for each variable in vars.
func (s *Solver) Solve(constraints []symexpr.Expr, vars []*symexpr.VariableExpr) (satisfiable bool, values []*symexpr.ConstantExpr, err error) {
	t := time.Now()
	defer func() {
		s.stats.SolveN++
		s.stats.SolveTime += time.Since(t)
	}()

	solver := C.Z3_mk_solver(s.ctx.raw)
	if err := s.ctx.err("Z3_mk_solver"); err != nil {
		return false, nil, err
	}
	C.Z3_solver_inc_ref(s.ctx.raw, solver)
	defer C.Z3_solver_dec_ref(s.ctx.raw, solver)

	for _, constraint := range constraints {
		if w := symexpr.ExprWidth(constraint); w != symexpr.WidthBool {
			return false, nil, fmt.Errorf("z3: constraint must be 1 bit, not %d: %s", w, constraint)
		}
		z3Constraint, err := s.ctx.toAST(constraint)
		if err != nil {
			return false, nil, err
		}
		C.Z3_solver_assert(s.ctx.raw, solver, z3Constraint)
		if err := s.ctx.err("Z3_solver_assert"); err != nil {
			return false, nil, err
		}
	}

	// Exit immediately if unsatisfiable or the solver encountered an error.
	ret := C.Z3_solver_check(s.ctx.raw, solver)
	if err := s.ctx.err("Z3_solver_check"); err != nil {
		return false, nil, err
	} else if ret == C.Z3_L_FALSE {
		return false, nil, nil
	} else if ret == C.Z3_L_UNDEF {
		reason := C.GoString(C.Z3_solver_get_reason_unknown(s.ctx.raw, solver))
		switch {
		case strings.Contains(reason, "timeout"):
			return false, nil, symexpr.ErrSolverTimeout
		case strings.Contains(reason, "canceled"):
			return false, nil, symexpr.ErrSolverCanceled
		case strings.Contains(reason, "(resource limits reached)"):
			return false, nil, symexpr.ErrSolverResourceLimit
		case strings.Contains(reason, "unknown"):
			return false, nil, symexpr.ErrSolverUnknown
		default:
			return false, nil, fmt.Errorf("z3: %s", reason)
		}
	} else if len(vars) == 0 {
		return true, nil, nil // nothing to evaluate, ignore model
	}

	model := C.Z3_solver_get_model(s.ctx.raw, solver)
	if err := s.ctx.err("Z3_solver_get_model"); err != nil {
		return true, nil, err
	}
	C.Z3_model_inc_ref(s.ctx.raw, model)
	defer C.Z3_model_dec_ref(s.ctx.raw, model)

	if values, err = s.ctx.eval(model, vars); err != nil {
		return true, nil, err
	}
	return true, values, nil
}

// Context represents a Z3 context object that is used for constructing expressions.
//
// One-bit expressions are translated to the Bool sort and wider ones to
// bit-vector sorts of the same width.
type Context struct {
	raw C.Z3_context
}

// NewContext returns a new instance of Context.
func NewContext() *Context {
	config := C.Z3_mk_config()
	defer C.Z3_del_config(config)

	raw := C.Z3_mk_context(config)
	C.Z3_set_error_handler(raw, nil)
	C.Z3_set_ast_print_mode(raw, C.Z3_PRINT_SMTLIB2_COMPLIANT)
	return &Context{raw: raw}
}

// Close deletes the underlying Z3 context.
func (ctx *Context) Close() error {
	C.Z3_del_context(ctx.raw)
	return ctx.err("Z3_del_context")
}

// err returns the error for the last API call. Returns nil if last call was successful.
func (ctx *Context) err(op string) error {
	if code := C.Z3_get_error_code(ctx.raw); code != C.Z3_OK {
		return &Error{Code: int(code), Op: op, Message: C.GoString(C.Z3_get_error_msg(ctx.raw, code))}
	}
	return nil
}

// toAST returns a new instance of Z3_ast from an expression.
func (ctx *Context) toAST(expr symexpr.Expr) (C.Z3_ast, error) {
	switch expr := expr.(type) {
	case *symexpr.ConstantExpr:
		return ctx.toConstantAST(expr)
	case *symexpr.VariableExpr:
		return ctx.toVariableAST(expr)
	case *symexpr.SelectExpr:
		return ctx.toSelectAST(expr)
	case *symexpr.ConcatExpr:
		return ctx.toConcatAST(expr)
	case *symexpr.ExtractExpr:
		return ctx.toExtractAST(expr)
	case *symexpr.CastExpr:
		return ctx.toCastAST(expr)
	case *symexpr.NotExpr:
		return ctx.toNotAST(expr)
	case *symexpr.IteExpr:
		return ctx.toIteAST(expr)
	case *symexpr.BinaryExpr:
		return ctx.toBinaryAST(expr)
	default:
		return nil, fmt.Errorf("z3.Context.toAST: invalid expression type: %T", expr)
	}
}

// toBVAST returns expr as a bit-vector even when it is one bit wide.
func (ctx *Context) toBVAST(expr symexpr.Expr) (C.Z3_ast, error) {
	ast, err := ctx.toAST(expr)
	if err != nil {
		return nil, err
	} else if symexpr.ExprWidth(expr) != symexpr.WidthBool {
		return ast, nil
	}
	return ctx.boolToBV(ast)
}

// boolToBV converts a Bool-sorted AST to a 1-bit vector.
func (ctx *Context) boolToBV(ast C.Z3_ast) (C.Z3_ast, error) {
	one, err := ctx.makeUint64(1, 1)
	if err != nil {
		return nil, err
	}
	zero, err := ctx.makeUint64(1, 0)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_ite(ctx.raw, ast, one, zero), ctx.err("Z3_mk_ite")
}

// bvToBool converts a 1-bit vector to the Bool sort.
func (ctx *Context) bvToBool(ast C.Z3_ast) (C.Z3_ast, error) {
	one, err := ctx.makeUint64(1, 1)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_eq(ctx.raw, ast, one), ctx.err("Z3_mk_eq")
}

func (ctx *Context) toConstantAST(expr *symexpr.ConstantExpr) (C.Z3_ast, error) {
	if expr.Width == 1 {
		if expr.IsTrue() {
			return ctx.makeTrue()
		}
		return ctx.makeFalse()
	} else if expr.Width <= 32 {
		return ctx.makeUint(expr.Width, uint32(expr.Value))
	} else if expr.Width <= 64 {
		return ctx.makeUint64(expr.Width, expr.Value)
	}
	return nil, fmt.Errorf("z3.Context.toConstantAST: invalid expression width: %d", expr.Width)
}

func (ctx *Context) toVariableAST(expr *symexpr.VariableExpr) (C.Z3_ast, error) {
	if expr.Width == 0 {
		return nil, fmt.Errorf("z3.Context.toVariableAST: variable has no width: %s", expr)
	}

	var t C.Z3_sort
	if expr.Width == 1 {
		t = C.Z3_mk_bool_sort(ctx.raw)
		if err := ctx.err("Z3_mk_bool_sort"); err != nil {
			return nil, err
		}
	} else {
		var err error
		if t, err = ctx.makeBVSort(expr.Width); err != nil {
			return nil, err
		}
	}

	cname := C.CString(variableName(expr))
	defer C.free(unsafe.Pointer(cname))
	nameSymbol := C.Z3_mk_string_symbol(ctx.raw, cname)

	return C.Z3_mk_const(ctx.raw, nameSymbol, t), ctx.err("Z3_mk_const")
}

func (ctx *Context) toSelectAST(expr *symexpr.SelectExpr) (C.Z3_ast, error) {
	array, err := ctx.makeArrayWithUpdate(expr.Array, expr.Array.Updates)
	if err != nil {
		return nil, err
	}
	index, err := ctx.toBVAST(expr.Index)
	if err != nil {
		return nil, err
	}

	ast := C.Z3_mk_select(ctx.raw, array, index)
	if err := ctx.err("Z3_mk_select"); err != nil {
		return nil, err
	} else if expr.Array.RangeWidth == 1 {
		return ctx.bvToBool(ast)
	}
	return ast, nil
}

func (ctx *Context) toConcatAST(expr *symexpr.ConcatExpr) (C.Z3_ast, error) {
	msb, err := ctx.toBVAST(expr.MSB)
	if err != nil {
		return nil, err
	}
	lsb, err := ctx.toBVAST(expr.LSB)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_concat(ctx.raw, msb, lsb), ctx.err("Z3_mk_concat")
}

func (ctx *Context) toExtractAST(expr *symexpr.ExtractExpr) (C.Z3_ast, error) {
	src, err := ctx.toBVAST(expr.Expr)
	if err != nil {
		return nil, err
	}

	// If extracting single bit, use EQ expression to convert to bool sort.
	if expr.Width == 1 {
		extractExpr := C.Z3_mk_extract(ctx.raw, C.uint(expr.Offset), C.uint(expr.Offset), src)
		if err := ctx.err("Z3_mk_extract[bool]"); err != nil {
			return nil, err
		}
		return ctx.bvToBool(extractExpr)
	}

	return C.Z3_mk_extract(ctx.raw, C.uint(expr.Offset+expr.Width-1), C.uint(expr.Offset), src), ctx.err("Z3_mk_extract")
}

func (ctx *Context) toCastAST(expr *symexpr.CastExpr) (C.Z3_ast, error) {
	srcWidth := symexpr.ExprWidth(expr.Src)

	if expr.Width == srcWidth {
		return ctx.toAST(expr.Src)
	} else if expr.Width < srcWidth {
		return ctx.toExtractAST(&symexpr.ExtractExpr{Expr: expr.Src, Offset: 0, Width: expr.Width})
	}

	src, err := ctx.toAST(expr.Src)
	if err != nil {
		return nil, err
	}

	// Convert boolean cast to if-then-else expression.
	if srcWidth == 1 {
		whenTrue := uint64(1)
		if expr.Signed {
			whenTrue = ^uint64(0) >> (64 - expr.Width)
		}
		t, err := ctx.makeUint64(expr.Width, whenTrue)
		if err != nil {
			return nil, err
		}
		f, err := ctx.makeUint64(expr.Width, 0)
		if err != nil {
			return nil, err
		}
		return C.Z3_mk_ite(ctx.raw, src, t, f), ctx.err("Z3_mk_ite")
	}

	if expr.Signed {
		return C.Z3_mk_sign_ext(ctx.raw, C.uint(expr.Width-srcWidth), src), ctx.err("Z3_mk_sign_ext")
	}
	return C.Z3_mk_zero_ext(ctx.raw, C.uint(expr.Width-srcWidth), src), ctx.err("Z3_mk_zero_ext")
}

func (ctx *Context) toNotAST(expr *symexpr.NotExpr) (C.Z3_ast, error) {
	src, err := ctx.toAST(expr.Expr)
	if err != nil {
		return nil, err
	}

	// If boolean, use boolean NOT operation.
	if symexpr.ExprWidth(expr.Expr) == 1 {
		return C.Z3_mk_not(ctx.raw, src), ctx.err("Z3_mk_not")
	}
	return C.Z3_mk_bvnot(ctx.raw, src), ctx.err("Z3_mk_bvnot")
}

func (ctx *Context) toIteAST(expr *symexpr.IteExpr) (C.Z3_ast, error) {
	cond, err := ctx.toAST(expr.Cond)
	if err != nil {
		return nil, err
	}
	then, err := ctx.toAST(expr.Then)
	if err != nil {
		return nil, err
	}
	els, err := ctx.toAST(expr.Else)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_ite(ctx.raw, cond, then, els), ctx.err("Z3_mk_ite")
}

func (ctx *Context) toBinaryAST(expr *symexpr.BinaryExpr) (C.Z3_ast, error) {
	switch expr.Op {
	case symexpr.UGT:
		return ctx.toBinaryAST(&symexpr.BinaryExpr{Op: symexpr.ULT, LHS: expr.RHS, RHS: expr.LHS})
	case symexpr.UGE:
		return ctx.toBinaryAST(&symexpr.BinaryExpr{Op: symexpr.ULE, LHS: expr.RHS, RHS: expr.LHS})
	case symexpr.SGT:
		return ctx.toBinaryAST(&symexpr.BinaryExpr{Op: symexpr.SLT, LHS: expr.RHS, RHS: expr.LHS})
	case symexpr.SGE:
		return ctx.toBinaryAST(&symexpr.BinaryExpr{Op: symexpr.SLE, LHS: expr.RHS, RHS: expr.LHS})
	case symexpr.NE:
		eq, err := ctx.toBinaryAST(&symexpr.BinaryExpr{Op: symexpr.EQ, LHS: expr.LHS, RHS: expr.RHS})
		if err != nil {
			return nil, err
		}
		return C.Z3_mk_not(ctx.raw, eq), ctx.err("Z3_mk_not")
	}

	if symexpr.ExprWidth(expr.LHS) == 1 {
		switch expr.Op {
		case symexpr.AND, symexpr.OR, symexpr.XOR, symexpr.EQ:
			return ctx.toBoolBinaryAST(expr)
		}
	}

	lhs, err := ctx.toBVAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toBVAST(expr.RHS)
	if err != nil {
		return nil, err
	}

	var ast C.Z3_ast
	switch expr.Op {
	case symexpr.ADD:
		ast = C.Z3_mk_bvadd(ctx.raw, lhs, rhs)
	case symexpr.SUB:
		ast = C.Z3_mk_bvsub(ctx.raw, lhs, rhs)
	case symexpr.MUL:
		ast = C.Z3_mk_bvmul(ctx.raw, lhs, rhs)
	case symexpr.UDIV:
		ast = C.Z3_mk_bvudiv(ctx.raw, lhs, rhs)
	case symexpr.SDIV:
		ast = C.Z3_mk_bvsdiv(ctx.raw, lhs, rhs)
	case symexpr.UREM:
		ast = C.Z3_mk_bvurem(ctx.raw, lhs, rhs)
	case symexpr.SREM:
		ast = C.Z3_mk_bvsrem(ctx.raw, lhs, rhs)
	case symexpr.AND:
		ast = C.Z3_mk_bvand(ctx.raw, lhs, rhs)
	case symexpr.OR:
		ast = C.Z3_mk_bvor(ctx.raw, lhs, rhs)
	case symexpr.XOR:
		ast = C.Z3_mk_bvxor(ctx.raw, lhs, rhs)
	case symexpr.SHL:
		ast = C.Z3_mk_bvshl(ctx.raw, lhs, rhs)
	case symexpr.LSHR:
		ast = C.Z3_mk_bvlshr(ctx.raw, lhs, rhs)
	case symexpr.ASHR:
		ast = C.Z3_mk_bvashr(ctx.raw, lhs, rhs)
	case symexpr.EQ:
		ast = C.Z3_mk_eq(ctx.raw, lhs, rhs)
	case symexpr.ULT:
		ast = C.Z3_mk_bvult(ctx.raw, lhs, rhs)
	case symexpr.ULE:
		ast = C.Z3_mk_bvule(ctx.raw, lhs, rhs)
	case symexpr.SLT:
		ast = C.Z3_mk_bvslt(ctx.raw, lhs, rhs)
	case symexpr.SLE:
		ast = C.Z3_mk_bvsle(ctx.raw, lhs, rhs)
	default:
		return nil, fmt.Errorf("z3.Context.toBinaryAST: unexpected operation: %s", expr.Op)
	}
	if err := ctx.err("Z3_mk_bv" + expr.Op.String()); err != nil {
		return nil, err
	}

	// Arithmetic on 1-bit operands yields a 1-bit vector; convert back to bool.
	if expr.Op.IsArithmetic() && symexpr.ExprWidth(expr.LHS) == 1 {
		return ctx.bvToBool(ast)
	}
	return ast, nil
}

// toBoolBinaryAST translates logical operations on Bool-sorted operands.
func (ctx *Context) toBoolBinaryAST(expr *symexpr.BinaryExpr) (C.Z3_ast, error) {
	lhs, err := ctx.toAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.toAST(expr.RHS)
	if err != nil {
		return nil, err
	}

	args := [2]C.Z3_ast{lhs, rhs}
	switch expr.Op {
	case symexpr.AND:
		return C.Z3_mk_and(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_and")
	case symexpr.OR:
		return C.Z3_mk_or(ctx.raw, 2, &args[0]), ctx.err("Z3_mk_or")
	case symexpr.XOR:
		return C.Z3_mk_xor(ctx.raw, lhs, rhs), ctx.err("Z3_mk_xor")
	default:
		return C.Z3_mk_iff(ctx.raw, lhs, rhs), ctx.err("Z3_mk_iff")
	}
}

func (ctx *Context) makeTrue() (C.Z3_ast, error) {
	return C.Z3_mk_true(ctx.raw), ctx.err("Z3_mk_true")
}

func (ctx *Context) makeFalse() (C.Z3_ast, error) {
	return C.Z3_mk_false(ctx.raw), ctx.err("Z3_mk_false")
}

func (ctx *Context) makeBVSort(width uint) (C.Z3_sort, error) {
	return C.Z3_mk_bv_sort(ctx.raw, C.uint(width)), ctx.err("Z3_mk_bv_sort")
}

func (ctx *Context) makeUint(width uint, value uint32) (C.Z3_ast, error) {
	t, err := ctx.makeBVSort(width)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_unsigned_int(ctx.raw, C.uint(value), t), ctx.err("Z3_mk_unsigned_int")
}

func (ctx *Context) makeUint64(width uint, value uint64) (C.Z3_ast, error) {
	t, err := ctx.makeBVSort(width)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_unsigned_int64(ctx.raw, C.uint64_t(value), t), ctx.err("Z3_mk_unsigned_int64")
}

// makeArrayConst returns the root constant array with no updates.
func (ctx *Context) makeArrayConst(array *symexpr.Array) (C.Z3_ast, error) {
	domainSort := C.Z3_mk_bv_sort(ctx.raw, C.uint(array.DomainWidth))
	if err := ctx.err("Z3_mk_bv_sort[domain]"); err != nil {
		return nil, err
	}
	rangeSort := C.Z3_mk_bv_sort(ctx.raw, C.uint(array.RangeWidth))
	if err := ctx.err("Z3_mk_bv_sort[range]"); err != nil {
		return nil, err
	}
	arraySort := C.Z3_mk_array_sort(ctx.raw, domainSort, rangeSort)
	if err := ctx.err("Z3_mk_array_sort"); err != nil {
		return nil, err
	}

	cname := C.CString(arrayName(array))
	defer C.free(unsafe.Pointer(cname))
	nameSymbol := C.Z3_mk_string_symbol(ctx.raw, cname)

	return C.Z3_mk_const(ctx.raw, nameSymbol, arraySort), ctx.err("Z3_mk_const")
}

// makeArrayWithUpdate returns an array with updates recursively applied.
func (ctx *Context) makeArrayWithUpdate(root *symexpr.Array, upd *symexpr.ArrayUpdate) (C.Z3_ast, error) {
	if upd == nil {
		return ctx.makeArrayConst(root)
	}

	array, err := ctx.makeArrayWithUpdate(root, upd.Next)
	if err != nil {
		return nil, err
	}
	index, err := ctx.toBVAST(upd.Index)
	if err != nil {
		return nil, err
	}
	value, err := ctx.toBVAST(upd.Value)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_store(ctx.raw, array, index, value), ctx.err("Z3_mk_store")
}

// eval evaluates each variable against the model. Variables the constraints
// leave unconstrained evaluate to zero.
func (ctx *Context) eval(model C.Z3_model, vars []*symexpr.VariableExpr) ([]*symexpr.ConstantExpr, error) {
	values := make([]*symexpr.ConstantExpr, 0, len(vars))
	for _, v := range vars {
		value, err := ctx.evalVariable(model, v)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

func (ctx *Context) evalVariable(model C.Z3_model, v *symexpr.VariableExpr) (*symexpr.ConstantExpr, error) {
	ast, err := ctx.toVariableAST(v)
	if err != nil {
		return nil, err
	}

	var result C.Z3_ast
	C.Z3_model_eval(ctx.raw, model, ast, C.bool(true), &result)
	if err := ctx.err("Z3_model_eval"); err != nil {
		return nil, err
	}

	if v.Width == 1 {
		b := C.Z3_get_bool_value(ctx.raw, result)
		if err := ctx.err("Z3_get_bool_value"); err != nil {
			return nil, err
		}
		return symexpr.NewBoolConstantExpr(b == C.Z3_L_TRUE), nil
	}

	var value C.uint64_t
	C.Z3_get_numeral_uint64(ctx.raw, result, &value)
	if err := ctx.err("Z3_get_numeral_uint64"); err != nil {
		return nil, err
	}
	return symexpr.NewConstantExpr(uint64(value), v.Width), nil
}

// variableName returns a Z3 symbol name unique to the variable and its width.
func variableName(v *symexpr.VariableExpr) string {
	if v.IsNumbered() {
		return fmt.Sprintf("v%d_%d", v.ID, v.Width)
	}
	return fmt.Sprintf("$%s_%d", v.Name, v.Width)
}

func arrayName(array *symexpr.Array) string {
	return fmt.Sprintf("A%d_%d_%d", array.ID, array.DomainWidth, array.RangeWidth)
}

// Error represents an error from the Z3 API.
type Error struct {
	Code    int
	Op      string
	Message string
}

// Error returns the error as a string.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.Code)
}

// Possible error codes.
const (
	ErrorCodeOK = iota
	ErrorCodeSortError
	ErrorCodeIOB
	ErrorCodeInvalidArg
	ErrorCodeParserError
	ErrorCodeNoParser
	ErrorCodeInvalidPattern
	ErrorCodeMemoutFail
	ErrorCodeFileAccessError
	ErrorCodeInternalFatal
	ErrorCodeInvalidUsage
	ErrorCodeDecRefError
	ErrorCodeException
)

// Stats holds solver counters.
type Stats struct {
	SolveN    int
	SolveTime time.Duration
}
