package symexpr_test

import (
	"errors"
	"testing"

	"github.com/benbjohnson/symexpr"
)

func TestMemorySubstituter(t *testing.T) {
	newParser := func() (*symexpr.Parser, *symexpr.RegisterSubstituter, *symexpr.MemorySubstituter) {
		p := symexpr.NewParser()
		regs := p.DefineRegisterDictionary(testRegisters)
		mem := symexpr.NewMemorySubstituter(nil)
		p.AppendOperatorExpansion(mem)
		return p, regs, mem
	}

	t.Run("SameAddress", func(t *testing.T) {
		p, _, mem := newParser()
		a := MustParse(p, "(memory[4] (add esp 4[32]))")
		b := MustParse(p, "(memory[4] (add 4[32] esp))")
		c := MustParse(p, "(memory[2] (add 4[32] esp))")
		if a != b {
			t.Fatalf("expected same placeholder: %s != %s", a, b)
		} else if a == c {
			t.Fatal("expected distinct placeholder for width")
		} else if symexpr.ExprWidth(c) != 16 {
			t.Fatalf("unexpected width: %d", symexpr.ExprWidth(c))
		}

		var keys []symexpr.MemoryKey
		mem.Map().Each(func(key interface{}, expr symexpr.Expr) bool {
			keys = append(keys, key.(symexpr.MemoryKey))
			return true
		})
		if len(keys) != 2 {
			t.Fatalf("unexpected key count: %d", len(keys))
		} else if keys[0].Width != 16 || keys[1].Width != 32 {
			t.Fatalf("unexpected key order: %d, %d", keys[0].Width, keys[1].Width)
		}
	})

	t.Run("Delayed", func(t *testing.T) {
		p, regs, mem := newParser()
		ops := &mockOperators{
			dict:      testRegisters,
			registers: map[string]symexpr.Expr{"esp": symexpr.NewConstantExpr32(0x1000)},
			memory:    map[uint64]symexpr.Expr{0x1004: symexpr.NewConstantExpr32(0xdeadbeef)},
		}
		regs.Operators, mem.Operators = ops, ops

		expr := MustParse(p, "(xor (memory[4] (add esp 4[32])) 0xffffffff[32])")
		if other, err := p.DelayedExpansion(expr); err != nil {
			t.Fatal(err)
		} else if s := other.String(); s != "0x21524110[32]" {
			t.Fatalf("unexpected expr: %s", s)
		}
	})

	t.Run("NestedReads", func(t *testing.T) {
		p, _, mem := newParser()
		mem.Operators = &mockOperators{
			memory: map[uint64]symexpr.Expr{
				0x10: symexpr.NewConstantExpr8(0x20),
				0x20: symexpr.NewConstantExpr8(0x7f),
			},
		}
		expr := MustParse(p, "(memory[1] (memory[1] 0x10[8]))")
		if other, err := p.DelayedExpansion(expr); err != nil {
			t.Fatal(err)
		} else if s := other.String(); s != "0x7f[8]" {
			t.Fatalf("unexpected expr: %s", s)
		}
	})

	t.Run("BuiltinFirst", func(t *testing.T) {
		p, _, mem := newParser()
		if _, ok := MustParse(p, "(memory[32->8] 0x10[32])").(*symexpr.SelectExpr); !ok {
			t.Fatal("expected select expression")
		} else if mem.Map().Len() != 0 {
			t.Fatalf("unexpected placeholders: %d", mem.Map().Len())
		}
	})

	t.Run("ByteCount", func(t *testing.T) {
		p, _, mem := newParser()
		ops := &widthRecorder{value: symexpr.NewConstantExpr32(0xdeadbeef)}
		mem.Operators = ops

		expr := MustParse(p, "(memory[4] 0x1000[32])")
		if w := symexpr.ExprWidth(expr); w != 32 {
			t.Fatalf("unexpected placeholder width: %d", w)
		} else if other, err := p.DelayedExpansion(expr); err != nil {
			t.Fatal(err)
		} else if s := other.String(); s != "0xdeadbeef[32]" {
			t.Fatalf("unexpected expr: %s", s)
		} else if len(ops.widths) != 1 || ops.widths[0] != 32 {
			t.Fatalf("unexpected read widths: %v", ops.widths)
		}
	})

	t.Run("ErrNotMapped", func(t *testing.T) {
		p, _, mem := newParser()
		mem.Operators = &mockOperators{}
		_, err := p.DelayedExpansion(MustParse(p, "(memory[1] 0x10[8])"))
		if !errors.Is(err, symexpr.ErrAddressNotMapped) {
			t.Fatalf("unexpected error: %v", err)
		} else if err.Error() != "cannot read memory at 0x10[8]: address not mapped" {
			t.Fatalf("unexpected error: %s", err)
		}
	})

	t.Run("ErrWidth", func(t *testing.T) {
		p, _, mem := newParser()
		mem.Operators = &mockOperators{memory: map[uint64]symexpr.Expr{0x10: symexpr.NewConstantExpr8(1)}}
		if _, err := p.DelayedExpansion(MustParse(p, "(memory[2] 0x10[8])")); err == nil || err.Error() != "memory at 0x10[8] has a 8-bit value, expected 16" {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		for _, tt := range []struct {
			src string
			err string
		}{
			{"(memory 0x10[8])", "test:1:1: memory: byte count is required"},
			{"(memory[1] 1[8] 2[8])", "test:1:1: memory: expected 1 operand, got 2"},
			{"(memory[1] v1)", "test:1:1: memory: address has no width"},
			{"(memory[9] 0x10[32])", "test:1:1: memory: 9 bytes exceeds 8"},
		} {
			t.Run(tt.src, func(t *testing.T) {
				p, _, _ := newParser()
				if _, err := p.Parse(tt.src, "test"); err == nil || err.Error() != tt.err {
					t.Fatalf("unexpected error: %v", err)
				}
			})
		}
	})
}

// widthRecorder returns value for every memory read and records the width
// requested.
type widthRecorder struct {
	mockOperators
	widths []uint
	value  symexpr.Expr
}

func (ops *widthRecorder) ReadMemory(addr symexpr.Expr, width uint) (symexpr.Expr, error) {
	ops.widths = append(ops.widths, width)
	return ops.value, nil
}
