package symexpr_test

import (
	"testing"

	"github.com/benbjohnson/symexpr"
	"github.com/google/go-cmp/cmp"
)

func TestArray(t *testing.T) {
	t.Run("Concrete", func(t *testing.T) {
		t.Run("LittleEndian", func(t *testing.T) {
			a := symexpr.NewArray(1, 32, 8).Store(symexpr.NewConstantExpr32(0x10), symexpr.NewConstantExpr32(0x12345678), true)
			if diff := cmp.Diff(symexpr.NewConstantExpr32(0x12345678), a.Select(symexpr.NewConstantExpr32(0x10), 32, true)); diff != "" {
				t.Fatal(diff)
			} else if diff := cmp.Diff(symexpr.NewConstantExpr8(0x78), a.Select(symexpr.NewConstantExpr32(0x10), 8, true)); diff != "" {
				t.Fatal(diff)
			} else if diff := cmp.Diff(symexpr.NewConstantExpr(0x3456, 16), a.Select(symexpr.NewConstantExpr32(0x11), 16, true)); diff != "" {
				t.Fatal(diff)
			}
		})

		t.Run("BigEndian", func(t *testing.T) {
			a := symexpr.NewArray(1, 32, 8).Store(symexpr.NewConstantExpr32(0x10), symexpr.NewConstantExpr32(0x12345678), false)
			if diff := cmp.Diff(symexpr.NewConstantExpr32(0x12345678), a.Select(symexpr.NewConstantExpr32(0x10), 32, false)); diff != "" {
				t.Fatal(diff)
			} else if diff := cmp.Diff(symexpr.NewConstantExpr8(0x12), a.Select(symexpr.NewConstantExpr32(0x10), 8, false)); diff != "" {
				t.Fatal(diff)
			}
		})

		t.Run("Overwrite", func(t *testing.T) {
			a := symexpr.NewArray(1, 8, 8).Store(symexpr.NewConstantExpr8(0), symexpr.NewConstantExpr(0x1122, 16), true)
			b := a.Store(symexpr.NewConstantExpr8(1), symexpr.NewConstantExpr8(0x33), true)
			if diff := cmp.Diff(symexpr.NewConstantExpr(0x3322, 16), b.Select(symexpr.NewConstantExpr8(0), 16, true)); diff != "" {
				t.Fatal(diff)
			}

			// Earlier store to the same index is dropped from the new chain only.
			if n := updateCount(b); n != 2 {
				t.Fatalf("unexpected update count: %d", n)
			} else if diff := cmp.Diff(symexpr.NewConstantExpr(0x1122, 16), a.Select(symexpr.NewConstantExpr8(0), 16, true)); diff != "" {
				t.Fatal(diff)
			}
		})
	})

	t.Run("Symbolic", func(t *testing.T) {
		t.Run("Unset", func(t *testing.T) {
			a := symexpr.NewMemory(32, 8)
			if s := a.Select(symexpr.NewConstantExpr32(4), 8, true).String(); s != "(memory[32->8] 0x4[32])" {
				t.Fatalf("unexpected string: %s", s)
			}
		})

		t.Run("MultiCell", func(t *testing.T) {
			a := symexpr.NewMemory(8, 8)
			s := a.Select(symexpr.NewConstantExpr8(4), 16, true).String()
			if s != "(concat (memory[8->8] 0x5[8]) (memory[8->8] 0x4[8]))" {
				t.Fatalf("unexpected string: %s", s)
			}
		})

		t.Run("ValueRoundTrip", func(t *testing.T) {
			x := symexpr.NewNamedVariableExpr("x", 32)
			a := symexpr.NewArray(1, 32, 8).Store(symexpr.NewConstantExpr32(0), x, true)
			if expr := a.Select(symexpr.NewConstantExpr32(0), 32, true); symexpr.CompareExpr(expr, x) != 0 {
				t.Fatalf("unexpected expr: %s", expr)
			}
		})

		t.Run("SymbolicIndex", func(t *testing.T) {
			i := symexpr.NewNamedVariableExpr("i", 8)
			a := symexpr.NewArray(1, 8, 8).
				Store(symexpr.NewConstantExpr8(0), symexpr.NewConstantExpr8(0xaa), true).
				Store(i, symexpr.NewConstantExpr8(0xbb), true)

			// Reads through the symbolic store cannot be resolved.
			expr, ok := a.Select(symexpr.NewConstantExpr8(0), 8, true).(*symexpr.SelectExpr)
			if !ok {
				t.Fatalf("unexpected expr: %s", expr)
			} else if expr.Array != a {
				t.Fatal("unexpected array")
			}

			// The symbolic index itself is resolved.
			if diff := cmp.Diff(symexpr.NewConstantExpr8(0xbb), a.Select(i, 8, true)); diff != "" {
				t.Fatal(diff)
			}
		})

		t.Run("Widen", func(t *testing.T) {
			i := symexpr.NewNamedVariableExpr("i", 8)
			a := symexpr.NewMemory(16, 8)
			if s := a.Select(i, 8, true).String(); s != "(memory[16->8] (zext 16 i[8]))" {
				t.Fatalf("unexpected string: %s", s)
			}
		})
	})

	t.Run("String", func(t *testing.T) {
		if s := symexpr.NewArray(3, 32, 8).String(); s != "(array #3 32->8)" {
			t.Fatalf("unexpected string: %s", s)
		} else if s := symexpr.NewMemory(64, 8).String(); s != "(array 64->8)" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
}

func TestCompareArray(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		if cmp := symexpr.CompareArray(nil, symexpr.NewArray(1, 8, 8)); cmp != -1 {
			t.Fatalf("unexpected result: %d", cmp)
		} else if cmp := symexpr.CompareArray(symexpr.NewArray(1, 8, 8), nil); cmp != 1 {
			t.Fatalf("unexpected result: %d", cmp)
		}
	})

	t.Run("ID", func(t *testing.T) {
		if cmp := symexpr.CompareArray(symexpr.NewArray(1, 8, 8), symexpr.NewArray(2, 8, 8)); cmp != -1 {
			t.Fatalf("unexpected result: %d", cmp)
		}
	})

	t.Run("Width", func(t *testing.T) {
		if cmp := symexpr.CompareArray(symexpr.NewArray(1, 16, 8), symexpr.NewArray(1, 8, 8)); cmp != 1 {
			t.Fatalf("unexpected result: %d", cmp)
		}
	})

	t.Run("Updates", func(t *testing.T) {
		a := symexpr.NewArray(1, 8, 8)
		b := a.Store(symexpr.NewConstantExpr8(0), symexpr.NewConstantExpr8(1), true)
		c := a.Store(symexpr.NewConstantExpr8(0), symexpr.NewConstantExpr8(1), true)
		if cmp := symexpr.CompareArray(b, c); cmp != 0 {
			t.Fatalf("unexpected result: %d", cmp)
		} else if cmp := symexpr.CompareArray(a, b); cmp != -1 {
			t.Fatalf("unexpected result: %d", cmp)
		}
	})
}

func TestCompareArrayUpdate(t *testing.T) {
	upd := func(index, value uint64, next *symexpr.ArrayUpdate) *symexpr.ArrayUpdate {
		return &symexpr.ArrayUpdate{Index: symexpr.NewConstantExpr8(index), Value: symexpr.NewConstantExpr8(value), Next: next}
	}

	for _, tt := range []struct {
		name string
		a, b *symexpr.ArrayUpdate
		want int
	}{
		{"Nil", nil, upd(0, 0, nil), -1},
		{"Index", upd(1, 0, nil), upd(0, 0, nil), 1},
		{"Value", upd(0, 0, nil), upd(0, 1, nil), -1},
		{"Next", upd(0, 0, upd(1, 1, nil)), upd(0, 0, nil), 1},
		{"Equal", upd(0, 0, upd(1, 1, nil)), upd(0, 0, upd(1, 1, nil)), 0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if cmp := symexpr.CompareArrayUpdate(tt.a, tt.b); cmp != tt.want {
				t.Fatalf("unexpected result: %d", cmp)
			}
		})
	}
}

func updateCount(a *symexpr.Array) int {
	var n int
	for upd := a.Updates; upd != nil; upd = upd.Next {
		n++
	}
	return n
}
