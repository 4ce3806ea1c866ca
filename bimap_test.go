package symexpr_test

import (
	"strings"
	"testing"

	"github.com/benbjohnson/symexpr"
	"github.com/google/go-cmp/cmp"
)

func TestBiMap(t *testing.T) {
	t.Run("GetOrInsert", func(t *testing.T) {
		m := symexpr.NewBiMap(&stringComparer{})
		x := symexpr.NewNamedVariableExpr("x", 8)

		var n int
		fn := func() symexpr.Expr { n++; return x }
		if expr := m.GetOrInsert("a", fn); expr != x {
			t.Fatalf("unexpected expr: %s", expr)
		} else if expr := m.GetOrInsert("a", fn); expr != x {
			t.Fatalf("unexpected expr: %s", expr)
		} else if n != 1 {
			t.Fatalf("unexpected call count: %d", n)
		} else if m.Len() != 1 {
			t.Fatalf("unexpected len: %d", m.Len())
		}
	})

	t.Run("ForwardReverse", func(t *testing.T) {
		m := symexpr.NewBiMap(&stringComparer{})
		m.GetOrInsert("a", func() symexpr.Expr { return symexpr.NewVariableExpr(1, 8) })

		if expr, ok := m.Forward("a"); !ok || symexpr.CompareExpr(expr, symexpr.NewVariableExpr(1, 8)) != 0 {
			t.Fatalf("unexpected forward: %v", expr)
		} else if _, ok := m.Forward("b"); ok {
			t.Fatal("expected no entry")
		}

		// Reverse lookups are structural.
		if key, ok := m.Reverse(symexpr.NewVariableExpr(1, 8)); !ok || key != "a" {
			t.Fatalf("unexpected reverse: %v", key)
		} else if _, ok := m.Reverse(symexpr.NewVariableExpr(1, 16)); ok {
			t.Fatal("expected no entry")
		}
	})

	t.Run("Snapshot", func(t *testing.T) {
		m := symexpr.NewBiMap(&stringComparer{})
		m.GetOrInsert("a", func() symexpr.Expr { return symexpr.NewVariableExpr(1, 8) })
		other := m.Snapshot()
		m.GetOrInsert("b", func() symexpr.Expr { return symexpr.NewVariableExpr(2, 8) })

		if other.Len() != 1 {
			t.Fatalf("unexpected len: %d", other.Len())
		} else if _, ok := other.Reverse(symexpr.NewVariableExpr(2, 8)); ok {
			t.Fatal("expected no entry in snapshot")
		}
	})

	t.Run("Each", func(t *testing.T) {
		m := symexpr.NewBiMap(&stringComparer{})
		for i, key := range []string{"c", "a", "b"} {
			id := uint64(i + 1)
			m.GetOrInsert(key, func() symexpr.Expr { return symexpr.NewVariableExpr(id, 8) })
		}

		var keys []string
		m.Each(func(key interface{}, expr symexpr.Expr) bool {
			keys = append(keys, key.(string))
			return true
		})
		if diff := cmp.Diff([]string{"a", "b", "c"}, keys); diff != "" {
			t.Fatal(diff)
		}

		// Iteration stops early.
		keys = nil
		m.Each(func(key interface{}, expr symexpr.Expr) bool {
			keys = append(keys, key.(string))
			return false
		})
		if diff := cmp.Diff([]string{"a"}, keys); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("ErrDuplicateValue", func(t *testing.T) {
		m := symexpr.NewBiMap(&stringComparer{})
		m.GetOrInsert("a", func() symexpr.Expr { return symexpr.NewVariableExpr(1, 8) })

		defer func() {
			if r := recover(); r == nil || !strings.Contains(r.(string), "bimap: value already mapped: v1[8]") {
				t.Fatalf("unexpected panic: %v", r)
			}
		}()
		m.GetOrInsert("b", func() symexpr.Expr { return symexpr.NewVariableExpr(1, 8) })
	})
}

// stringComparer orders string keys.
type stringComparer struct{}

func (c *stringComparer) Compare(a, b interface{}) int {
	return strings.Compare(a.(string), b.(string))
}
