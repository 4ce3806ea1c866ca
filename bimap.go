package symexpr

import (
	"github.com/benbjohnson/immutable"
)

// BiMap is a one-to-one mapping between keys and placeholder expressions.
// Entries are only ever added, never replaced or removed.
//
// Both directions are persistent sorted maps so a snapshot costs nothing and
// iteration is in key order.
type BiMap struct {
	forward *immutable.SortedMap // key -> Expr
	reverse *immutable.SortedMap // Expr -> key
}

// NewBiMap returns an empty BiMap whose keys are ordered by comparer.
func NewBiMap(comparer immutable.Comparer) *BiMap {
	return &BiMap{
		forward: immutable.NewSortedMap(comparer),
		reverse: immutable.NewSortedMap(exprComparer{}),
	}
}

// Len returns the number of entries.
func (m *BiMap) Len() int { return m.forward.Len() }

// Forward returns the expression mapped to key.
func (m *BiMap) Forward(key interface{}) (Expr, bool) {
	v, ok := m.forward.Get(key)
	if !ok {
		return nil, false
	}
	return v.(Expr), true
}

// Reverse returns the key mapped to expr.
func (m *BiMap) Reverse(expr Expr) (interface{}, bool) {
	return m.reverse.Get(expr)
}

// GetOrInsert returns the expression mapped to key. If key is absent, the
// expression returned by fn is inserted. It is an error for fn to return an
// expression that is already mapped from another key.
func (m *BiMap) GetOrInsert(key interface{}, fn func() Expr) Expr {
	if v, ok := m.forward.Get(key); ok {
		return v.(Expr)
	}

	expr := fn()
	_, exists := m.reverse.Get(expr)
	assert(!exists, "bimap: value already mapped: %s", expr)

	m.forward = m.forward.Set(key, expr)
	m.reverse = m.reverse.Set(expr, key)
	return expr
}

// Snapshot returns a copy of the map that is unaffected by later inserts.
func (m *BiMap) Snapshot() *BiMap {
	return &BiMap{forward: m.forward, reverse: m.reverse}
}

// Each calls fn for every entry in key order until fn returns false.
func (m *BiMap) Each(fn func(key interface{}, expr Expr) bool) {
	itr := m.forward.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		if !fn(k, v.(Expr)) {
			return
		}
	}
}

// exprComparer orders expressions structurally. Implements immutable.Comparer.
type exprComparer struct{}

func (exprComparer) Compare(a, b interface{}) int {
	return CompareExpr(a.(Expr), b.(Expr))
}

// stringComparer orders strings. Implements immutable.Comparer.
type stringComparer struct{}

func (stringComparer) Compare(a, b interface{}) int {
	if i, j := a.(string), b.(string); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}
