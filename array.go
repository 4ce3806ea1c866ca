package symexpr

import (
	"fmt"
)

// Array represents a memory of RangeWidth-bit cells addressed by
// DomainWidth-bit indexes. Cells that were never stored are symbolic.
type Array struct {
	ID          uint64       // unique id
	DomainWidth uint         // address width, in bits
	RangeWidth  uint         // cell width, in bits
	Updates     *ArrayUpdate // linked list of stores, most recent first
}

// NewArray returns a new Array with no stores.
func NewArray(id uint64, domainWidth, rangeWidth uint) *Array {
	assert(domainWidth > 0 && domainWidth <= MaxWidth, "array: invalid domain width: %d", domainWidth)
	assert(rangeWidth > 0, "array: invalid range width: %d", rangeWidth)
	return &Array{
		ID:          id,
		DomainWidth: domainWidth,
		RangeWidth:  rangeWidth,
	}
}

// NewMemory returns the default symbolic memory for the given widths.
// Its reads print as the memory operator.
func NewMemory(domainWidth, rangeWidth uint) *Array {
	return NewArray(0, domainWidth, rangeWidth)
}

// String returns a string representation of the array.
func (a *Array) String() string {
	if a.ID != 0 {
		return fmt.Sprintf("(array #%d %d->%d)", a.ID, a.DomainWidth, a.RangeWidth)
	}
	return fmt.Sprintf("(array %d->%d)", a.DomainWidth, a.RangeWidth)
}

// Clone returns a copy of the array.
func (a *Array) Clone() *Array {
	other := *a
	return &other
}

// Select reads width bits starting at offset. Width must be a multiple of the
// cell width; multi-cell reads are assembled in the given byte order.
func (a *Array) Select(offset Expr, width uint, isLittleEndian bool) Expr {
	assert(width > 0 && width%a.RangeWidth == 0, "select: invalid width: %d", width)

	offset = newZExtExpr(offset, a.DomainWidth)

	var result Expr
	for i, n := uint64(0), uint64(width/a.RangeWidth); i != n; i++ {
		cellOffset := i
		if !isLittleEndian {
			cellOffset = n - i - 1
		}

		value := a.selectCell(NewBinaryExpr(ADD, offset, NewConstantExpr(cellOffset, a.DomainWidth)))
		if i == 0 {
			result = value
		} else {
			result = NewConcatExpr(value, result)
		}
	}
	return result
}

// selectCell reads a single cell from the array.
//
// Attempts to find a concrete value by traversing the array update history.
// Falls back to a select expression if either the selected index or an update's
// index is symbolic.
func (a *Array) selectCell(index Expr) Expr {
	for upd := a.Updates; upd != nil; upd = upd.Next {
		cond, ok := NewBinaryExpr(EQ, index, upd.Index).(*ConstantExpr)
		if !ok {
			break // found symbolic index, exit
		} else if cond.IsTrue() {
			return upd.Value
		}
	}
	return NewSelectExpr(a, index)
}

// Store writes a value at an offset. Returns a new copy of the array.
func (a *Array) Store(offset, value Expr, isLittleEndian bool) *Array {
	width := ExprWidth(value)
	assert(width > 0 && width%a.RangeWidth == 0, "store: invalid width: %d", width)

	other := a.Clone()
	offset = newZExtExpr(offset, a.DomainWidth)
	for i, n := uint64(0), uint64(width/a.RangeWidth); i != n; i++ {
		cellOffset := i
		if !isLittleEndian {
			cellOffset = n - i - 1
		}

		index := NewBinaryExpr(ADD, offset, NewConstantExpr(cellOffset, a.DomainWidth))
		other.storeCell(index, NewExtractExpr(value, uint(i)*a.RangeWidth, a.RangeWidth))
	}
	return other
}

// storeCell prepends a single cell write to the update chain. Earlier writes
// to the same concrete index are dropped from the new chain; the old chain is
// left untouched since other arrays may share it.
func (a *Array) storeCell(index, value Expr) {
	next := a.Updates
	if index, ok := index.(*ConstantExpr); ok {
		next = withoutIndex(next, index)
	}
	a.Updates = &ArrayUpdate{Index: index, Value: value, Next: next}
}

// withoutIndex returns upd without entries for index. Entries after the
// first symbolic index are kept as-is.
func withoutIndex(upd *ArrayUpdate, index *ConstantExpr) *ArrayUpdate {
	if upd == nil {
		return nil
	}
	updIndex, ok := upd.Index.(*ConstantExpr)
	if !ok {
		return upd
	} else if updIndex.Value == index.Value {
		return withoutIndex(upd.Next, index)
	}
	next := withoutIndex(upd.Next, index)
	if next == upd.Next {
		return upd
	}
	return &ArrayUpdate{Index: upd.Index, Value: upd.Value, Next: next}
}

// CompareArray returns an integer comparing two arrays.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
func CompareArray(a, b *Array) int {
	if a == nil && b != nil {
		return -1
	} else if a != nil && b == nil {
		return 1
	} else if a == b {
		return 0
	}

	if cmp := compareUint(a.ID, b.ID); cmp != 0 {
		return cmp
	} else if cmp := compareUint(uint64(a.DomainWidth), uint64(b.DomainWidth)); cmp != 0 {
		return cmp
	} else if cmp := compareUint(uint64(a.RangeWidth), uint64(b.RangeWidth)); cmp != 0 {
		return cmp
	}
	return CompareArrayUpdate(a.Updates, b.Updates)
}

// ArrayUpdate represents a store of a single cell.
type ArrayUpdate struct {
	Index Expr // cell index of update
	Value Expr // cell value

	Next *ArrayUpdate // linked list of next update
}

// CompareArrayUpdate returns an integer comparing two array updates.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
func CompareArrayUpdate(a, b *ArrayUpdate) int {
	if a == nil && b != nil {
		return -1
	} else if a != nil && b == nil {
		return 1
	} else if a == b {
		return 0
	}

	if cmp := CompareExpr(a.Index, b.Index); cmp != 0 {
		return cmp
	} else if cmp := CompareExpr(a.Value, b.Value); cmp != 0 {
		return cmp
	}
	return CompareArrayUpdate(a.Next, b.Next)
}
