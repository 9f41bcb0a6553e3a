// Copyright 2015 the GoSpatial Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// licence that can be found in the LICENCE.txt file.

package structures

import (
	"errors"
	"sync/atomic"
)

// ArrayLengthError is returned when a caller supplies a flat data slice whose
// length does not match rows*columns.
var ArrayLengthError = errors.New("structures: the specified data array must have rows * columns elements")

// Grid2D is a dense, row-major rectangular array of any value type. It
// guarantees the backing allocation is one contiguous slice.
type Grid2D[T any] struct {
	data          []T
	rows, columns int
}

// NewGrid2D allocates a rows x columns grid with every cell holding the
// zero value of T.
func NewGrid2D[T any](rows, columns int) *Grid2D[T] {
	return &Grid2D[T]{data: make([]T, rows*columns), rows: rows, columns: columns}
}

// NewGrid2DFilled allocates a grid with every cell initialized to fill.
func NewGrid2DFilled[T any](rows, columns int, fill T) *Grid2D[T] {
	g := NewGrid2D[T](rows, columns)
	for i := range g.data {
		g.data[i] = fill
	}
	return g
}

func (g *Grid2D[T]) Rows() int    { return g.rows }
func (g *Grid2D[T]) Columns() int { return g.columns }

// InBounds reports whether (row, column) addresses a real cell.
func (g *Grid2D[T]) InBounds(row, column int) bool {
	return row >= 0 && row < g.rows && column >= 0 && column < g.columns
}

// Value retrieves a cell. Out-of-bounds reads return the zero value of T.
func (g *Grid2D[T]) Value(row, column int) T {
	var zero T
	if !g.InBounds(row, column) {
		return zero
	}
	return g.data[row*g.columns+column]
}

// SetValue stores a cell; out-of-bounds writes are silently ignored.
func (g *Grid2D[T]) SetValue(row, column int, value T) {
	if g.InBounds(row, column) {
		g.data[row*g.columns+column] = value
	}
}

// Row returns the backing slice for one row without copying.
func (g *Grid2D[T]) Row(row int) []T {
	return g.data[row*g.columns : (row+1)*g.columns]
}

// Raw exposes the flat backing slice (row-major).
func (g *Grid2D[T]) Raw() []T { return g.data }

// SetData replaces the backing slice; it must have rows*columns elements.
func (g *Grid2D[T]) SetData(values []T) error {
	if len(values) != g.rows*g.columns {
		return ArrayLengthError
	}
	g.data = values
	return nil
}

// LabelGrid is a dense grid of int64 region labels with lock-free
// compare-and-set semantics, used by the basin-labelling kernel: many
// goroutines race to claim a cell, and a cell's label must be set exactly
// once, by whichever frontier gets there first, with every later attempt
// becoming a silent no-op.
type LabelGrid struct {
	data          []int64
	rows, columns int
}

// NewLabelGrid allocates a rows x columns grid of labels, all zero
// (unlabelled).
func NewLabelGrid(rows, columns int) *LabelGrid {
	return &LabelGrid{data: make([]int64, rows*columns), rows: rows, columns: columns}
}

func (g *LabelGrid) Rows() int    { return g.rows }
func (g *LabelGrid) Columns() int { return g.columns }

func (g *LabelGrid) index(row, column int) (int, bool) {
	if row < 0 || row >= g.rows || column < 0 || column >= g.columns {
		return 0, false
	}
	return row*g.columns + column, true
}

// Value returns the current label at (row, column), or 0 if out of bounds
// or unclaimed.
func (g *LabelGrid) Value(row, column int) int64 {
	i, ok := g.index(row, column)
	if !ok {
		return 0
	}
	return atomic.LoadInt64(&g.data[i])
}

// ClaimIfUnset attempts to set (row, column) to label, but only if the cell
// is currently 0 (unclaimed). Returns true if this call performed the
// claim, false if the cell was out of bounds or already claimed by someone
// else (possibly with the same label, if two frontiers of the same basin
// raced). This is the sole synchronization point of the parallel upstream
// basin BFS.
func (g *LabelGrid) ClaimIfUnset(row, column int, label int64) bool {
	i, ok := g.index(row, column)
	if !ok {
		return false
	}
	return atomic.CompareAndSwapInt64(&g.data[i], 0, label)
}

// Raw exposes the flat backing slice (row-major).
func (g *LabelGrid) Raw() []int64 { return g.data }
