// Package numeric derives numeric grids from marked grids.
package numeric

import (
	"fmt"
	"sort"

	"github.com/javajack/xlconsolidate/grid"
	"github.com/javajack/xlconsolidate/schema"
)

// Grid is an immutable rectangle of derived values.
type Grid struct {
	rows, cols int
	vals       []Value
}

// NewGrid builds a Grid from ragged rows, padding with Zero.
func NewGrid(rows [][]Value) Grid {
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	return Build(len(rows), cols, func(r, c int) Value {
		if c < len(rows[r]) {
			return rows[r][c]
		}
		return Zero
	})
}

// Build creates a rows x cols Grid by calling fn for every position.
func Build(rows, cols int, fn func(r, c int) Value) Grid {
	g := Grid{rows: rows, cols: cols, vals: make([]Value, rows*cols)}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.vals[r*cols+c] = fn(r, c)
		}
	}
	return g
}

// Rows returns the number of rows.
func (g Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g Grid) Cols() int { return g.cols }

// Shape returns the grid dimensions.
func (g Grid) Shape() grid.Size { return grid.Size{Width: g.cols, Height: g.rows} }

// At returns the value at (r, c), or Zero outside the grid.
func (g Grid) At(r, c int) Value {
	if r < 0 || r >= g.rows || c < 0 || c >= g.cols {
		return Zero
	}
	return g.vals[r*g.cols+c]
}

// Sum adds every numeric value; retained text counts as 0.
func (g Grid) Sum() float64 {
	var s float64
	for _, v := range g.vals {
		s += v.Num()
	}
	return s
}

// RowSum adds the numeric values of row r.
func (g Grid) RowSum(r int) float64 {
	var s float64
	for c := 0; c < g.cols; c++ {
		s += g.At(r, c).Num()
	}
	return s
}

// Equal reports whether both grids have the same shape and values.
func (g Grid) Equal(o Grid) bool {
	if g.rows != o.rows || g.cols != o.cols {
		return false
	}
	for i := range g.vals {
		if !g.vals[i].Equal(o.vals[i]) {
			return false
		}
	}
	return true
}

// Strings renders the grid at the display boundary.
func (g Grid) Strings() [][]string {
	out := make([][]string, g.rows)
	for r := range out {
		out[r] = make([]string, g.cols)
		for c := range out[r] {
			out[r][c] = g.At(r, c).String()
		}
	}
	return out
}

func (g Grid) String() string {
	return fmt.Sprintf("numeric(%dx%d)", g.rows, g.cols)
}

// Pos is a (row, col) position in extraction coordinates.
type Pos struct {
	Row, Col int
}

// Entry records how one cell was derived.
type Entry struct {
	Original grid.Cell
	Derived  Value
	Kind     Kind
}

// Trace maps extraction-space positions to their derivation entries.
// It is built once by Derive and never mutated afterwards.
type Trace struct {
	entries map[Pos]Entry
}

// At returns the entry for (row, col) in extraction coordinates.
func (t Trace) At(row, col int) (Entry, bool) {
	e, ok := t.entries[Pos{Row: row, Col: col}]
	return e, ok
}

// Len returns the number of traced cells.
func (t Trace) Len() int { return len(t.entries) }

// Positions returns traced positions in row-major order.
func (t Trace) Positions() []Pos {
	out := make([]Pos, 0, len(t.entries))
	for p := range t.entries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// Count returns how many traced cells have kind k.
func (t Trace) Count(k Kind) int {
	n := 0
	for _, e := range t.entries {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// Result is the output of Derive.
type Result struct {
	Grid   Grid
	Trace  Trace
	Bounds schema.Bounds
}

// Local maps extraction coordinates to numeric-grid coordinates.
func (r Result) Local(row, col int) (int, int) {
	return row - r.Bounds.RowStart, col - r.Bounds.ColStart
}

// ValueAt returns the derived value at extraction coordinates (row, col),
// and false when the position lies outside the numeric bounds.
func (r Result) ValueAt(row, col int) (Value, bool) {
	if !r.Bounds.Contains(row, col) {
		return Zero, false
	}
	lr, lc := r.Local(row, col)
	return r.Grid.At(lr, lc), true
}

// Derive slices b out of the marked grid and converts every cell with Convert.
// Bounds outside the grid yield a *grid.RangeError.
func Derive(marked grid.Grid, b schema.Bounds) (Result, error) {
	rng := fmt.Sprintf("rows %d..%d cols %d..%d", b.RowStart, b.RowEnd, b.ColStart, b.ColEnd)
	switch {
	case b.RowEnd < b.RowStart || b.ColEnd < b.ColStart:
		return Result{}, &grid.RangeError{Range: rng, Reason: "inverted bounds"}
	case b.RowStart < 0 || b.ColStart < 0 || b.RowEnd >= marked.Rows() || b.ColEnd >= marked.Cols():
		return Result{}, &grid.RangeError{Range: rng, Reason: "outside " + marked.String()}
	}

	entries := make(map[Pos]Entry, b.Rows()*b.Cols())
	g := Build(b.Rows(), b.Cols(), func(r, c int) Value {
		row, col := b.RowStart+r, b.ColStart+c
		cell := marked.At(row, col)
		v := Convert(cell)
		entries[Pos{Row: row, Col: col}] = Entry{Original: cell, Derived: v, Kind: Classify(cell)}
		return v
	})
	return Result{Grid: g, Trace: Trace{entries: entries}, Bounds: b}, nil
}
