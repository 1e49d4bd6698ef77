package grid

import "fmt"

// Grid is an immutable row-major rectangle of cells. Transformations build a
// new Grid through a Builder; the zero value is an empty 0x0 grid.
type Grid struct {
	rows, cols int
	cells      []Cell
}

// FromRows builds a Grid from ragged rows. Short rows are padded with Blank
// cells up to the widest row.
func FromRows(rows [][]Cell) Grid {
	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	b := NewBuilder(len(rows), cols)
	for i, r := range rows {
		for j, c := range r {
			b.Set(i, j, c)
		}
	}
	return b.Grid()
}

// FromStrings builds a Grid from boundary strings using ParseValue.
func FromStrings(rows [][]string) Grid {
	cells := make([][]Cell, len(rows))
	for i, r := range rows {
		cells[i] = make([]Cell, len(r))
		for j, s := range r {
			cells[i][j] = ParseValue(s)
		}
	}
	return FromRows(cells)
}

// Rows returns the number of rows.
func (g Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g Grid) Cols() int { return g.cols }

// Size returns the grid dimensions.
func (g Grid) Size() Size { return Size{Width: g.cols, Height: g.rows} }

// In reports whether (row, col) lies inside the grid.
func (g Grid) In(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}

// At returns the cell at (row, col), or Blank outside the grid.
func (g Grid) At(row, col int) Cell {
	if !g.In(row, col) {
		return Blank
	}
	return g.cells[row*g.cols+col]
}

// Row returns a copy of row r.
func (g Grid) Row(r int) []Cell {
	if r < 0 || r >= g.rows {
		return nil
	}
	out := make([]Cell, g.cols)
	copy(out, g.cells[r*g.cols:(r+1)*g.cols])
	return out
}

// Edit returns a Builder seeded with a copy of g.
func (g Grid) Edit() *Builder {
	b := &Builder{rows: g.rows, cols: g.cols, cells: make([]Cell, len(g.cells))}
	copy(b.cells, g.cells)
	return b
}

// Equal reports whether both grids have the same shape and cells.
func (g Grid) Equal(o Grid) bool {
	if g.rows != o.rows || g.cols != o.cols {
		return false
	}
	for i := range g.cells {
		if !g.cells[i].Equal(o.cells[i]) {
			return false
		}
	}
	return true
}

// Strings renders the grid at the display boundary.
func (g Grid) Strings() [][]string {
	out := make([][]string, g.rows)
	for r := 0; r < g.rows; r++ {
		out[r] = make([]string, g.cols)
		for c := 0; c < g.cols; c++ {
			out[r][c] = g.At(r, c).String()
		}
	}
	return out
}

// String formats the grid shape as "grid(13x26)".
func (g Grid) String() string {
	return fmt.Sprintf("grid(%dx%d)", g.rows, g.cols)
}

// Builder accumulates cells for a new Grid.
type Builder struct {
	rows, cols int
	cells      []Cell
}

// NewBuilder creates a Builder for a rows x cols grid filled with Blank.
func NewBuilder(rows, cols int) *Builder {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	return &Builder{rows: rows, cols: cols, cells: make([]Cell, rows*cols)}
}

// Set stores c at (row, col); positions outside the grid are ignored.
func (b *Builder) Set(row, col int, c Cell) {
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols {
		return
	}
	b.cells[row*b.cols+col] = c
}

// At returns the cell currently stored at (row, col).
func (b *Builder) At(row, col int) Cell {
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols {
		return Blank
	}
	return b.cells[row*b.cols+col]
}

// Grid freezes the builder's contents. The builder must not be reused.
func (b *Builder) Grid() Grid {
	g := Grid{rows: b.rows, cols: b.cols, cells: b.cells}
	b.cells = nil
	return g
}

// Size represents width (columns) and height (rows).
type Size struct {
	Width  int
	Height int
}

// String formats the Size as "(WxH)".
func (s Size) String() string {
	return fmt.Sprintf("(%dx%d)", s.Width, s.Height)
}
