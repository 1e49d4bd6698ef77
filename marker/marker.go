// Package marker encodes merged-region semantics into grids.
//
// A marked grid replaces blank non-anchor cells of every merged region with
// a reference to the anchor's value; a display grid blanks those references
// again to reproduce what the sheet shows on screen.
package marker

import "github.com/javajack/xlconsolidate/grid"

// Mark returns a copy of g in which every blank non-anchor cell of each
// region holds a MergedRef to the region's anchor value. Regions whose
// anchor is blank are left untouched, as are non-anchor cells that carry
// their own value. Regions are clipped to the grid; g is not modified.
func Mark(g grid.Grid, merges []grid.Region) grid.Grid {
	if len(merges) == 0 {
		return g
	}
	bounds := grid.Region{MaxRow: g.Rows() - 1, MaxCol: g.Cols() - 1}
	b := g.Edit()
	for _, m := range merges {
		region, ok := m.Intersect(bounds)
		if !ok {
			continue
		}
		anchor := g.At(region.MinRow, region.MinCol).Resolve()
		if anchor.IsBlank() {
			continue
		}
		ref := grid.NewMergedRef(anchor)
		for r := region.MinRow; r <= region.MaxRow; r++ {
			for c := region.MinCol; c <= region.MaxCol; c++ {
				if region.IsAnchor(r, c) || !g.At(r, c).IsBlank() {
					continue
				}
				b.Set(r, c, ref)
			}
		}
	}
	return b.Grid()
}

// Display returns a copy of g with every marker blanked: MergedRef cells and
// text cells in the bracket syntax "[...]". Everything else passes through.
func Display(g grid.Grid) grid.Grid {
	b := g.Edit()
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			if g.At(r, c).IsMarker() {
				b.Set(r, c, grid.Blank)
			}
		}
	}
	return b.Grid()
}

// Render serializes g at the presentation boundary; markers render as "[v]".
func Render(g grid.Grid) [][]string {
	return g.Strings()
}

// Parse reads a loosely typed grid back, turning "[v]" strings into
// MergedRef cells. It is the inverse of Render for marked grids.
func Parse(rows [][]string) grid.Grid {
	cells := make([][]grid.Cell, len(rows))
	for i, row := range rows {
		cells[i] = make([]grid.Cell, len(row))
		for j, s := range row {
			if grid.IsMarkerText(s) {
				cells[i][j] = grid.NewMergedRef(grid.ParseValue(s[1 : len(s)-1]))
				continue
			}
			cells[i][j] = grid.ParseValue(s)
		}
	}
	return grid.FromRows(cells)
}
