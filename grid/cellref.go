package grid

import (
	"fmt"
	"strings"
)

// Spreadsheet limits for the A1 addressing scheme.
const (
	MaxColumns = 16384 // XFD
	MaxRows    = 1048576
)

// RangeError reports a malformed or out-of-bounds coordinate.
type RangeError struct {
	Range  string
	Reason string
}

func (e *RangeError) Error() string {
	if e.Range == "" {
		return "range error: " + e.Reason
	}
	return fmt.Sprintf("range %q: %s", e.Range, e.Reason)
}

// CellRef addresses a single cell with 1-based row and column numbers.
type CellRef struct {
	Sheet string // sheet name (empty = current sheet)
	Row   int    // 1-based row number
	Col   int    // 1-based column number, A=1
}

// ParseCellRef parses a reference like "H6", "ESC2!H6", "'ZONA 3'!$H$6".
func ParseCellRef(s string) (CellRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CellRef{}, &RangeError{Reason: "empty cell reference"}
	}

	var sheet string
	cellPart := s
	if idx := strings.LastIndex(s, "!"); idx >= 0 {
		sheet = strings.Trim(s[:idx], "'")
		cellPart = s[idx+1:]
	}
	cellPart = strings.ReplaceAll(cellPart, "$", "")

	i := 0
	for i < len(cellPart) && isAlpha(cellPart[i]) {
		i++
	}
	if i == 0 || i == len(cellPart) {
		return CellRef{}, &RangeError{Range: s, Reason: "invalid cell name"}
	}

	col, err := ColumnNumber(cellPart[:i])
	if err != nil {
		return CellRef{}, &RangeError{Range: s, Reason: err.Error()}
	}

	row := 0
	for _, ch := range cellPart[i:] {
		if ch < '0' || ch > '9' {
			return CellRef{}, &RangeError{Range: s, Reason: "invalid row number"}
		}
		row = row*10 + int(ch-'0')
		if row > MaxRows {
			return CellRef{}, &RangeError{Range: s, Reason: fmt.Sprintf("row exceeds %d", MaxRows)}
		}
	}
	if row < 1 {
		return CellRef{}, &RangeError{Range: s, Reason: "row numbers start at 1"}
	}
	return CellRef{Sheet: sheet, Row: row, Col: col}, nil
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// CellName returns the cell part like "H6" without sheet name.
func (c CellRef) CellName() string {
	return ColumnName(c.Col) + fmt.Sprintf("%d", c.Row)
}

// String formats the CellRef as "ESC2!H6" or "H6" if no sheet.
func (c CellRef) String() string {
	if c.Sheet != "" {
		return c.Sheet + "!" + c.CellName()
	}
	return c.CellName()
}

// ColumnName converts a 1-based column number to letters.
// 1→"A", 26→"Z", 27→"AA"
func ColumnName(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

// ColumnNumber converts column letters to a 1-based column number.
// "A"→1, "Z"→26, "AA"→27
func ColumnNumber(name string) (int, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return 0, fmt.Errorf("empty column name")
	}
	col := 0
	for _, ch := range name {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("invalid column name %q", name)
		}
		col = col*26 + int(ch-'A') + 1
		if col > MaxColumns {
			return 0, fmt.Errorf("column %q exceeds %s", name, ColumnName(MaxColumns))
		}
	}
	return col, nil
}

// RangeRef is a rectangular range defined by two corner cells.
type RangeRef struct {
	First CellRef
	Last  CellRef
}

// ParseRange parses "A5:Z17" or "ESC2!A5:Z17". Inverted corners are rejected.
func ParseRange(s string) (RangeRef, error) {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return RangeRef{}, &RangeError{Range: s, Reason: "missing ':'"}
	}
	first, err := ParseCellRef(parts[0])
	if err != nil {
		return RangeRef{}, err
	}
	last, err := ParseCellRef(parts[1])
	if err != nil {
		return RangeRef{}, err
	}
	if last.Sheet == "" {
		last.Sheet = first.Sheet
	}
	r := RangeRef{First: first, Last: last}
	if err := r.Check(); err != nil {
		return RangeRef{}, err
	}
	return r, nil
}

// MustParseRange is like ParseRange but panics on error. For static declarations.
func MustParseRange(s string) RangeRef {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Check validates corner order and bounds.
func (r RangeRef) Check() error {
	switch {
	case r.First.Row < 1 || r.First.Col < 1:
		return &RangeError{Range: r.String(), Reason: "coordinates start at 1"}
	case r.Last.Col > MaxColumns || r.Last.Row > MaxRows:
		return &RangeError{Range: r.String(), Reason: "beyond sheet limits"}
	case r.Last.Row < r.First.Row || r.Last.Col < r.First.Col:
		return &RangeError{Range: r.String(), Reason: "inverted corners"}
	}
	return nil
}

// String formats the range as "ESC2!A5:Z17" or "A5:Z17".
func (r RangeRef) String() string {
	s := r.First.CellName() + ":" + r.Last.CellName()
	if r.First.Sheet != "" {
		return r.First.Sheet + "!" + s
	}
	return s
}

// Size returns the dimensions of the range.
func (r RangeRef) Size() Size {
	return Size{
		Width:  r.Last.Col - r.First.Col + 1,
		Height: r.Last.Row - r.First.Row + 1,
	}
}

// Region returns the range as a Region in sheet coordinates.
func (r RangeRef) Region() Region {
	return Region{MinRow: r.First.Row, MinCol: r.First.Col, MaxRow: r.Last.Row, MaxCol: r.Last.Col}
}

// Region is a merged rectangle (minRow, minCol, maxRow, maxCol), inclusive.
// The coordinate space is whatever the producer states: 1-based sheet
// coordinates in the workbook layer, 0-based range-local after extraction.
type Region struct {
	MinRow, MinCol int
	MaxRow, MaxCol int
}

// Anchor returns the top-left cell of the region.
func (r Region) Anchor() (row, col int) { return r.MinRow, r.MinCol }

// IsAnchor reports whether (row, col) is the region's anchor.
func (r Region) IsAnchor(row, col int) bool { return row == r.MinRow && col == r.MinCol }

// Contains reports whether (row, col) lies inside the region.
func (r Region) Contains(row, col int) bool {
	return row >= r.MinRow && row <= r.MaxRow && col >= r.MinCol && col <= r.MaxCol
}

// Intersect clips r to o and reports whether anything is left.
func (r Region) Intersect(o Region) (Region, bool) {
	out := Region{
		MinRow: max(r.MinRow, o.MinRow),
		MinCol: max(r.MinCol, o.MinCol),
		MaxRow: min(r.MaxRow, o.MaxRow),
		MaxCol: min(r.MaxCol, o.MaxCol),
	}
	if out.MinRow > out.MaxRow || out.MinCol > out.MaxCol {
		return Region{}, false
	}
	return out, true
}

// Translate shifts the region by (dRow, dCol).
func (r Region) Translate(dRow, dCol int) Region {
	return Region{MinRow: r.MinRow + dRow, MinCol: r.MinCol + dCol, MaxRow: r.MaxRow + dRow, MaxCol: r.MaxCol + dCol}
}

// Cells returns the number of cells covered.
func (r Region) Cells() int {
	return (r.MaxRow - r.MinRow + 1) * (r.MaxCol - r.MinCol + 1)
}

// String formats the region as "(r1,c1)-(r2,c2)".
func (r Region) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.MinRow, r.MinCol, r.MaxRow, r.MaxCol)
}

// ParseRegion parses an A1 range like "X6:Z14" into a 1-based Region.
func ParseRegion(s string) (Region, error) {
	if !strings.Contains(s, ":") {
		s = s + ":" + s
	}
	r, err := ParseRange(s)
	if err != nil {
		return Region{}, err
	}
	return r.Region(), nil
}

// ParseColumnSpan parses a column-only span like "X:Z" into 1-based column numbers.
func ParseColumnSpan(s string) (first, last int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		parts = append(parts, parts[0])
	}
	if first, err = ColumnNumber(parts[0]); err != nil {
		return 0, 0, &RangeError{Range: s, Reason: err.Error()}
	}
	if last, err = ColumnNumber(parts[1]); err != nil {
		return 0, 0, &RangeError{Range: s, Reason: err.Error()}
	}
	if last < first {
		return 0, 0, &RangeError{Range: s, Reason: "inverted corners"}
	}
	return first, last, nil
}
