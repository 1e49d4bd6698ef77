package grid

import (
	"math"
	"strconv"
	"strings"
)

// Kind represents the type of data held by a Cell.
type Kind uint8

const (
	Empty     Kind = iota
	Number         // numeric value, integral or decimal
	Text           // free text
	MergedRef      // non-anchor member of a merged region, carries the anchor value
)

// String returns a human-readable name for the Kind.
func (k Kind) String() string {
	switch k {
	case Empty:
		return "Empty"
	case Number:
		return "Number"
	case Text:
		return "Text"
	case MergedRef:
		return "MergedRef"
	default:
		return "Unknown"
	}
}

// Cell is a tagged cell value. The zero value is an empty cell.
//
// A MergedRef cell keeps the anchor's value in the same fields a Number or
// Text cell would use; anchor records which of the two it is.
type Cell struct {
	kind   Kind
	num    float64
	isInt  bool
	text   string
	anchor Kind
}

// Blank is the empty cell.
var Blank = Cell{}

// NewNumber creates a decimal Number cell. Integral values keep the decimal flag.
func NewNumber(f float64) Cell {
	return Cell{kind: Number, num: f}
}

// NewInt creates an integral Number cell.
func NewInt(n int64) Cell {
	return Cell{kind: Number, num: float64(n), isInt: true}
}

// NewText creates a Text cell. An empty string yields Blank.
func NewText(s string) Cell {
	if s == "" {
		return Blank
	}
	return Cell{kind: Text, text: s}
}

// NewMergedRef creates a reference to the anchor value of a merged region.
// Referencing a reference collapses to the original anchor value; referencing
// a blank cell yields Blank.
func NewMergedRef(anchor Cell) Cell {
	switch anchor.kind {
	case Empty:
		return Blank
	case MergedRef:
		return anchor
	}
	return Cell{kind: MergedRef, num: anchor.num, isInt: anchor.isInt, text: anchor.text, anchor: anchor.kind}
}

// Kind returns the cell's tag.
func (c Cell) Kind() Kind { return c.kind }

// IsBlank reports whether the cell is empty or holds only whitespace.
func (c Cell) IsBlank() bool {
	switch c.kind {
	case Empty:
		return true
	case Text:
		return strings.TrimSpace(c.text) == ""
	}
	return false
}

// IsInt reports whether a Number cell (or a reference to one) was integral in the source.
func (c Cell) IsInt() bool { return c.isInt }

// Float returns the numeric value of a Number cell.
func (c Cell) Float() (float64, bool) {
	if c.kind != Number {
		return 0, false
	}
	return c.num, true
}

// Text returns the text of a Text cell.
func (c Cell) Text() (string, bool) {
	if c.kind != Text {
		return "", false
	}
	return c.text, true
}

// Anchor returns the anchor value referenced by a MergedRef cell.
func (c Cell) Anchor() (Cell, bool) {
	if c.kind != MergedRef {
		return Blank, false
	}
	return Cell{kind: c.anchor, num: c.num, isInt: c.isInt, text: c.text}, true
}

// Resolve returns the anchor value for MergedRef cells and the cell itself otherwise.
func (c Cell) Resolve() Cell {
	if a, ok := c.Anchor(); ok {
		return a
	}
	return c
}

// Equal reports whether two cells hold the same tagged value.
func (c Cell) Equal(o Cell) bool {
	if c.kind != o.kind {
		return false
	}
	switch c.kind {
	case Empty:
		return true
	case Number:
		return c.num == o.num && c.isInt == o.isInt
	case Text:
		return c.text == o.text
	}
	return c.anchor == o.anchor && c.num == o.num && c.isInt == o.isInt && c.text == o.text
}

// String serializes the cell for display and logging.
// Numbers use their shortest canonical form, references render as "[anchor]".
func (c Cell) String() string {
	switch c.kind {
	case Number:
		return FormatNumber(c.num)
	case Text:
		return c.text
	case MergedRef:
		a, _ := c.Anchor()
		return "[" + a.String() + "]"
	}
	return ""
}

// FormatNumber formats f without a trailing ".0" for integral values.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// IsMarkerText reports whether s uses the bracket marker syntax "[...]".
func IsMarkerText(s string) bool {
	return len(s) >= 2 && strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")
}

// IsMarker reports whether the cell is a merged-region reference, either
// tagged or in its serialized bracket form.
func (c Cell) IsMarker() bool {
	switch c.kind {
	case MergedRef:
		return true
	case Text:
		return IsMarkerText(c.text)
	}
	return false
}

// ParseValue converts a loosely typed boundary string into a Cell:
// integers, then decimals, falling back to text. Bracket markers stay text.
func ParseValue(s string) Cell {
	if s == "" {
		return Blank
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return NewInt(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return NewNumber(f)
	}
	return NewText(s)
}
