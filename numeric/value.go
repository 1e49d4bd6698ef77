package numeric

import (
	"math"
	"strings"

	"github.com/javajack/xlconsolidate/grid"
)

// Value is a derived numeric cell. Text that does not parse as a number is
// retained rather than dropped; callers must check IsText before arithmetic.
type Value struct {
	num    float64
	isInt  bool
	text   string
	isText bool
}

// Zero is the integral zero every blank or marker cell derives to.
var Zero = Value{isInt: true}

// Number creates a decimal value.
func Number(f float64) Value { return Value{num: f} }

// Int creates an integral value.
func Int(n int64) Value { return Value{num: float64(n), isInt: true} }

// Text creates a retained non-numeric value.
func Text(s string) Value { return Value{text: s, isText: true} }

// Float returns the number, or false for retained text.
func (v Value) Float() (float64, bool) {
	if v.isText {
		return 0, false
	}
	return v.num, true
}

// Num returns the number, counting retained text as 0.
func (v Value) Num() float64 {
	if v.isText {
		return 0
	}
	return v.num
}

// IsInt reports whether the value is an integral number.
func (v Value) IsInt() bool { return !v.isText && v.isInt }

// IsText reports whether the value is retained text.
func (v Value) IsText() bool { return v.isText }

// IsZero reports whether the value is numeric zero or empty text.
func (v Value) IsZero() bool {
	if v.isText {
		return strings.TrimSpace(v.text) == ""
	}
	return v.num == 0
}

// Equal reports whether both values are the same number (with the same
// integral flag) or the same text.
func (v Value) Equal(o Value) bool {
	return v == o
}

// String renders numbers canonically (no trailing ".0") and text verbatim.
func (v Value) String() string {
	if v.isText {
		return v.text
	}
	return grid.FormatNumber(v.num)
}

// Add sums two values. Text counts as 0; the result is integral when both
// operands are.
func (v Value) Add(o Value) Value {
	return Value{num: v.Num() + o.Num(), isInt: v.intLike() && o.intLike()}
}

func (v Value) intLike() bool { return v.isText || v.isInt }

// Convert applies the derivation rule to one marked-grid cell:
// blank → 0, numbers pass through, markers → 0, trimmed text → number when
// it parses and retained text otherwise.
func Convert(c grid.Cell) Value {
	switch c.Kind() {
	case grid.Empty, grid.MergedRef:
		return Zero
	case grid.Number:
		f, _ := c.Float()
		return Value{num: f, isInt: c.IsInt()}
	}
	s, _ := c.Text()
	if grid.IsMarkerText(s) {
		return Zero
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero
	}
	parsed := grid.ParseValue(s)
	if f, ok := parsed.Float(); ok {
		if parsed.IsInt() || (f == math.Trunc(f) && math.Abs(f) < 1e15) {
			return Int(int64(f))
		}
		return Number(f)
	}
	return Text(s)
}

// Kind classifies a source cell for the positional trace.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindNumber
	KindMarker
	KindText
	KindNumericText // text that parses as a number
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindNumber:
		return "number"
	case KindMarker:
		return "marker"
	case KindText:
		return "text"
	case KindNumericText:
		return "numericText"
	}
	return "unknown"
}

// Classify reports the kind of c independently of its derived value.
func Classify(c grid.Cell) Kind {
	switch c.Kind() {
	case grid.Empty:
		return KindEmpty
	case grid.Number:
		return KindNumber
	case grid.MergedRef:
		return KindMarker
	}
	s, _ := c.Text()
	switch {
	case grid.IsMarkerText(s):
		return KindMarker
	case strings.TrimSpace(s) == "":
		return KindEmpty
	}
	if _, ok := grid.ParseValue(strings.TrimSpace(s)).Float(); ok {
		return KindNumericText
	}
	return KindText
}
