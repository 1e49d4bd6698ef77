// Package inject maps consolidated numeric grids onto a destination template
// and writes them, never touching the non-anchor cells of merged regions.
package inject

import (
	"errors"
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/javajack/xlconsolidate/grid"
	"github.com/javajack/xlconsolidate/numeric"
	"github.com/javajack/xlconsolidate/schema"
)

// SchoolColumns is the width of a SCHOOLS numeric grid (columns H..Z).
const SchoolColumns = 19

// ErrNotMappable is wrapped by CheckMappable failures.
var ErrNotMappable = errors.New("grid not mappable")

// Destination is where the top-left numeric cell lands, in 1-based sheet
// coordinates. Cells mapped past ColEnd are dropped.
type Destination struct {
	RowStart int
	ColStart int
	ColEnd   int
}

func (d Destination) String() string {
	return fmt.Sprintf("%s%d:%s", grid.ColumnName(d.ColStart), d.RowStart, grid.ColumnName(d.ColEnd))
}

// Entry is one value to write at a 1-based (Row, Col).
type Entry struct {
	Row   int
	Col   int
	Value numeric.Value
}

// Cell returns the A1 name of the entry's target.
func (e Entry) Cell() string {
	return grid.CellRef{Row: e.Row, Col: e.Col}.CellName()
}

// DestinationFor builds the destination of a schema's injection descriptor.
// A merged span that reaches ColEnd clips it to the span's next-to-last
// column, so "X:Z" with ColEnd 26 yields 25.
func DestinationFor(s *schema.Schema) (Destination, bool, error) {
	if s == nil || s.Injection == nil {
		return Destination{}, false, nil
	}
	inj := s.Injection
	d := Destination{RowStart: inj.RowStart, ColStart: inj.ColStart, ColEnd: inj.ColEnd}
	for _, span := range inj.Merged {
		first, last, err := grid.ParseColumnSpan(span)
		if err != nil {
			return Destination{}, false, err
		}
		if first <= d.ColEnd && last >= d.ColEnd {
			d.ColEnd = max(first, last-1)
		}
	}
	return d, true, nil
}

// DestinationFromRange builds a destination from an A1 range like "H6:Z15".
func DestinationFromRange(a1 string) (Destination, error) {
	r, err := grid.ParseRange(a1)
	if err != nil {
		return Destination{}, err
	}
	return Destination{RowStart: r.First.Row, ColStart: r.First.Col, ColEnd: r.Last.Col}, nil
}

// Resolve picks the destination and target sheet for a mode: the schema's
// injection descriptor first, then the mode's injection range. The sheet
// falls back from the descriptor to the mode and finally to the data sheet.
func Resolve(mc schema.ModeConfig, s *schema.Schema) (Destination, string, error) {
	d, ok, err := DestinationFor(s)
	if err != nil {
		return Destination{}, "", err
	}
	if !ok {
		if mc.InjectionRange == "" {
			return Destination{}, "", fmt.Errorf("%w: no injection target for %s", ErrNotMappable, mc.Mode)
		}
		if d, err = DestinationFromRange(mc.InjectionRange); err != nil {
			return Destination{}, "", err
		}
	}

	sheet := mc.InjectionSheet
	if s != nil && s.Injection != nil && s.Injection.Sheet != "" {
		sheet = s.Injection.Sheet
	}
	if sheet == "" && s != nil {
		sheet = s.Sheet
	}
	return d, sheet, nil
}

// Map emits one entry per non-empty, non-zero cell of num. Pure: no I/O.
func Map(num numeric.Grid, d Destination) []Entry {
	var out []Entry
	for r := 0; r < num.Rows(); r++ {
		for c := 0; c < num.Cols(); c++ {
			col := d.ColStart + c
			if col > d.ColEnd {
				break
			}
			v := num.At(r, c)
			if v.IsZero() {
				continue
			}
			out = append(out, Entry{Row: d.RowStart + r, Col: col, Value: v})
		}
	}
	return out
}

// Coverage describes a grid about to be mapped.
type Coverage struct {
	Rows     int
	Cols     int
	NonEmpty int
	Percent  float64
}

// CheckMappable rejects empty grids and, for SCHOOLS, grids that are not
// SchoolColumns wide.
func CheckMappable(num numeric.Grid, mode schema.Mode) (Coverage, error) {
	cov := Coverage{Rows: num.Rows(), Cols: num.Cols()}
	if cov.Rows == 0 || cov.Cols == 0 {
		return cov, fmt.Errorf("%w: empty grid %s", ErrNotMappable, num)
	}
	for r := 0; r < cov.Rows; r++ {
		for c := 0; c < cov.Cols; c++ {
			if !num.At(r, c).IsZero() {
				cov.NonEmpty++
			}
		}
	}
	cov.Percent = float64(cov.NonEmpty) * 100 / float64(cov.Rows*cov.Cols)
	if mode == schema.Schools && cov.Cols != SchoolColumns {
		return cov, fmt.Errorf("%w: %s expects %d columns, got %d", ErrNotMappable, mode, SchoolColumns, cov.Cols)
	}
	return cov, nil
}

// Summary describes a set of mapped entries.
type Summary struct {
	Count          int
	MinRow, MaxRow int
	MinCol, MaxCol int
	Sum, Min, Max  float64
	Mean           float64
}

// Stats summarizes entries. An empty slice yields a zero Summary.
func Stats(entries []Entry) Summary {
	if len(entries) == 0 {
		return Summary{}
	}
	s := Summary{
		Count:  len(entries),
		MinRow: entries[0].Row, MaxRow: entries[0].Row,
		MinCol: entries[0].Col, MaxCol: entries[0].Col,
	}
	data := make(stats.Float64Data, 0, len(entries))
	for _, e := range entries {
		s.MinRow, s.MaxRow = min(s.MinRow, e.Row), max(s.MaxRow, e.Row)
		s.MinCol, s.MaxCol = min(s.MinCol, e.Col), max(s.MaxCol, e.Col)
		data = append(data, e.Value.Num())
	}
	s.Sum, _ = stats.Sum(data)
	s.Min, _ = stats.Min(data)
	s.Max, _ = stats.Max(data)
	s.Mean, _ = stats.Mean(data)
	return s
}

func (s Summary) String() string {
	if s.Count == 0 {
		return "no values mapped"
	}
	return fmt.Sprintf("%d values, rows %d..%d, cols %s..%s, sum %s, min %s, max %s, mean %.2f",
		s.Count, s.MinRow, s.MaxRow, grid.ColumnName(s.MinCol), grid.ColumnName(s.MaxCol),
		grid.FormatNumber(s.Sum), grid.FormatNumber(s.Min), grid.FormatNumber(s.Max), s.Mean)
}
