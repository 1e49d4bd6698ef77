// Package detect locates concept rows and grade/gender columns in a marked grid.
package detect

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/javajack/xlconsolidate/grid"
	"github.com/javajack/xlconsolidate/schema"
)

// ConceptRow is a detected concept row. Additional rows carry numbers but
// match no configured label; their Key is empty.
type ConceptRow struct {
	Key        string
	Label      string
	Row        int
	NoSubtotal bool
	Additional bool
}

// DataColumn is a (gender, grade) data column.
type DataColumn struct {
	Gender string
	Col    int
	Grade  string // configured grade label
	Header string // header text as found
}

// GenderColumn is a per-gender subtotal column.
type GenderColumn struct {
	Gender string
	Col    int
}

// Structure is what Detect found. Any part may be empty; validation skips
// checks whose structure is missing.
type Structure struct {
	ConceptRows     []ConceptRow
	DataColumns     []DataColumn
	SubtotalColumns []GenderColumn
	TotalColumns    []int
}

// Concept returns the first detected row for key.
func (s Structure) Concept(key string) (ConceptRow, bool) {
	for _, c := range s.ConceptRows {
		if !c.Additional && c.Key == key {
			return c, true
		}
	}
	return ConceptRow{}, false
}

// Row returns the grid row of the first row detected for key.
func (s Structure) Row(key string) (int, bool) {
	c, ok := s.Concept(key)
	return c.Row, ok
}

// Subtotals returns the subtotal columns for gender, in grid order.
func (s Structure) Subtotals(gender string) []int {
	var out []int
	for _, c := range s.SubtotalColumns {
		if c.Gender == gender {
			out = append(out, c.Col)
		}
	}
	return out
}

// Subtotal returns the first subtotal column for gender.
func (s Structure) Subtotal(gender string) (int, bool) {
	cols := s.Subtotals(gender)
	if len(cols) == 0 {
		return 0, false
	}
	return cols[0], true
}

// FirstTotal returns the first total column.
func (s Structure) FirstTotal() (int, bool) {
	if len(s.TotalColumns) == 0 {
		return 0, false
	}
	return s.TotalColumns[0], true
}

// Columns returns the data columns for gender.
func (s Structure) Columns(gender string) []DataColumn {
	var out []DataColumn
	for _, c := range s.DataColumns {
		if c.Gender == gender {
			out = append(out, c)
		}
	}
	return out
}

// Additional returns the rows flagged as unrecognized concepts.
func (s Structure) Additional() []ConceptRow {
	var out []ConceptRow
	for _, c := range s.ConceptRows {
		if c.Additional {
			out = append(out, c)
		}
	}
	return out
}

// Describe returns a human-readable outline of the detected structure.
func (s Structure) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "concept rows: %d\n", len(s.ConceptRows))
	for _, c := range s.ConceptRows {
		name := c.Key
		if c.Additional {
			name = "+" + c.Label
		}
		fmt.Fprintf(&b, "  %-22s row %d\n", name, c.Row)
	}
	fmt.Fprintf(&b, "data columns: %d\n", len(s.DataColumns))
	for _, c := range s.DataColumns {
		fmt.Fprintf(&b, "  %s-%s col %d\n", c.Gender, c.Grade, c.Col)
	}
	b.WriteString("subtotal columns:")
	if len(s.SubtotalColumns) == 0 {
		b.WriteString(" none")
	}
	for _, c := range s.SubtotalColumns {
		fmt.Fprintf(&b, " %s@%d", c.Gender, c.Col)
	}
	b.WriteString("\ntotal columns:")
	if len(s.TotalColumns) == 0 {
		b.WriteString(" none")
	}
	for _, c := range s.TotalColumns {
		fmt.Fprintf(&b, " %d", c)
	}
	b.WriteByte('\n')
	return b.String()
}

type options struct {
	logger *zap.Logger
}

// Option configures Detect.
type Option func(*options)

// WithLogger sets the logger for heuristic classifications.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Detect scans a marked grid against s. It never fails: whatever cannot be
// found is simply absent from the Structure.
func Detect(marked grid.Grid, s *schema.Schema, opts ...Option) Structure {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	st := Structure{ConceptRows: detectRows(marked, s, o.logger)}
	detectColumns(marked, s, &st, o.logger)
	return st
}

func detectRows(marked grid.Grid, s *schema.Schema, log *zap.Logger) []ConceptRow {
	var rows []ConceptRow
	for r := s.Headers.Last() + 1; r < marked.Rows(); r++ {
		label, ok := marked.At(r, 0).Text()
		if !ok || strings.TrimSpace(label) == "" || strings.HasPrefix(strings.TrimSpace(label), "[") {
			continue
		}
		if c, ok := s.ConceptByLabel(label); ok {
			rows = append(rows, ConceptRow{Key: c.Key, Label: c.Label, Row: r, NoSubtotal: c.NoSubtotal})
			continue
		}
		if hasNumber(marked, r, s.ExtraScan) {
			log.Debug("additional concept row", zap.Int("row", r), zap.String("label", label))
			rows = append(rows, ConceptRow{Label: strings.TrimSpace(label), Row: r, Additional: true})
		}
	}
	return rows
}

// hasNumber reports whether row r holds a non-marker numeric value in span.
func hasNumber(marked grid.Grid, r int, span schema.Span) bool {
	for c := span.From; c < min(span.To, marked.Cols()); c++ {
		cell := marked.At(r, c)
		if cell.IsMarker() {
			continue
		}
		if _, ok := cell.Float(); ok {
			return true
		}
		if t, ok := cell.Text(); ok {
			if _, ok := grid.ParseValue(strings.TrimSpace(t)).Float(); ok {
				return true
			}
		}
	}
	return false
}

func detectColumns(marked grid.Grid, s *schema.Schema, st *Structure, log *zap.Logger) {
	if s.Headers.Grade >= marked.Rows() || s.Headers.Gender >= marked.Rows() {
		return
	}
	for c := 1; c < marked.Cols(); c++ {
		// Grade headers are usually merged across the H/M pair, so the
		// anchor text is read through the marker.
		gradeCell := marked.At(s.Headers.Grade, c).Resolve()
		gradeText := schema.Fold(gradeCell.String())
		gender := genderOf(marked.At(s.Headers.Gender, c))

		switch {
		case strings.Contains(gradeText, "SUBTOTAL") && gender != "":
			st.SubtotalColumns = append(st.SubtotalColumns, GenderColumn{Gender: gender, Col: c})
		case strings.Contains(gradeText, "TOTAL") && !strings.Contains(gradeText, "SUBTOTAL"):
			st.TotalColumns = append(st.TotalColumns, c)
		case gender != "":
			if grade, ok := s.IsGrade(gradeText); ok {
				st.DataColumns = append(st.DataColumns, DataColumn{Gender: gender, Col: c, Grade: grade, Header: gradeCell.String()})
				continue
			}
			if s.FallbackSubtotalAfter > 0 && c > s.FallbackSubtotalAfter {
				log.Debug("fallback subtotal column", zap.Int("col", c), zap.String("gender", gender))
				st.SubtotalColumns = append(st.SubtotalColumns, GenderColumn{Gender: gender, Col: c})
			}
		}
	}
}

// genderOf reads a gender header cell. Markers are not resolved: a gender
// header merged over two columns tags only its anchor column.
func genderOf(c grid.Cell) string {
	t, ok := c.Text()
	if !ok {
		return ""
	}
	switch schema.Fold(t) {
	case schema.Male:
		return schema.Male
	case schema.Female:
		return schema.Female
	}
	return ""
}
