package schema

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/javajack/xlconsolidate/grid"
)

// Gender markers used in the gender header row.
const (
	Male   = "H"
	Female = "M"
)

// Bounds is an inclusive, 0-based rectangle relative to an extracted grid.
type Bounds struct {
	RowStart int `yaml:"row_start" validate:"min=0"`
	RowEnd   int `yaml:"row_end" validate:"gtefield=RowStart"`
	ColStart int `yaml:"col_start" validate:"min=0"`
	ColEnd   int `yaml:"col_end" validate:"gtefield=ColStart"`
}

// Rows returns the number of rows covered.
func (b Bounds) Rows() int { return b.RowEnd - b.RowStart + 1 }

// Cols returns the number of columns covered.
func (b Bounds) Cols() int { return b.ColEnd - b.ColStart + 1 }

// Contains reports whether (row, col) lies inside the bounds.
func (b Bounds) Contains(row, col int) bool {
	return row >= b.RowStart && row <= b.RowEnd && col >= b.ColStart && col <= b.ColEnd
}

// IsZero reports whether no bounds were declared.
func (b Bounds) IsZero() bool { return b == Bounds{} }

// HeaderRows locates the header band. Title is -1 when the layout has none.
type HeaderRows struct {
	Title  int `yaml:"title"`
	Grade  int `yaml:"grade" validate:"min=0"`
	Gender int `yaml:"gender" validate:"min=0"`
}

// Last returns the last row of the header band.
func (h HeaderRows) Last() int { return max(h.Title, h.Grade, h.Gender) }

// Concept is one tracked quantity and the row it is declared on.
type Concept struct {
	Key        string `yaml:"key" validate:"required"`
	Label      string `yaml:"label" validate:"required"`
	Row        int    `yaml:"row" validate:"min=0"`
	NoSubtotal bool   `yaml:"no_subtotal"` // total is a direct cell sum, no H/M decomposition
	Type       string `yaml:"type" validate:"omitempty,oneof=INSCRIPCION OPERATIVO BECA"`
}

// Column declares a (grade, gender) data column.
type Column struct {
	Grade  string `yaml:"grade" validate:"required"`
	Gender string `yaml:"gender" validate:"oneof=H M"`
	Index  int    `yaml:"index" validate:"min=0"`
}

// GenderColumn declares a per-gender subtotal column.
type GenderColumn struct {
	Gender string `yaml:"gender" validate:"oneof=H M"`
	Index  int    `yaml:"index" validate:"min=0"`
}

// Span is an inclusive-exclusive column span [From, To).
type Span struct {
	From int `yaml:"from" validate:"min=0"`
	To   int `yaml:"to" validate:"gtefield=From"`
}

// Injection describes where consolidated values are written in the output template.
type Injection struct {
	Sheet    string   `yaml:"sheet" validate:"required"`
	RowStart int      `yaml:"row_start" validate:"min=1"`
	ColStart int      `yaml:"col_start" validate:"min=1"`
	ColEnd   int      `yaml:"col_end" validate:"gtefield=ColStart"`
	Merged   []string `yaml:"merged"` // column spans merged in the destination, e.g. "X:Z"
}

// Rule is a row coherence identity: the Target concept must equal Expr,
// evaluated per data column with concept keys as variables.
type Rule struct {
	Name   string `yaml:"name" validate:"required"`
	Kind   string `yaml:"kind" validate:"required"`
	Target string `yaml:"target" validate:"required"`
	Expr   string `yaml:"expr" validate:"required"`

	uses []string
}

// Uses returns the concept keys referenced by Expr, resolved at registry load.
func (r Rule) Uses() []string { return r.uses }

// ValidationSet toggles validation stages for a schema.
type ValidationSet struct {
	Subtotals    bool `yaml:"subtotals"`
	Totals       bool `yaml:"totals"`
	RowCoherence bool `yaml:"row_coherence"`
}

// Schema describes a table layout. Schemas handed out by a Registry are
// flattened and must be treated as read-only.
type Schema struct {
	Name        string `yaml:"name" validate:"required"`
	Version     int    `yaml:"version" validate:"min=1"`
	Description string `yaml:"description"`
	Base        string `yaml:"base"`

	Sheet        string     `yaml:"sheet" validate:"required"`
	DataRange    string     `yaml:"data_range" validate:"required"`
	NumericRange Bounds     `yaml:"numeric_range"`
	Headers      HeaderRows `yaml:"headers"`

	Concepts  []Concept      `yaml:"concepts" validate:"required,dive"`
	Grades    []string       `yaml:"grades"`
	Columns   []Column       `yaml:"columns" validate:"dive"`
	Subtotals []GenderColumn `yaml:"subtotals" validate:"dive"`
	Totals    []int          `yaml:"totals"`

	// Unclassified H/M columns after this index are taken as subtotals.
	FallbackSubtotalAfter int `yaml:"fallback_subtotal_after"`
	// Columns scanned for numbers when flagging unrecognized concept rows.
	ExtraScan Span `yaml:"extra_scan"`

	Injection   *Injection    `yaml:"injection"`
	Rules       []Rule        `yaml:"rules" validate:"dive"`
	Validations ValidationSet `yaml:"validations"`
}

// Range parses DataRange.
func (s *Schema) Range() (grid.RangeRef, error) {
	return grid.ParseRange(s.DataRange)
}

// Concept looks up a concept by key.
func (s *Schema) Concept(key string) (Concept, bool) {
	for _, c := range s.Concepts {
		if c.Key == key {
			return c, true
		}
	}
	return Concept{}, false
}

// ConceptByLabel finds the concept whose folded label appears in text,
// honoring LabelsByPrecedence.
func (s *Schema) ConceptByLabel(text string) (Concept, bool) {
	folded := Fold(text)
	if folded == "" {
		return Concept{}, false
	}
	for _, c := range s.LabelsByPrecedence() {
		if strings.Contains(folded, Fold(c.Label)) {
			return c, true
		}
	}
	return Concept{}, false
}

// LabelsByPrecedence returns the concepts ordered so that longer labels are
// tried first; "PREINSCRIPCIÓN 1ER. GRADO" wins over "INSCRIPCIÓN" and
// "REPROBADOS" over "APROBADOS". Ties keep declaration order.
func (s *Schema) LabelsByPrecedence() []Concept {
	out := make([]Concept, len(s.Concepts))
	copy(out, s.Concepts)
	sort.SliceStable(out, func(i, j int) bool {
		return utf8.RuneCountInString(Fold(out[i].Label)) > utf8.RuneCountInString(Fold(out[j].Label))
	})
	return out
}

// IsGrade reports which configured grade label appears in header text.
func (s *Schema) IsGrade(header string) (string, bool) {
	folded := Fold(header)
	for _, g := range s.Grades {
		if strings.Contains(folded, Fold(g)) {
			return g, true
		}
	}
	return "", false
}
