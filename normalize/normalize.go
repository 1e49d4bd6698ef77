// Package normalize turns a derived numeric grid into flat movement records,
// one per (concept, grade, gender) cell holding a non-zero number.
package normalize

import (
	"context"

	"github.com/google/uuid"

	"github.com/javajack/xlconsolidate/detect"
	"github.com/javajack/xlconsolidate/numeric"
	"github.com/javajack/xlconsolidate/schema"
)

// Movement is the record type of student movement rows.
const Movement = "MOVIMIENTO"

var gradeNames = map[string]string{
	"1O": "1RO", "1ER": "1RO",
	"2O": "2DO", "2DO": "2DO",
	"3O": "3RO", "3ER": "3RO",
	"4O": "4TO", "4TO": "4TO",
	"5O": "5TO", "5TO": "5TO",
	"6O": "6TO", "6TO": "6TO",
}

// GradeName returns the canonical grade name for a configured grade label.
// Unknown labels are returned folded.
func GradeName(grade string) string {
	g := schema.Fold(grade)
	if n, ok := gradeNames[g]; ok {
		return n
	}
	return g
}

// Record is one normalized value.
type Record struct {
	RunID       string  `db:"run_id"`
	Source      string  `db:"source"`
	Schema      string  `db:"schema_name"`
	Concept     string  `db:"concept"`
	ConceptType string  `db:"concept_type"`
	Grade       string  `db:"grade"`
	Gender      string  `db:"gender"`
	Value       float64 `db:"value"`
	Type        string  `db:"record_type"`
}

// Origin identifies where records come from.
type Origin struct {
	RunID  uuid.UUID
	Source string
}

// Sink receives normalized records.
type Sink interface {
	Save(ctx context.Context, records []Record) error
}

// Records walks every configured concept row and data column of st and emits
// a record for each non-zero numeric value. Text and zero cells are skipped,
// as are additional rows and cells outside the numeric bounds.
func Records(s *schema.Schema, num numeric.Result, st detect.Structure, origin Origin) []Record {
	var out []Record
	for _, row := range st.ConceptRows {
		if row.Additional {
			continue
		}
		concept, _ := s.Concept(row.Key)
		for _, col := range st.DataColumns {
			v, ok := num.ValueAt(row.Row, col.Col)
			if !ok || v.IsText() || v.IsZero() {
				continue
			}
			out = append(out, Record{
				RunID:       origin.RunID.String(),
				Source:      origin.Source,
				Schema:      s.Name,
				Concept:     row.Label,
				ConceptType: concept.Type,
				Grade:       GradeName(col.Grade),
				Gender:      col.Gender,
				Value:       v.Num(),
				Type:        Movement,
			})
		}
	}
	return out
}

// Pivot rebuilds a concept -> grade -> gender table from records, summing
// duplicates.
func Pivot(records []Record) map[string]map[string]map[string]float64 {
	out := make(map[string]map[string]map[string]float64)
	for _, r := range records {
		grades, ok := out[r.Concept]
		if !ok {
			grades = make(map[string]map[string]float64)
			out[r.Concept] = grades
		}
		genders, ok := grades[r.Grade]
		if !ok {
			genders = make(map[string]float64)
			grades[r.Grade] = genders
		}
		genders[r.Gender] += r.Value
	}
	return out
}
