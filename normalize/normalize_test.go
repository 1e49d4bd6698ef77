package normalize

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajack/xlconsolidate/detect"
	"github.com/javajack/xlconsolidate/internal/fixture"
	"github.com/javajack/xlconsolidate/numeric"
	"github.com/javajack/xlconsolidate/schema"
)

func schoolRecords(t *testing.T, s *fixture.School, origin Origin) []Record {
	t.Helper()
	reg, err := schema.NewRegistry()
	require.NoError(t, err)
	sc, err := reg.Schema(schema.SchoolMovements)
	require.NoError(t, err)

	marked := s.Marked()
	num, err := numeric.Derive(marked, sc.NumericRange)
	require.NoError(t, err)
	return Records(sc, num, detect.Detect(marked, sc), origin)
}

func TestGradeName(t *testing.T) {
	assert.Equal(t, "1RO", GradeName("1O"))
	assert.Equal(t, "2DO", GradeName("2o"))
	assert.Equal(t, "3RO", GradeName("3ER"))
	assert.Equal(t, "6TO", GradeName("6O"))
	assert.Equal(t, "7O", GradeName(" 7o "))
}

func TestRecords(t *testing.T) {
	run := uuid.New()
	recs := schoolRecords(t, fixture.NewSchool(), Origin{RunID: run, Source: "escuela.xlsx"})

	// zero cells are skipped: 12+8+12+6+12+12+9+9+0+6
	require.Len(t, recs, 86)
	assert.Equal(t, Record{
		RunID:       run.String(),
		Source:      "escuela.xlsx",
		Schema:      schema.SchoolMovements,
		Concept:     "INSCRIPCIÓN",
		ConceptType: "INSCRIPCION",
		Grade:       "1RO",
		Gender:      schema.Male,
		Value:       20,
		Type:        Movement,
	}, recs[0])
	assert.Equal(t, schema.Female, recs[1].Gender)
	assert.Equal(t, 21.0, recs[1].Value)

	for _, r := range recs {
		assert.NotEqual(t, "BIENESTAR", r.Concept)
		assert.NotZero(t, r.Value)
	}
}

func TestRecords_SkipsText(t *testing.T) {
	reg, err := schema.NewRegistry()
	require.NoError(t, err)
	sc, err := reg.Schema(schema.SchoolMovements)
	require.NoError(t, err)

	num := numeric.Result{
		Grid:   numeric.NewGrid([][]numeric.Value{{numeric.Text("n/a"), numeric.Int(3)}}),
		Bounds: schema.Bounds{RowStart: 3, RowEnd: 3, ColStart: 7, ColEnd: 8},
	}
	st := detect.Structure{
		ConceptRows: []detect.ConceptRow{
			{Key: schema.KeyInscription, Label: "INSCRIPCIÓN", Row: 3},
			{Label: "EGRESADOS", Row: 3, Additional: true},
		},
		DataColumns: []detect.DataColumn{
			{Gender: schema.Male, Col: 7, Grade: "1O"},
			{Gender: schema.Female, Col: 8, Grade: "1O"},
			{Gender: schema.Male, Col: 30, Grade: "2O"},
		},
	}
	recs := Records(sc, num, st, Origin{})
	require.Len(t, recs, 1)
	assert.Equal(t, schema.Female, recs[0].Gender)
	assert.Equal(t, 3.0, recs[0].Value)
}

func TestPivot(t *testing.T) {
	recs := schoolRecords(t, fixture.NewSchool(), Origin{})
	recs = append(recs, Record{Concept: "INSCRIPCIÓN", Grade: "1RO", Gender: schema.Male, Value: 5})

	p := Pivot(recs)
	assert.Equal(t, 25.0, p["INSCRIPCIÓN"]["1RO"][schema.Male])
	assert.Equal(t, 31.0, p["INSCRIPCIÓN"]["6TO"][schema.Female])
	assert.Equal(t, 2.0, p["GRUPOS"]["3RO"][schema.Male])
	_, ok := p["GRUPOS"]["3RO"][schema.Female]
	assert.False(t, ok)
}

type memorySink struct{ got []Record }

func (m *memorySink) Save(_ context.Context, records []Record) error {
	m.got = append(m.got, records...)
	return nil
}

func TestSink(t *testing.T) {
	var sink Sink = &memorySink{}
	recs := schoolRecords(t, fixture.NewSchool(), Origin{})
	require.NoError(t, sink.Save(context.Background(), recs))
	assert.Len(t, sink.(*memorySink).got, len(recs))
}
