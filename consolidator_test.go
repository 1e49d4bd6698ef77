package xlconsolidate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/javajack/xlconsolidate/extract"
	"github.com/javajack/xlconsolidate/internal/fixture"
	"github.com/javajack/xlconsolidate/normalize"
	"github.com/javajack/xlconsolidate/schema"
	"github.com/javajack/xlconsolidate/store"
	"github.com/javajack/xlconsolidate/validate"
)

func saveSchool(t *testing.T, name string, withGroups bool) string {
	t.Helper()
	s := fixture.NewSchool()
	var g *fixture.GroupSheet
	if withGroups {
		g = fixture.GroupsFor(s)
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, fixture.SaveSchool(path, s, g))
	return path
}

// newTemplate saves a workbook with sheet and lets edit prepare it.
func newTemplate(t *testing.T, sheet string, edit func(f *excelize.File)) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue(sheet, "A1", "PLANTILLA"))
	if edit != nil {
		edit(f)
	}
	path := filepath.Join(t.TempDir(), "plantilla.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestProcess(t *testing.T) {
	res, err := Process(saveSchool(t, "escuela.xlsx", false))
	require.NoError(t, err)
	assert.Equal(t, "ESC2", res.Sheet)
	assert.True(t, res.Report.OK(), res.Report.Summary)
	assert.Equal(t, validate.ReportReady, res.Report.State)
	assert.Equal(t, 10, res.Numeric.Grid.Rows())
}

func TestProcess_UnknownMode(t *testing.T) {
	_, err := Process(saveSchool(t, "escuela.xlsx", false), WithMode("REGIONS"))
	var ce *schema.ConfigurationError
	assert.ErrorAs(t, err, &ce)

	c := NewConsolidator(WithMode("REGIONS"))
	_, err = c.Mode()
	assert.ErrorAs(t, err, &ce)
	_, err = c.ProcessFiles(nil)
	assert.ErrorAs(t, err, &ce, "the error is remembered")
}

func TestProcess_BadOverrides(t *testing.T) {
	_, err := Process("unused.xlsx", WithSchemaOverrides([]byte("schemas: [")))
	var ce *schema.ConfigurationError
	assert.ErrorAs(t, err, &ce)
}

func TestConsolidate(t *testing.T) {
	a := saveSchool(t, "a.xlsx", false)
	b := saveSchool(t, "b.xlsx", false)
	template := newTemplate(t, "ESC2", nil)
	output := filepath.Join(t.TempDir(), "salida.xlsx")

	var done []int
	res, err := Consolidate([]string{a, b}, template, output,
		WithProgress(func(d, _ int, _ string) { done = append(done, d) }))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, done)
	require.NoError(t, res.Batch.AggregateErr)
	assert.Equal(t, "ESC2", res.Inject.Sheet)
	assert.Empty(t, res.Inject.Backup)

	f, err := excelize.OpenFile(output)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("ESC2", "H6")
	require.NoError(t, err)
	assert.Equal(t, "40", v, "inscription 1O H summed over two files")
}

func TestConsolidate_SingleFileAndBackup(t *testing.T) {
	template := newTemplate(t, "ESC2", nil)
	output := filepath.Join(t.TempDir(), "salida.xlsx")
	now := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

	res, err := NewConsolidator(WithBackup(true), WithClock(func() time.Time { return now })).
		Consolidate([]string{saveSchool(t, "a.xlsx", false)}, template, output)
	require.NoError(t, err)
	assert.Len(t, res.Batch.Files, 1)
	assert.FileExists(t, res.Inject.Backup)

	f, err := excelize.OpenFile(output)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("ESC2", "H6")
	require.NoError(t, err)
	assert.Equal(t, "20", v)
}

func TestConsolidate_NoFiles(t *testing.T) {
	template := newTemplate(t, "ESC2", nil)
	res, err := Consolidate([]string{filepath.Join(t.TempDir(), "missing.xlsx")}, template,
		filepath.Join(t.TempDir(), "salida.xlsx"))
	assert.ErrorIs(t, err, ErrNoFiles)
	require.Len(t, res.Batch.Failed, 1)
	var sae *extract.SourceAccessError
	assert.ErrorAs(t, res.Batch.Failed[0], &sae)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(ctx, filepath.Join(t.TempDir(), store.DefaultPath))
	require.NoError(t, err)
	defer db.Close()

	c := NewConsolidator()
	res, n, err := c.Store(ctx, db, []string{saveSchool(t, "a.xlsx", false), saveSchool(t, "b.xlsx", false)})
	require.NoError(t, err)
	assert.Equal(t, 172, n)

	totals, err := db.Totals(ctx, res.RunID)
	require.NoError(t, err)
	require.NotEmpty(t, totals)
	assert.Equal(t, store.Total{Concept: "INSCRIPCIÓN", Grade: "1RO", Gender: schema.Male, Total: 40}, totals[0])
}

func TestRecords_WithoutValidation(t *testing.T) {
	c := NewConsolidator()
	res, err := c.Process(saveSchool(t, "escuela.xlsx", false))
	require.NoError(t, err)

	// an unvalidated result carries no structure; Records detects it
	res.Report = validate.Report{}
	recs, err := c.Records(res, normalize.Origin{})
	require.NoError(t, err)
	require.Len(t, recs, 86)
	assert.Equal(t, res.Path, recs[0].Source)
}

func TestDescribe(t *testing.T) {
	out, err := Describe(saveSchool(t, "escuela.xlsx", true))
	require.NoError(t, err)
	assert.Contains(t, out, "Workbook: ")
	assert.Contains(t, out, "Mode: SCHOOLS (ESC2_MOVIMIENTOS, ESC1_GRUPOS)")
	assert.Contains(t, out, "ESC2, ESC1\n")
	assert.Contains(t, out, "concept rows: 10")
	assert.Contains(t, out, "(26x13)")
	assert.Contains(t, out, "Cross-sheet:\n  [ok]")

	out, err = Describe(saveSchool(t, "escuela.xlsx", false))
	require.NoError(t, err)
	assert.Contains(t, out, "ESC1_GRUPOS\n  error: ")

	_, err = Describe(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)
}

func TestValidateTemplate(t *testing.T) {
	template := newTemplate(t, "ESC2", func(f *excelize.File) {
		require.NoError(t, f.MergeCell("ESC2", "X6", "Z6"))
		require.NoError(t, f.SetCellValue("ESC2", "H7", 5))
		require.NoError(t, f.SetCellFormula("ESC2", "I8", "1+1"))
	})

	issues, err := ValidateTemplate(template)
	require.NoError(t, err)
	require.Len(t, issues, 3)
	assert.Equal(t, TemplateIssue{Severity: SeverityWarning, Cell: "ESC2!X6:Z6",
		Message: "merged region hides 2 destination cells; only its anchor is written"}, issues[0])
	assert.Equal(t, "[WARN] ESC2!H7: cell already holds \"5\"", issues[1].String())
	assert.Equal(t, "ESC2!I8", issues[2].Cell)
	assert.Contains(t, issues[2].Message, "=1+1")
}

func TestValidateTemplate_MissingSheet(t *testing.T) {
	issues, err := ValidateTemplate(newTemplate(t, "OTRA", nil), WithMode("ZONAS"))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityError, issues[0].Severity)
	assert.Equal(t, "ZONA 3", issues[0].Cell)

	_, err = ValidateTemplate(filepath.Join(t.TempDir(), "missing.xlsx"))
	var sae *extract.SourceAccessError
	assert.ErrorAs(t, err, &sae)
}
