package batch

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"

	"github.com/javajack/xlconsolidate/extract"
	"github.com/javajack/xlconsolidate/grid"
	"github.com/javajack/xlconsolidate/internal/fixture"
	"github.com/javajack/xlconsolidate/numeric"
	"github.com/javajack/xlconsolidate/schema"
	"github.com/javajack/xlconsolidate/validate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func filled(rows, cols int, v int64) numeric.Grid {
	return numeric.Build(rows, cols, func(int, int) numeric.Value { return numeric.Int(v) })
}

func TestAggregate(t *testing.T) {
	sum, err := Aggregate([]numeric.Grid{filled(10, 19, 2), filled(10, 19, 3)})
	require.NoError(t, err)
	assert.Equal(t, grid.Size{Width: 19, Height: 10}, sum.Shape())
	assert.InDelta(t, 5*190, sum.Sum(), 1e-9)
	assert.True(t, sum.At(9, 18).IsInt())
}

func TestAggregate_ShapeMismatch(t *testing.T) {
	_, err := Aggregate([]numeric.Grid{filled(10, 19, 1), filled(9, 19, 1)})
	var sme *ShapeMismatchError
	require.ErrorAs(t, err, &sme)
	assert.Equal(t, 1, sme.Index)
	assert.Equal(t, grid.Size{Width: 19, Height: 10}, sme.Want)
	assert.Equal(t, grid.Size{Width: 19, Height: 9}, sme.Got)
	assert.Equal(t, "grid 1 has shape (19x9), want (19x10)", sme.Error())
}

func TestAggregate_TooFew(t *testing.T) {
	_, err := Aggregate([]numeric.Grid{filled(10, 19, 1)})
	assert.ErrorIs(t, err, ErrTooFewGrids)
	_, err = Aggregate(nil)
	assert.ErrorIs(t, err, ErrTooFewGrids)
}

func TestAggregate_Commutative(t *testing.T) {
	a := numeric.Build(2, 2, func(r, c int) numeric.Value { return numeric.Number(float64(r) + 0.5) })
	b := numeric.Build(2, 2, func(r, c int) numeric.Value { return numeric.Int(int64(c)) })
	ab, err := Aggregate([]numeric.Grid{a, b})
	require.NoError(t, err)
	ba, err := Aggregate([]numeric.Grid{b, a})
	require.NoError(t, err)
	assert.True(t, ab.Equal(ba))
}

func TestConsistent(t *testing.T) {
	assert.NoError(t, Consistent(nil))
	assert.NoError(t, Consistent([]numeric.Grid{filled(2, 2, 1), filled(2, 2, 4)}))
	assert.Error(t, Consistent([]numeric.Grid{filled(2, 2, 1), filled(2, 2, 1), filled(2, 3, 1)}))
}

func coordinator(t *testing.T, mode string, opts ...Option) *Coordinator {
	t.Helper()
	reg, err := schema.NewRegistry()
	require.NoError(t, err)
	c, err := New(reg, mode, opts...)
	require.NoError(t, err)
	return c
}

func save(t *testing.T, name string, s *fixture.School, withGroups bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	var g *fixture.GroupSheet
	if withGroups {
		g = fixture.GroupsFor(s)
	}
	require.NoError(t, fixture.SaveSchool(path, s, g))
	return path
}

func TestNew_UnknownMode(t *testing.T) {
	reg, err := schema.NewRegistry()
	require.NoError(t, err)
	_, err = New(reg, "REGIONS")
	var ce *schema.ConfigurationError
	assert.ErrorAs(t, err, &ce)
}

func TestProcessFile(t *testing.T) {
	path := save(t, "escuela.xlsx", fixture.NewSchool(), false)
	res, err := coordinator(t, "SCHOOLS").ProcessFile(path)
	require.NoError(t, err)

	assert.Equal(t, "ESC2", res.Sheet)
	assert.Equal(t, grid.Size{Width: fixture.Cols, Height: fixture.Rows}, res.Marked.Size())
	assert.Equal(t, grid.Size{Width: 19, Height: 10}, res.Numeric.Grid.Shape())
	assert.True(t, res.Report.OK(), res.Report.Summary)
	assert.Equal(t, validate.ReportReady, res.Report.State)

	e, ok := res.Trace().At(3, 7)
	require.True(t, ok)
	assert.Equal(t, "20", e.Derived.String())

	// subtotal H is merged over 19:20; the display grid blanks the marker
	assert.True(t, res.Marked.At(3, 20).IsMarker())
	assert.True(t, res.Display.At(3, 20).IsBlank())
}

func TestProcessFile_MissingSheet(t *testing.T) {
	path := save(t, "escuela.xlsx", fixture.NewSchool(), false)
	_, err := coordinator(t, "ZONES").ProcessFile(path)
	var snf *extract.SheetNotFoundError
	require.ErrorAs(t, err, &snf)
	assert.Equal(t, "ZONA 3", snf.Sheet)
}

func TestProcessFiles(t *testing.T) {
	a := save(t, "a.xlsx", fixture.NewSchool(), false)
	b := save(t, "b.xlsx", fixture.NewSchool(), false)
	missing := filepath.Join(t.TempDir(), "missing.xlsx")

	var calls []int
	c := coordinator(t, "SCHOOLS", WithProgress(func(done, total int, path string) {
		assert.Equal(t, 3, total)
		calls = append(calls, done)
	}))
	res := c.ProcessFiles([]string{a, missing, b})

	assert.Equal(t, []int{1, 2, 3}, calls)
	require.Len(t, res.Files, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, missing, res.Failed[0].Path)
	var sae *extract.SourceAccessError
	assert.True(t, errors.As(res.Failed[0], &sae))
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", res.RunID.String())

	require.NoError(t, res.AggregateErr)
	one := res.Files[0].Numeric.Grid
	assert.InDelta(t, 2*one.Sum(), res.Aggregate.Sum(), 1e-9)

	require.NoError(t, res.Remove(b))
	assert.Len(t, res.Files, 1)
	assert.ErrorIs(t, res.AggregateErr, ErrTooFewGrids)
	assert.ErrorIs(t, res.Remove(b), ErrNotInBatch)
}

func TestProcessFiles_SingleFileHasNoAggregate(t *testing.T) {
	res := coordinator(t, "SCHOOLS").ProcessFiles([]string{save(t, "a.xlsx", fixture.NewSchool(), false)})
	assert.Len(t, res.Files, 1)
	assert.ErrorIs(t, res.AggregateErr, ErrTooFewGrids)
}

func TestProcessSheets(t *testing.T) {
	s := fixture.NewSchool()
	res, err := coordinator(t, "SCHOOLS").ProcessSheets(save(t, "escuela.xlsx", s, true))
	require.NoError(t, err)

	require.Len(t, res.Sheets, 2)
	groups, ok := res.Sheet(schema.SchoolGroups)
	require.True(t, ok)
	require.NoError(t, groups.Err)
	assert.Equal(t, "ESC1", groups.Sheet)
	assert.True(t, res.Report.OK(), res.Report.Summary)
	require.Len(t, res.Report.Cross, 1)
	assert.True(t, res.Report.Cross[0].OK)

	primary, ok := res.Sheet(schema.SchoolMovements)
	require.True(t, ok)
	assert.Equal(t, validate.ReportReady, primary.Report.State)
}

func TestProcessSheets_MissingExtraSheet(t *testing.T) {
	res, err := coordinator(t, "SCHOOLS").ProcessSheets(save(t, "escuela.xlsx", fixture.NewSchool(), false))
	require.NoError(t, err)

	groups, ok := res.Sheet(schema.SchoolGroups)
	require.True(t, ok)
	var snf *extract.SheetNotFoundError
	assert.ErrorAs(t, groups.Err, &snf)
	assert.Empty(t, res.Report.Cross)
	assert.Equal(t, []string{schema.SchoolMovements}, res.Report.Order)
}

func TestProcessSheets_SumOnlyModeSkipsValidation(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, fixture.Write(f, "SECTOR3", 3, fixture.NewSchool().Raw(), nil))
	path := filepath.Join(t.TempDir(), "sector.xlsx")
	require.NoError(t, f.SaveAs(path))

	res, err := coordinator(t, "SECTORS").ProcessSheets(path)
	require.NoError(t, err)
	require.Len(t, res.Sheets, 1)
	require.NoError(t, res.Sheets[0].Err)
	assert.Equal(t, validate.Idle, res.Sheets[0].Report.State)
	assert.Zero(t, res.Sheets[0].Report.Checks())
	assert.Empty(t, res.Report.Reports)
	assert.True(t, res.Report.OK())
	assert.Contains(t, res.Report.Summary, "No checks performed")
}
