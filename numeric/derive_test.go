package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajack/xlconsolidate/grid"
	"github.com/javajack/xlconsolidate/schema"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		in   grid.Cell
		want Value
	}{
		{"blank", grid.Blank, Zero},
		{"int", grid.NewInt(48), Int(48)},
		{"decimal kept decimal", grid.NewNumber(12), Number(12)},
		{"merged ref", grid.NewMergedRef(grid.NewInt(48)), Zero},
		{"bracket text", grid.NewText("[48]"), Zero},
		{"whitespace", grid.NewText("   "), Zero},
		{"integral text", grid.NewText(" 12.0 "), Int(12)},
		{"decimal text", grid.NewText("2.5"), Number(2.5)},
		{"plain text", grid.NewText(" N/A "), Text("N/A")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Convert(tt.in)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestConvert_CanonicalStrings(t *testing.T) {
	assert.Equal(t, "12", Convert(grid.NewText("12.0")).String())
	assert.Equal(t, "2.5", Convert(grid.NewText("2.50")).String())
	assert.Equal(t, "0", Convert(grid.Blank).String())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindEmpty, Classify(grid.Blank))
	assert.Equal(t, KindEmpty, Classify(grid.NewText("  ")))
	assert.Equal(t, KindNumber, Classify(grid.NewInt(0)))
	assert.Equal(t, KindMarker, Classify(grid.NewMergedRef(grid.NewText("1O."))))
	assert.Equal(t, KindMarker, Classify(grid.NewText("[7]")))
	assert.Equal(t, KindNumericText, Classify(grid.NewText("7")))
	assert.Equal(t, KindText, Classify(grid.NewText("H")))
	assert.Equal(t, "numericText", KindNumericText.String())
}

func TestValue_Add(t *testing.T) {
	assert.True(t, Int(5).Add(Int(3)).Equal(Int(8)))
	assert.False(t, Int(5).Add(Number(0.5)).IsInt())
	assert.True(t, Int(5).Add(Text("x")).Equal(Int(5)))
}

func marked() grid.Grid {
	return grid.FromRows([][]grid.Cell{
		{grid.NewText("CONCEPTO"), grid.NewText("1O."), grid.NewMergedRef(grid.NewText("1O.")), grid.NewText("SUBTOTAL")},
		{grid.Blank, grid.NewText("H"), grid.NewText("M"), grid.NewText("H")},
		{grid.NewText("INSCRIPCIÓN"), grid.NewInt(20), grid.NewText("28"), grid.NewInt(48)},
		{grid.NewText("BAJAS"), grid.NewInt(1), grid.Blank, grid.NewMergedRef(grid.NewInt(48))},
	})
}

func TestDerive(t *testing.T) {
	res, err := Derive(marked(), schema.Bounds{RowStart: 2, RowEnd: 3, ColStart: 1, ColEnd: 3})
	require.NoError(t, err)

	assert.Equal(t, grid.Size{Width: 3, Height: 2}, res.Grid.Shape())
	assert.Equal(t, [][]string{{"20", "28", "48"}, {"1", "0", "0"}}, res.Grid.Strings())
	assert.InDelta(t, 97, res.Grid.Sum(), 1e-9)

	e, ok := res.Trace.At(2, 2)
	require.True(t, ok)
	assert.Equal(t, KindNumericText, e.Kind)
	assert.True(t, e.Original.Equal(grid.NewText("28")))
	assert.True(t, e.Derived.Equal(Int(28)))

	e, ok = res.Trace.At(3, 3)
	require.True(t, ok)
	assert.Equal(t, KindMarker, e.Kind)

	_, ok = res.Trace.At(0, 0)
	assert.False(t, ok, "trace only covers the numeric range")
	assert.Equal(t, 6, res.Trace.Len())
	assert.Equal(t, Pos{Row: 2, Col: 1}, res.Trace.Positions()[0])
	assert.Equal(t, 1, res.Trace.Count(KindMarker))

	v, ok := res.ValueAt(2, 3)
	require.True(t, ok)
	assert.True(t, v.Equal(Int(48)))
	_, ok = res.ValueAt(1, 3)
	assert.False(t, ok)
}

func TestDerive_OutOfBounds(t *testing.T) {
	var re *grid.RangeError
	_, err := Derive(marked(), schema.Bounds{RowStart: 2, RowEnd: 9, ColStart: 0, ColEnd: 3})
	require.ErrorAs(t, err, &re)
	assert.Contains(t, re.Reason, "grid(4x4)")

	_, err = Derive(marked(), schema.Bounds{RowStart: 3, RowEnd: 2, ColStart: 0, ColEnd: 3})
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "inverted bounds", re.Reason)
}

func TestDerive_SumMatchesPlainParse(t *testing.T) {
	rows := [][]string{
		{"3", "4.5", "", "x"},
		{" 7 ", "0", "10", "2"},
	}
	g := grid.FromStrings(rows)
	res, err := Derive(g, schema.Bounds{RowEnd: 1, ColEnd: 3})
	require.NoError(t, err)

	var want float64
	for _, r := range rows {
		for _, s := range r {
			if f, ok := grid.ParseValue(s).Float(); ok {
				want += f
			}
		}
	}
	want += 7 // " 7 " is text until trimmed
	assert.InDelta(t, want, res.Grid.Sum(), 1e-9)
	assert.InDelta(t, 26.5, res.Grid.Sum(), 1e-9)
}

func TestNewGrid_Pads(t *testing.T) {
	g := NewGrid([][]Value{{Int(1)}, {Int(2), Number(0.5)}})
	assert.Equal(t, 2, g.Cols())
	assert.True(t, g.At(0, 1).Equal(Zero))
	assert.InDelta(t, 2.5, g.RowSum(1), 1e-9)
	assert.True(t, g.Equal(NewGrid([][]Value{{Int(1), Zero}, {Int(2), Number(0.5)}})))
}
