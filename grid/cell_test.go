package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCell_Kinds(t *testing.T) {
	assert.Equal(t, Empty, Blank.Kind())
	assert.Equal(t, Number, NewInt(5).Kind())
	assert.Equal(t, Text, NewText("BAJAS").Kind())
	assert.Equal(t, MergedRef, NewMergedRef(NewText("1O.")).Kind())
	assert.Equal(t, Empty, NewText("").Kind())
}

func TestCell_String(t *testing.T) {
	assert.Equal(t, "", Blank.String())
	assert.Equal(t, "12", NewInt(12).String())
	assert.Equal(t, "12", NewNumber(12).String())
	assert.Equal(t, "12.5", NewNumber(12.5).String())
	assert.Equal(t, "[1O.]", NewMergedRef(NewText("1O.")).String())
	assert.Equal(t, "[48]", NewMergedRef(NewInt(48)).String())
}

func TestCell_IntFlagPreserved(t *testing.T) {
	assert.True(t, NewInt(3).IsInt())
	assert.False(t, NewNumber(3).IsInt())
	ref := NewMergedRef(NewInt(3))
	a, ok := ref.Anchor()
	require.True(t, ok)
	assert.True(t, a.IsInt())
	assert.True(t, a.Equal(NewInt(3)))
}

func TestCell_MergedRefCollapses(t *testing.T) {
	inner := NewMergedRef(NewInt(7))
	outer := NewMergedRef(inner)
	assert.True(t, inner.Equal(outer))
	assert.Equal(t, Empty, NewMergedRef(Blank).Kind())
}

func TestCell_IsBlank(t *testing.T) {
	assert.True(t, Blank.IsBlank())
	assert.True(t, NewText("   ").IsBlank())
	assert.False(t, NewInt(0).IsBlank())
	assert.False(t, NewMergedRef(NewText("x")).IsBlank())
}

func TestCell_IsMarker(t *testing.T) {
	assert.True(t, NewMergedRef(NewInt(1)).IsMarker())
	assert.True(t, NewText("[SUBTOTAL]").IsMarker())
	assert.False(t, NewText("[").IsMarker())
	assert.False(t, NewText("TOTAL").IsMarker())
}

func TestParseValue(t *testing.T) {
	assert.True(t, ParseValue("42").Equal(NewInt(42)))
	assert.True(t, ParseValue("4.5").Equal(NewNumber(4.5)))
	assert.True(t, ParseValue("H").Equal(NewText("H")))
	assert.True(t, ParseValue("NaN").Equal(NewText("NaN")))
	assert.Equal(t, Empty, ParseValue("").Kind())
}

func TestGrid_FromRowsPadsRagged(t *testing.T) {
	g := FromRows([][]Cell{{NewInt(1)}, {NewInt(2), NewInt(3)}})
	assert.Equal(t, 2, g.Rows())
	assert.Equal(t, 2, g.Cols())
	assert.Equal(t, Empty, g.At(0, 1).Kind())
	assert.Equal(t, Empty, g.At(9, 9).Kind())
}

func TestGrid_EditDoesNotMutateSource(t *testing.T) {
	g := FromStrings([][]string{{"1", "2"}})
	b := g.Edit()
	b.Set(0, 0, NewText("x"))
	edited := b.Grid()

	assert.True(t, g.At(0, 0).Equal(NewInt(1)))
	assert.True(t, edited.At(0, 0).Equal(NewText("x")))
	assert.False(t, g.Equal(edited))
}

func TestGrid_Strings(t *testing.T) {
	g := FromRows([][]Cell{{NewText("A"), NewMergedRef(NewText("A"))}, {NewNumber(1.5), Blank}})
	assert.Equal(t, [][]string{{"A", "[A]"}, {"1.5", ""}}, g.Strings())
	assert.Equal(t, "grid(2x2)", g.String())
}
