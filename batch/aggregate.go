package batch

import (
	"errors"
	"fmt"

	"github.com/javajack/xlconsolidate/grid"
	"github.com/javajack/xlconsolidate/numeric"
)

// ErrTooFewGrids is returned when fewer than two grids are aggregated.
var ErrTooFewGrids = errors.New("aggregation needs at least two grids")

// ShapeMismatchError reports a grid whose shape differs from the first one.
type ShapeMismatchError struct {
	Index int
	Want  grid.Size
	Got   grid.Size
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("grid %d has shape %s, want %s", e.Index, e.Got, e.Want)
}

// Consistent checks that every grid has the shape of the first one.
func Consistent(grids []numeric.Grid) error {
	if len(grids) == 0 {
		return nil
	}
	want := grids[0].Shape()
	for i, g := range grids[1:] {
		if got := g.Shape(); got != want {
			return &ShapeMismatchError{Index: i + 1, Want: want, Got: got}
		}
	}
	return nil
}

// Aggregate sums grids cell by cell. It needs at least two grids of
// identical shape and never truncates.
func Aggregate(grids []numeric.Grid) (numeric.Grid, error) {
	if len(grids) < 2 {
		return numeric.Grid{}, fmt.Errorf("%w: got %d", ErrTooFewGrids, len(grids))
	}
	if err := Consistent(grids); err != nil {
		return numeric.Grid{}, err
	}
	shape := grids[0].Shape()
	return numeric.Build(shape.Height, shape.Width, func(r, c int) numeric.Value {
		sum := numeric.Zero
		for _, g := range grids {
			sum = sum.Add(g.At(r, c))
		}
		return sum
	}), nil
}
