package fixture

import "github.com/javajack/xlconsolidate/grid"

// GroupSheet is an ESC1 sheet (range A3:Z15): three groups (A, B, C) per
// grade in cols 7..24, rows HOMBRES (3), MUJERES (4) and TOTAL (5).
type GroupSheet struct {
	Men   [18]float64
	Women [18]float64
}

// GroupsFor places each grade's existing H/M counts of s in group A.
func GroupsFor(s *School) *GroupSheet {
	g := &GroupSheet{}
	for grade := 0; grade < 6; grade++ {
		g.Men[grade*3] = s.Data[Existing][grade*2]
		g.Women[grade*3] = s.Data[Existing][grade*2+1]
	}
	return g
}

// Merges returns the grade header merges in extraction coordinates.
func (g *GroupSheet) Merges() []grid.Region {
	var out []grid.Region
	for grade := 0; grade < 6; grade++ {
		out = append(out, grid.Region{MinRow: 1, MinCol: FirstData + 3*grade, MaxRow: 1, MaxCol: FirstData + 3*grade + 2})
	}
	return out
}

// Raw returns the sheet as extracted.
func (g *GroupSheet) Raw() grid.Grid {
	labels := [6]string{"1ER GRADO", "2DO GRADO", "3ER GRADO", "4TO GRADO", "5TO GRADO", "6TO GRADO"}
	b := grid.NewBuilder(Rows, Cols)
	b.Set(0, 0, grid.NewText("GRUPOS POR GRADO"))
	for grade, label := range labels {
		b.Set(1, FirstData+3*grade, grid.NewText(label))
		for i, letter := range []string{"A", "B", "C"} {
			b.Set(2, FirstData+3*grade+i, grid.NewText(letter))
		}
	}
	b.Set(3, 0, grid.NewText("HOMBRES"))
	b.Set(4, 0, grid.NewText("MUJERES"))
	b.Set(5, 0, grid.NewText("TOTAL"))
	for c := 0; c < 18; c++ {
		if g.Men[c] != 0 {
			b.Set(3, FirstData+c, number(g.Men[c]))
		}
		if g.Women[c] != 0 {
			b.Set(4, FirstData+c, number(g.Women[c]))
		}
		if t := g.Men[c] + g.Women[c]; t != 0 {
			b.Set(5, FirstData+c, number(t))
		}
	}
	return b.Grid()
}
