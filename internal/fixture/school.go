// Package fixture builds ESC1/ESC2-shaped sheets for tests.
//
// School layout, extraction coordinates (sheet range A5:Z17):
//
//	row 0      title
//	row 1      grade headers, "1O.".."6O." merged over H/M pairs (cols 7..18),
//	           "SUBTOTAL" merged over 19..22, "TOTAL" merged over 23..25
//	row 2      gender headers H/M at 7..18, H at 19, M at 21
//	rows 3..12 concepts; subtotal H merged 19:20, M merged 21:22, total 23:25
package fixture

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/javajack/xlconsolidate/grid"
	"github.com/javajack/xlconsolidate/marker"
)

// Concept labels in ESC2 row order.
var Labels = [10]string{
	"INSCRIPCIÓN", "BAJAS", "EXISTENCIA", "ALTAS", "APROBADOS",
	"REPROBADOS", "BECADOS MUNICIPIO", "BECADOS SEED", "BIENESTAR", "GRUPOS",
}

// Concept row offsets into School.Data.
const (
	Inscription = 0
	Withdrawals = 1
	Existing    = 2
	Groups      = 9
)

// Column positions in extraction coordinates.
const (
	FirstData = 7
	SubtotalH = 19
	SubtotalM = 21
	Total     = 23
	Rows      = 13
	Cols      = 26
)

var grades = [6]string{"1O.", "2O.", "3O.", "4O.", "5O.", "6O."}

// School is an ESC2 sheet. Reported subtotal/total cells are computed from
// Data unless overridden by concept offset.
type School struct {
	Data      [10][12]float64
	SubtotalH map[int]float64
	SubtotalM map[int]float64
	Total     map[int]float64
}

// NewSchool returns a coherent sheet: existing = inscription - withdrawals
// in every column and every total equals its subtotals.
func NewSchool() *School {
	s := &School{SubtotalH: map[int]float64{}, SubtotalM: map[int]float64{}, Total: map[int]float64{}}
	for c := 0; c < 12; c++ {
		insc := float64(20 + c)
		wd := float64(c % 3)
		s.Data[Inscription][c] = insc
		s.Data[Withdrawals][c] = wd
		s.Data[Existing][c] = insc - wd
		s.Data[3][c] = float64(c % 2)
		s.Data[4][c] = insc - wd - 1
		s.Data[5][c] = 1
		s.Data[6][c] = float64(c % 4)
		s.Data[7][c] = float64(c % 5)
		s.Data[8][c] = 0
		if c%2 == 0 {
			s.Data[Groups][c] = 2
		}
	}
	return s
}

func (s *School) sums(concept int) (h, m float64) {
	for c := 0; c < 12; c++ {
		if c%2 == 0 {
			h += s.Data[concept][c]
		} else {
			m += s.Data[concept][c]
		}
	}
	if v, ok := s.SubtotalH[concept]; ok {
		h = v
	}
	if v, ok := s.SubtotalM[concept]; ok {
		m = v
	}
	return h, m
}

// ReportedTotal returns the value written in the total column for concept.
func (s *School) ReportedTotal(concept int) float64 {
	if v, ok := s.Total[concept]; ok {
		return v
	}
	if concept == Groups {
		var t float64
		for _, v := range s.Data[Groups] {
			t += v
		}
		return t
	}
	h, m := s.sums(concept)
	return h + m
}

// Merges returns the merged regions of the sheet in extraction coordinates.
func (s *School) Merges() []grid.Region {
	var out []grid.Region
	for g := range grades {
		out = append(out, grid.Region{MinRow: 1, MinCol: FirstData + 2*g, MaxRow: 1, MaxCol: FirstData + 2*g + 1})
	}
	out = append(out,
		grid.Region{MinRow: 1, MinCol: SubtotalH, MaxRow: 1, MaxCol: 22},
		grid.Region{MinRow: 1, MinCol: Total, MaxRow: 2, MaxCol: 25},
	)
	for r := 3; r <= 12; r++ {
		out = append(out,
			grid.Region{MinRow: r, MinCol: SubtotalH, MaxRow: r, MaxCol: SubtotalH + 1},
			grid.Region{MinRow: r, MinCol: SubtotalM, MaxRow: r, MaxCol: SubtotalM + 1},
			grid.Region{MinRow: r, MinCol: Total, MaxRow: r, MaxCol: 25},
		)
	}
	return out
}

// Raw returns the sheet as extracted: merged non-anchor cells are blank.
func (s *School) Raw() grid.Grid {
	b := grid.NewBuilder(Rows, Cols)
	b.Set(0, 0, grid.NewText("MOVIMIENTOS DE ALUMNOS"))
	b.Set(1, 0, grid.NewText("CONCEPTO"))
	for g, label := range grades {
		b.Set(1, FirstData+2*g, grid.NewText(label))
		b.Set(2, FirstData+2*g, grid.NewText("H"))
		b.Set(2, FirstData+2*g+1, grid.NewText("M"))
	}
	b.Set(1, SubtotalH, grid.NewText("SUBTOTAL"))
	b.Set(2, SubtotalH, grid.NewText("H"))
	b.Set(2, SubtotalM, grid.NewText("M"))
	b.Set(1, Total, grid.NewText("TOTAL"))

	for i, label := range Labels {
		r := 3 + i
		b.Set(r, 0, grid.NewText(label))
		for c := 0; c < 12; c++ {
			if v := s.Data[i][c]; v != 0 {
				b.Set(r, FirstData+c, number(v))
			}
		}
		if i != Groups {
			h, m := s.sums(i)
			b.Set(r, SubtotalH, number(h))
			b.Set(r, SubtotalM, number(m))
		}
		b.Set(r, Total, number(s.ReportedTotal(i)))
	}
	return b.Grid()
}

// Marked returns the raw sheet with merge markers applied.
func (s *School) Marked() grid.Grid {
	return marker.Mark(s.Raw(), s.Merges())
}

func number(v float64) grid.Cell {
	if v == float64(int64(v)) {
		return grid.NewInt(int64(v))
	}
	return grid.NewNumber(v)
}

// Write stores g and merges on sheet with the top-left extraction cell at
// (topRow, 1), creating the sheet when missing.
func Write(f *excelize.File, sheet string, topRow int, g grid.Grid, merges []grid.Region) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			cell := g.At(r, c)
			if cell.Kind() == grid.Empty {
				continue
			}
			name, err := excelize.CoordinatesToCellName(c+1, topRow+r)
			if err != nil {
				return err
			}
			var v any = cell.String()
			if n, ok := cell.Float(); ok {
				v = n
				if cell.IsInt() {
					v = int64(n)
				}
			}
			if err := f.SetCellValue(sheet, name, v); err != nil {
				return err
			}
		}
	}
	for _, m := range merges {
		tl, _ := excelize.CoordinatesToCellName(m.MinCol+1, topRow+m.MinRow)
		br, _ := excelize.CoordinatesToCellName(m.MaxCol+1, topRow+m.MaxRow)
		if err := f.MergeCell(sheet, tl, br); err != nil {
			return fmt.Errorf("merge %s:%s: %w", tl, br, err)
		}
	}
	return nil
}

// SaveSchool writes s as sheet ESC2 (range A5:Z17) plus an optional ESC1
// groups sheet (range A3:Z15) and saves the workbook to path.
func SaveSchool(path string, s *School, groups *GroupSheet) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := Write(f, "ESC2", 5, s.Raw(), s.Merges()); err != nil {
		return err
	}
	if groups != nil {
		if err := Write(f, "ESC1", 3, groups.Raw(), groups.Merges()); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
