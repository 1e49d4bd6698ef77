package validate

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/javajack/xlconsolidate/detect"
	"github.com/javajack/xlconsolidate/grid"
	"github.com/javajack/xlconsolidate/numeric"
	"github.com/javajack/xlconsolidate/schema"
)

// SheetInput is one sheet of a workbook ready for validation.
type SheetInput struct {
	Schema  *schema.Schema
	Marked  grid.Grid
	Numeric numeric.Result
}

// MultiReport holds per-sheet reports plus cross-sheet findings.
type MultiReport struct {
	Order   []string // schema names in input order
	Reports map[string]Report
	Cross   []Finding
	Summary string
}

// OK reports whether no sheet and no cross check found a discrepancy.
func (m MultiReport) OK() bool {
	for _, r := range m.Reports {
		if !r.OK() {
			return false
		}
	}
	for _, f := range m.Cross {
		if !f.OK {
			return false
		}
	}
	return true
}

// Discrepancies returns every discrepancy, sheet by sheet, then cross checks.
func (m MultiReport) Discrepancies() []Finding {
	var out []Finding
	for _, name := range m.Order {
		out = append(out, m.Reports[name].Discrepancies...)
	}
	for _, f := range m.Cross {
		if !f.OK {
			out = append(out, f)
		}
	}
	return out
}

// RunSheets validates every input with its own schema, then evaluates the
// cross-sheet checks whose both sides are present.
func RunSheets(inputs []SheetInput, checks []schema.CrossCheck, opts ...Option) MultiReport {
	o := newOptions(opts)
	m := MultiReport{Reports: make(map[string]Report, len(inputs))}
	byName := make(map[string]SheetInput, len(inputs))
	for _, in := range inputs {
		v := &Validator{schema: in.Schema, opts: o}
		m.Reports[in.Schema.Name] = v.Run(in.Marked, in.Numeric)
		m.Order = append(m.Order, in.Schema.Name)
		byName[in.Schema.Name] = in
	}

	var cross []Finding
	for _, cc := range checks {
		left, lok := byName[cc.Left.Schema]
		right, rok := byName[cc.Right.Schema]
		if !lok || !rok {
			o.logger.Debug("cross check skipped, sheet missing", zap.Stringer("left", cc.Left), zap.Stringer("right", cc.Right))
			continue
		}
		lv, lok := rowTotal(left, m.Reports[cc.Left.Schema].Structure, cc.Left.Concept)
		rv, rok := rowTotal(right, m.Reports[cc.Right.Schema].Structure, cc.Right.Concept)
		if !lok || !rok {
			o.logger.Debug("cross check skipped, concept row missing", zap.Stringer("left", cc.Left), zap.Stringer("right", cc.Right))
			continue
		}
		concept := cc.Left.String() + " = " + cc.Right.String()
		if diff := lv - rv; diff <= o.tolerance && diff >= -o.tolerance {
			cross = append(cross, Finding{Kind: cc.Kind, Concept: concept, OK: true, Value: lv,
				Description: fmt.Sprintf("%s: %s = %s", concept, num(lv), num(rv))})
			continue
		}
		cross = append(cross, Finding{
			Kind:        cc.Kind,
			Concept:     concept,
			Reported:    lv,
			Calculated:  rv,
			Difference:  abs(rv - lv),
			Description: fmt.Sprintf("%s: %s != %s", concept, num(lv), num(rv)),
		})
	}
	m.Cross = cross
	m.Summary = m.summarize()
	return m
}

// rowTotal sums a concept row: over the detected data columns when there are
// any, otherwise over the whole numeric row.
func rowTotal(in SheetInput, st detect.Structure, key string) (float64, bool) {
	row, ok := st.Row(key)
	if !ok || row < in.Numeric.Bounds.RowStart || row > in.Numeric.Bounds.RowEnd {
		return 0, false
	}
	if len(st.DataColumns) == 0 {
		lr, _ := in.Numeric.Local(row, in.Numeric.Bounds.ColStart)
		return in.Numeric.Grid.RowSum(lr), true
	}
	var sum float64
	for _, dc := range st.DataColumns {
		if v, ok := in.Numeric.ValueAt(row, dc.Col); ok {
			sum += v.Num()
		}
	}
	return sum, true
}

func (m MultiReport) summarize() string {
	var b strings.Builder
	for _, name := range m.Order {
		fmt.Fprintf(&b, "== %s\n%s\n", name, strings.TrimRight(m.Reports[name].Summary, "\n"))
	}
	if len(m.Cross) > 0 {
		var ds, ss []Finding
		for _, f := range m.Cross {
			if f.OK {
				ss = append(ss, f)
			} else {
				ds = append(ds, f)
			}
		}
		fmt.Fprintf(&b, "== cross-sheet\n%s\n", strings.TrimRight(Summarize(ds, ss), "\n"))
	}
	return b.String()
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
