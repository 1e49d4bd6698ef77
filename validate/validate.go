// Package validate checks the internal arithmetic of a consolidated table:
// subtotals, totals and row-to-row identities.
package validate

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/javajack/xlconsolidate/detect"
	"github.com/javajack/xlconsolidate/grid"
	"github.com/javajack/xlconsolidate/numeric"
	"github.com/javajack/xlconsolidate/schema"
)

// DefaultTolerance is the absolute tolerance for equality checks.
const DefaultTolerance = 0.01

// State is the progress of one validation run.
type State int

const (
	Idle State = iota
	StructureDetected
	SubtotalsChecked
	TotalsChecked
	RowCoherenceChecked
	ReportReady
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case StructureDetected:
		return "StructureDetected"
	case SubtotalsChecked:
		return "SubtotalsChecked"
	case TotalsChecked:
		return "TotalsChecked"
	case RowCoherenceChecked:
		return "RowCoherenceChecked"
	case ReportReady:
		return "ReportReady"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type options struct {
	tolerance float64
	logger    *zap.Logger
	eval      *schema.Evaluator
}

// Option configures a Validator.
type Option func(*options)

// WithTolerance sets the absolute equality tolerance (default 0.01).
func WithTolerance(t float64) Option {
	return func(o *options) { o.tolerance = t }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEvaluator shares a rule evaluator, typically Registry.Evaluator().
func WithEvaluator(e *schema.Evaluator) Option {
	return func(o *options) { o.eval = e }
}

func newOptions(opts []Option) *options {
	o := &options{tolerance: DefaultTolerance, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.eval == nil {
		o.eval = schema.NewEvaluator()
	}
	return o
}

// Validator validates sheets laid out according to one schema.
// A Validator holds no per-run state and may be reused.
type Validator struct {
	schema *schema.Schema
	opts   *options
}

// New creates a Validator for s.
func New(s *schema.Schema, opts ...Option) *Validator {
	return &Validator{schema: s, opts: newOptions(opts)}
}

// Run validates a marked grid and its numeric derivation. Discrepancies are
// returned as findings, never as errors.
func (v *Validator) Run(marked grid.Grid, num numeric.Result) Report {
	r := &run{
		schema: v.schema,
		opts:   v.opts,
		log:    v.opts.logger.With(zap.String("schema", v.schema.Name)),
		marked: marked,
		num:    num,
	}
	r.st = detect.Detect(marked, v.schema, detect.WithLogger(r.log))
	r.advance(StructureDetected)

	if v.schema.Validations.Subtotals {
		r.checkSubtotals()
	}
	r.advance(SubtotalsChecked)

	if v.schema.Validations.Totals {
		r.checkTotals()
	}
	r.advance(TotalsChecked)

	if v.schema.Validations.RowCoherence {
		r.checkRules()
	}
	r.advance(RowCoherenceChecked)

	rep := Report{
		Discrepancies: r.discrepancies,
		Successes:     r.successes,
		Structure:     r.st,
		Summary:       Summarize(r.discrepancies, r.successes),
	}
	r.advance(ReportReady)
	rep.State = r.state
	r.log.Debug("validation finished",
		zap.Int("discrepancies", len(rep.Discrepancies)),
		zap.Int("successes", len(rep.Successes)))
	return rep
}

// run carries the append-only findings of one Run call.
type run struct {
	schema *schema.Schema
	opts   *options
	log    *zap.Logger
	marked grid.Grid
	num    numeric.Result
	st     detect.Structure
	state  State

	discrepancies []Finding
	successes     []Finding
}

func (r *run) advance(s State) {
	r.state = s
}

func (r *run) equal(a, b float64) bool {
	return math.Abs(a-b) <= r.opts.tolerance
}

func (r *run) pass(kind, concept string, value float64, desc string) {
	r.successes = append(r.successes, Finding{Kind: kind, Concept: concept, OK: true, Value: value, Description: desc})
}

func (r *run) fail(kind, concept string, reported, calculated float64, desc string) {
	r.discrepancies = append(r.discrepancies, Finding{
		Kind:        kind,
		Concept:     concept,
		Reported:    reported,
		Calculated:  calculated,
		Difference:  math.Abs(calculated - reported),
		Description: desc,
	})
}

// value reads a data cell from the numeric grid; text counts as 0.
func (r *run) value(row, col int) (float64, bool) {
	v, ok := r.num.ValueAt(row, col)
	return v.Num(), ok
}

// reported reads a subtotal or total cell, decoding a merge marker to the
// anchor value it stands for. Cells outside the bounds or holding
// non-numeric text are not readable.
func (r *run) reported(row, col int) (float64, bool) {
	if !r.num.Bounds.Contains(row, col) {
		return 0, false
	}
	v := numeric.Convert(r.marked.At(row, col).Resolve())
	if v.IsText() {
		r.log.Debug("unreadable reported cell", zap.Int("row", row), zap.Int("col", col), zap.String("text", v.String()))
		return 0, false
	}
	return v.Num(), true
}

func (r *run) inRows(c detect.ConceptRow) bool {
	return c.Row >= r.num.Bounds.RowStart && c.Row <= r.num.Bounds.RowEnd
}

func (r *run) label(c detect.ConceptRow) string {
	if c.Label != "" {
		return c.Label
	}
	return c.Key
}

func (r *run) checkSubtotals() {
	if len(r.st.SubtotalColumns) == 0 {
		r.log.Debug("no subtotal columns detected")
		return
	}
	for _, c := range r.st.ConceptRows {
		if c.NoSubtotal || !r.inRows(c) {
			continue
		}
		name := r.label(c)
		for _, g := range []struct{ gender, kind string }{
			{schema.Male, KindSubtotalH},
			{schema.Female, KindSubtotalM},
		} {
			var vals []float64
			var sum float64
			for _, dc := range r.st.Columns(g.gender) {
				if v, ok := r.value(c.Row, dc.Col); ok {
					vals = append(vals, v)
					sum += v
				}
			}
			for _, col := range r.st.Subtotals(g.gender) {
				rep, ok := r.reported(c.Row, col)
				if !ok {
					continue
				}
				if r.equal(sum, rep) {
					r.pass(g.kind, name, rep, fmt.Sprintf("Subtotal %s in %s: %s = %s", g.gender, name, join(vals), num(rep)))
					continue
				}
				r.fail(g.kind, name, rep, sum, fmt.Sprintf("Subtotal %s in %s: reported %s, calculated %s = %s",
					g.gender, name, num(rep), join(vals), num(sum)))
			}
		}
	}
}

// firstInRange returns the first column of cols inside the numeric bounds.
func (r *run) firstInRange(cols []int) (int, bool) {
	for _, c := range cols {
		if c >= r.num.Bounds.ColStart && c <= r.num.Bounds.ColEnd {
			return c, true
		}
	}
	return 0, false
}

func (r *run) checkTotals() {
	totalCol, ok := r.firstInRange(r.st.TotalColumns)
	if !ok {
		r.log.Debug("no total column detected")
		return
	}
	for _, c := range r.st.ConceptRows {
		if !r.inRows(c) {
			continue
		}
		reported, ok := r.reported(c.Row, totalCol)
		if !ok {
			continue
		}
		if c.NoSubtotal {
			r.checkDirectTotal(c, reported)
			continue
		}
		r.checkSubtotalTotal(c, reported)
	}
}

// checkDirectTotal validates a no-subtotal concept: the total is the sum of
// its positive data cells.
func (r *run) checkDirectTotal(c detect.ConceptRow, reported float64) {
	name := r.label(c)
	var vals []float64
	var sum float64
	for _, dc := range r.st.DataColumns {
		if v, ok := r.value(c.Row, dc.Col); ok && v > 0 {
			vals = append(vals, v)
			sum += v
		}
	}
	if r.equal(sum, reported) {
		r.pass(KindTotalGroups, name, reported, fmt.Sprintf("Total %s: %s = %s (direct sum)", name, join(vals), num(reported)))
		return
	}
	r.fail(KindTotalGroups, name, reported, sum, fmt.Sprintf("Total %s: reported %s, calculated %s = %s",
		name, num(reported), join(vals), num(sum)))
}

// checkSubtotalTotal validates total = subtotal H + subtotal M and cross-checks
// the subtotal path against the direct sum of data cells.
func (r *run) checkSubtotalTotal(c detect.ConceptRow, reported float64) {
	name := r.label(c)
	hCol, hok := r.firstInRange(r.st.Subtotals(schema.Male))
	mCol, mok := r.firstInRange(r.st.Subtotals(schema.Female))
	if !hok || !mok {
		found := func(col int, ok bool) string {
			if !ok {
				return "NOT FOUND"
			}
			v, _ := r.reported(c.Row, col)
			return num(v)
		}
		r.fail(KindMissingSubtotals, name, reported, 0, fmt.Sprintf("%s: subtotal H: %s, subtotal M: %s",
			name, found(hCol, hok), found(mCol, mok)))
		return
	}

	h, hok := r.reported(c.Row, hCol)
	m, mok := r.reported(c.Row, mCol)
	if !hok || !mok {
		return
	}
	calc := h + m

	var direct float64
	for _, dc := range r.st.DataColumns {
		if v, ok := r.value(c.Row, dc.Col); ok {
			direct += v
		}
	}
	internal := !r.equal(calc, direct)
	if internal {
		r.fail(KindInternal, name, calc, direct, fmt.Sprintf("%s: subtotals add up to %s but cells add up to %s",
			name, num(calc), num(direct)))
	}

	switch {
	case !r.equal(calc, reported):
		r.fail(KindTotal, name, reported, calc, fmt.Sprintf("Total %s: reported %s, calculated %s (H) + %s (M) = %s",
			name, num(reported), num(h), num(m), num(calc)))
	case internal:
		r.log.Debug("total matches subtotals but not cells", zap.String("concept", name))
	default:
		r.pass(KindTotal, name, reported, fmt.Sprintf("Total %s: %s (H) + %s (M) = %s", name, num(h), num(m), num(reported)))
	}
}

// checkRules evaluates every row coherence rule per data column.
func (r *run) checkRules() {
	for _, rule := range r.schema.Rules {
		rows := map[string]int{}
		missing := ""
		for _, key := range append([]string{rule.Target}, rule.Uses()...) {
			row, ok := r.st.Row(key)
			if !ok || row < r.num.Bounds.RowStart || row > r.num.Bounds.RowEnd {
				missing = key
				break
			}
			rows[key] = row
		}
		if missing != "" {
			r.log.Debug("rule skipped, concept row not found", zap.String("rule", rule.Name), zap.String("concept", missing))
			continue
		}
		for _, dc := range r.st.DataColumns {
			r.checkRuleColumn(rule, rows, dc)
		}
	}
}

func (r *run) checkRuleColumn(rule schema.Rule, rows map[string]int, dc detect.DataColumn) {
	values := make(map[string]float64, len(rows))
	for key, row := range rows {
		v, ok := r.value(row, dc.Col)
		if !ok {
			return
		}
		values[key] = v
	}
	calc, err := r.opts.eval.Eval(rule.Expr, values)
	if err != nil {
		r.log.Warn("rule evaluation failed", zap.String("rule", rule.Name), zap.Int("col", dc.Col), zap.Error(err))
		return
	}
	reported := values[rule.Target]
	concept := dc.Gender + "-" + dc.Grade
	if r.equal(calc, reported) {
		r.pass(rule.Kind, concept, reported, fmt.Sprintf("%s %s: %s = %s", rule.Target, concept, num(reported), rule.Expr))
		return
	}
	r.fail(rule.Kind, concept, reported, calc, fmt.Sprintf("%s %s: reported %s, calculated %s (%s)",
		rule.Target, concept, num(reported), num(calc), rule.Expr))
}
