package validate

import (
	"fmt"
	"strings"

	"github.com/javajack/xlconsolidate/detect"
	"github.com/javajack/xlconsolidate/grid"
)

// Finding kinds.
const (
	KindSubtotalH        = "SUBTOTAL_H"
	KindSubtotalM        = "SUBTOTAL_M"
	KindTotal            = "TOTAL"
	KindTotalGroups      = "TOTAL_GRUPOS"
	KindInternal         = "DISCREPANCIA_INTERNA"
	KindMissingSubtotals = "SUBTOTALES_FALTANTES"
	KindExistence        = "COHERENCIA_EXISTENCIA"
	KindCrossSheet       = "COHERENCIA_CRUZADA"
)

// Finding is one validation outcome. Successes carry Value; discrepancies
// carry Reported, Calculated and their absolute Difference.
type Finding struct {
	Kind        string
	Concept     string
	OK          bool
	Value       float64
	Reported    float64
	Calculated  float64
	Difference  float64
	Description string
}

func (f Finding) String() string {
	if f.OK {
		return fmt.Sprintf("[OK] %s %s: %s", f.Kind, f.Concept, f.Description)
	}
	return fmt.Sprintf("[DISCREPANCY] %s %s: %s", f.Kind, f.Concept, f.Description)
}

// Report aggregates the findings of one validation run.
type Report struct {
	Discrepancies []Finding
	Successes     []Finding
	Structure     detect.Structure
	Summary       string
	State         State
}

// OK reports whether the run found no discrepancies.
func (r Report) OK() bool { return len(r.Discrepancies) == 0 }

// Checks returns the number of checks performed.
func (r Report) Checks() int { return len(r.Discrepancies) + len(r.Successes) }

// Count returns how many discrepancies of kind were found.
func (r Report) Count(kind string) int {
	n := 0
	for _, f := range r.Discrepancies {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Passed returns how many successes of kind were recorded.
func (r Report) Passed(kind string) int {
	n := 0
	for _, f := range r.Successes {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Summarize renders the multi-line summary: counts, successes grouped by
// kind, and discrepancies grouped by kind with at most two examples each.
func Summarize(discrepancies, successes []Finding) string {
	total := len(discrepancies) + len(successes)
	if total == 0 {
		return "No checks could be performed"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "AUDIT: %d checks performed\n", total)
	fmt.Fprintf(&b, "Passed: %d\n", len(successes))
	fmt.Fprintf(&b, "Discrepancies: %d\n", len(discrepancies))

	if len(successes) > 0 {
		b.WriteString("\nPASSED CHECKS:\n")
		for _, g := range groupByKind(successes) {
			fmt.Fprintf(&b, "   %s: %d passed\n", g.kind, len(g.items))
		}
	}
	if len(discrepancies) > 0 {
		b.WriteString("\nDISCREPANCIES FOUND:\n")
		for _, g := range groupByKind(discrepancies) {
			fmt.Fprintf(&b, "   %s: %d cases\n", g.kind, len(g.items))
			for _, f := range g.items[:min(2, len(g.items))] {
				fmt.Fprintf(&b, "      - %s\n", f.Description)
			}
			if len(g.items) > 2 {
				fmt.Fprintf(&b, "      - ... and %d more\n", len(g.items)-2)
			}
		}
	}
	return b.String()
}

type kindGroup struct {
	kind  string
	items []Finding
}

// groupByKind groups findings by kind in order of first appearance.
func groupByKind(findings []Finding) []kindGroup {
	var groups []kindGroup
	idx := map[string]int{}
	for _, f := range findings {
		i, ok := idx[f.Kind]
		if !ok {
			i = len(groups)
			idx[f.Kind] = i
			groups = append(groups, kindGroup{kind: f.Kind})
		}
		groups[i].items = append(groups[i].items, f)
	}
	return groups
}

func num(f float64) string { return grid.FormatNumber(f) }

func join(vals []float64) string {
	if len(vals) == 0 {
		return "0"
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = num(v)
	}
	return strings.Join(parts, " + ")
}
