package xlconsolidate

import (
	"fmt"
	"strings"

	"github.com/javajack/xlconsolidate/batch"
	"github.com/javajack/xlconsolidate/extract"
)

// Describe processes a workbook and returns a human-readable outline of
// every sheet of the mode: range, merges, detected structure and validation
// outcome. Useful for debugging unfamiliar workbooks.
func Describe(path string, opts ...Option) (string, error) {
	return NewConsolidator(opts...).Describe(path)
}

// Describe is the method form of the package-level Describe.
func (c *Consolidator) Describe(path string) (string, error) {
	mc, err := c.Mode()
	if err != nil {
		return "", err
	}
	sheets, err := extract.ListSheets(path)
	if err != nil {
		return "", err
	}
	wr, err := c.ProcessSheets(path)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Workbook: %s\n", path)
	fmt.Fprintf(&b, "Mode: %s\n", mc)
	fmt.Fprintf(&b, "Sheets: %s\n", strings.Join(sheets, ", "))
	for _, s := range wr.Sheets {
		describeSheet(&b, s)
	}
	if len(wr.Report.Cross) > 0 {
		b.WriteString("Cross-sheet:\n")
		for _, f := range wr.Report.Cross {
			mark := "ok"
			if !f.OK {
				mark = "FAIL"
			}
			fmt.Fprintf(&b, "  [%s] %s\n", mark, f.Description)
		}
	}
	return b.String(), nil
}

func describeSheet(b *strings.Builder, s batch.SheetResult) {
	if s.Err != nil {
		fmt.Fprintf(b, "%s\n  error: %v\n", s.Schema, s.Err)
		return
	}
	fmt.Fprintf(b, "%s %s %s\n", s.Schema, s.Range, s.Range.Size())
	fmt.Fprintf(b, "  merged regions: %d\n", len(s.Merges))
	fmt.Fprintf(b, "  %s %s\n", s.Numeric.Grid, s.Numeric.Grid.Shape())
	for _, line := range strings.Split(strings.TrimRight(s.Report.Structure.Describe(), "\n"), "\n") {
		fmt.Fprintf(b, "  %s\n", line)
	}
	fmt.Fprintf(b, "  validation: %s, %d checks, %d discrepancies\n",
		s.Report.State, s.Report.Checks(), len(s.Report.Discrepancies))
}
