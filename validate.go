package xlconsolidate

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/javajack/xlconsolidate/extract"
	"github.com/javajack/xlconsolidate/grid"
	"github.com/javajack/xlconsolidate/inject"
)

// Severity indicates the severity of a template issue.
type Severity int

const (
	SeverityError   Severity = iota // Injection will fail
	SeverityWarning                 // Injection may produce unexpected results
)

// TemplateIssue is a single problem found in an injection template.
type TemplateIssue struct {
	Severity Severity
	Cell     string // "ZONA 3!Y6", or the sheet name alone
	Message  string
}

// String formats the issue as "[ERROR] ESC2: message" or "[WARN] ...".
func (v TemplateIssue) String() string {
	sev := "ERROR"
	if v.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s: %s", sev, v.Cell, v.Message)
}

// ValidateTemplate checks an injection template against the mode without
// writing anything. A non-nil error means the template could not be opened
// or the mode has no injection destination.
func ValidateTemplate(template string, opts ...Option) ([]TemplateIssue, error) {
	return NewConsolidator(opts...).ValidateTemplate(template)
}

// ValidateTemplate reports a missing destination sheet as an error, and
// merged non-anchor cells, values and formulas inside the destination block
// as warnings.
func (c *Consolidator) ValidateTemplate(template string) ([]TemplateIssue, error) {
	if err := c.init(); err != nil {
		return nil, err
	}
	dest, sheet, err := inject.Resolve(c.coord.Mode(), c.coord.Schema())
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(template)
	if err != nil {
		return nil, &extract.SourceAccessError{Path: template, Op: "open", Err: err}
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return []TemplateIssue{{
			Severity: SeverityError,
			Cell:     sheet,
			Message:  fmt.Sprintf("destination sheet not found (available: %v)", f.GetSheetList()),
		}}, nil
	}

	block := grid.Region{
		MinRow: dest.RowStart,
		MinCol: dest.ColStart,
		MaxRow: dest.RowStart + c.coord.Schema().NumericRange.Rows() - 1,
		MaxCol: dest.ColEnd,
	}
	var issues []TemplateIssue
	issues = append(issues, c.validateMerges(f, template, sheet, block)...)
	issues = append(issues, validateContent(f, sheet, block)...)
	return issues, nil
}

// validateMerges warns about merged regions whose non-anchor cells fall in block.
func (c *Consolidator) validateMerges(f *excelize.File, path, sheet string, block grid.Region) []TemplateIssue {
	wb := extract.NewWorkbook(f)
	regions, err := wb.MergedRegions(sheet)
	if err != nil {
		return []TemplateIssue{{Severity: SeverityError, Cell: sheet, Message: err.Error()}}
	}
	var issues []TemplateIssue
	for _, r := range regions {
		in, ok := r.Intersect(block)
		if !ok {
			continue
		}
		covered := in.Cells()
		if block.Contains(r.MinRow, r.MinCol) {
			covered--
		}
		if covered == 0 {
			continue
		}
		issues = append(issues, TemplateIssue{
			Severity: SeverityWarning,
			Cell:     sheet + "!" + a1(r),
			Message:  fmt.Sprintf("merged region hides %d destination cells; only its anchor is written", covered),
		})
	}
	c.opts.logger.Debug("template merges checked",
		zap.String("template", path),
		zap.String("sheet", sheet),
		zap.Int("merged", len(regions)))
	return issues
}

// validateContent warns about formulas and values the injection would overwrite.
func validateContent(f *excelize.File, sheet string, block grid.Region) []TemplateIssue {
	var issues []TemplateIssue
	for r := block.MinRow; r <= block.MaxRow; r++ {
		for col := block.MinCol; col <= block.MaxCol; col++ {
			name := grid.CellRef{Row: r, Col: col}.CellName()
			if formula, _ := f.GetCellFormula(sheet, name); formula != "" {
				issues = append(issues, TemplateIssue{
					Severity: SeverityWarning,
					Cell:     sheet + "!" + name,
					Message:  fmt.Sprintf("formula =%s would be replaced by a value", formula),
				})
				continue
			}
			if v, _ := f.GetCellValue(sheet, name); v != "" {
				issues = append(issues, TemplateIssue{
					Severity: SeverityWarning,
					Cell:     sheet + "!" + name,
					Message:  fmt.Sprintf("cell already holds %q", v),
				})
			}
		}
	}
	return issues
}

func a1(r grid.Region) string {
	return grid.CellRef{Row: r.MinRow, Col: r.MinCol}.CellName() + ":" + grid.CellRef{Row: r.MaxRow, Col: r.MaxCol}.CellName()
}
