// Package batch runs the extraction pipeline over one or more workbooks and
// aggregates their numeric grids.
package batch

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/javajack/xlconsolidate/extract"
	"github.com/javajack/xlconsolidate/grid"
	"github.com/javajack/xlconsolidate/marker"
	"github.com/javajack/xlconsolidate/numeric"
	"github.com/javajack/xlconsolidate/schema"
	"github.com/javajack/xlconsolidate/validate"
)

// ErrNotInBatch is returned by Result.Remove for an unknown path.
var ErrNotInBatch = errors.New("file not in batch")

// Progress is called after each file of a batch, successful or not.
// It observes the batch and must not alter it.
type Progress func(done, total int, path string)

type options struct {
	logger    *zap.Logger
	progress  Progress
	tolerance float64
}

// Option configures a Coordinator.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProgress sets the per-file progress callback.
func WithProgress(p Progress) Option {
	return func(o *options) { o.progress = p }
}

// WithTolerance sets the validation tolerance.
func WithTolerance(t float64) Option {
	return func(o *options) { o.tolerance = t }
}

// Coordinator processes workbooks for one mode.
type Coordinator struct {
	mode   schema.ModeConfig
	schema *schema.Schema
	extra  []*schema.Schema
	eval   *schema.Evaluator
	opts   *options
	log    *zap.Logger
}

// New resolves mode against the registry. Unknown modes fail here, before any
// workbook is opened.
func New(reg *schema.Registry, mode string, opts ...Option) (*Coordinator, error) {
	o := &options{logger: zap.NewNop(), tolerance: validate.DefaultTolerance}
	for _, opt := range opts {
		opt(o)
	}
	mc, s, err := reg.Mode(mode)
	if err != nil {
		return nil, err
	}
	c := &Coordinator{mode: mc, schema: s, eval: reg.Evaluator(), opts: o,
		log: o.logger.With(zap.String("mode", string(mc.Mode)))}
	for _, name := range mc.Extra {
		x, err := reg.Schema(name)
		if err != nil {
			return nil, err
		}
		c.extra = append(c.extra, x)
	}
	return c, nil
}

// Mode returns the resolved mode configuration.
func (c *Coordinator) Mode() schema.ModeConfig { return c.mode }

// Schema returns the primary schema.
func (c *Coordinator) Schema() *schema.Schema { return c.schema }

func (c *Coordinator) validator(s *schema.Schema) *validate.Validator {
	return validate.New(s, c.validateOptions()...)
}

func (c *Coordinator) validateOptions() []validate.Option {
	return []validate.Option{
		validate.WithTolerance(c.opts.tolerance),
		validate.WithLogger(c.log),
		validate.WithEvaluator(c.eval),
	}
}

// FileResult is everything the pipeline derives from one sheet.
type FileResult struct {
	Path    string
	Sheet   string
	Range   grid.RangeRef
	Merges  []grid.Region
	Marked  grid.Grid
	Display grid.Grid
	Numeric numeric.Result
	Report  validate.Report
}

// Trace returns the positional trace of the numeric derivation.
func (r FileResult) Trace() numeric.Trace { return r.Numeric.Trace }

// ProcessFile runs extract, mark, display, derive and validate over the
// primary sheet of path. Validation is skipped for modes without full
// validation and the report is left in the Idle state.
func (c *Coordinator) ProcessFile(path string) (FileResult, error) {
	wb, err := extract.Open(path)
	if err != nil {
		return FileResult{}, err
	}
	defer wb.Close()

	res, err := c.processSheet(wb, c.schema)
	if err != nil {
		return res, err
	}
	if c.mode.FullValidation {
		res.Report = c.validator(c.schema).Run(res.Marked, res.Numeric)
	}
	c.log.Info("file processed",
		zap.String("file", path),
		zap.String("sheet", res.Sheet),
		zap.Stringer("numeric", res.Numeric.Grid),
		zap.Int("discrepancies", len(res.Report.Discrepancies)))
	return res, nil
}

func (c *Coordinator) processSheet(wb *extract.Workbook, s *schema.Schema) (FileResult, error) {
	rng, err := s.Range()
	if err != nil {
		return FileResult{}, err
	}
	ext, err := wb.Extract(s.Sheet, rng)
	if err != nil {
		return FileResult{}, err
	}
	marked := marker.Mark(ext.Grid, ext.Merges)
	num, err := numeric.Derive(marked, s.NumericRange)
	if err != nil {
		return FileResult{}, fmt.Errorf("%s!%s: %w", ext.Sheet, rng, err)
	}
	return FileResult{
		Path:    wb.Path(),
		Sheet:   ext.Sheet,
		Range:   ext.Range,
		Merges:  ext.Merges,
		Marked:  marked,
		Display: marker.Display(marked),
		Numeric: num,
	}, nil
}

// SheetResult is one sheet of a multi-sheet run. Err is set when the sheet
// could not be processed; the other sheets are still validated.
type SheetResult struct {
	Schema string
	FileResult
	Err error
}

// WorkbookResult is the outcome of ProcessSheets.
type WorkbookResult struct {
	Path   string
	Sheets []SheetResult
	Report validate.MultiReport
}

// Sheet returns the result for a schema name.
func (w WorkbookResult) Sheet(schemaName string) (SheetResult, bool) {
	for _, s := range w.Sheets {
		if s.Schema == schemaName {
			return s, true
		}
	}
	return SheetResult{}, false
}

// ProcessSheets processes the primary and extra sheets of the mode in one
// workbook, then validates them together including cross-sheet checks.
// Modes without full validation leave every report Idle. Only a workbook
// that cannot be opened is an error.
func (c *Coordinator) ProcessSheets(path string) (WorkbookResult, error) {
	wb, err := extract.Open(path)
	if err != nil {
		return WorkbookResult{}, err
	}
	defer wb.Close()

	out := WorkbookResult{Path: path}
	var inputs []validate.SheetInput
	for _, s := range append([]*schema.Schema{c.schema}, c.extra...) {
		res, err := c.processSheet(wb, s)
		out.Sheets = append(out.Sheets, SheetResult{Schema: s.Name, FileResult: res, Err: err})
		if err != nil {
			c.log.Warn("sheet failed", zap.String("file", path), zap.String("schema", s.Name), zap.Error(err))
			continue
		}
		inputs = append(inputs, validate.SheetInput{Schema: s, Marked: res.Marked, Numeric: res.Numeric})
	}
	if !c.mode.FullValidation {
		out.Report = validate.MultiReport{Summary: fmt.Sprintf("No checks performed: mode %s sums without validation", c.mode.Mode)}
		return out, nil
	}
	out.Report = validate.RunSheets(inputs, c.mode.CrossChecks, c.validateOptions()...)
	for i := range out.Sheets {
		if rep, ok := out.Report.Reports[out.Sheets[i].Schema]; ok {
			out.Sheets[i].Report = rep
		}
	}
	return out, nil
}

// FileError records a file that failed in a batch.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e FileError) Unwrap() error { return e.Err }

// Result is the outcome of a batch. Aggregate is set when at least two files
// succeeded; AggregateErr explains why it is missing otherwise.
type Result struct {
	RunID        uuid.UUID
	Files        []FileResult
	Failed       []FileError
	Aggregate    numeric.Grid
	AggregateErr error
}

// Grids returns the numeric grids of the successful files in order.
func (r *Result) Grids() []numeric.Grid {
	out := make([]numeric.Grid, len(r.Files))
	for i, f := range r.Files {
		out[i] = f.Numeric.Grid
	}
	return out
}

// Remove drops path from the batch and recomputes the aggregate.
func (r *Result) Remove(path string) error {
	for i, f := range r.Files {
		if f.Path == path {
			r.Files = append(r.Files[:i:i], r.Files[i+1:]...)
			r.aggregate()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotInBatch, path)
}

func (r *Result) aggregate() {
	r.Aggregate, r.AggregateErr = Aggregate(r.Grids())
}

// ProcessFiles processes paths one after another. A failing file is recorded
// and the batch continues.
func (c *Coordinator) ProcessFiles(paths []string) *Result {
	res := &Result{RunID: uuid.New()}
	log := c.log.With(zap.Stringer("run", res.RunID))
	for i, p := range paths {
		fr, err := c.ProcessFile(p)
		if err != nil {
			log.Warn("file failed", zap.String("file", p), zap.Error(err))
			res.Failed = append(res.Failed, FileError{Path: p, Err: err})
		} else {
			res.Files = append(res.Files, fr)
		}
		if c.opts.progress != nil {
			c.opts.progress(i+1, len(paths), p)
		}
	}
	res.aggregate()
	log.Info("batch done",
		zap.Int("files", len(res.Files)),
		zap.Int("failed", len(res.Failed)),
		zap.Bool("aggregated", res.AggregateErr == nil))
	return res
}
