// Package xlconsolidate reads school statistics workbooks, validates their
// internal arithmetic, sums them across files and writes the consolidated
// grid into a template.
//
// A Consolidator is bound to one mode. Unknown modes and invalid schema
// overrides surface on first use, before any workbook is opened:
//
//	c := xlconsolidate.NewConsolidator(xlconsolidate.WithMode("ZONAS"))
//	res, err := c.Consolidate([]string{"a.xlsx", "b.xlsx"}, "plantilla.xlsx", "salida.xlsx")
package xlconsolidate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/javajack/xlconsolidate/batch"
	"github.com/javajack/xlconsolidate/detect"
	"github.com/javajack/xlconsolidate/inject"
	"github.com/javajack/xlconsolidate/normalize"
	"github.com/javajack/xlconsolidate/numeric"
	"github.com/javajack/xlconsolidate/schema"
	"github.com/javajack/xlconsolidate/validate"
)

// ErrNoFiles is returned when a batch operation receives no usable file.
var ErrNoFiles = errors.New("no files processed")

// Consolidator runs the pipeline for one mode.
type Consolidator struct {
	opts *Options

	once  sync.Once
	err   error
	reg   *schema.Registry
	coord *batch.Coordinator
}

// NewConsolidator creates a Consolidator with the given options.
func NewConsolidator(opts ...Option) *Consolidator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Consolidator{opts: o}
}

func (c *Consolidator) init() error {
	c.once.Do(func() {
		c.reg = c.opts.registry
		if c.reg == nil {
			ro := []schema.Option{schema.WithLogger(c.opts.logger)}
			for _, data := range c.opts.overrides {
				ro = append(ro, schema.WithOverrides(data))
			}
			if c.reg, c.err = schema.NewRegistry(ro...); c.err != nil {
				return
			}
		}
		bo := []batch.Option{batch.WithLogger(c.opts.logger), batch.WithTolerance(c.opts.tolerance)}
		if c.opts.progress != nil {
			bo = append(bo, batch.WithProgress(c.opts.progress))
		}
		c.coord, c.err = batch.New(c.reg, c.opts.mode, bo...)
	})
	return c.err
}

// Mode returns the resolved mode configuration.
func (c *Consolidator) Mode() (schema.ModeConfig, error) {
	if err := c.init(); err != nil {
		return schema.ModeConfig{}, err
	}
	return c.coord.Mode(), nil
}

// Process extracts, marks, derives and validates the primary sheet of path.
func (c *Consolidator) Process(path string) (batch.FileResult, error) {
	if err := c.init(); err != nil {
		return batch.FileResult{}, err
	}
	return c.coord.ProcessFile(path)
}

// ProcessSheets processes every sheet of the mode in path and runs the
// cross-sheet checks.
func (c *Consolidator) ProcessSheets(path string) (batch.WorkbookResult, error) {
	if err := c.init(); err != nil {
		return batch.WorkbookResult{}, err
	}
	return c.coord.ProcessSheets(path)
}

// ProcessFiles processes paths as one batch.
func (c *Consolidator) ProcessFiles(paths []string) (*batch.Result, error) {
	if err := c.init(); err != nil {
		return nil, err
	}
	return c.coord.ProcessFiles(paths), nil
}

// Inject writes data into a copy of template saved as output.
func (c *Consolidator) Inject(data numeric.Grid, template, output string) (inject.Result, error) {
	if err := c.init(); err != nil {
		return inject.Result{}, err
	}
	in := inject.NewInjector(
		inject.WithLogger(c.opts.logger),
		inject.WithBackup(c.opts.backup),
		inject.WithClock(c.opts.now),
	)
	return in.Inject(inject.Request{
		Mode:     c.coord.Mode(),
		Schema:   c.coord.Schema(),
		Data:     data,
		Template: template,
		Output:   output,
	})
}

// ConsolidateResult is the outcome of Consolidate.
type ConsolidateResult struct {
	Batch  *batch.Result
	Inject inject.Result
}

// Consolidate processes paths, sums their grids and injects the sum into a
// copy of template. A single successful file is injected as is; failed files
// are skipped and reported in Batch.Failed.
func (c *Consolidator) Consolidate(paths []string, template, output string) (ConsolidateResult, error) {
	res, err := c.ProcessFiles(paths)
	if err != nil {
		return ConsolidateResult{}, err
	}
	out := ConsolidateResult{Batch: res}

	var data numeric.Grid
	switch len(res.Files) {
	case 0:
		return out, ErrNoFiles
	case 1:
		data = res.Files[0].Numeric.Grid
	default:
		if res.AggregateErr != nil {
			return out, res.AggregateErr
		}
		data = res.Aggregate
	}
	out.Inject, err = c.Inject(data, template, output)
	return out, err
}

// Records normalizes a processed file into movement records.
func (c *Consolidator) Records(res batch.FileResult, origin normalize.Origin) ([]normalize.Record, error) {
	if err := c.init(); err != nil {
		return nil, err
	}
	s := c.coord.Schema()
	st := res.Report.Structure
	if res.Report.State != validate.ReportReady {
		st = detect.Detect(res.Marked, s, detect.WithLogger(c.opts.logger))
	}
	if origin.Source == "" {
		origin.Source = res.Path
	}
	return normalize.Records(s, res.Numeric, st, origin), nil
}

// Store processes paths as one batch and hands the normalized records of
// every successful file to sink.
func (c *Consolidator) Store(ctx context.Context, sink normalize.Sink, paths []string) (*batch.Result, int, error) {
	res, err := c.ProcessFiles(paths)
	if err != nil {
		return nil, 0, err
	}
	if len(res.Files) == 0 {
		return res, 0, ErrNoFiles
	}
	var all []normalize.Record
	for _, f := range res.Files {
		recs, err := c.Records(f, normalize.Origin{RunID: res.RunID})
		if err != nil {
			return res, 0, err
		}
		all = append(all, recs...)
	}
	if err := sink.Save(ctx, all); err != nil {
		return res, 0, fmt.Errorf("save records: %w", err)
	}
	c.opts.logger.Info("records stored",
		zap.Stringer("run", res.RunID),
		zap.Int("files", len(res.Files)),
		zap.Int("records", len(all)))
	return res, len(all), nil
}

// Process runs the pipeline over the primary sheet of path.
func Process(path string, opts ...Option) (batch.FileResult, error) {
	return NewConsolidator(opts...).Process(path)
}

// Consolidate sums paths and injects the result into a copy of template.
func Consolidate(paths []string, template, output string, opts ...Option) (ConsolidateResult, error) {
	return NewConsolidator(opts...).Consolidate(paths, template, output)
}
