package inject

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/javajack/xlconsolidate/extract"
	"github.com/javajack/xlconsolidate/numeric"
	"github.com/javajack/xlconsolidate/schema"
)

// ErrNothingToWrite is returned when the mapped grid holds no non-zero value.
var ErrNothingToWrite = errors.New("nothing to write")

// Request describes one template injection.
type Request struct {
	Mode     schema.ModeConfig
	Schema   *schema.Schema // target schema; nil falls back to the mode's injection range
	Data     numeric.Grid
	Template string
	Output   string
}

// Result reports a completed injection.
type Result struct {
	Output      string
	Sheet       string
	Backup      string // empty unless backups are enabled
	Destination Destination
	Coverage    Coverage
	Write       WriteResult
	Stats       Summary
}

// Injector copies a template and fills it with a consolidated grid.
type Injector struct {
	opts   *options
	writer *Writer
}

// NewInjector creates an Injector.
func NewInjector(opts ...Option) *Injector {
	o := newOptions(opts)
	return &Injector{opts: o, writer: &Writer{log: o.logger}}
}

// Inject validates the template and data, maps the grid, optionally backs up
// the template, copies it to req.Output and writes the entries there. The
// template itself is never modified.
func (in *Injector) Inject(req Request) (Result, error) {
	log := in.opts.logger.With(zap.String("template", req.Template), zap.String("output", req.Output))

	if err := extract.CheckFile(req.Template); err != nil {
		return Result{}, fmt.Errorf("template: %w", err)
	}
	cov, err := CheckMappable(req.Data, req.Mode.Mode)
	if err != nil {
		return Result{Coverage: cov}, err
	}
	dest, sheet, err := Resolve(req.Mode, req.Schema)
	if err != nil {
		return Result{Coverage: cov}, err
	}
	entries := Map(req.Data, dest)
	if len(entries) == 0 {
		return Result{Coverage: cov, Destination: dest, Sheet: sheet}, ErrNothingToWrite
	}

	res := Result{Output: req.Output, Sheet: sheet, Destination: dest, Coverage: cov}
	if in.opts.backup {
		if res.Backup, err = Backup(req.Template, in.opts.now()); err != nil {
			return res, err
		}
		log.Info("template backed up", zap.String("backup", res.Backup))
	}
	if err := copyFile(req.Template, req.Output); err != nil {
		return res, err
	}

	res.Write, err = in.writer.Write(req.Output, sheet, entries)
	if err != nil {
		return res, err
	}
	res.Stats = Stats(entries)
	log.Info("injection done",
		zap.String("sheet", sheet),
		zap.Stringer("destination", dest),
		zap.Int("mapped", len(entries)),
		zap.Int("written", res.Write.Written),
		zap.Int("skipped", res.Write.Skipped))
	return res, nil
}
