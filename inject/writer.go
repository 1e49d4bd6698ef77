package inject

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/javajack/xlconsolidate/extract"
	"github.com/javajack/xlconsolidate/grid"
)

type options struct {
	logger *zap.Logger
	backup bool
	now    func() time.Time
}

// Option configures a Writer or an Injector.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBackup copies the template aside before injecting (default off).
func WithBackup(on bool) Option {
	return func(o *options) { o.backup = on }
}

// WithClock overrides the time source used for backup names.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) *options {
	o := &options{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WriteResult reports what a write did. Skipped counts entries that targeted
// non-anchor cells of merged regions.
type WriteResult struct {
	OK      bool
	Written int
	Skipped int
}

// Writer writes mapped entries into existing workbooks.
type Writer struct {
	log *zap.Logger
}

// NewWriter creates a Writer.
func NewWriter(opts ...Option) *Writer {
	return &Writer{log: newOptions(opts).logger}
}

// Write opens the workbook at path, writes entries on sheet and saves it in
// place. Failures leave OK false and are returned as *extract.SourceAccessError.
func (w *Writer) Write(path, sheet string, entries []Entry) (WriteResult, error) {
	if err := CheckWritable(path); err != nil {
		return WriteResult{}, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return WriteResult{}, &extract.SourceAccessError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	res, err := w.WriteFile(f, sheet, entries)
	if err != nil {
		return res, err
	}
	if err := f.Save(); err != nil {
		return WriteResult{Written: res.Written, Skipped: res.Skipped}, &extract.SourceAccessError{Path: path, Op: "save", Err: err}
	}
	w.log.Info("injection written",
		zap.String("file", path),
		zap.String("sheet", sheet),
		zap.Int("written", res.Written),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// WriteFile writes entries on sheet of an open workbook without saving it.
// A cell inside a merged region is written only when it is the region's
// anchor; cell styles are preserved.
func (w *Writer) WriteFile(f *excelize.File, sheet string, entries []Entry) (WriteResult, error) {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return WriteResult{}, &extract.SourceAccessError{Path: f.Path, Op: "write",
			Err: &extract.SheetNotFoundError{Sheet: sheet, Available: f.GetSheetList()}}
	}
	regions, err := extract.NewWorkbook(f).MergedRegions(sheet)
	if err != nil {
		return WriteResult{}, err
	}
	owner := ownerMap(regions)

	var res WriteResult
	for _, e := range entries {
		if r, ok := owner[cellKey{e.Row, e.Col}]; ok && !r.IsAnchor(e.Row, e.Col) {
			w.log.Debug("skipping non-anchor merged cell", zap.String("cell", e.Cell()), zap.Stringer("region", r))
			res.Skipped++
			continue
		}
		if err := setPreservingStyle(f, sheet, e); err != nil {
			return res, &extract.SourceAccessError{Path: f.Path, Op: "write " + e.Cell(), Err: err}
		}
		res.Written++
	}
	res.OK = true
	return res, nil
}

type cellKey struct{ row, col int }

// ownerMap indexes every cell of every region to the region owning it.
func ownerMap(regions []grid.Region) map[cellKey]grid.Region {
	m := make(map[cellKey]grid.Region)
	for _, r := range regions {
		for row := r.MinRow; row <= r.MaxRow; row++ {
			for col := r.MinCol; col <= r.MaxCol; col++ {
				m[cellKey{row, col}] = r
			}
		}
	}
	return m
}

func setPreservingStyle(f *excelize.File, sheet string, e Entry) error {
	cell := e.Cell()
	styleID, _ := f.GetCellStyle(sheet, cell)
	var v any
	switch {
	case e.Value.IsText():
		v = e.Value.String()
	case e.Value.IsInt():
		v = int64(e.Value.Num())
	default:
		v = e.Value.Num()
	}
	if err := f.SetCellValue(sheet, cell, v); err != nil {
		return err
	}
	if styleID > 0 {
		return f.SetCellStyle(sheet, cell, cell, styleID)
	}
	return nil
}

// CheckWritable verifies that path is an existing workbook the process may
// write to.
func CheckWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &extract.SourceAccessError{Path: path, Op: "check writable", Err: err}
	}
	if info.IsDir() {
		return &extract.SourceAccessError{Path: path, Op: "check writable", Err: fmt.Errorf("is a directory")}
	}
	fh, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return &extract.SourceAccessError{Path: path, Op: "check writable", Err: err}
	}
	fh.Close()
	return extract.CheckFile(path)
}

// BackupName returns "<name>_backup_YYYYmmdd_HHMMSS<ext>" next to path.
func BackupName(path string, now time.Time) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_backup_" + now.Format("20060102_150405") + ext
}

// Backup copies path to BackupName(path, now) and returns the new path.
func Backup(path string, now time.Time) (string, error) {
	dst := BackupName(path, now)
	if err := copyFile(path, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// copyFile copies src to dst, keeping the permission bits and modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return &extract.SourceAccessError{Path: src, Op: "copy", Err: err}
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return &extract.SourceAccessError{Path: src, Op: "copy", Err: err}
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return &extract.SourceAccessError{Path: dst, Op: "copy", Err: err}
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return &extract.SourceAccessError{Path: dst, Op: "copy", Err: err}
	}
	if err := out.Close(); err != nil {
		return &extract.SourceAccessError{Path: dst, Op: "copy", Err: err}
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// SheetInfo describes one sheet of a destination workbook.
type SheetInfo struct {
	Name   string
	MaxRow int
	MaxCol int
	Merged int
}

// Info reads the used dimensions and merged region count of a sheet.
func Info(path, sheet string) (SheetInfo, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return SheetInfo{}, &extract.SourceAccessError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return SheetInfo{}, &extract.SourceAccessError{Path: path, Op: "info",
			Err: &extract.SheetNotFoundError{Sheet: sheet, Available: f.GetSheetList()}}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return SheetInfo{}, &extract.SourceAccessError{Path: path, Op: "read rows", Err: err}
	}
	merged, err := f.GetMergeCells(sheet)
	if err != nil {
		return SheetInfo{}, &extract.SourceAccessError{Path: path, Op: "read merged cells", Err: err}
	}
	info := SheetInfo{Name: sheet, Merged: len(merged)}
	for r, row := range rows {
		for c, v := range row {
			if v != "" {
				info.MaxRow = max(info.MaxRow, r+1)
				info.MaxCol = max(info.MaxCol, c+1)
			}
		}
	}
	return info, nil
}
