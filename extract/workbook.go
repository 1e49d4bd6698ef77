package extract

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/javajack/xlconsolidate/grid"
)

// Extraction is a raw grid read from a sheet range plus the merged regions
// intersecting it, clipped to the range and in 0-based range-local coordinates.
type Extraction struct {
	Sheet  string
	Range  grid.RangeRef
	Grid   grid.Grid
	Merges []grid.Region
}

// Workbook is a read handle over a spreadsheet file.
type Workbook struct {
	file *excelize.File
	path string
}

// Open opens an xlsx file for extraction.
func Open(path string) (*Workbook, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &SourceAccessError{Path: path, Op: "open", Err: err}
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &SourceAccessError{Path: path, Op: "open", Err: err}
	}
	return &Workbook{file: f, path: path}, nil
}

// OpenReader reads a workbook from r.
func OpenReader(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &SourceAccessError{Op: "open", Err: err}
	}
	return &Workbook{file: f}, nil
}

// NewWorkbook wraps an already open excelize file. Close closes f.
func NewWorkbook(f *excelize.File) *Workbook {
	return &Workbook{file: f, path: f.Path}
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// Path returns the file path, empty for reader-backed workbooks.
func (w *Workbook) Path() string { return w.path }

// Sheets lists sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return w.file.GetSheetList()
}

// HasSheet reports whether the workbook has a sheet with the given name,
// compared case-insensitively.
func (w *Workbook) HasSheet(name string) bool {
	_, ok := w.resolve(name)
	return ok
}

func (w *Workbook) resolve(name string) (string, bool) {
	for _, s := range w.file.GetSheetList() {
		if s == name {
			return s, true
		}
	}
	for _, s := range w.file.GetSheetList() {
		if strings.EqualFold(s, name) {
			return s, true
		}
	}
	return "", false
}

// ExtractRange is Extract with an A1 range such as "A5:Z17".
func (w *Workbook) ExtractRange(sheet, a1 string) (Extraction, error) {
	rng, err := grid.ParseRange(a1)
	if err != nil {
		return Extraction{}, err
	}
	return w.Extract(sheet, rng)
}

// Extract reads rng from sheet. The grid always has the full range size;
// cells with no stored value are Blank.
func (w *Workbook) Extract(sheet string, rng grid.RangeRef) (Extraction, error) {
	if err := rng.Check(); err != nil {
		return Extraction{}, err
	}
	name, ok := w.resolve(sheet)
	if !ok {
		return Extraction{}, &SourceAccessError{
			Path: w.path,
			Op:   "extract",
			Err:  &SheetNotFoundError{Sheet: sheet, Available: w.Sheets()},
		}
	}

	rows, err := w.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return Extraction{}, &SourceAccessError{Path: w.path, Op: "read rows", Err: err}
	}

	size := rng.Size()
	b := grid.NewBuilder(size.Height, size.Width)
	for r := 0; r < size.Height; r++ {
		srcRow := rng.First.Row - 1 + r
		if srcRow >= len(rows) {
			break
		}
		row := rows[srcRow]
		for c := 0; c < size.Width; c++ {
			srcCol := rng.First.Col - 1 + c
			if srcCol >= len(row) || row[srcCol] == "" {
				continue
			}
			cell, err := w.decode(name, srcRow+1, srcCol+1, row[srcCol])
			if err != nil {
				return Extraction{}, &SourceAccessError{Path: w.path, Op: "read cell", Err: err}
			}
			b.Set(r, c, cell)
		}
	}

	merges, err := w.merges(name, rng)
	if err != nil {
		return Extraction{}, err
	}
	rng.First.Sheet, rng.Last.Sheet = name, name
	return Extraction{Sheet: name, Range: rng, Grid: b.Grid(), Merges: merges}, nil
}

// decode types a raw cell value: stored numbers become Number cells, every
// string-like storage type stays Text even when it looks numeric.
func (w *Workbook) decode(sheet string, row, col int, raw string) (grid.Cell, error) {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return grid.Blank, err
	}
	typ, err := w.file.GetCellType(sheet, name)
	if err != nil {
		return grid.Blank, fmt.Errorf("cell %s!%s: %w", sheet, name, err)
	}
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		return grid.ParseValue(strings.TrimSpace(raw)), nil
	default:
		return grid.NewText(raw), nil
	}
}

// merges returns the merged regions intersecting rng, clipped and translated
// to range-local 0-based coordinates, ordered by anchor position.
func (w *Workbook) merges(sheet string, rng grid.RangeRef) ([]grid.Region, error) {
	mcs, err := w.file.GetMergeCells(sheet, true)
	if err != nil {
		return nil, &SourceAccessError{Path: w.path, Op: "read merged cells", Err: err}
	}
	bounds := rng.Region()
	var out []grid.Region
	for _, mc := range mcs {
		region, err := grid.ParseRegion(mc.GetStartAxis() + ":" + mc.GetEndAxis())
		if err != nil {
			return nil, err
		}
		clipped, ok := region.Intersect(bounds)
		if !ok {
			continue
		}
		out = append(out, clipped.Translate(-rng.First.Row, -rng.First.Col))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MinRow != out[j].MinRow {
			return out[i].MinRow < out[j].MinRow
		}
		return out[i].MinCol < out[j].MinCol
	})
	return out, nil
}

// MergedRegions returns every merged region of sheet in 1-based sheet coordinates.
func (w *Workbook) MergedRegions(sheet string) ([]grid.Region, error) {
	name, ok := w.resolve(sheet)
	if !ok {
		return nil, &SourceAccessError{Path: w.path, Op: "read merged cells",
			Err: &SheetNotFoundError{Sheet: sheet, Available: w.Sheets()}}
	}
	all := grid.RangeRef{First: grid.CellRef{Row: 1, Col: 1}, Last: grid.CellRef{Row: grid.MaxRows, Col: grid.MaxColumns}}
	local, err := w.merges(name, all)
	if err != nil {
		return nil, err
	}
	for i := range local {
		local[i] = local[i].Translate(1, 1)
	}
	return local, nil
}

// ExtractFile opens path, extracts one range and closes the file.
func ExtractFile(path, sheet, a1 string) (Extraction, error) {
	w, err := Open(path)
	if err != nil {
		return Extraction{}, err
	}
	defer w.Close()
	return w.ExtractRange(sheet, a1)
}

// ListSheets returns the sheet names of the workbook at path.
func ListSheets(path string) ([]string, error) {
	w, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer w.Close()
	return w.Sheets(), nil
}

// ErrNoSheets is wrapped by CheckFile for workbooks without sheets.
var ErrNoSheets = errors.New("workbook has no sheets")

// CheckFile verifies that path opens as a workbook with at least one sheet.
func CheckFile(path string) error {
	sheets, err := ListSheets(path)
	if err != nil {
		return err
	}
	if len(sheets) == 0 {
		return &SourceAccessError{Path: path, Op: "check", Err: ErrNoSheets}
	}
	return nil
}
