package extract

import (
	"fmt"
	"strings"
)

// SourceAccessError reports a workbook that could not be opened or read.
// It is fatal for one file; batch processing records it and continues.
type SourceAccessError struct {
	Path string
	Op   string
	Err  error
}

func (e *SourceAccessError) Error() string {
	path := e.Path
	if path == "" {
		path = "<reader>"
	}
	return fmt.Sprintf("%s %s: %v", e.Op, path, e.Err)
}

func (e *SourceAccessError) Unwrap() error {
	return e.Err
}

// SheetNotFoundError reports a sheet name absent from the workbook.
type SheetNotFoundError struct {
	Sheet     string
	Available []string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("sheet %q not found (available: %s)", e.Sheet, strings.Join(e.Available, ", "))
}
