package schema

import (
	"errors"
	"fmt"
)

// ErrUnknown is wrapped by ConfigurationError when a mode or schema name is not registered.
var ErrUnknown = errors.New("not registered")

// ConfigurationError reports an unknown mode/schema or an invalid declaration.
// It is fatal for a run and raised before any workbook I/O.
type ConfigurationError struct {
	Mode   string
	Schema string
	Err    error
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Mode != "" && e.Schema != "":
		return fmt.Sprintf("configuration: mode %q schema %q: %v", e.Mode, e.Schema, e.Err)
	case e.Mode != "":
		return fmt.Sprintf("configuration: mode %q: %v", e.Mode, e.Err)
	default:
		return fmt.Sprintf("configuration: schema %q: %v", e.Schema, e.Err)
	}
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
