package xlconsolidate

import (
	"time"

	"go.uber.org/zap"

	"github.com/javajack/xlconsolidate/batch"
	"github.com/javajack/xlconsolidate/schema"
	"github.com/javajack/xlconsolidate/validate"
)

// Options holds configuration for the Consolidator.
type Options struct {
	mode      string
	tolerance float64
	logger    *zap.Logger
	overrides [][]byte
	registry  *schema.Registry
	backup    bool
	now       func() time.Time
	progress  batch.Progress
}

func defaultOptions() *Options {
	return &Options{
		mode:      string(schema.Schools),
		tolerance: validate.DefaultTolerance,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
}

// Option configures the Consolidator.
type Option func(*Options)

// WithMode sets the operating mode (default: SCHOOLS). Spanish aliases are accepted.
func WithMode(mode string) Option {
	return func(o *Options) { o.mode = mode }
}

// WithTolerance sets the absolute tolerance for numeric comparisons (default: 0.01).
func WithTolerance(t float64) Option {
	return func(o *Options) { o.tolerance = t }
}

// WithLogger sets the logger passed down to every stage.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.logger = l }
}

// WithSchemaOverrides merges YAML schema overrides into the built-in schemas.
func WithSchemaOverrides(data []byte) Option {
	return func(o *Options) { o.overrides = append(o.overrides, data) }
}

// WithRegistry uses a prebuilt registry; schema overrides are then ignored.
func WithRegistry(r *schema.Registry) Option {
	return func(o *Options) { o.registry = r }
}

// WithBackup backs up the template before injection.
func WithBackup(backup bool) Option {
	return func(o *Options) { o.backup = backup }
}

// WithClock sets the time source used for backup names.
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.now = now }
}

// WithProgress sets a callback run after each file of a batch.
func WithProgress(p batch.Progress) Option {
	return func(o *Options) { o.progress = p }
}
