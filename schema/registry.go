package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/javajack/xlconsolidate/grid"
)

// Registry holds flattened, validated schemas and mode configurations.
// It is populated once by NewRegistry and is read-only afterwards.
type Registry struct {
	schemas map[string]*Schema
	modes   map[Mode]ModeConfig
	eval    *Evaluator
}

type options struct {
	overrides [][]byte
	logger    *zap.Logger
}

// Option configures NewRegistry.
type Option func(*options)

// WithOverrides merges YAML schema overrides (see ParseOverrides) into the
// built-in declarations before flattening.
func WithOverrides(data []byte) Option {
	return func(o *options) { o.overrides = append(o.overrides, data) }
}

// WithLogger sets the logger used while loading schemas.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewRegistry builds the built-in schemas, applies overrides, resolves
// inheritance and validates every schema and rule.
func NewRegistry(opts ...Option) (*Registry, error) {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	declared := map[string]Override{}
	for _, s := range builtinSchemas() {
		declared[s.Name] = declare(s)
	}
	for _, data := range o.overrides {
		list, err := ParseOverrides(data)
		if err != nil {
			return nil, &ConfigurationError{Schema: "overrides", Err: err}
		}
		for _, ov := range list {
			if cur, ok := declared[ov.Name]; ok {
				declared[ov.Name] = cur.merge(ov)
				o.logger.Debug("schema overridden", zap.String("schema", ov.Name))
				continue
			}
			declared[ov.Name] = ov
			o.logger.Debug("schema added", zap.String("schema", ov.Name), zap.String("base", ov.Base))
		}
	}

	r := &Registry{
		schemas: make(map[string]*Schema, len(declared)),
		modes:   map[Mode]ModeConfig{},
		eval:    NewEvaluator(),
	}
	v := validator.New()
	for name, d := range declared {
		flat, err := flatten(declared, d)
		if err != nil {
			return nil, &ConfigurationError{Schema: name, Err: err}
		}
		if err := r.check(v, &flat); err != nil {
			return nil, &ConfigurationError{Schema: name, Err: err}
		}
		r.schemas[name] = &flat
	}

	for _, m := range builtinModes() {
		for _, name := range m.Schemas() {
			if _, ok := r.schemas[name]; !ok {
				return nil, &ConfigurationError{Mode: string(m.Mode), Schema: name, Err: ErrUnknown}
			}
		}
		for _, cc := range m.CrossChecks {
			for _, ref := range []ConceptRef{cc.Left, cc.Right} {
				s, ok := r.schemas[ref.Schema]
				if !ok {
					return nil, &ConfigurationError{Mode: string(m.Mode), Schema: ref.Schema, Err: ErrUnknown}
				}
				if _, ok := s.Concept(ref.Concept); !ok {
					return nil, &ConfigurationError{Mode: string(m.Mode), Schema: ref.Schema,
						Err: fmt.Errorf("cross check %s: unknown concept %q", cc.Kind, ref.Concept)}
				}
			}
		}
		r.modes[m.Mode] = m
	}
	o.logger.Debug("schema registry loaded", zap.Int("schemas", len(r.schemas)), zap.Int("modes", len(r.modes)))
	return r, nil
}

// flatten resolves single-level inheritance.
func flatten(declared map[string]Override, d Override) (Schema, error) {
	if d.Base == "" {
		return d.apply(Schema{}), nil
	}
	base, ok := declared[d.Base]
	if !ok {
		return Schema{}, fmt.Errorf("base %q: %w", d.Base, ErrUnknown)
	}
	if base.Base != "" {
		return Schema{}, fmt.Errorf("base %q inherits from %q: only one level of inheritance is supported", d.Base, base.Base)
	}
	return d.apply(base.apply(Schema{})), nil
}

// check validates a flattened schema and compiles its rules.
func (r *Registry) check(v *validator.Validate, s *Schema) error {
	if err := v.Struct(s); err != nil {
		return err
	}
	rng, err := s.Range()
	if err != nil {
		return err
	}
	size := rng.Size()
	if !s.NumericRange.IsZero() && (s.NumericRange.RowEnd >= size.Height || s.NumericRange.ColEnd >= size.Width) {
		return fmt.Errorf("numeric range rows %d..%d cols %d..%d exceeds data range %s",
			s.NumericRange.RowStart, s.NumericRange.RowEnd, s.NumericRange.ColStart, s.NumericRange.ColEnd, rng)
	}
	keys := make([]string, 0, len(s.Concepts))
	seen := map[string]bool{}
	for _, c := range s.Concepts {
		if seen[c.Key] {
			return fmt.Errorf("duplicate concept key %q", c.Key)
		}
		seen[c.Key] = true
		keys = append(keys, c.Key)
		if c.Row >= size.Height {
			return fmt.Errorf("concept %q row %d outside data range %s", c.Key, c.Row, rng)
		}
	}
	if s.Injection != nil {
		for _, m := range s.Injection.Merged {
			if _, _, err := grid.ParseColumnSpan(m); err != nil {
				return fmt.Errorf("injection merged span: %w", err)
			}
		}
	}
	for i := range s.Rules {
		rule := &s.Rules[i]
		if !seen[rule.Target] {
			return fmt.Errorf("rule %q: unknown target concept %q", rule.Name, rule.Target)
		}
		uses, err := Identifiers(rule.Expr)
		if err != nil {
			return err
		}
		for _, u := range uses {
			if !seen[u] {
				return fmt.Errorf("rule %q: unknown concept %q", rule.Name, u)
			}
		}
		if err := r.eval.Check(rule.Expr, keys); err != nil {
			return err
		}
		rule.uses = uses
	}
	return nil
}

// Schema returns the flattened schema registered under name.
func (r *Registry) Schema(name string) (*Schema, error) {
	s, ok := r.schemas[name]
	if !ok {
		return nil, &ConfigurationError{Schema: name, Err: ErrUnknown}
	}
	return s, nil
}

// Mode resolves a mode string to its configuration and primary schema.
func (r *Registry) Mode(mode string) (ModeConfig, *Schema, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return ModeConfig{}, nil, err
	}
	cfg, ok := r.modes[m]
	if !ok {
		return ModeConfig{}, nil, &ConfigurationError{Mode: mode, Err: ErrUnknown}
	}
	s, err := r.Schema(cfg.Schema)
	if err != nil {
		var ce *ConfigurationError
		if errors.As(err, &ce) {
			ce.Mode = mode
		}
		return ModeConfig{}, nil, err
	}
	return cfg, s, nil
}

// Names returns the registered schema names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.schemas))
	for n := range r.schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Modes returns the configured modes in declaration order.
func (r *Registry) Modes() []Mode {
	out := make([]Mode, 0, len(r.modes))
	for _, m := range []Mode{Schools, Zones, Sectors} {
		if _, ok := r.modes[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Evaluator returns the rule evaluator whose cache holds the compiled rules.
func (r *Registry) Evaluator() *Evaluator {
	return r.eval
}
