package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// overrideFile is the YAML layout accepted by WithOverrides:
//
//	schemas:
//	  - name: ESC2_MOVIMIENTOS
//	    data_range: A5:Z18
//	    validations: {row_coherence: false}
//	  - name: ESC2_2025
//	    base: ESC2_MOVIMIENTOS
//	    version: 2
type overrideFile struct {
	Schemas []Override `yaml:"schemas"`
}

// Override is a partial schema declaration. A field that is present
// replaces the declared one, even when its value is zero or false; an
// absent field (nil) keeps it. Struct blocks such as headers are replaced
// as a whole, validation flags one by one.
type Override struct {
	Name        string  `yaml:"name"`
	Base        string  `yaml:"base"`
	Version     *int    `yaml:"version"`
	Description *string `yaml:"description"`

	Sheet        *string     `yaml:"sheet"`
	DataRange    *string     `yaml:"data_range"`
	NumericRange *Bounds     `yaml:"numeric_range"`
	Headers      *HeaderRows `yaml:"headers"`

	Concepts  []Concept      `yaml:"concepts"`
	Grades    []string       `yaml:"grades"`
	Columns   []Column       `yaml:"columns"`
	Subtotals []GenderColumn `yaml:"subtotals"`
	Totals    []int          `yaml:"totals"`

	FallbackSubtotalAfter *int  `yaml:"fallback_subtotal_after"`
	ExtraScan             *Span `yaml:"extra_scan"`

	Injection   *Injection         `yaml:"injection"`
	Rules       []Rule             `yaml:"rules"`
	Validations *ValidationToggles `yaml:"validations"`
}

// ValidationToggles sets individual validation stages.
type ValidationToggles struct {
	Subtotals    *bool `yaml:"subtotals"`
	Totals       *bool `yaml:"totals"`
	RowCoherence *bool `yaml:"row_coherence"`
}

// ParseOverrides decodes schema overrides. Unknown keys are rejected.
func ParseOverrides(data []byte) ([]Override, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f overrideFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse schema overrides: %w", err)
	}
	for i, s := range f.Schemas {
		if s.Name == "" {
			return nil, fmt.Errorf("parse schema overrides: entry %d has no name", i)
		}
	}
	return f.Schemas, nil
}

// declare turns a schema written in code into an override. Zero fields are
// left unset so that derived built-ins inherit them from their base.
func declare(s Schema) Override {
	o := Override{
		Name:      s.Name,
		Base:      s.Base,
		Concepts:  s.Concepts,
		Grades:    s.Grades,
		Columns:   s.Columns,
		Subtotals: s.Subtotals,
		Totals:    s.Totals,
		Injection: s.Injection,
		Rules:     s.Rules,
	}
	if s.Version != 0 {
		o.Version = &s.Version
	}
	if s.Description != "" {
		o.Description = &s.Description
	}
	if s.Sheet != "" {
		o.Sheet = &s.Sheet
	}
	if s.DataRange != "" {
		o.DataRange = &s.DataRange
	}
	if !s.NumericRange.IsZero() {
		o.NumericRange = &s.NumericRange
	}
	if s.Headers != (HeaderRows{}) {
		o.Headers = &s.Headers
	}
	if s.FallbackSubtotalAfter != 0 {
		o.FallbackSubtotalAfter = &s.FallbackSubtotalAfter
	}
	if s.ExtraScan != (Span{}) {
		o.ExtraScan = &s.ExtraScan
	}
	if s.Validations != (ValidationSet{}) {
		v := s.Validations
		o.Validations = &ValidationToggles{Subtotals: &v.Subtotals, Totals: &v.Totals, RowCoherence: &v.RowCoherence}
	}
	return o
}

// merge returns o with every field present in top replacing it.
func (o Override) merge(top Override) Override {
	out := o
	if top.Base != "" {
		out.Base = top.Base
	}
	setPtr(&out.Version, top.Version)
	setPtr(&out.Description, top.Description)
	setPtr(&out.Sheet, top.Sheet)
	setPtr(&out.DataRange, top.DataRange)
	setPtr(&out.NumericRange, top.NumericRange)
	setPtr(&out.Headers, top.Headers)
	setSlice(&out.Concepts, top.Concepts)
	setSlice(&out.Grades, top.Grades)
	setSlice(&out.Columns, top.Columns)
	setSlice(&out.Subtotals, top.Subtotals)
	setSlice(&out.Totals, top.Totals)
	setPtr(&out.FallbackSubtotalAfter, top.FallbackSubtotalAfter)
	setPtr(&out.ExtraScan, top.ExtraScan)
	setPtr(&out.Injection, top.Injection)
	setSlice(&out.Rules, top.Rules)
	if top.Validations != nil {
		v := ValidationToggles{}
		if o.Validations != nil {
			v = *o.Validations
		}
		setPtr(&v.Subtotals, top.Validations.Subtotals)
		setPtr(&v.Totals, top.Validations.Totals)
		setPtr(&v.RowCoherence, top.Validations.RowCoherence)
		out.Validations = &v
	}
	return out
}

// apply returns base with every field present in o replacing it. Slices
// are copied so flattened schemas never share backing arrays.
func (o Override) apply(base Schema) Schema {
	out := base
	out.Name = o.Name
	out.Base = o.Base
	out.Concepts = cloneSlice(base.Concepts)
	out.Grades = cloneSlice(base.Grades)
	out.Columns = cloneSlice(base.Columns)
	out.Subtotals = cloneSlice(base.Subtotals)
	out.Totals = cloneSlice(base.Totals)
	out.Rules = cloneSlice(base.Rules)
	out.Injection = cloneInjection(base.Injection)

	setValue(&out.Version, o.Version)
	setValue(&out.Description, o.Description)
	setValue(&out.Sheet, o.Sheet)
	setValue(&out.DataRange, o.DataRange)
	setValue(&out.NumericRange, o.NumericRange)
	setValue(&out.Headers, o.Headers)
	setValue(&out.FallbackSubtotalAfter, o.FallbackSubtotalAfter)
	setValue(&out.ExtraScan, o.ExtraScan)
	if o.Concepts != nil {
		out.Concepts = cloneSlice(o.Concepts)
	}
	if o.Grades != nil {
		out.Grades = cloneSlice(o.Grades)
	}
	if o.Columns != nil {
		out.Columns = cloneSlice(o.Columns)
	}
	if o.Subtotals != nil {
		out.Subtotals = cloneSlice(o.Subtotals)
	}
	if o.Totals != nil {
		out.Totals = cloneSlice(o.Totals)
	}
	if o.Rules != nil {
		out.Rules = cloneSlice(o.Rules)
	}
	if o.Injection != nil {
		out.Injection = cloneInjection(o.Injection)
	}
	if v := o.Validations; v != nil {
		setValue(&out.Validations.Subtotals, v.Subtotals)
		setValue(&out.Validations.Totals, v.Totals)
		setValue(&out.Validations.RowCoherence, v.RowCoherence)
	}
	return out
}

// setPtr replaces *dst with v when v is present.
func setPtr[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}

// setSlice replaces *dst with v when v is present.
func setSlice[T any](dst *[]T, v []T) {
	if v != nil {
		*dst = v
	}
}

// setValue copies *v into *dst when v is present.
func setValue[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func cloneInjection(in *Injection) *Injection {
	if in == nil {
		return nil
	}
	inj := *in
	inj.Merged = cloneSlice(inj.Merged)
	return &inj
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
