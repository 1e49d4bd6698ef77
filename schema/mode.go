package schema

import (
	"fmt"
	"strings"
)

// Mode is the operating context selecting the schema and output template.
type Mode string

const (
	Schools Mode = "SCHOOLS"
	Zones   Mode = "ZONES"
	Sectors Mode = "SECTORS"
)

var modeAliases = map[string]Mode{
	"SCHOOLS":  Schools,
	"ESCUELAS": Schools,
	"ZONES":    Zones,
	"ZONAS":    Zones,
	"SECTORS":  Sectors,
	"SECTORES": Sectors,
}

// ParseMode resolves a mode string, case-insensitively. Spanish names are
// accepted as aliases.
func ParseMode(s string) (Mode, error) {
	if m, ok := modeAliases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return "", &ConfigurationError{Mode: s, Err: ErrUnknown}
}

// ConceptRef names a concept row of a specific schema.
type ConceptRef struct {
	Schema  string `yaml:"schema" validate:"required"`
	Concept string `yaml:"concept" validate:"required"`
}

func (c ConceptRef) String() string { return c.Schema + "." + c.Concept }

// CrossCheck requires the row totals of two concepts in different sheets to match.
type CrossCheck struct {
	Kind  string     `yaml:"kind" validate:"required"`
	Left  ConceptRef `yaml:"left"`
	Right ConceptRef `yaml:"right"`
}

// ModeConfig binds a mode to its schemas, template and injection target.
type ModeConfig struct {
	Mode           Mode
	Schema         string
	Extra          []string // secondary sheets validated alongside Schema
	Template       string
	InjectionSheet string // empty: fall back to the schema's sheet
	InjectionRange string
	FullValidation bool
	CrossChecks    []CrossCheck
}

// Schemas lists the primary schema followed by the extra ones.
func (m ModeConfig) Schemas() []string {
	return append([]string{m.Schema}, m.Extra...)
}

func (m ModeConfig) String() string {
	return fmt.Sprintf("%s (%s)", m.Mode, strings.Join(m.Schemas(), ", "))
}
