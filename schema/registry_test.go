package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_Builtins(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	assert.Equal(t, []string{SchoolGroups, SchoolMovements, SectorMovements, ZoneMovements}, r.Names())
	assert.Equal(t, []Mode{Schools, Zones, Sectors}, r.Modes())

	esc2, err := r.Schema(SchoolMovements)
	require.NoError(t, err)
	assert.Equal(t, "ESC2", esc2.Sheet)
	assert.Equal(t, 10, esc2.NumericRange.Rows())
	assert.Equal(t, 19, esc2.NumericRange.Cols())
	assert.Len(t, esc2.Columns, 12)
	require.Len(t, esc2.Rules, 1)
	assert.Equal(t, []string{KeyInscription, KeyWithdrawals}, esc2.Rules[0].Uses())
}

func TestNewRegistry_ZoneInheritsSchoolLayout(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	zone, err := r.Schema(ZoneMovements)
	require.NoError(t, err)
	esc2, err := r.Schema(SchoolMovements)
	require.NoError(t, err)

	assert.Equal(t, "ZONA 3", zone.Sheet)
	assert.Equal(t, SchoolMovements, zone.Base)
	assert.Equal(t, esc2.Columns, zone.Columns)
	assert.Equal(t, esc2.Subtotals, zone.Subtotals)
	assert.Equal(t, esc2.Validations, zone.Validations)
	assert.Equal(t, HeaderRows{Title: -1, Grade: 0, Gender: 1}, zone.Headers)

	c, ok := zone.Concept(KeyPreinscription)
	require.True(t, ok)
	assert.Equal(t, 2, c.Row)

	sector, err := r.Schema(SectorMovements)
	require.NoError(t, err)
	assert.Equal(t, "SECTOR3", sector.Sheet)
	assert.Equal(t, zone.Concepts, sector.Concepts)
}

func TestNewRegistry_FlattenedSchemasDoNotShareSlices(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	zone, _ := r.Schema(ZoneMovements)
	esc2, _ := r.Schema(SchoolMovements)

	zone.Columns[0].Index = 99
	assert.Equal(t, 7, esc2.Columns[0].Index)
}

func TestRegistry_Mode(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	cfg, s, err := r.Mode("escuelas")
	require.NoError(t, err)
	assert.Equal(t, Schools, cfg.Mode)
	assert.Equal(t, SchoolMovements, s.Name)
	assert.Equal(t, []string{SchoolMovements, SchoolGroups}, cfg.Schemas())
	require.Len(t, cfg.CrossChecks, 1)

	cfg, s, err = r.Mode("ZONES")
	require.NoError(t, err)
	assert.Equal(t, "ZONA 3", cfg.InjectionSheet)
	assert.Equal(t, ZoneMovements, s.Name)

	_, _, err = r.Mode("REGIONS")
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "REGIONS", ce.Mode)
	assert.True(t, errors.Is(err, ErrUnknown))
}

func TestRegistry_UnknownSchema(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	_, err = r.Schema("NOPE")
	require.ErrorIs(t, err, ErrUnknown)
	assert.Contains(t, err.Error(), `schema "NOPE"`)
}

func TestNewRegistry_OverrideExistingSchema(t *testing.T) {
	r, err := NewRegistry(WithOverrides([]byte(`
schemas:
  - name: ESC2_MOVIMIENTOS
    data_range: A5:Z18
    description: extended
`)))
	require.NoError(t, err)

	s, err := r.Schema(SchoolMovements)
	require.NoError(t, err)
	assert.Equal(t, "A5:Z18", s.DataRange)
	assert.Equal(t, "extended", s.Description)
	assert.Equal(t, "ESC2", s.Sheet)

	zone, err := r.Schema(ZoneMovements)
	require.NoError(t, err)
	assert.Equal(t, "Zone table (sum of schools)", zone.Description)
	assert.Equal(t, "A3:Z14", zone.DataRange)
	assert.Equal(t, SchoolMovements, zone.Base)
}

func TestNewRegistry_OverrideSetsZeroValues(t *testing.T) {
	r, err := NewRegistry(WithOverrides([]byte(`
schemas:
  - name: ESC2_MOVIMIENTOS
    validations: {subtotals: false, totals: false, row_coherence: false}
    fallback_subtotal_after: 0
  - name: ZONA3_MOVIMIENTOS
    headers: {title: 0, grade: 0, gender: 0}
`)))
	require.NoError(t, err)

	esc2, err := r.Schema(SchoolMovements)
	require.NoError(t, err)
	assert.Equal(t, ValidationSet{}, esc2.Validations)
	assert.Zero(t, esc2.FallbackSubtotalAfter)

	zone, err := r.Schema(ZoneMovements)
	require.NoError(t, err)
	assert.Equal(t, HeaderRows{}, zone.Headers)
	assert.Equal(t, ValidationSet{}, zone.Validations, "inherited from the overridden base")
}

func TestNewRegistry_OverrideTogglesSingleValidation(t *testing.T) {
	r, err := NewRegistry(
		WithOverrides([]byte("schemas:\n  - name: ESC2_MOVIMIENTOS\n    validations: {row_coherence: false}\n")),
		WithOverrides([]byte("schemas:\n  - name: ESC2_MOVIMIENTOS\n    validations: {totals: false}\n")),
	)
	require.NoError(t, err)

	esc2, err := r.Schema(SchoolMovements)
	require.NoError(t, err)
	assert.Equal(t, ValidationSet{Subtotals: true}, esc2.Validations)
	assert.Equal(t, 15, esc2.FallbackSubtotalAfter)
}

func TestNewRegistry_OverrideAddsDerivedSchema(t *testing.T) {
	r, err := NewRegistry(WithOverrides([]byte(`
schemas:
  - name: ESC2_2025
    base: ESC2_MOVIMIENTOS
    version: 2
    sheet: ESC2-2025
`)))
	require.NoError(t, err)

	s, err := r.Schema("ESC2_2025")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Version)
	assert.Equal(t, "ESC2-2025", s.Sheet)
	assert.Len(t, s.Concepts, 10)
}

func TestNewRegistry_RejectsChainedInheritance(t *testing.T) {
	_, err := NewRegistry(WithOverrides([]byte(`
schemas:
  - name: DEEP
    base: ZONA3_MOVIMIENTOS
`)))
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "DEEP", ce.Schema)
	assert.Contains(t, err.Error(), "one level of inheritance")
}

func TestNewRegistry_RejectsUnknownBase(t *testing.T) {
	_, err := NewRegistry(WithOverrides([]byte(`
schemas:
  - name: ORPHAN
    base: MISSING
`)))
	require.ErrorIs(t, err, ErrUnknown)
}

func TestNewRegistry_RejectsInvalidRule(t *testing.T) {
	_, err := NewRegistry(WithOverrides([]byte(`
schemas:
  - name: ESC2_MOVIMIENTOS
    rules:
      - name: broken
        kind: COHERENCIA_EXISTENCIA
        target: existing
        expr: inscription - graduates
`)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown concept "graduates"`)
}

func TestNewRegistry_RejectsInvalidStruct(t *testing.T) {
	_, err := NewRegistry(WithOverrides([]byte(`
schemas:
  - name: ESC2_MOVIMIENTOS
    subtotals:
      - gender: X
        index: 19
`)))
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, err.Error(), "oneof")
}

func TestNewRegistry_RejectsNumericRangeOutsideData(t *testing.T) {
	_, err := NewRegistry(WithOverrides([]byte(`
schemas:
  - name: ESC2_MOVIMIENTOS
    data_range: A5:M17
`)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds data range")
}

func TestParseOverrides_UnknownField(t *testing.T) {
	_, err := ParseOverrides([]byte("schemas:\n  - name: X\n    colour: red\n"))
	require.Error(t, err)

	list, err := ParseOverrides(nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"SCHOOLS": Schools, "zonas": Zones, " Sectores ": Sectors,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("")
	assert.ErrorIs(t, err, ErrUnknown)
}
