package schema

// Built-in schema names.
const (
	SchoolMovements = "ESC2_MOVIMIENTOS"
	SchoolGroups    = "ESC1_GRUPOS"
	ZoneMovements   = "ZONA3_MOVIMIENTOS"
	SectorMovements = "SECTOR3_MOVIMIENTOS"
)

// Concept keys shared by the movement tables.
const (
	KeyPreinscription = "preinscription"
	KeyInscription    = "inscription"
	KeyWithdrawals    = "withdrawals"
	KeyExisting       = "existing"
	KeyAdmissions     = "admissions"
	KeyApproved       = "approved"
	KeyFailed         = "failed"
	KeyGrantsCity     = "grants_city"
	KeyGrantsState    = "grants_state"
	KeyWelfare        = "welfare"
	KeyGroups         = "groups"

	KeyMen        = "men"
	KeyWomen      = "women"
	KeyGroupTotal = "group_total"
)

var movementGrades = []string{"1O", "2O", "3O", "4O", "5O", "6O"}

// movementColumns lays out alternating H/M columns per grade starting at first.
func movementColumns(first int) []Column {
	cols := make([]Column, 0, len(movementGrades)*2)
	for i, g := range movementGrades {
		cols = append(cols,
			Column{Grade: g, Gender: Male, Index: first + 2*i},
			Column{Grade: g, Gender: Female, Index: first + 2*i + 1},
		)
	}
	return cols
}

var existenceRule = Rule{
	Name:   "existing = inscription - withdrawals",
	Kind:   "COHERENCIA_EXISTENCIA",
	Target: KeyExisting,
	Expr:   "inscription - withdrawals",
}

func schoolMovements() Schema {
	return Schema{
		Name:         SchoolMovements,
		Version:      1,
		Description:  "Student movements by grade and gender",
		Sheet:        "ESC2",
		DataRange:    "A5:Z17",
		NumericRange: Bounds{RowStart: 3, RowEnd: 12, ColStart: 7, ColEnd: 25},
		Headers:      HeaderRows{Title: 0, Grade: 1, Gender: 2},
		Concepts: []Concept{
			{Key: KeyInscription, Label: "INSCRIPCIÓN", Row: 3, Type: "INSCRIPCION"},
			{Key: KeyWithdrawals, Label: "BAJAS", Row: 4, Type: "OPERATIVO"},
			{Key: KeyExisting, Label: "EXISTENCIA", Row: 5, Type: "OPERATIVO"},
			{Key: KeyAdmissions, Label: "ALTAS", Row: 6, Type: "OPERATIVO"},
			{Key: KeyApproved, Label: "APROBADOS", Row: 7, Type: "OPERATIVO"},
			{Key: KeyFailed, Label: "REPROBADOS", Row: 8, Type: "OPERATIVO"},
			{Key: KeyGrantsCity, Label: "BECADOS MUNICIPIO", Row: 9, Type: "BECA"},
			{Key: KeyGrantsState, Label: "BECADOS SEED", Row: 10, Type: "BECA"},
			{Key: KeyWelfare, Label: "BIENESTAR", Row: 11, Type: "BECA"},
			{Key: KeyGroups, Label: "GRUPOS", Row: 12, NoSubtotal: true, Type: "OPERATIVO"},
		},
		Grades:                movementGrades,
		Columns:               movementColumns(7),
		Subtotals:             []GenderColumn{{Gender: Male, Index: 19}, {Gender: Female, Index: 21}},
		Totals:                []int{23},
		FallbackSubtotalAfter: 15,
		ExtraScan:             Span{From: 7, To: 19},
		Rules:                 []Rule{existenceRule},
		Validations:           ValidationSet{Subtotals: true, Totals: true, RowCoherence: true},
	}
}

func schoolGroups() Schema {
	return Schema{
		Name:         SchoolGroups,
		Version:      1,
		Description:  "Groups per grade (1A, 1B, 1C ...)",
		Sheet:        "ESC1",
		DataRange:    "A3:Z15",
		NumericRange: Bounds{RowStart: 3, RowEnd: 12, ColStart: 7, ColEnd: 25},
		Headers:      HeaderRows{Title: 0, Grade: 1, Gender: 2},
		Concepts: []Concept{
			{Key: KeyMen, Label: "HOMBRES", Row: 3},
			{Key: KeyWomen, Label: "MUJERES", Row: 4},
			{Key: KeyGroupTotal, Label: "TOTAL", Row: 5, NoSubtotal: true},
		},
		Grades:                []string{"1ER", "2DO", "3ER", "4TO", "5TO", "6TO"},
		FallbackSubtotalAfter: 15,
		ExtraScan:             Span{From: 7, To: 19},
		Injection: &Injection{
			Sheet:    "ZONA 3",
			RowStart: 6,
			ColStart: 8,
			ColEnd:   26,
			Merged:   []string{"X:Z"},
		},
	}
}

// zoneMovements derives a concentrated zone/sector table from the school layout.
func zoneMovements(name, sheet, description string) Schema {
	return Schema{
		Name:         name,
		Version:      1,
		Description:  description,
		Base:         SchoolMovements,
		Sheet:        sheet,
		DataRange:    "A3:Z14",
		NumericRange: Bounds{RowStart: 2, RowEnd: 10, ColStart: 7, ColEnd: 25},
		Headers:      HeaderRows{Title: -1, Grade: 0, Gender: 1},
		Concepts: []Concept{
			{Key: KeyPreinscription, Label: "PREINSCRIPCIÓN 1ER. GRADO", Row: 2, Type: "INSCRIPCION"},
			{Key: KeyInscription, Label: "INSCRIPCIÓN", Row: 3, Type: "INSCRIPCION"},
			{Key: KeyWithdrawals, Label: "BAJAS", Row: 4, Type: "OPERATIVO"},
			{Key: KeyExisting, Label: "EXISTENCIA", Row: 5, Type: "OPERATIVO"},
			{Key: KeyAdmissions, Label: "ALTAS", Row: 6, Type: "OPERATIVO"},
			{Key: KeyGrantsCity, Label: "BECADOS MUNICIPIO", Row: 7, Type: "BECA"},
			{Key: KeyGrantsState, Label: "BECADOS SEED", Row: 8, Type: "BECA"},
			{Key: KeyWelfare, Label: "BIENESTAR", Row: 9, Type: "BECA"},
			{Key: KeyGroups, Label: "GRUPOS", Row: 10, NoSubtotal: true, Type: "OPERATIVO"},
		},
		Injection: &Injection{
			Sheet:    "ZONA 3",
			RowStart: 6,
			ColStart: 8,
			ColEnd:   26,
			Merged:   []string{"X:Z"},
		},
	}
}

func builtinSchemas() []Schema {
	return []Schema{
		schoolMovements(),
		schoolGroups(),
		zoneMovements(ZoneMovements, "ZONA 3", "Zone table (sum of schools)"),
		zoneMovements(SectorMovements, "SECTOR3", "Sector table (sum of zones)"),
	}
}

func builtinModes() []ModeConfig {
	return []ModeConfig{
		{
			Mode:           Schools,
			Schema:         SchoolMovements,
			Extra:          []string{SchoolGroups},
			Template:       "FORMATO FIN DE CICLO ESCUELA.xlsx",
			InjectionSheet: "ESC2",
			InjectionRange: "H6:Z15",
			FullValidation: true,
			CrossChecks: []CrossCheck{{
				Kind:  "COHERENCIA_CRUZADA",
				Left:  ConceptRef{Schema: SchoolGroups, Concept: KeyGroupTotal},
				Right: ConceptRef{Schema: SchoolMovements, Concept: KeyExisting},
			}},
		},
		{
			Mode:           Zones,
			Schema:         ZoneMovements,
			Template:       "FORMATO FIN DE CICLO ZONA.xlsx",
			InjectionSheet: "ZONA 3",
			InjectionRange: "H6:Z14",
			FullValidation: true,
		},
		{
			Mode:           Sectors,
			Schema:         SectorMovements,
			Template:       "FORMATO FIN DE CICLO ZONA.xlsx",
			InjectionRange: "H6:Z14",
		},
	}
}
