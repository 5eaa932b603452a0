package transform

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/evchart/evchart/internal/domain"
)

func sessionSchema() *domain.ModuleSchema {
	return &domain.ModuleSchema{
		ModuleID:  2,
		TableName: "charging_sessions",
		UniqueKey: []string{"station_id", "port_id", "session_id"},
		Fields: []domain.FieldDefinition{
			{Name: "station_id", Type: domain.DataTypeString, Requirement: domain.RequirementRequired},
			{Name: "port_id", Type: domain.DataTypeString, Requirement: domain.RequirementRequired},
			{Name: "session_id", Type: domain.DataTypeString, Requirement: domain.RequirementRequired},
			{Name: "energy_dispensed_kwh", Type: domain.DataTypeDecimal, Requirement: domain.RequirementRequired, MaxPrecision: 11, MaxScale: 3},
			{Name: "session_start", Type: domain.DataTypeDatetime, Requirement: domain.RequirementRequired},
			{Name: "successful_completion", Type: domain.DataTypeBoolean, Requirement: domain.RequirementRecommended},
		},
	}
}

func maintenanceSchema() *domain.ModuleSchema {
	return &domain.ModuleSchema{
		ModuleID:  5,
		TableName: "maintenance_costs",
		Fields: []domain.FieldDefinition{
			{Name: "station_id", Type: domain.DataTypeString, Requirement: domain.RequirementRequired},
			{Name: "maintenance_cost_total", Type: domain.DataTypeDecimal, Requirement: domain.RequirementRecommended, MaxPrecision: 12, MaxScale: 2},
			{Name: "maintenance_vendor", Type: domain.DataTypeString, Requirement: domain.RequirementRecommended},
		},
	}
}

func TestApplyCoercesStorageTypes(t *testing.T) {
	table := domain.Table{
		Headers: []string{"station_id", "port_id", "session_id", "energy_dispensed_kwh", "session_start", "successful_completion"},
		Rows: [][]string{
			{"ST-1", "P-1", "S-1", "12.500", "2025-03-01T14:30:00Z", "TRUE"},
			{"ST-1", "P-1", "S-2", "0.750", "2025-03-01", "false"},
		},
	}

	records, err := Apply(sessionSchema(), table, nil, nil, "up-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first["station_id"] != "ST-1" {
		t.Errorf("expected station_id string, got %v", first["station_id"])
	}
	energy, ok := first["energy_dispensed_kwh"].(decimal.Decimal)
	if !ok {
		t.Fatalf("expected decimal energy, got %T", first["energy_dispensed_kwh"])
	}
	if !energy.Equal(decimal.RequireFromString("12.500")) {
		t.Errorf("decimal value changed: %s", energy)
	}
	start, ok := first["session_start"].(time.Time)
	if !ok || start.Hour() != 14 {
		t.Errorf("expected parsed timestamp, got %v", first["session_start"])
	}
	if first["successful_completion"] != int16(1) {
		t.Errorf("expected TRUE to store as int16(1), got %v", first["successful_completion"])
	}
	if records[1]["successful_completion"] != int16(0) {
		t.Errorf("expected false to store as int16(0), got %v", records[1]["successful_completion"])
	}
}

func TestCoerceValueIsIdempotent(t *testing.T) {
	def := domain.FieldDefinition{Name: "energy_dispensed_kwh", Type: domain.DataTypeDecimal, MaxPrecision: 11, MaxScale: 3}

	once, err := CoerceValue("12.500", def)
	if err != nil {
		t.Fatalf("first coercion failed: %v", err)
	}
	twice, err := CoerceValue(once, def)
	if err != nil {
		t.Fatalf("second coercion failed: %v", err)
	}
	if !once.(decimal.Decimal).Equal(twice.(decimal.Decimal)) {
		t.Errorf("re-coercion changed the value: %v vs %v", once, twice)
	}

	boolDef := domain.FieldDefinition{Name: "successful_completion", Type: domain.DataTypeBoolean}
	stored, err := CoerceValue("TRUE", boolDef)
	if err != nil {
		t.Fatalf("boolean coercion failed: %v", err)
	}
	again, err := CoerceValue(stored, boolDef)
	if err != nil {
		t.Fatalf("boolean re-coercion failed: %v", err)
	}
	if again != int16(1) {
		t.Errorf("expected stored boolean to pass through, got %v", again)
	}
}

func TestApplyNormalizesNullLiterals(t *testing.T) {
	table := domain.Table{
		Headers: []string{"station_id", "maintenance_cost_total", "maintenance_vendor"},
		Rows: [][]string{
			{"ST-1", "NULL", "null"},
		},
	}

	// Without the flag the string literal is kept as data.
	noFlag := domain.Table{
		Headers: []string{"station_id", "maintenance_vendor"},
		Rows:    [][]string{{"ST-1", "null"}},
	}
	records, err := Apply(maintenanceSchema(), noFlag, nil, nil, "up-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0]["maintenance_vendor"] != "null" {
		t.Errorf("without the flag, vendor should keep the literal, got %v", records[0]["maintenance_vendor"])
	}

	flags := domain.NewFlagSet(domain.FlagModule5Nulls)
	records, err = Apply(maintenanceSchema(), table, flags, nil, "up-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0]["maintenance_cost_total"] != nil {
		t.Errorf("expected NULL literal to become nil, got %v", records[0]["maintenance_cost_total"])
	}
	if records[0]["maintenance_vendor"] != nil {
		t.Errorf("null normalization is case-insensitive, got %v", records[0]["maintenance_vendor"])
	}
}

func TestApplyNullFlagScopedToModule(t *testing.T) {
	table := domain.Table{
		Headers: []string{"station_id", "port_id", "session_id", "energy_dispensed_kwh", "session_start"},
		Rows: [][]string{
			{"NULL", "P-1", "S-1", "1.000", "2025-03-01"},
		},
	}

	flags := domain.NewFlagSet(domain.FlagModule5Nulls)
	records, err := Apply(sessionSchema(), table, flags, nil, "up-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0]["station_id"] != "NULL" {
		t.Errorf("module 5 null flag must not affect module 2, got %v", records[0]["station_id"])
	}
}

func TestApplyMarksNoDataRowsAndSynthesizesSessionKeys(t *testing.T) {
	table := domain.Table{
		Headers: []string{"station_id", "port_id", "session_id", "energy_dispensed_kwh", "session_start"},
		Rows: [][]string{
			{"ST-1", "P-1", "S-1", "1.000", "2025-03-01"},
			{"", "", "", "", ""},
		},
	}

	records, err := Apply(sessionSchema(), table, nil, map[int]bool{1: true}, "up-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if records[0][NoDataColumn] != int16(0) {
		t.Errorf("data row should carry flag 0, got %v", records[0][NoDataColumn])
	}
	if records[0]["session_id"] != "S-1" {
		t.Errorf("natural session key must be kept, got %v", records[0]["session_id"])
	}

	if records[1][NoDataColumn] != int16(1) {
		t.Errorf("no-data row should carry flag 1, got %v", records[1][NoDataColumn])
	}
	surrogate, ok := records[1]["session_id"].(string)
	if !ok || !strings.HasPrefix(surrogate, "no-session-up-1-") {
		t.Errorf("expected surrogate session key prefixed with upload id, got %v", records[1]["session_id"])
	}
}

func TestApplyWithoutNoDataRowsOmitsFlagColumn(t *testing.T) {
	table := domain.Table{
		Headers: []string{"station_id", "maintenance_cost_total", "maintenance_vendor"},
		Rows: [][]string{
			{"ST-1", "100.00", "Acme"},
		},
	}

	records, err := Apply(maintenanceSchema(), table, nil, nil, "up-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, present := records[0][NoDataColumn]; present {
		t.Error("modules without a no-data rule must not emit the flag column")
	}
}

func TestApplyAbsentSchemaColumnsBecomeNil(t *testing.T) {
	table := domain.Table{
		Headers: []string{"station_id"},
		Rows: [][]string{
			{"ST-1"},
		},
	}

	records, err := Apply(maintenanceSchema(), table, nil, nil, "up-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	value, present := records[0]["maintenance_cost_total"]
	if !present || value != nil {
		t.Errorf("absent column should be present with nil value, got present=%v value=%v", present, value)
	}
}
