package validation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/evchart/evchart/internal/domain"
)

func intPtr(v int) *int { return &v }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestValidateCellEmptyValues(t *testing.T) {
	required := domain.FieldDefinition{Name: "station_id", Type: domain.DataTypeString, Requirement: domain.RequirementRequired}
	recommended := domain.FieldDefinition{Name: "peak_power_kw", Type: domain.DataTypeDecimal, Requirement: domain.RequirementRecommended}

	if _, failure := ValidateCell("", required); failure == nil || failure.Code != CodeMissingValueRequiredColumn {
		t.Errorf("empty required cell: expected %s, got %v", CodeMissingValueRequiredColumn, failure)
	}
	if _, failure := ValidateCell("   ", required); failure == nil || failure.Code != CodeInvalidWhitespaceValue {
		t.Errorf("whitespace-only required cell: expected %s, got %v", CodeInvalidWhitespaceValue, failure)
	}
	if value, failure := ValidateCell("", recommended); failure != nil || value != nil {
		t.Errorf("empty recommended cell should be accepted as nil, got value=%v failure=%v", value, failure)
	}
	if value, failure := ValidateCell("  ", recommended); failure != nil || value != nil {
		t.Errorf("whitespace recommended cell should be accepted as nil, got value=%v failure=%v", value, failure)
	}
}

func TestValidateCellString(t *testing.T) {
	state := domain.FieldDefinition{
		Name:        "state",
		Type:        domain.DataTypeString,
		Requirement: domain.RequirementRequired,
		ExactLength: intPtr(2),
		Pattern:     "^[A-Z]{2}$",
	}

	if value, failure := ValidateCell("CA", state); failure != nil || value != "CA" {
		t.Errorf("expected CA to pass, got value=%v failure=%v", value, failure)
	}
	if _, failure := ValidateCell("CAL", state); failure == nil || failure.Code != CodeExactStringLengthNotMatched {
		t.Errorf("three-letter state: expected %s, got %v", CodeExactStringLengthNotMatched, failure)
	}
	if _, failure := ValidateCell("ca", state); failure == nil || failure.Code != CodeInvalidStringFormat {
		t.Errorf("lowercase state: expected %s, got %v", CodeInvalidStringFormat, failure)
	}

	capped := domain.FieldDefinition{
		Name:        "station_id",
		Type:        domain.DataTypeString,
		Requirement: domain.RequirementRequired,
		MaxLength:   intPtr(5),
	}
	if _, failure := ValidateCell("ABCDEF", capped); failure == nil || failure.Code != CodeMaxStringLengthExceeded {
		t.Errorf("over-length string: expected %s, got %v", CodeMaxStringLengthExceeded, failure)
	}
	if value, failure := ValidateCell("ABCDE", capped); failure != nil || value != "ABCDE" {
		t.Errorf("boundary-length string should pass, got value=%v failure=%v", value, failure)
	}
}

func TestValidateCellCategorical(t *testing.T) {
	def := domain.FieldDefinition{
		Name:          "payment_method",
		Type:          domain.DataTypeCategorical,
		Requirement:   domain.RequirementRecommended,
		AllowedValues: []string{"credit_card", "membership", "free"},
	}

	value, failure := ValidateCell("Credit_Card", def)
	if failure != nil {
		t.Fatalf("case-insensitive match should pass, got %v", failure)
	}
	if value != "credit_card" {
		t.Errorf("expected canonical value credit_card, got %v", value)
	}

	if _, failure := ValidateCell("bitcoin", def); failure == nil || failure.Code != CodeInvalidValueForCategory {
		t.Errorf("unknown category: expected %s, got %v", CodeInvalidValueForCategory, failure)
	}
}

func TestValidateCellInteger(t *testing.T) {
	def := domain.FieldDefinition{
		Name:        "num_ports",
		Type:        domain.DataTypeInteger,
		Requirement: domain.RequirementRequired,
		MinValue:    decPtr("1"),
	}

	if value, failure := ValidateCell("4", def); failure != nil || value != int64(4) {
		t.Errorf("expected int64(4), got value=%v failure=%v", value, failure)
	}
	if _, failure := ValidateCell("4.5", def); failure == nil || failure.Code != CodeInvalidIntegerInput {
		t.Errorf("fractional input: expected %s, got %v", CodeInvalidIntegerInput, failure)
	}
	if _, failure := ValidateCell("0", def); failure == nil || failure.Code != CodeValueOutOfRange {
		t.Errorf("below minimum: expected %s, got %v", CodeValueOutOfRange, failure)
	}
}

func TestValidateCellDecimalPrecisionAndScale(t *testing.T) {
	def := domain.FieldDefinition{
		Name:         "peak_power_kw",
		Type:         domain.DataTypeDecimal,
		Requirement:  domain.RequirementRequired,
		MaxPrecision: 7,
		MaxScale:     2,
		MinValue:     decPtr("0"),
	}

	cases := []struct {
		input string
		want  Code
	}{
		{"123.45", ""},
		{"12345.67", ""},
		{"123.456", CodeMaxDecimalPlacesExceeded},
		{"1234567.89", CodeMaxDecimalLengthExceeded},
		{"-1.00", CodeValueOutOfRange},
		{"12,5", CodeInvalidDecimalInput},
	}

	for _, tc := range cases {
		value, failure := ValidateCell(tc.input, def)
		if tc.want == "" {
			if failure != nil {
				t.Errorf("%q: expected acceptance, got %s", tc.input, failure.Code)
				continue
			}
			parsed, ok := value.(decimal.Decimal)
			if !ok {
				t.Errorf("%q: expected decimal value, got %T", tc.input, value)
				continue
			}
			if parsed.String() != decimal.RequireFromString(tc.input).String() {
				t.Errorf("%q: value changed to %s", tc.input, parsed)
			}
			continue
		}
		if failure == nil || failure.Code != tc.want {
			t.Errorf("%q: expected %s, got %v", tc.input, tc.want, failure)
		}
	}
}

func TestValidateCellBoolean(t *testing.T) {
	def := domain.FieldDefinition{
		Name:        "successful_completion",
		Type:        domain.DataTypeBoolean,
		Requirement: domain.RequirementRecommended,
	}

	if value, failure := ValidateCell("true", def); failure != nil || value != true {
		t.Errorf("expected true, got value=%v failure=%v", value, failure)
	}
	if value, failure := ValidateCell("FALSE", def); failure != nil || value != false {
		t.Errorf("expected false, got value=%v failure=%v", value, failure)
	}
	for _, bad := range []string{"maybe", "1", "yes"} {
		if _, failure := ValidateCell(bad, def); failure == nil || failure.Code != CodeInvalidBooleanInput {
			t.Errorf("%q: expected %s, got %v", bad, CodeInvalidBooleanInput, failure)
		}
	}
}

func TestValidateCellDatetime(t *testing.T) {
	def := domain.FieldDefinition{
		Name:        "session_start",
		Type:        domain.DataTypeDatetime,
		Requirement: domain.RequirementRequired,
	}

	value, failure := ValidateCell("2025-03-01T14:30:00Z", def)
	if failure != nil {
		t.Fatalf("RFC 3339 timestamp should pass, got %v", failure)
	}
	ts, ok := value.(time.Time)
	if !ok || ts.Year() != 2025 || ts.Month() != time.March {
		t.Errorf("unexpected parsed timestamp %v", value)
	}

	if _, failure := ValidateCell("2025-03-01", def); failure != nil {
		t.Errorf("date-only form should pass, got %v", failure)
	}
	if _, failure := ValidateCell("03/01/2025", def); failure == nil || failure.Code != CodeInvalidTimestampFormat {
		t.Errorf("US date form: expected %s, got %v", CodeInvalidTimestampFormat, failure)
	}
}

func TestMessageCatalogHasTemplateForEveryCode(t *testing.T) {
	codes := []Code{
		CodeCSVEmpty, CodeFileParseFailure, CodeMissingRequiredColumn,
		CodeUnknownColumn, CodeDuplicateColumn, CodeMissingValueRequiredColumn,
		CodeInvalidWhitespaceValue, CodeMinStringLengthNotMet,
		CodeMaxStringLengthExceeded, CodeExactStringLengthNotMatched,
		CodeInvalidStringFormat, CodeInvalidValueForCategory,
		CodeInvalidIntegerInput, CodeInvalidDecimalInput,
		CodeMaxDecimalLengthExceeded, CodeMaxDecimalPlacesExceeded,
		CodeValueOutOfRange, CodeInvalidBooleanInput, CodeInvalidTimestampFormat,
		CodeDuplicateRecordInSameUpload, CodeDuplicateRecordInSystem,
		CodeModule3UptimeRequired,
	}
	for _, code := range codes {
		if _, ok := templates[code]; !ok {
			t.Errorf("code %s has no catalog template", code)
		}
	}
}

func TestFormatSubstitutesPlaceholders(t *testing.T) {
	msg := CodeDuplicateRecordInSystem.Format(Args{
		"fields":    "station_id, port_id",
		"upload_id": "up-42",
	})
	want := "Duplicate record: the same station_id, port_id combination was already accepted under upload up-42."
	if msg != want {
		t.Errorf("unexpected rendered message:\n got %q\nwant %q", msg, want)
	}
}
