package validation

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/evchart/evchart/internal/domain"
)

// Failure is a typed field validation failure. It carries the catalog code
// and the placeholder values needed to render it.
type Failure struct {
	Code Code
	Args Args
}

func fail(code Code, column string) *Failure {
	return &Failure{Code: code, Args: Args{"column_name": column}}
}

// timestampLayouts are accepted in order. RFC 3339 is canonical; the date-only
// and space-separated forms cover what recipients export from spreadsheets.
var timestampLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
}

// ValidateCell runs the datatype validator for one raw cell value against its
// field definition. It returns either the coerced value or a Failure, never
// both. A nil value with a nil failure marks an accepted empty cell. Pure:
// the result depends only on the inputs.
func ValidateCell(raw string, def domain.FieldDefinition) (any, *Failure) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		if !def.Required() {
			return nil, nil
		}
		if raw != "" {
			return nil, fail(CodeInvalidWhitespaceValue, def.Name)
		}
		return nil, fail(CodeMissingValueRequiredColumn, def.Name)
	}

	switch def.Type {
	case domain.DataTypeString:
		return validateString(trimmed, def)
	case domain.DataTypeCategorical:
		return validateCategorical(trimmed, def)
	case domain.DataTypeInteger:
		return validateInteger(trimmed, def)
	case domain.DataTypeDecimal:
		return validateDecimal(trimmed, def)
	case domain.DataTypeBoolean:
		return validateBoolean(trimmed, def)
	case domain.DataTypeDatetime:
		return validateDatetime(trimmed, def)
	default:
		return trimmed, nil
	}
}

func validateString(value string, def domain.FieldDefinition) (any, *Failure) {
	length := len(value)
	if def.ExactLength != nil && length != *def.ExactLength {
		return nil, fail(CodeExactStringLengthNotMatched, def.Name)
	}
	if def.MinLength != nil && length < *def.MinLength {
		return nil, fail(CodeMinStringLengthNotMet, def.Name)
	}
	if def.MaxLength != nil && length > *def.MaxLength {
		return nil, fail(CodeMaxStringLengthExceeded, def.Name)
	}
	if def.Pattern != "" {
		matched, err := regexp.MatchString(def.Pattern, value)
		if err != nil || !matched {
			return nil, fail(CodeInvalidStringFormat, def.Name)
		}
	}
	return value, nil
}

func validateCategorical(value string, def domain.FieldDefinition) (any, *Failure) {
	for _, allowed := range def.AllowedValues {
		if strings.EqualFold(value, allowed) {
			return allowed, nil
		}
	}
	return nil, fail(CodeInvalidValueForCategory, def.Name)
}

func validateInteger(value string, def domain.FieldDefinition) (any, *Failure) {
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fail(CodeInvalidIntegerInput, def.Name)
	}
	if def.MaxLength != nil && len(strings.TrimPrefix(value, "-")) > *def.MaxLength {
		return nil, fail(CodeMaxStringLengthExceeded, def.Name)
	}
	if failure := checkBounds(decimal.NewFromInt(parsed), def); failure != nil {
		return nil, failure
	}
	return parsed, nil
}

func validateDecimal(value string, def domain.FieldDefinition) (any, *Failure) {
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fail(CodeInvalidDecimalInput, def.Name)
	}
	if def.MaxPrecision > 0 && int(parsed.NumDigits()) > def.MaxPrecision {
		return nil, fail(CodeMaxDecimalLengthExceeded, def.Name)
	}
	if scale := decimalScale(parsed); def.MaxPrecision > 0 && scale > def.MaxScale {
		return nil, fail(CodeMaxDecimalPlacesExceeded, def.Name)
	}
	if failure := checkBounds(parsed, def); failure != nil {
		return nil, failure
	}
	return parsed, nil
}

func validateBoolean(value string, def domain.FieldDefinition) (any, *Failure) {
	switch strings.ToUpper(value) {
	case "TRUE":
		return true, nil
	case "FALSE":
		return false, nil
	}
	return nil, fail(CodeInvalidBooleanInput, def.Name)
}

func validateDatetime(value string, def domain.FieldDefinition) (any, *Failure) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return nil, fail(CodeInvalidTimestampFormat, def.Name)
}

func checkBounds(value decimal.Decimal, def domain.FieldDefinition) *Failure {
	if def.MinValue != nil && value.LessThan(*def.MinValue) {
		return fail(CodeValueOutOfRange, def.Name)
	}
	if def.MaxValue != nil && value.GreaterThan(*def.MaxValue) {
		return fail(CodeValueOutOfRange, def.Name)
	}
	return nil
}

func decimalScale(d decimal.Decimal) int {
	if d.Exponent() >= 0 {
		return 0
	}
	return int(-d.Exponent())
}
