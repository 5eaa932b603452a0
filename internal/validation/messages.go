package validation

import "strings"

// Code identifies one entry in the error message catalog. The engine and the
// business rule layer only ever emit messages from this catalog so that
// downstream report rendering has a closed vocabulary.
type Code string

const (
	CodeCSVEmpty                    Code = "CSV_EMPTY"
	CodeFileParseFailure            Code = "FILE_PARSE_FAILURE"
	CodeMissingRequiredColumn       Code = "MISSING_REQUIRED_COLUMN"
	CodeUnknownColumn               Code = "UNKNOWN_COLUMN"
	CodeDuplicateColumn             Code = "DUPLICATE_COLUMN"
	CodeMissingValueRequiredColumn  Code = "MISSING_VALUE_FOR_REQUIRED_COLUMN"
	CodeInvalidWhitespaceValue      Code = "INVALID_WHITESPACE_VALUE"
	CodeMinStringLengthNotMet       Code = "MIN_STRING_LENGTH_NOT_MET"
	CodeMaxStringLengthExceeded     Code = "MAX_STRING_LENGTH_EXCEEDED"
	CodeExactStringLengthNotMatched Code = "EXACT_STRING_LENGTH_NOT_MATCHED"
	CodeInvalidStringFormat         Code = "INVALID_STRING_FORMAT"
	CodeInvalidValueForCategory     Code = "INVALID_VALUE_FOR_CATEGORY"
	CodeInvalidIntegerInput         Code = "INVALID_INTEGER_INPUT"
	CodeInvalidDecimalInput         Code = "INVALID_DECIMAL_INPUT"
	CodeMaxDecimalLengthExceeded    Code = "MAX_DECIMAL_LENGTH_EXCEEDED"
	CodeMaxDecimalPlacesExceeded    Code = "MAX_DECIMAL_PLACES_EXCEEDED"
	CodeValueOutOfRange             Code = "VALUE_OUT_OF_RANGE"
	CodeInvalidBooleanInput         Code = "INVALID_BOOLEAN_INPUT"
	CodeInvalidTimestampFormat      Code = "INVALID_TIMESTAMP_FORMAT"
	CodeDuplicateRecordInSameUpload Code = "DUPLICATE_RECORD_IN_SAME_UPLOAD"
	CodeDuplicateRecordInSystem     Code = "DUPLICATE_RECORD_IN_SYSTEM"
	CodeModule3UptimeRequired       Code = "MODULE_3_UPTIME_REQUIRED"
)

// Args holds named placeholder values for a message template.
type Args map[string]string

var templates = map[Code]string{
	CodeCSVEmpty:                    "The uploaded file contains no data rows.",
	CodeFileParseFailure:            "The uploaded file could not be read. Check the file format and encoding and upload it again.",
	CodeMissingRequiredColumn:       "Required column {column_name} is missing from the file.",
	CodeUnknownColumn:               "Column {column_name} is not part of this module and cannot be accepted.",
	CodeDuplicateColumn:             "Column {column_name} appears more than once; only the last occurrence was validated.",
	CodeMissingValueRequiredColumn:  "A value is required for column {column_name}.",
	CodeInvalidWhitespaceValue:      "Column {column_name} contains only whitespace.",
	CodeMinStringLengthNotMet:       "The value in column {column_name} is shorter than the minimum allowed length.",
	CodeMaxStringLengthExceeded:     "The value in column {column_name} exceeds the maximum allowed length.",
	CodeExactStringLengthNotMatched: "The value in column {column_name} does not match the required length.",
	CodeInvalidStringFormat:         "The value in column {column_name} does not match the required format.",
	CodeInvalidValueForCategory:     "The value in column {column_name} is not one of the allowed values.",
	CodeInvalidIntegerInput:         "The value in column {column_name} must be a whole number.",
	CodeInvalidDecimalInput:         "The value in column {column_name} must be a decimal number.",
	CodeMaxDecimalLengthExceeded:    "The value in column {column_name} has more digits than the column allows.",
	CodeMaxDecimalPlacesExceeded:    "The value in column {column_name} has more decimal places than the column allows.",
	CodeValueOutOfRange:             "The value in column {column_name} is outside the allowed range.",
	CodeInvalidBooleanInput:         "The value in column {column_name} must be TRUE or FALSE.",
	CodeInvalidTimestampFormat:      "The value in column {column_name} must be an ISO 8601 timestamp.",
	CodeDuplicateRecordInSameUpload: "Duplicate record: the combination of {fields} appears more than once in this upload.",
	CodeDuplicateRecordInSystem:     "Duplicate record: the same {fields} combination was already accepted under upload {upload_id}.",
	CodeModule3UptimeRequired:       "Uptime is required for station {station_id} ({network_provider}) because it has been operational for more than one year.",
}

// Format renders the catalog template for the code with the given named
// placeholders substituted.
func (c Code) Format(args Args) string {
	tmpl, ok := templates[c]
	if !ok {
		return string(c)
	}
	if len(args) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(args)*2)
	for name, value := range args {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func (c Code) String() string { return string(c) }
