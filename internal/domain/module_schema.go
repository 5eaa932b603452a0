package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DataType classifies the value space of a module column.
type DataType string

const (
	DataTypeString      DataType = "string"
	DataTypeCategorical DataType = "categorical"
	DataTypeInteger     DataType = "integer"
	DataTypeDecimal     DataType = "decimal"
	DataTypeBoolean     DataType = "boolean"
	DataTypeDatetime    DataType = "datetime"
)

// KnownDataTypes lists every datatype the registry accepts.
var KnownDataTypes = map[DataType]struct{}{
	DataTypeString:      {},
	DataTypeCategorical: {},
	DataTypeInteger:     {},
	DataTypeDecimal:     {},
	DataTypeBoolean:     {},
	DataTypeDatetime:    {},
}

// Requirement states whether a column must, should, or need not carry a value.
type Requirement string

const (
	RequirementRequired      Requirement = "required"
	RequirementRecommended   Requirement = "recommended"
	RequirementNotApplicable Requirement = "not_applicable"
)

// Frequency is the reporting cadence of a module.
type Frequency string

const (
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
	FrequencyOneTime   Frequency = "one_time"
)

// FieldDefinition describes one (module, column) pair. Instances are owned by
// the schema registry and never mutated after load.
type FieldDefinition struct {
	Name        string      `json:"name"`
	Type        DataType    `json:"type"`
	Requirement Requirement `json:"requirement"`

	// String constraints.
	MinLength   *int   `json:"minLength,omitempty"`
	MaxLength   *int   `json:"maxLength,omitempty"`
	ExactLength *int   `json:"exactLength,omitempty"`
	Pattern     string `json:"pattern,omitempty"`

	// Numeric constraints. Precision is the maximum total digit count,
	// Scale the maximum number of decimal places.
	MinValue     *decimal.Decimal `json:"minValue,omitempty"`
	MaxValue     *decimal.Decimal `json:"maxValue,omitempty"`
	MaxPrecision int              `json:"maxPrecision,omitempty"`
	MaxScale     int              `json:"maxScale,omitempty"`

	// Allowed value set for categorical columns.
	AllowedValues []string `json:"allowedValues,omitempty"`
}

// Required reports whether an empty cell in this column is a validation error.
func (f FieldDefinition) Required() bool {
	return f.Requirement == RequirementRequired
}

// TypeLabel renders the datatype label printed in the blank submission
// template (e.g. "Decimal(7,2)"). The parser drops sample rows whose cells
// still carry these labels.
func (f FieldDefinition) TypeLabel() string {
	switch f.Type {
	case DataTypeString, DataTypeCategorical:
		if f.ExactLength != nil {
			return fmt.Sprintf("String(%d)", *f.ExactLength)
		}
		if f.MaxLength != nil {
			return fmt.Sprintf("String(%d)", *f.MaxLength)
		}
		return "String"
	case DataTypeInteger:
		return "Integer"
	case DataTypeDecimal:
		return fmt.Sprintf("Decimal(%d,%d)", f.MaxPrecision, f.MaxScale)
	case DataTypeBoolean:
		return "TRUE/FALSE"
	case DataTypeDatetime:
		return "Datetime(ISO 8601)"
	default:
		return string(f.Type)
	}
}

// ModuleSchema is the full column definition set for one module or auxiliary
// table. Constructed once by the registry at process start, read-only after.
type ModuleSchema struct {
	ModuleID    int         `json:"moduleId"`
	TableName   string      `json:"tableName"`
	DisplayName string      `json:"displayName"`
	Frequency   Frequency   `json:"frequency"`
	Fields      []FieldDefinition `json:"fields"`

	// UniqueKey is the column tuple whose value combination must be unique
	// within an upload and across previously accepted uploads.
	UniqueKey []string `json:"uniqueKey,omitempty"`

	// SkipUnknownColumns suppresses UNKNOWN_COLUMN conditions for columns
	// outside the definition set.
	SkipUnknownColumns bool `json:"skipUnknownColumns,omitempty"`
}

// Field returns the definition for a column name, if one exists.
func (m *ModuleSchema) Field(name string) (FieldDefinition, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// RequiredColumns returns the ordered names of all required columns.
func (m *ModuleSchema) RequiredColumns() []string {
	var names []string
	for _, f := range m.Fields {
		if f.Required() {
			names = append(names, f.Name)
		}
	}
	return names
}

// ColumnNames returns all defined column names in declaration order.
func (m *ModuleSchema) ColumnNames() []string {
	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	return names
}

// HasUniqueKey reports whether the schema declares a uniqueness constraint.
func (m *ModuleSchema) HasUniqueKey() bool {
	return len(m.UniqueKey) > 0
}

// UniqueKeyLabel renders the unique-key tuple for error messages.
func (m *ModuleSchema) UniqueKeyLabel() string {
	return strings.Join(m.UniqueKey, ", ")
}
