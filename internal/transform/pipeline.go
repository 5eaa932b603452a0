// Package transform converts validated string cells into their storage types
// and applies module-specific normalization ahead of persistence.
package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/evchart/evchart/internal/domain"
)

// NoDataColumn is the derived bookkeeping flag set on rows that business
// rules identified as intentional "nothing to report" submissions.
const NoDataColumn = "user_reports_no_data"

// moduleNullFlags lists, per module and in declared order, the flags that
// turn the literal string "NULL" into a real null. The module 5 pair
// implements overlapping policies on purpose; when both are enabled the
// second is a no-op because the first already normalized the cell.
var moduleNullFlags = map[int][]domain.FeatureFlag{
	5: {domain.FlagModule5Nulls, domain.FlagAsyncJSONModule5},
}

// timestampLayouts mirrors the validator's accepted input forms.
var timestampLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
}

// Apply coerces every row of a validated table into storage-typed records.
// noDataRows (nil when the module has no such rule) adds the bookkeeping
// column and synthesizes a surrogate session key for marked rows lacking a
// natural one. Re-applying to already-typed values under the same flags is a
// no-op; the pipeline is not safe to re-run after a flag change.
func Apply(ms *domain.ModuleSchema, table domain.Table, flags domain.FlagSet, noDataRows map[int]bool, uploadID string) ([]domain.Record, error) {
	normalizeNulls := false
	for _, flag := range moduleNullFlags[ms.ModuleID] {
		if flags.Enabled(flag) {
			normalizeNulls = true
			break
		}
	}

	surrogateBase := uuid.New()
	surrogateSeq := 0

	records := make([]domain.Record, 0, len(table.Rows))
	for row := range table.Rows {
		record := make(domain.Record, len(ms.Fields))
		for _, def := range ms.Fields {
			col := table.ColumnIndex(def.Name)
			if col < 0 {
				record[def.Name] = nil
				continue
			}
			raw := table.Cell(row, col)
			if normalizeNulls && strings.EqualFold(raw, "NULL") {
				record[def.Name] = nil
				continue
			}
			value, err := CoerceValue(raw, def)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", row, def.Name, err)
			}
			record[def.Name] = value
		}

		if noDataRows != nil {
			if noDataRows[row] {
				record[NoDataColumn] = int16(1)
				if _, ok := ms.Field("session_id"); ok && record["session_id"] == nil {
					surrogateSeq++
					record["session_id"] = fmt.Sprintf("no-session-%s-%s-%04d", uploadID, surrogateBase, surrogateSeq)
				}
			} else {
				record[NoDataColumn] = int16(0)
			}
		}

		records = append(records, record)
	}

	return records, nil
}

// CoerceValue converts one accepted cell to its storage type. Values that
// are already typed pass through untouched, which is what makes re-applying
// the pipeline to transformed data a no-op.
func CoerceValue(value any, def domain.FieldDefinition) (any, error) {
	raw, isString := value.(string)
	if !isString {
		return value, nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	switch def.Type {
	case domain.DataTypeString, domain.DataTypeCategorical:
		return raw, nil
	case domain.DataTypeInteger:
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("coerce %q to integer: %w", raw, err)
		}
		return parsed, nil
	case domain.DataTypeDecimal:
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("coerce %q to decimal: %w", raw, err)
		}
		return parsed, nil
	case domain.DataTypeBoolean:
		switch strings.ToUpper(raw) {
		case "TRUE":
			return int16(1), nil
		case "FALSE":
			return int16(0), nil
		}
		return nil, fmt.Errorf("coerce %q to boolean", raw)
	case domain.DataTypeDatetime:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("coerce %q to timestamp", raw)
	default:
		return raw, nil
	}
}
