package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/evchart/evchart/internal/domain"
)

// ErrUnsupportedFormat is returned when an uploaded file type is not supported.
var ErrUnsupportedFormat = errors.New("unsupported file format")

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// parseTable decodes an upload body into the internal tabular form. All
// formats produce the same representation, and template sample rows (cells
// still carrying the blank template's datatype labels) are dropped before
// validation.
func parseTable(fileType string, payload []byte, ms *domain.ModuleSchema) (domain.Table, error) {
	var (
		table domain.Table
		err   error
	)
	switch strings.ToLower(strings.TrimPrefix(fileType, ".")) {
	case "csv":
		table, err = parseCSV(payload)
	case "json":
		table, err = parseJSON(payload, ms)
	case "xlsx":
		table, err = parseXLSX(payload)
	default:
		return domain.Table{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileType)
	}
	if err != nil {
		return domain.Table{}, err
	}

	table.Rows = dropTemplateRows(table, ms)
	return table, nil
}

func parseCSV(payload []byte) (domain.Table, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return domain.Table{}, fmt.Errorf("failed to read csv: %w", err)
	}

	return normalizeTable(records)
}

func parseXLSX(payload []byte) (domain.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return domain.Table{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.Table{}, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return domain.Table{}, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}

	return normalizeTable(rows)
}

// parseJSON decodes a row-oriented JSON table (an array of objects). Column
// order follows the schema for defined columns; any extra keys are appended
// alphabetically so the result is deterministic.
func parseJSON(payload []byte, ms *domain.ModuleSchema) (domain.Table, error) {
	var objects []map[string]any
	if err := json.Unmarshal(payload, &objects); err != nil {
		return domain.Table{}, fmt.Errorf("failed to read json rows: %w", err)
	}

	present := make(map[string]struct{})
	for _, obj := range objects {
		for key := range obj {
			present[key] = struct{}{}
		}
	}

	var headers []string
	for _, name := range ms.ColumnNames() {
		if _, ok := present[name]; ok {
			headers = append(headers, name)
			delete(present, name)
		}
	}
	extras := make([]string, 0, len(present))
	for key := range present {
		extras = append(extras, key)
	}
	sort.Strings(extras)
	headers = append(headers, extras...)

	rows := make([][]string, 0, len(objects))
	for _, obj := range objects {
		row := make([]string, len(headers))
		for i, header := range headers {
			row[i] = stringifyJSONValue(obj[header])
		}
		rows = append(rows, row)
	}

	return domain.Table{Headers: headers, Rows: rows}, nil
}

func stringifyJSONValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".")
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

// normalizeTable turns raw records into a header row plus padded data rows,
// skipping rows that are entirely empty.
func normalizeTable(records [][]string) (domain.Table, error) {
	if len(records) == 0 {
		return domain.Table{}, errors.New("no rows found in file")
	}

	var headers []string
	var rows [][]string
	for _, record := range records {
		if rowEmpty(record) {
			continue
		}
		if headers == nil {
			headers = make([]string, len(record))
			for i, cell := range record {
				headers[i] = strings.TrimSpace(cell)
			}
			continue
		}
		rows = append(rows, padRow(record, len(headers)))
	}

	if headers == nil {
		return domain.Table{}, errors.New("header row could not be detected")
	}

	return domain.Table{Headers: headers, Rows: rows}, nil
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}

// dropTemplateRows removes instructional rows from the blank template: rows
// where every non-empty cell is its column's own datatype label (e.g. a
// literal "Decimal(7,2)" under a decimal column).
func dropTemplateRows(table domain.Table, ms *domain.ModuleSchema) [][]string {
	kept := make([][]string, 0, len(table.Rows))
	for row := range table.Rows {
		if isTemplateRow(table, row, ms) {
			continue
		}
		kept = append(kept, table.Rows[row])
	}
	return kept
}

func isTemplateRow(table domain.Table, row int, ms *domain.ModuleSchema) bool {
	labelled := 0
	for col, header := range table.Headers {
		cell := table.Cell(row, col)
		if cell == "" {
			continue
		}
		def, ok := ms.Field(header)
		if !ok {
			return false
		}
		if !strings.EqualFold(cell, def.TypeLabel()) {
			return false
		}
		labelled++
	}
	return labelled > 0
}
