package domain

import "strings"

// Table is the internal tabular representation every upload format (CSV,
// JSON, XLSX) decodes to before validation. Headers keep file order,
// including duplicates; Rows are padded to the header width.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Cell returns the trimmed value at (row, col), or "" when the row is short.
func (t Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	cells := t.Rows[row]
	if col < 0 || col >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[col])
}

// ColumnIndex returns the position of the last occurrence of a header, or -1.
// When a header is duplicated only the last occurrence is validated.
func (t Table) ColumnIndex(name string) int {
	idx := -1
	for i, h := range t.Headers {
		if h == name {
			idx = i
		}
	}
	return idx
}

// Value returns the trimmed cell for a named column on one row, resolving
// duplicate headers to the last occurrence.
func (t Table) Value(row int, column string) string {
	return t.Cell(row, t.ColumnIndex(column))
}

// DuplicateHeaders returns header names that appear more than once, in first
// appearance order.
func (t Table) DuplicateHeaders() []string {
	counts := make(map[string]int, len(t.Headers))
	for _, h := range t.Headers {
		counts[h]++
	}
	var dups []string
	seen := make(map[string]struct{})
	for _, h := range t.Headers {
		if counts[h] > 1 {
			if _, done := seen[h]; !done {
				dups = append(dups, h)
				seen[h] = struct{}{}
			}
		}
	}
	return dups
}

// HasHeader reports whether the table contains the named column.
func (t Table) HasHeader(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// RowBlank reports whether every cell of a row is empty or whitespace.
func (t Table) RowBlank(row int) bool {
	if row < 0 || row >= len(t.Rows) {
		return true
	}
	for _, cell := range t.Rows[row] {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
