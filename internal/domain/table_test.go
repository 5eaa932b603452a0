package domain

import "testing"

func TestTableColumnIndexResolvesLastOccurrence(t *testing.T) {
	table := Table{
		Headers: []string{"station_id", "power_level_kw", "power_level_kw"},
		Rows: [][]string{
			{"ST-1", "bad", "150.00"},
		},
	}

	if idx := table.ColumnIndex("power_level_kw"); idx != 2 {
		t.Errorf("expected last occurrence index 2, got %d", idx)
	}
	if got := table.Value(0, "power_level_kw"); got != "150.00" {
		t.Errorf("expected last-occurrence value, got %q", got)
	}
	if idx := table.ColumnIndex("missing"); idx != -1 {
		t.Errorf("expected -1 for unknown column, got %d", idx)
	}
}

func TestTableDuplicateHeaders(t *testing.T) {
	table := Table{Headers: []string{"a", "b", "a", "c", "b", "a"}}

	dups := table.DuplicateHeaders()
	if len(dups) != 2 || dups[0] != "a" || dups[1] != "b" {
		t.Errorf("expected [a b] in first-appearance order, got %v", dups)
	}
}

func TestTableCellTrimsAndToleratesShortRows(t *testing.T) {
	table := Table{
		Headers: []string{"a", "b", "c"},
		Rows: [][]string{
			{"  x  ", "y"},
		},
	}

	if got := table.Cell(0, 0); got != "x" {
		t.Errorf("expected trimmed cell, got %q", got)
	}
	if got := table.Cell(0, 2); got != "" {
		t.Errorf("short row should read as empty, got %q", got)
	}
	if got := table.Cell(5, 0); got != "" {
		t.Errorf("out-of-range row should read as empty, got %q", got)
	}
}

func TestTableRowBlank(t *testing.T) {
	table := Table{
		Headers: []string{"a", "b"},
		Rows: [][]string{
			{"", "  "},
			{"", "x"},
		},
	}

	if !table.RowBlank(0) {
		t.Error("whitespace-only row should be blank")
	}
	if table.RowBlank(1) {
		t.Error("row with a value should not be blank")
	}
}
