package ingestion

import (
	"errors"
	"testing"

	"github.com/evchart/evchart/internal/domain"
	"github.com/evchart/evchart/internal/schema"
)

func portsSchema(t *testing.T) *domain.ModuleSchema {
	t.Helper()
	registry, err := schema.LoadDefault()
	if err != nil {
		t.Fatalf("failed to load module definitions: %v", err)
	}
	ms, ok := registry.ByID(10)
	if !ok {
		t.Fatal("module 10 not defined")
	}
	return ms
}

func TestParseCSVStripsByteOrderMark(t *testing.T) {
	body := append([]byte{0xEF, 0xBB, 0xBF}, []byte(
		"station_id,port_id,network_provider,connector_type,power_level_kw\n"+
			"ST-1,P-1,ChargeCo,CCS,150.00\n")...)

	table, err := parseTable("csv", body, portsSchema(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Headers[0] != "station_id" {
		t.Errorf("BOM should be stripped from the first header, got %q", table.Headers[0])
	}
	if len(table.Rows) != 1 {
		t.Errorf("expected 1 data row, got %d", len(table.Rows))
	}
}

func TestParseCSVDropsTemplateRows(t *testing.T) {
	body := []byte("station_id,port_id,network_provider,connector_type,power_level_kw\n" +
		"String(50),String(50),String(100),String,\"Decimal(7,2)\"\n" +
		"ST-1,P-1,ChargeCo,CCS,150.00\n")

	table, err := parseTable("csv", body, portsSchema(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("template row should be dropped, got %d rows", len(table.Rows))
	}
	if table.Rows[0][0] != "ST-1" {
		t.Errorf("wrong surviving row: %v", table.Rows[0])
	}
}

func TestParseCSVPadsShortRows(t *testing.T) {
	body := []byte("station_id,port_id,network_provider,connector_type,power_level_kw\n" +
		"ST-1,P-1\n")

	table, err := parseTable("csv", body, portsSchema(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows[0]) != len(table.Headers) {
		t.Errorf("short row should be padded to %d cells, got %d", len(table.Headers), len(table.Rows[0]))
	}
}

func TestParseJSONRows(t *testing.T) {
	body := []byte(`[
		{"station_id": "ST-1", "port_id": "P-1", "network_provider": "ChargeCo", "connector_type": "CCS", "power_level_kw": 150.5, "extra": true}
	]`)

	table, err := parseTable("json", body, portsSchema(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Schema columns in declaration order, extras appended.
	if table.Headers[0] != "station_id" || table.Headers[len(table.Headers)-1] != "extra" {
		t.Errorf("unexpected header order: %v", table.Headers)
	}
	if got := table.Value(0, "power_level_kw"); got != "150.5" {
		t.Errorf("expected numeric cell 150.5, got %q", got)
	}
	if got := table.Value(0, "extra"); got != "TRUE" {
		t.Errorf("expected boolean cell TRUE, got %q", got)
	}
}

func TestParseJSONMalformed(t *testing.T) {
	if _, err := parseTable("json", []byte(`{"not": "an array"}`), portsSchema(t)); err == nil {
		t.Fatal("expected an error for a non-array document")
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	_, err := parseTable("pdf", []byte("%PDF-1.4"), portsSchema(t))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseFileTypeIsCaseAndDotInsensitive(t *testing.T) {
	body := []byte("station_id,port_id,network_provider,connector_type,power_level_kw\n" +
		"ST-1,P-1,ChargeCo,CCS,150.00\n")

	for _, fileType := range []string{"CSV", ".csv", ".CSV"} {
		if _, err := parseTable(fileType, body, portsSchema(t)); err != nil {
			t.Errorf("file type %q should be accepted, got %v", fileType, err)
		}
	}
}
