package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/kilianp07/stationfinder/core/model"
	"github.com/kilianp07/stationfinder/core/tripinfo"
)

func records() []tripinfo.Record {
	return []tripinfo.Record{
		{Summary: model.Summary{VehicleID: "v1", Detours: 1, DetourDistance: 312.5, DetourTime: 22500 * time.Millisecond, ChargingStation: "S", FinalPhase: model.PhaseNormal}, Tick: 40},
		{Summary: model.Summary{VehicleID: "v2", FinalPhase: model.PhaseSearching, AdmissionWarnings: 1}, Tick: 55, Stranded: true},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records()); err != nil {
		t.Fatalf("write: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "v1" || rows[1][2] != "NORMAL" || rows[1][4] != "312.5" || rows[1][5] != "22.5" {
		t.Fatalf("unexpected row %v", rows[1])
	}
	if rows[2][2] != "SEARCHING" || rows[2][10] != "true" {
		t.Fatalf("unexpected row %v", rows[2])
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, records()); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[0]["final_phase"] != "NORMAL" || out[1]["stranded"] != true {
		t.Fatalf("unexpected output %v", out)
	}

	buf.Reset()
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := bytes.TrimSpace(buf.Bytes()); string(got) != "[]" {
		t.Fatalf("expected empty array, got %s", got)
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, Format("xml"), nil); err == nil {
		t.Fatal("expected error")
	}
}
