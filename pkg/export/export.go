// Package export writes trip summaries for offline analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/kilianp07/stationfinder/core/tripinfo"
)

// Format names an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Write encodes records in the given format.
func Write(w io.Writer, format Format, recs []tripinfo.Record) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, recs)
	case FormatCSV:
		return WriteCSV(w, recs)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// WriteJSON writes the records to w as a JSON array.
func WriteJSON(w io.Writer, recs []tripinfo.Record) error {
	if recs == nil {
		recs = []tripinfo.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// WriteCSV writes one row per record with a header line.
func WriteCSV(w io.Writer, recs []tripinfo.Record) error {
	cw := csv.NewWriter(w)
	header := []string{
		"vehicle_id", "tick", "final_phase", "detours", "detour_distance_m",
		"detour_time_s", "charging_station", "admission_warnings",
		"last_resort_attempts", "modeling_failure", "stranded",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			r.VehicleID,
			strconv.FormatInt(r.Tick, 10),
			r.FinalPhase.String(),
			strconv.Itoa(r.Detours),
			strconv.FormatFloat(r.DetourDistance, 'f', -1, 64),
			strconv.FormatFloat(r.DetourTime.Seconds(), 'f', -1, 64),
			r.ChargingStation,
			strconv.Itoa(r.AdmissionWarnings),
			strconv.Itoa(r.LastResortAttempts),
			strconv.FormatBool(r.ModelingFailure),
			strconv.FormatBool(r.Stranded),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
