// Package export writes the ride history in interchange formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fuelbuddy/core/ride"
	"github.com/kilianp07/fuelbuddy/core/units"
)

// Supported formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// Row is one exported ride. Distances are given in both units.
type Row struct {
	ID            string     `json:"id" yaml:"id"`
	StartTime     time.Time  `json:"start_time" yaml:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	DistanceMiles float64    `json:"distance_miles" yaml:"distance_miles"`
	DistanceKm    float64    `json:"distance_km" yaml:"distance_km"`
}

// Rows converts ride records.
func Rows(rides []ride.Record) []Row {
	rows := make([]Row, 0, len(rides))
	for _, r := range rides {
		rows = append(rows, Row{
			ID:            r.ID,
			StartTime:     r.StartTime.UTC(),
			EndTime:       utc(r.EndTime),
			DistanceMiles: r.Distance,
			DistanceKm:    r.Distance * units.KilometersPerMile,
		})
	}
	return rows
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Write dispatches on format.
func Write(w io.Writer, format string, rides []ride.Record) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		return WriteJSON(w, rides)
	case FormatYAML, "yml":
		return WriteYAML(w, rides)
	case FormatCSV:
		return WriteCSV(w, rides)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// WriteJSON writes the rides to w as a JSON array.
func WriteJSON(w io.Writer, rides []ride.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Rows(rides))
}

// WriteYAML writes the rides to w as a YAML sequence.
func WriteYAML(w io.Writer, rides []ride.Record) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Rows(rides)); err != nil {
		return err
	}
	return enc.Close()
}

// WriteCSV writes the rides to w in CSV format with a header row. Open rides
// have an empty end time.
func WriteCSV(w io.Writer, rides []ride.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "start_time", "end_time", "distance_miles", "distance_km"}); err != nil {
		return err
	}
	for _, r := range Rows(rides) {
		end := ""
		if r.EndTime != nil {
			end = r.EndTime.Format(time.RFC3339)
		}
		rec := []string{
			r.ID,
			r.StartTime.Format(time.RFC3339),
			end,
			strconv.FormatFloat(r.DistanceMiles, 'f', 3, 64),
			strconv.FormatFloat(r.DistanceKm, 'f', 3, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
