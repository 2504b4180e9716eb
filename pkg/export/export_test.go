package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/fuelbuddy/core/ride"
)

func sampleRides() []ride.Record {
	start := time.Date(2025, 8, 21, 9, 0, 0, 0, time.UTC)
	end := start.Add(20 * time.Minute)
	return []ride.Record{
		{ID: "a", StartTime: start, EndTime: &end, Distance: 10},
		{ID: "b", StartTime: end, Distance: 0},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRides()))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"id", "start_time", "end_time", "distance_miles", "distance_km"}, recs[0])
	assert.Equal(t, []string{"a", "2025-08-21T09:00:00Z", "2025-08-21T09:20:00Z", "10.000", "16.093"}, recs[1])
	assert.Equal(t, "", recs[2][2])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "JSON", sampleRides()))
	var rows []Row
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].ID)
	assert.InDelta(t, 16.0934, rows[0].DistanceKm, 1e-9)
	assert.Nil(t, rows[1].EndTime)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "yaml", sampleRides()))
	assert.Contains(t, buf.String(), "distance_miles: 10")
	var rows []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[1]["id"])
	_, hasEnd := rows[1]["end_time"]
	assert.False(t, hasEnd)
}

func TestWriteUnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, "xml", nil))
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}
