package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fuelbuddy/config"
	"github.com/kilianp07/fuelbuddy/core/ride"
	"github.com/kilianp07/fuelbuddy/core/tracker"
	"github.com/kilianp07/fuelbuddy/core/units"
)

// testConfig writes a config pointing the store and snapshot file at a temp
// dir.
func testConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	snap := filepath.Join(dir, "snap.json")
	data := "store:\n  path: " + filepath.Join(dir, "fuel.db") + "\n" +
		"snapshot:\n  media:\n    - type: file\n      conf:\n        path: " + snap + "\n" +
		"fuel:\n  unit_preference: imperial\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path, snap
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestStatusCommand(t *testing.T) {
	cfg, _ := testConfig(t)
	out := execute(t, "status", "--config", cfg, "--json=true")
	var st tracker.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "OK", st.StatusText)
	assert.Equal(t, "81.2 mi", st.Remaining)

	out = execute(t, "status", "--config", cfg, "--json=false")
	assert.True(t, strings.HasPrefix(out, "OK\n"), out)
	assert.Contains(t, out, "81.2 mi of 81.2 mi")
}

func TestCalibrateApplyAndWidget(t *testing.T) {
	cfg, _ := testConfig(t)
	out := execute(t, "calibrate", "pump", "--config", cfg, "--fuel", "1.2", "--distance", "67.056", "--apply=false", "--update-tank=false")
	assert.Contains(t, out, "55.88 mpg")
	assert.NotContains(t, out, "applied")

	out = execute(t, "calibrate", "pump", "--config", cfg, "--fuel", "1.2", "--distance", "67.056", "--apply", "--update-tank")
	assert.Contains(t, out, "applied: tank 1.20 gal, economy 55.88 mpg, range 67.1 mi")

	// The applied calibration republished the snapshot file.
	out = execute(t, "widget", "--config", cfg, "--once", "--file", "")
	assert.Contains(t, out, "67 mi")
}

func TestRidesExportEmpty(t *testing.T) {
	cfg, _ := testConfig(t)
	out := execute(t, "rides", "export", "--config", cfg, "--format", "csv", "--output", "")
	assert.Equal(t, "id,start_time,end_time,distance_miles,distance_km\n", out)
}

func TestRidesExportToFile(t *testing.T) {
	cfg, _ := testConfig(t)
	path := filepath.Join(t.TempDir(), "rides.csv")
	out := execute(t, "rides", "export", "--config", cfg, "--format", "csv", "--output", path)
	assert.Empty(t, out)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,start_time,end_time,distance_miles,distance_km\n", string(data))
}

type failingCloser struct {
	bytes.Buffer
	closed bool
}

func (f *failingCloser) Close() error {
	f.closed = true
	return errors.New("disk full")
}

func TestWriteAndCloseReportsCloseError(t *testing.T) {
	fc := &failingCloser{}
	err := writeAndClose(fc, func(w io.Writer) error {
		_, err := io.WriteString(w, "id\n")
		return err
	})
	require.ErrorContains(t, err, "disk full")
	assert.True(t, fc.closed)

	// The write error wins over the close error.
	fc = &failingCloser{}
	err = writeAndClose(fc, func(io.Writer) error { return errors.New("bad format") })
	require.EqualError(t, err, "bad format")
	assert.True(t, fc.closed)
}

func TestCalibrateAverage(t *testing.T) {
	path, _ := testConfig(t)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	ctx := context.Background()
	tr, closeFn, err := openTracker(ctx, cfg)
	require.NoError(t, err)
	for _, fill := range []struct{ miles, gallons float64 }{{60, 1.2}, {35, 0.5}} {
		require.True(t, tr.StartRide(ctx))
		require.True(t, tr.RecordSample(ctx, ride.Sample{DistanceMeters: fill.miles / units.MilesPerMeter, HorizontalAccuracy: 4}))
		tr.FillUp(ctx, fill.gallons)
	}
	closeFn()

	out := execute(t, "calibrate", "average", "--config", path, "--apply")
	assert.Contains(t, out, "average calibration over 95.0 mi: 55.88 mpg")
	assert.Contains(t, out, "applied: tank 1.45 gal, economy 55.88 mpg")
}
