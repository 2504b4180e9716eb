// Package events defines the typed values that flow between the tracker and
// its observers.
//
// Commands enter the tracker from the external command surfaces (MQTT, HTTP,
// CLI). Events leave it on the event bus:
//   - StateChanged: a new evaluation after any mutation
//   - RideStarted, RideCompleted: ride lifecycle
//   - FilledUp: the since-fill counter was reset
//   - BandAlert: fuel entered a more critical band
//   - SampleDropped: a telemetry sample was rejected
//   - SettingsChanged: settings were edited or calibrated
package events
