// Package metrics defines the recorder contracts for fuel tracking
// observability. Sinks like PromSink and InfluxSink record range states,
// completed rides and band alerts, and can be combined with NewMultiSink.
// NewMetricsSink returns a MultiSink automatically when several sinks are
// configured.
package metrics
