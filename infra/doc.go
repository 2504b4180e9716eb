// Package infra contains technical adapters: the MQTT transport, snapshot
// files, sqlite storage and metrics exporters. These packages should depend
// only on the interfaces defined in the core packages.
package infra
