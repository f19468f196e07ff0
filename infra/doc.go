// Package infra holds the adapters that connect a station finder run to the
// outside world: the zerolog logger, Prometheus and InfluxDB metric sinks and
// the MQTT event publisher. Packages here implement interfaces declared under
// core and are never imported by core.
package infra
