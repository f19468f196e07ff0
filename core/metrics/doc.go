// Package metrics defines the sinks that record station finder activity for
// observability. A sink receives trip summaries and may also implement the
// optional PhaseRecorder and WarningRecorder interfaces. Sinks are created by
// name through the factory registry; NewMetricsSink returns a MultiSink when
// several are configured. Implementations live in infra/metrics.
package metrics
