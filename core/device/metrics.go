package device

import "github.com/prometheus/client_golang/prometheus"

var (
	phaseTransitions *prometheus.CounterVec
	warningsTotal    *prometheus.CounterVec
)

func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec) {
	transitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stationfinder_phase_transitions_total",
			Help: "Station finder phase transitions",
		},
		[]string{"from", "to"},
	)
	warnings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stationfinder_warnings_total",
			Help: "Per-vehicle station finder warnings by kind",
		},
		[]string{"kind"},
	)
	return transitions, warnings
}

func init() {
	phaseTransitions, warningsTotal = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers device metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(phaseTransitions, warningsTotal)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	phaseTransitions, warningsTotal = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
