package reservation

import "github.com/prometheus/client_golang/prometheus"

var (
	reservationsTotal  *prometheus.CounterVec
	activeReservations prometheus.Gauge
)

func newCollectors() (*prometheus.CounterVec, prometheus.Gauge) {
	total := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stationfinder_reservations_total",
			Help: "Reservation attempts and releases by outcome",
		},
		[]string{"outcome"},
	)
	active := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stationfinder_active_reservations",
			Help: "Number of reservations currently holding a slot",
		},
	)
	return total, active
}

func init() {
	reservationsTotal, activeReservations = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers arbiter metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(reservationsTotal, activeReservations)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	reservationsTotal, activeReservations = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
