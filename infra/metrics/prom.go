package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/stationfinder/core/metrics"
)

// PromSink records trip summaries in Prometheus metrics.
type PromSink struct {
	trips     *prometheus.CounterVec
	detours   prometheus.Counter
	distance  prometheus.Histogram
	detourDur prometheus.Histogram
	warnings  *prometheus.CounterVec
}

// NewPromSink registers trip metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	trips := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stationfinder_trips_total",
		Help: "Trips finished by equipped vehicles",
	}, []string{"final_phase", "charged"})
	detours := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stationfinder_detours_total",
		Help: "Charging detours installed",
	})
	distance := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stationfinder_detour_distance_meters",
		Help:    "Added distance of the charging detours of a trip",
		Buckets: prometheus.ExponentialBuckets(100, 2, 10),
	})
	detourDur := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stationfinder_detour_time_seconds",
		Help:    "Added travel time of the charging detours of a trip",
		Buckets: prometheus.ExponentialBuckets(10, 2, 10),
	})
	warnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stationfinder_trip_warnings_total",
		Help: "Warnings recorded through the metrics sink",
	}, []string{"kind"})

	var err error
	if trips, err = register(reg, trips); err != nil {
		return nil, err
	}
	if detours, err = register(reg, detours); err != nil {
		return nil, err
	}
	if distance, err = register(reg, distance); err != nil {
		return nil, err
	}
	if detourDur, err = register(reg, detourDur); err != nil {
		return nil, err
	}
	if warnings, err = register(reg, warnings); err != nil {
		return nil, err
	}
	return &PromSink{trips: trips, detours: detours, distance: distance, detourDur: detourDur, warnings: warnings}, nil
}

// register returns the already registered collector when c was registered
// before, so sinks can be created more than once per process.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordTripSummary counts the trip and observes its detour cost.
func (s *PromSink) RecordTripSummary(ev coremetrics.TripSummary) error {
	sum := ev.Summary
	s.trips.WithLabelValues(sum.FinalPhase.String(), strconv.FormatBool(sum.ChargingStation != "")).Inc()
	if sum.Detours == 0 {
		return nil
	}
	s.detours.Add(float64(sum.Detours))
	s.distance.Observe(sum.DetourDistance)
	s.detourDur.Observe(sum.DetourTime.Seconds())
	return nil
}

// RecordWarning counts the warning by kind.
func (s *PromSink) RecordWarning(ev coremetrics.Warning) error {
	s.warnings.WithLabelValues(ev.Kind).Inc()
	return nil
}

var (
	_ coremetrics.MetricsSink     = (*PromSink)(nil)
	_ coremetrics.WarningRecorder = (*PromSink)(nil)
)
