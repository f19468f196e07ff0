package metrics

import "errors"

// MultiSink fans out records to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTripSummary forwards the summary to all sinks and joins their errors.
func (m *MultiSink) RecordTripSummary(ev TripSummary) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordTripSummary(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordPhaseTransition forwards transitions to the sinks supporting them.
func (m *MultiSink) RecordPhaseTransition(ev PhaseTransition) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(PhaseRecorder); ok {
			if err := rec.RecordPhaseTransition(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordWarning forwards warnings to the sinks supporting them.
func (m *MultiSink) RecordWarning(ev Warning) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(WarningRecorder); ok {
			if err := rec.RecordWarning(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
