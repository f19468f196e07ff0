package device

import "errors"

var (
	// ErrNoFeasibleStation is reported when no candidate can be reached with
	// the reserve kept. The least infeasible one is still attempted.
	ErrNoFeasibleStation = errors.New("no feasible station")
	// ErrAdmissionExhausted is reported once per search episode after the
	// retry budget is spent.
	ErrAdmissionExhausted = errors.New("admission retries exhausted")
	// ErrNoBattery is returned when the device has no battery attached.
	ErrNoBattery = errors.New("no battery attached")
)
