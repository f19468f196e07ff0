// Package events defines the station finder events emitted on the event bus.
//
// Available event types:
//   - PhaseEvent: a device changed phase
//   - WarningEvent: a per-vehicle warning such as admission exhaustion
//   - SummaryEvent: a device finished its trip
package events
