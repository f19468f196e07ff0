// Package energy turns a battery snapshot and a planned distance into a
// feasibility margin. A margin of zero or more means the vehicle can cover the
// distance while keeping the configured reserve.
package energy
