package drs

import (
	"github.com/uber-go/tally/v4"
)

// Metrics tracks the load-balancing pass.
type Metrics struct {
	EmptiedHosts      tally.Counter
	FailedRelocations tally.Counter
	Migrations        tally.Counter
	Duration          tally.Timer
}

// NewMetrics returns Metrics rooted below the given scope.
func NewMetrics(scope tally.Scope) *Metrics {
	return &Metrics{
		EmptiedHosts:      scope.Counter("hosts_emptied"),
		FailedRelocations: scope.Counter("relocations_failed"),
		Migrations:        scope.Counter("migrations"),
		Duration:          scope.Timer("consolidate_duration"),
	}
}
