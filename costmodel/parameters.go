// Package costmodel computes the pure, stateless node costs the graph
// builder (package trackgraph) attaches to each variable node: segment
// inclusion, appearance, exit, inter-frame mapping, and division.
//
// Every function here is a pure function of its segment.Segment inputs and
// a Parameters value; nothing in this package holds state or performs I/O.
// Costs are designed so that more negative values mean "more likely to be
// a real, persisting cell" — the MILP objective (package milp, wired up by
// trackgraph) minimizes total cost, so favorable nodes pull the objective down.
package costmodel

import "fmt"

// Parameters tunes every cost function in this package. There is no single
// "correct" default; DefaultParameters returns values that keep every cost
// in the same rough order of magnitude, matching the scale the original
// tracker's author tuned by hand (see original_source/Tracking/NodeCosts.py).
type Parameters struct {
	// MaxConflicts normalizes the conflict-count reward; segments with
	// MaxConflicts-many overlapping candidates (self included, see
	// segment.Segment.Conflicts) receive the full ConflictMaxCost benefit.
	MaxConflicts int

	// ConflictMinCost, ConflictMaxCost bound the linear conflict-count benefit.
	ConflictMinCost, ConflictMaxCost float64

	// CompactnessMinCost, CompactnessMaxCost, CompactnessMidPoint, and
	// CompactnessSlope shape the logistic compactness benefit.
	CompactnessMinCost, CompactnessMaxCost float64
	CompactnessMidPoint, CompactnessSlope  float64

	// ExitCost is the constant cost of an ExitNode.
	ExitCost float64

	// AppearanceCostScale multiplies |segment_cost| to yield the
	// appearance cost (see AppearanceCost).
	AppearanceCostScale float64

	// MaxCost is the prune threshold: candidate DivisionNodes with
	// DivisionCost >= MaxCost are never added to the graph (trackgraph.Builder).
	MaxCost float64
}

// DefaultParameters returns a reasonable, order-of-magnitude-one cost
// configuration suitable as a starting point for tuning.
func DefaultParameters() Parameters {
	return Parameters{
		MaxConflicts:        5,
		ConflictMinCost:     0,
		ConflictMaxCost:     0.3,
		CompactnessMinCost:  0,
		CompactnessMaxCost:  0.3,
		CompactnessMidPoint: 0.5,
		CompactnessSlope:    10,
		ExitCost:            0,
		AppearanceCostScale: 1,
		MaxCost:             1.0,
	}
}

// Validate reports whether p is self-consistent enough to be used: ranges
// must not be inverted and MaxConflicts must be positive (it is a divisor).
func (p Parameters) Validate() error {
	if p.MaxConflicts <= 0 {
		return fmt.Errorf("costmodel: %w: max_conflicts=%d", ErrInvalidParameters, p.MaxConflicts)
	}
	if p.ConflictMaxCost < p.ConflictMinCost {
		return fmt.Errorf("costmodel: %w: conflict_max_cost < conflict_min_cost", ErrInvalidParameters)
	}
	if p.CompactnessMaxCost < p.CompactnessMinCost {
		return fmt.Errorf("costmodel: %w: compactness_max_cost < compactness_min_cost", ErrInvalidParameters)
	}

	return nil
}
