package tracking

import "errors"

// Sentinel errors returned by package tracking.
var (
	// ErrNotSolved indicates Extract was called on a Builder that has not
	// reached a solved (optimal or feasible) status.
	ErrNotSolved = errors.New("tracking: factor graph has not been solved")

	// ErrBrokenContinuity indicates a chosen segment did not have exactly
	// one chosen outgoing assignment, violating the continuity invariant
	// the MILP constraints are supposed to guarantee; this means the
	// underlying solve produced an inconsistent solution and must not be
	// silently reported as a partial lineage (spec.md §4.5/§7).
	ErrBrokenContinuity = errors.New("tracking: segment does not have exactly one chosen outgoing assignment")

	// ErrUnknownNodeKind indicates a node of an unrecognized kind was
	// encountered while walking a lineage.
	ErrUnknownNodeKind = errors.New("tracking: unknown node kind encountered during lineage extraction")
)
