// Package trackgraph builds and solves the factor graph described in
// spec.md §4.3 (C3): one variable node per candidate segment, per possible
// appearance/exit, and per possible inter-frame mapping/division, wired
// together by continuity, conflict, and no-consecutive-division
// constraints and solved as a binary integer program via package milp.
//
// It also implements the constraint editor (spec.md §4.6, C6):
// Builder.Force lets a caller pin an individual node to 1 or release it,
// and re-solve without rebuilding the graph.
package trackgraph

import (
	"github.com/alanpreed/phd-image-analysis/milp"
	"github.com/alanpreed/phd-image-analysis/segment"
)

// NodeKind tags the variant a Node carries (spec.md §3 VariableNode).
type NodeKind int

const (
	// KindSegment marks a candidate-segment inclusion variable.
	KindSegment NodeKind = iota
	// KindAppearance marks a segment's "new in this frame" variable.
	KindAppearance
	// KindExit marks a segment's "this is its last frame" variable.
	KindExit
	// KindMapping marks a one-to-one inter-frame assignment variable.
	KindMapping
	// KindDivision marks a one-to-two inter-frame assignment variable.
	KindDivision
)

// String renders the node kind for diagnostics and var-name construction.
func (k NodeKind) String() string {
	switch k {
	case KindSegment:
		return "segment"
	case KindAppearance:
		return "appear"
	case KindExit:
		return "exit"
	case KindMapping:
		return "map"
	case KindDivision:
		return "divide"
	default:
		return "unknown"
	}
}

// NodeRef indexes into Builder's node arena. It is the Go analogue of the
// teacher source's cyclic Python object back-references (spec.md §9):
// rather than nodes pointing at each other directly, every cross-reference
// is an index into one flat []Node, so the whole graph is free of pointer
// cycles and trivially clearable between builds.
type NodeRef int

// segKey identifies one candidate segment by (frame, seg_id). seg_id is
// only unique within its frame (spec.md §3), so both fields are required.
type segKey struct {
	frameID int
	segID   int
}

// Node is the tagged-sum variable node (spec.md §9): Kind selects which of
// the payload fields below are meaningful. Every node shares the header
// {Cost, VarID, ForceInclusion} spec.md §3 requires of VariableNode.
type Node struct {
	Kind NodeKind
	Name string // unique MILP variable name, also used to build Force's constraint name

	Cost           float64
	VarID          milp.VarID
	ForceInclusion bool

	// Seg is populated for KindSegment: which candidate this node gates.
	Seg *segment.Segment

	// SegNode is populated for KindAppearance/KindExit: the SegmentNode
	// this appearance/exit refers to.
	SegNode NodeRef

	// OldNode is populated for KindMapping/KindDivision: the previous-frame SegmentNode.
	OldNode NodeRef

	// NewNode is populated for KindMapping: the next-frame SegmentNode.
	NewNode NodeRef

	// NewNode1, NewNode2 are populated for KindDivision: the two daughter SegmentNodes.
	NewNode1, NewNode2 NodeRef
}

// BuildState tracks the factor graph's construction lifecycle (spec.md §4.3).
type BuildState int

const (
	// StateEmpty is the initial state: no nodes or constraints exist yet.
	StateEmpty BuildState = iota
	// StateNodesAdded means every variable node has been created.
	StateNodesAdded
	// StateConstraintsPosted means every constraint has been posted; the objective is set next.
	StateConstraintsPosted
	// StateReadyToSolve means Build completed successfully; Solve may be called.
	StateReadyToSolve
)

// SolverStatus is the engine-level solve outcome (spec.md §6/§7), distinct
// from milp.Status: it additionally names the lifecycle states before and
// during a solve, and folds milp's Infeasible and NoSolution into one
// Unsolvable outcome.
type SolverStatus int

const (
	// StatusInitialised means Solve has not been called yet (whether or not Build has run).
	StatusInitialised SolverStatus = iota
	// StatusRunning means Solve is in progress; Builder never sets it, it is kept for API completeness.
	StatusRunning
	// StatusSolvedOptimal means the MILP solver proved optimality.
	StatusSolvedOptimal
	// StatusSolvedFeasible means a feasible (not proved optimal) solution was returned.
	StatusSolvedFeasible
	// StatusUnsolvable means no assignment satisfies every constraint.
	StatusUnsolvable
	// StatusError means the solver failed for a reason other than infeasibility.
	StatusError
)

// String renders the canonical spec.md §6 symbolic name. This is the
// canonicalized spelling the original's "SOLVED_FEASBILE" typo is folded
// into (spec.md §9 Open Question): the symbol, not the string, is the contract.
func (s SolverStatus) String() string {
	switch s {
	case StatusInitialised:
		return "INITIALISED"
	case StatusRunning:
		return "RUNNING"
	case StatusSolvedOptimal:
		return "SOLVED_OPTIMAL"
	case StatusSolvedFeasible:
		return "SOLVED_FEASIBLE"
	case StatusUnsolvable:
		return "UNSOLVABLE"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// keyOf returns the segKey identifying s.
func keyOf(s *segment.Segment) segKey {
	return segKey{frameID: s.FrameID, segID: s.SegID}
}
