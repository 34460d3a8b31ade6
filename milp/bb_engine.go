package milp

import "time"

// bbEpsilon is the tolerance used when comparing achievable constraint
// sums against their right-hand side, absorbing floating-point noise.
const bbEpsilon = 1e-6

// bbEngine holds all branch-and-bound search state for one Solve call.
// Grouping this in a dedicated struct (rather than closures capturing
// loop variables) keeps the recursive hot path's state explicit and easy
// to reason about, mirroring tsp.bbEngine in the retrieval pack.
type bbEngine struct {
	model *BranchAndBound
	n     int

	assigned []int8 // -1 unknown, 0 or 1 once branched

	best           float64 // best (signed-for-minimization) objective found so far
	bestAssignment []float64
	foundAny       bool

	useDeadline bool
	deadline    time.Time
	steps       int
	deadlineHit bool

	err error
}

// deadlineExceeded performs a rare wall-clock check (every 2048 node
// events), matching the teacher's sparse-deadline-check idiom.
func (e *bbEngine) deadlineExceeded() bool {
	e.steps++
	if !e.useDeadline || (e.steps&2047) != 0 {
		return false
	}

	return time.Now().After(e.deadline)
}

// search explores variable index..n-1 by depth-first branch-and-bound.
// partialCost is the signed objective contribution of variables 0..index-1.
func (e *bbEngine) search(index int, partialCost float64) {
	if e.err != nil || e.deadlineHit {
		return
	}
	if e.deadlineExceeded() {
		e.deadlineHit = true

		return
	}

	if index == e.n {
		if e.checkFeasible(e.n) && partialCost < e.best-bbEpsilon {
			e.best = partialCost
			e.bestAssignment = e.snapshot()
			e.foundAny = true
		}

		return
	}

	if partialCost+e.remainingLowerBound(index) >= e.best-bbEpsilon {
		return // cannot possibly improve on the current incumbent
	}

	// Deterministic branch order: try the value that looks cheaper first,
	// so a good incumbent is found early and prunes the rest of the tree.
	first, second := int8(0), int8(1)
	if e.model.cost(VarID(index)) <= 0 {
		first, second = 1, 0
	}

	for _, val := range [2]int8{first, second} {
		e.assigned[index] = val
		if e.checkFeasible(index + 1) {
			e.search(index+1, partialCost+e.model.cost(VarID(index))*float64(val))
			if e.err != nil || e.deadlineHit {
				e.assigned[index] = -1

				return
			}
		}
		e.assigned[index] = -1
	}
}

// remainingLowerBound returns an admissible (never-too-high) lower bound
// on the objective contribution of variables index..n-1: each is assumed
// to take whichever of {0,1} is cheapest, ignoring constraints entirely.
// This is weak but correct, and cheap to compute at every node.
func (e *bbEngine) remainingLowerBound(index int) float64 {
	var bound float64
	for v := index; v < e.n; v++ {
		if c := e.model.cost(VarID(v)); c < 0 {
			bound += c
		}
	}

	return bound
}

// checkFeasible reports whether every constraint can still possibly be
// satisfied given the variables fixed so far (0..boundary-1); variables
// boundary..n-1 are treated as free, contributing their full achievable
// interval. Pruning a branch here avoids ever reaching a doomed leaf.
func (e *bbEngine) checkFeasible(boundary int) bool {
	for _, c := range e.model.constraints {
		var minSum, maxSum float64
		for v, coef := range c.terms {
			idx := int(v)
			if idx < boundary {
				val := float64(e.assigned[idx])
				minSum += coef * val
				maxSum += coef * val

				continue
			}
			if coef > 0 {
				maxSum += coef
			} else {
				minSum += coef
			}
		}

		switch c.rel {
		case LessOrEqual:
			if minSum > c.rhs+bbEpsilon {
				return false
			}
		case GreaterOrEqual:
			if maxSum < c.rhs-bbEpsilon {
				return false
			}
		case Equal:
			if minSum > c.rhs+bbEpsilon || maxSum < c.rhs-bbEpsilon {
				return false
			}
		}
	}

	return true
}

// snapshot copies the current complete assignment into a fresh slice.
func (e *bbEngine) snapshot() []float64 {
	out := make([]float64, e.n)
	for i, v := range e.assigned {
		out[i] = float64(v)
	}

	return out
}
