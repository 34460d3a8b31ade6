package milp

import (
	"fmt"
	"log"
	"math"
	"time"
)

// constraint is one posted linear constraint sum(terms[v]*x_v) rel rhs.
type constraint struct {
	name  string
	terms map[VarID]float64
	rel   Relation
	rhs   float64
}

// BranchAndBound is the reference Model implementation: a depth-first
// branch-and-bound search over binary assignments, in the shape of the
// teacher's exact-search engines (see tsp.bbEngine in the retrieval pack)
// — a dedicated struct carrying all search state, an admissible bound, a
// deterministic branching order, and sparse wall-clock deadline checks
// rather than a check on every node.
//
// The bound used here ignores constraints entirely (for each still-free
// variable, assume it takes whichever of {0,1} is cheaper) — a valid but
// weak lower bound. Combined with interval-based constraint propagation
// (pruning a branch the moment a constraint can no longer be satisfied by
// any completion), this is sufficient for the small-to-moderate factor
// graphs this engine builds; it is not intended to scale to the thousands
// of variables a production MILP library would handle, which is exactly
// why Model is an interface and not a concrete type trackgraph depends on.
type BranchAndBound struct {
	Verbose bool

	varNames     []string
	nameToVar    map[string]VarID
	constraints  []constraint
	constraintAt map[string]int // name -> index into constraints, for active (non-empty name) constraints

	objTerms    map[VarID]float64
	minimize    bool
	hasObjetive bool

	values []float64 // solved values, nil until a successful Solve
	status Status
}

var _ Model = (*BranchAndBound)(nil)

// NewBranchAndBound returns an empty model ready to accept variables and constraints.
func NewBranchAndBound() *BranchAndBound {
	return &BranchAndBound{
		nameToVar:    make(map[string]VarID),
		constraintAt: make(map[string]int),
	}
}

// AddBinaryVar implements Model.
func (b *BranchAndBound) AddBinaryVar(name string) (VarID, error) {
	id := VarID(len(b.varNames))
	b.varNames = append(b.varNames, name)
	b.nameToVar[name] = id

	return id, nil
}

// AddLinearConstraint implements Model.
func (b *BranchAndBound) AddLinearConstraint(terms map[VarID]float64, rel Relation, rhs float64, name string) error {
	for v := range terms {
		if int(v) < 0 || int(v) >= len(b.varNames) {
			return fmt.Errorf("milp: constraint %q: %w: %d", name, ErrUnknownVar, v)
		}
	}
	if name != "" {
		if _, exists := b.constraintAt[name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateConstraintName, name)
		}
	}

	termsCopy := make(map[VarID]float64, len(terms))
	for v, c := range terms {
		termsCopy[v] = c
	}

	idx := len(b.constraints)
	b.constraints = append(b.constraints, constraint{name: name, terms: termsCopy, rel: rel, rhs: rhs})
	if name != "" {
		b.constraintAt[name] = idx
	}

	return nil
}

// RemoveConstraint implements Model.
func (b *BranchAndBound) RemoveConstraint(name string) error {
	idx, ok := b.constraintAt[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConstraintName, name)
	}

	b.constraints = append(b.constraints[:idx], b.constraints[idx+1:]...)
	delete(b.constraintAt, name)
	// every constraint after idx shifted left by one.
	for n, at := range b.constraintAt {
		if at > idx {
			b.constraintAt[n] = at - 1
		}
	}

	return nil
}

// SetObjective implements Model.
func (b *BranchAndBound) SetObjective(terms map[VarID]float64, minimize bool) {
	termsCopy := make(map[VarID]float64, len(terms))
	for v, c := range terms {
		termsCopy[v] = c
	}
	b.objTerms = termsCopy
	b.minimize = minimize
	b.hasObjetive = true
}

// Value implements Model.
func (b *BranchAndBound) Value(v VarID) (float64, error) {
	if b.values == nil {
		return 0, ErrNoValue
	}
	if int(v) < 0 || int(v) >= len(b.values) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownVar, v)
	}

	return b.values[v], nil
}

// NumVars implements Model.
func (b *BranchAndBound) NumVars() int { return len(b.varNames) }

// NumConstraints implements Model.
func (b *BranchAndBound) NumConstraints() int { return len(b.constraints) }

// cost returns the per-variable objective coefficient, signed so that the
// search always minimizes: maximize(c) == minimize(-c).
func (b *BranchAndBound) cost(v VarID) float64 {
	c := b.objTerms[v]
	if !b.minimize {
		c = -c
	}

	return c
}

// Solve implements Model using depth-first branch-and-bound.
//
// maxSeconds <= 0 disables the wall-clock budget (runs to completion).
func (b *BranchAndBound) Solve(maxSeconds float64) (Status, error) {
	if !b.hasObjetive {
		return StatusError, ErrEmptyObjective
	}
	n := len(b.varNames)
	if b.Verbose {
		log.Printf("milp: model has %d vars, %d constraints", n, len(b.constraints))
	}

	eng := &bbEngine{
		model:    b,
		n:        n,
		assigned: make([]int8, n),
		best:     math.Inf(1),
	}
	for i := range eng.assigned {
		eng.assigned[i] = -1
	}
	if maxSeconds > 0 {
		eng.useDeadline = true
		eng.deadline = time.Now().Add(time.Duration(maxSeconds * float64(time.Second)))
	}

	eng.search(0, 0)

	if eng.err != nil {
		b.status = StatusError
		return b.status, eng.err
	}
	if !eng.foundAny {
		if eng.deadlineHit {
			b.status = StatusNoSolution
		} else {
			b.status = StatusInfeasible
		}

		return b.status, nil
	}

	b.values = eng.bestAssignment
	if eng.deadlineHit {
		b.status = StatusFeasible
	} else {
		b.status = StatusOptimal
	}
	if b.Verbose {
		log.Printf("milp: solved with status %s, objective %g", b.status, b.objectiveValue())
	}

	return b.status, nil
}

// objectiveValue reports the true (unsigned-for-search) objective of the
// current solved values, for logging only.
func (b *BranchAndBound) objectiveValue() float64 {
	var total float64
	for v, c := range b.objTerms {
		total += c * b.values[v]
	}

	return total
}
