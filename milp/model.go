// Package milp defines the thin binary-integer-program adapter the tracking
// engine solves against (spec.md §4.4, C4), plus one in-tree reference
// implementation of it.
//
// Model is deliberately narrow: add a binary variable, add or remove a
// named linear constraint, set a linear objective, solve within a time
// budget, and read back 0/1 values. Package trackgraph builds a factor
// graph purely in terms of this interface, so a production deployment can
// swap BranchAndBound for a adapter over an external solver (CBC, HiGHS,
// ...) without touching the graph builder.
package milp

import "errors"

// VarID identifies a binary variable within one Model. IDs are assigned in
// AddBinaryVar call order, starting at 0.
type VarID int

// Relation is the comparison operator of a linear constraint.
type Relation int

const (
	// LessOrEqual constrains the weighted sum to be <= rhs.
	LessOrEqual Relation = iota
	// Equal constrains the weighted sum to equal rhs.
	Equal
	// GreaterOrEqual constrains the weighted sum to be >= rhs.
	GreaterOrEqual
)

// String renders the mathematical operator, used in diagnostics only.
func (r Relation) String() string {
	switch r {
	case LessOrEqual:
		return "<="
	case Equal:
		return "=="
	case GreaterOrEqual:
		return ">="
	default:
		return "?"
	}
}

// Status is the outcome of a Solve call (spec.md §4.4).
type Status int

const (
	// StatusOptimal means the solver proved the returned assignment minimizes the objective.
	StatusOptimal Status = iota
	// StatusFeasible means a feasible assignment was found but not proved optimal
	// (e.g. the time budget elapsed with an incumbent in hand).
	StatusFeasible
	// StatusInfeasible means no assignment satisfies every constraint.
	StatusInfeasible
	// StatusNoSolution means the solver halted (e.g. on the time budget)
	// without ever finding a feasible assignment.
	StatusNoSolution
	// StatusError means the solver failed for a reason other than infeasibility.
	StatusError
)

// String renders the status for logs and test failure messages.
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "Optimal"
	case StatusFeasible:
		return "Feasible"
	case StatusInfeasible:
		return "Infeasible"
	case StatusNoSolution:
		return "NoSolution"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Sentinel errors for Model implementations.
var (
	// ErrUnknownVar indicates a VarID not returned by this Model's AddBinaryVar.
	ErrUnknownVar = errors.New("milp: unknown variable")

	// ErrDuplicateConstraintName indicates AddLinearConstraint was called
	// twice with the same non-empty name.
	ErrDuplicateConstraintName = errors.New("milp: duplicate constraint name")

	// ErrUnknownConstraintName indicates RemoveConstraint referenced a
	// name that is not currently posted.
	ErrUnknownConstraintName = errors.New("milp: unknown constraint name")

	// ErrNoValue indicates Value was called before a successful Solve.
	ErrNoValue = errors.New("milp: no solution values available")

	// ErrEmptyObjective indicates Solve was called with no objective set;
	// the zero objective (minimize nothing) is a valid, explicit call to
	// SetObjective with an empty term map, not an omitted one.
	ErrEmptyObjective = errors.New("milp: objective was never set")
)

// Model is the adapter surface the tracking engine builds against.
// Implementations need not be safe for concurrent use from multiple
// goroutines; the engine owns one Model per build-solve cycle.
type Model interface {
	// AddBinaryVar registers a new 0/1 decision variable and returns its ID.
	AddBinaryVar(name string) (VarID, error)

	// AddLinearConstraint posts sum(terms[v]*x_v) REL rhs. name may be
	// empty for anonymous constraints; non-empty names must be unique
	// among currently-posted constraints and are required for later
	// RemoveConstraint calls (used by the force-include workflow, C6).
	AddLinearConstraint(terms map[VarID]float64, rel Relation, rhs float64, name string) error

	// RemoveConstraint removes a previously posted named constraint.
	RemoveConstraint(name string) error

	// SetObjective replaces the objective with sum(terms[v]*x_v),
	// minimized if minimize is true, else maximized.
	SetObjective(terms map[VarID]float64, minimize bool)

	// Solve searches for an assignment optimizing the objective subject
	// to every posted constraint, within a wall-clock budget.
	// maxSeconds <= 0 means "no explicit budget" (search to completion).
	Solve(maxSeconds float64) (Status, error)

	// Value returns the solved 0/1 value of v. Valid only after Solve
	// returns StatusOptimal or StatusFeasible.
	Value(v VarID) (float64, error)

	// NumVars and NumConstraints report model size, used for logging
	// (mirrors the original's "Model has N vars, M constraints" line).
	NumVars() int
	NumConstraints() int
}
