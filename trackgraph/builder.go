package trackgraph

import (
	"fmt"
	"log"
	"sort"

	"github.com/alanpreed/phd-image-analysis/costmodel"
	"github.com/alanpreed/phd-image-analysis/milp"
	"github.com/alanpreed/phd-image-analysis/segment"
)

// Option configures a Builder at construction time.
type Option func(*Builder)

// WithForceAllSegments makes every candidate segment's inclusion variable
// fixed at 1, skipping the conflict-resolution side of the problem and
// solving tracking alone (spec.md §4.3 Edge cases: force-all-segments mode).
func WithForceAllSegments() Option {
	return func(b *Builder) { b.forceAllSegments = true }
}

// WithMappingCostPrune makes the builder skip mapping nodes whose cost
// exceeds Parameters.MaxCost, the same way division nodes are pruned.
// Disabled by default (spec.md §9 Open Question: the original never prunes
// mappings, only divisions; pruning here is opt-in, not a silent behavior change).
func WithMappingCostPrune(enabled bool) Option {
	return func(b *Builder) { b.mappingCostPrune = enabled }
}

// WithVerbose enables log.Printf model-size/progress diagnostics, mirroring
// the teacher's Verbose-gated logging convention.
func WithVerbose(enabled bool) Option {
	return func(b *Builder) { b.Verbose = enabled }
}

// Builder constructs and solves the per-movie factor graph described in
// spec.md §4.3 (C3) against a milp.Model, and supports the force-include
// constraint edits of spec.md §4.6 (C6).
type Builder struct {
	Params           costmodel.Parameters
	forceAllSegments bool
	mappingCostPrune bool
	Verbose          bool

	Model milp.Model

	frames   []segment.ProcessedFrame
	segByKey map[segKey]*segment.Segment

	nodes        []Node
	segNodeByKey map[segKey]NodeRef

	// incoming/outgoing list every non-segment NodeRef that feeds into or
	// out of the segment keyed by segKey: appearance/mapping/division into
	// incoming, exit/mapping/division into outgoing. Rebuilt fresh by Build.
	incoming map[segKey][]NodeRef
	outgoing map[segKey][]NodeRef

	postedCliques map[string]bool

	state  BuildState
	status SolverStatus
}

// NewBuilder validates frames and params and returns an empty Builder ready
// for Build. model must be freshly constructed (no variables or constraints posted).
func NewBuilder(frames []segment.ProcessedFrame, params costmodel.Parameters, model milp.Model, opts ...Option) (*Builder, error) {
	if err := segment.ValidateFrames(frames); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInconsistentFrames, err)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	b := &Builder{
		Params:        params,
		Model:         model,
		frames:        frames,
		segByKey:      make(map[segKey]*segment.Segment),
		segNodeByKey:  make(map[segKey]NodeRef),
		incoming:      make(map[segKey][]NodeRef),
		outgoing:      make(map[segKey][]NodeRef),
		postedCliques: make(map[string]bool),
		state:         StateEmpty,
		status:        StatusInitialised,
	}
	for i := range b.frames {
		for _, s := range b.frames[i].AllSegments() {
			b.segByKey[keyOf(s)] = s
		}
	}
	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Build constructs every node and constraint and posts the objective,
// bringing the Builder to StateReadyToSolve. It may be called at most once.
func (b *Builder) Build() error {
	if b.state != StateEmpty {
		return ErrAlreadyBuilt
	}

	for i := range b.frames {
		if err := b.addFrameNodes(i); err != nil {
			return err
		}
	}
	b.state = StateNodesAdded

	if err := b.addConstraints(); err != nil {
		return err
	}
	b.state = StateConstraintsPosted

	b.setObjective()
	b.state = StateReadyToSolve

	if b.Verbose {
		log.Printf("trackgraph: built graph with %d vars, %d constraints", b.Model.NumVars(), b.Model.NumConstraints())
	}

	return nil
}

// addNode registers n in the arena, creates its backing MILP variable, and
// returns its NodeRef.
func (b *Builder) addNode(n Node) (NodeRef, error) {
	v, err := b.Model.AddBinaryVar(n.Name)
	if err != nil {
		return 0, err
	}
	n.VarID = v
	ref := NodeRef(len(b.nodes))
	b.nodes = append(b.nodes, n)

	return ref, nil
}

func (b *Builder) addFrameNodes(frameIdx int) error {
	frame := &b.frames[frameIdx]
	segs := frame.AllSegments()

	for _, s := range segs {
		key := keyOf(s)

		segRef, err := b.addNode(Node{
			Kind: KindSegment,
			Name: fmt.Sprintf("segment_%s_%d_%d", s.Name, s.FrameID, s.SegID),
			Cost: costmodel.SegmentCost(b.Params, s),
			Seg:  s,
		})
		if err != nil {
			return err
		}
		b.segNodeByKey[key] = segRef

		appearRef, err := b.addNode(Node{
			Kind:    KindAppearance,
			Name:    fmt.Sprintf("appear_%s_%d_%d", s.Name, s.FrameID, s.SegID),
			Cost:    costmodel.AppearanceCost(b.Params, s),
			SegNode: segRef,
		})
		if err != nil {
			return err
		}
		b.incoming[key] = append(b.incoming[key], appearRef)

		exitRef, err := b.addNode(Node{
			Kind:    KindExit,
			Name:    fmt.Sprintf("exit_%s_%d_%d", s.Name, s.FrameID, s.SegID),
			Cost:    costmodel.ExitCost(b.Params),
			SegNode: segRef,
		})
		if err != nil {
			return err
		}
		b.outgoing[key] = append(b.outgoing[key], exitRef)
	}

	if frameIdx == 0 {
		return nil
	}
	prevSegs := b.frames[frameIdx-1].AllSegments()

	for _, old := range prevSegs {
		for _, newSeg := range segs {
			if err := b.addMapping(old, newSeg); err != nil {
				return err
			}
		}
	}

	for _, old := range prevSegs {
		if old.ManuallyChosen {
			continue
		}
		for j := 0; j < len(segs); j++ {
			for k := j + 1; k < len(segs); k++ {
				d1, d2 := segs[j], segs[k]
				if d1.ManuallyChosen || d2.ManuallyChosen {
					continue
				}
				if err := b.addDivision(old, d1, d2); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (b *Builder) addMapping(old, newSeg *segment.Segment) error {
	cost := costmodel.MappingCost(old, newSeg)
	if b.mappingCostPrune && cost >= b.Params.MaxCost {
		return nil
	}

	oldKey, newKey := keyOf(old), keyOf(newSeg)
	ref, err := b.addNode(Node{
		Kind:    KindMapping,
		Name:    fmt.Sprintf("map_%s_%d_%d_to_%s_%d_%d", old.Name, old.FrameID, old.SegID, newSeg.Name, newSeg.FrameID, newSeg.SegID),
		Cost:    cost,
		OldNode: b.segNodeByKey[oldKey],
		NewNode: b.segNodeByKey[newKey],
	})
	if err != nil {
		return err
	}
	b.outgoing[oldKey] = append(b.outgoing[oldKey], ref)
	b.incoming[newKey] = append(b.incoming[newKey], ref)

	return nil
}

func (b *Builder) addDivision(old, d1, d2 *segment.Segment) error {
	cost := costmodel.DivisionCost(b.Params, old, d1, d2)
	if cost >= b.Params.MaxCost {
		return nil
	}

	oldKey, k1, k2 := keyOf(old), keyOf(d1), keyOf(d2)
	ref, err := b.addNode(Node{
		Kind:     KindDivision,
		Name:     fmt.Sprintf("divide_%s_%d_%d_to_%s_%d_%d_and_%s_%d_%d", old.Name, old.FrameID, old.SegID, d1.Name, d1.FrameID, d1.SegID, d2.Name, d2.FrameID, d2.SegID),
		Cost:     cost,
		OldNode:  b.segNodeByKey[oldKey],
		NewNode1: b.segNodeByKey[k1],
		NewNode2: b.segNodeByKey[k2],
	})
	if err != nil {
		return err
	}
	b.outgoing[oldKey] = append(b.outgoing[oldKey], ref)
	b.incoming[k1] = append(b.incoming[k1], ref)
	b.incoming[k2] = append(b.incoming[k2], ref)

	return nil
}

// addConstraints posts conflict cliques, continuity, no-consecutive-division,
// and (if enabled) force-all-segments constraints over the built nodes.
func (b *Builder) addConstraints() error {
	for i := range b.frames {
		for _, s := range b.frames[i].AllSegments() {
			if err := b.postConflictClique(s); err != nil {
				return err
			}
		}
	}

	for key, segRef := range b.segNodeByKey {
		if err := b.postContinuity(key, segRef); err != nil {
			return err
		}
		if err := b.postNoConsecutiveDivision(key); err != nil {
			return err
		}
		if b.forceAllSegments {
			name := fmt.Sprintf("forceall_%s", b.nodes[segRef].Name)
			if err := b.Model.AddLinearConstraint(map[milp.VarID]float64{b.nodes[segRef].VarID: 1}, milp.Equal, 1, name); err != nil {
				return err
			}
		}
	}

	return nil
}

// postConflictClique posts "at most one of these mutually-overlapping
// segments is chosen" once per distinct clique (spec.md §4.3): cliques are
// keyed by their sorted member seg_ids within the frame so the same clique
// encountered from any of its members is posted only once.
func (b *Builder) postConflictClique(s *segment.Segment) error {
	members := append([]int(nil), s.Conflicts...)
	sort.Ints(members)
	cliqueKey := fmt.Sprintf("%d:%v", s.FrameID, members)
	if b.postedCliques[cliqueKey] {
		return nil
	}
	b.postedCliques[cliqueKey] = true

	if len(members) <= 1 {
		return nil
	}

	terms := make(map[milp.VarID]float64, len(members))
	for _, segID := range members {
		ref, ok := b.segNodeByKey[segKey{frameID: s.FrameID, segID: segID}]
		if !ok {
			continue
		}
		terms[b.nodes[ref].VarID] = 1
	}

	name := fmt.Sprintf("clique_%d_%v", s.FrameID, members)

	return b.Model.AddLinearConstraint(terms, milp.LessOrEqual, 1, name)
}

// postContinuity posts the two flow-conservation constraints of spec.md
// §4.3: a chosen segment has exactly one chosen incoming edge and exactly
// one chosen outgoing edge, tied to its own inclusion variable so an
// unchosen segment requires none.
func (b *Builder) postContinuity(key segKey, segRef NodeRef) error {
	segVar := b.nodes[segRef].VarID

	inTerms := map[milp.VarID]float64{segVar: -1}
	for _, ref := range b.incoming[key] {
		inTerms[b.nodes[ref].VarID] += 1
	}
	if err := b.Model.AddLinearConstraint(inTerms, milp.Equal, 0, fmt.Sprintf("continuity_in_%s", b.nodes[segRef].Name)); err != nil {
		return err
	}

	outTerms := map[milp.VarID]float64{segVar: -1}
	for _, ref := range b.outgoing[key] {
		outTerms[b.nodes[ref].VarID] += 1
	}

	return b.Model.AddLinearConstraint(outTerms, milp.Equal, 0, fmt.Sprintf("continuity_out_%s", b.nodes[segRef].Name))
}

// postNoConsecutiveDivision posts spec.md §4.3's rule that a segment may not
// simultaneously be a division's daughter and (in the same lineage step) a
// division's mother: at most one of its incoming+outgoing division edges
// may be chosen.
func (b *Builder) postNoConsecutiveDivision(key segKey) error {
	terms := make(map[milp.VarID]float64)
	for _, ref := range b.incoming[key] {
		if b.nodes[ref].Kind == KindDivision {
			terms[b.nodes[ref].VarID] = 1
		}
	}
	for _, ref := range b.outgoing[key] {
		if b.nodes[ref].Kind == KindDivision {
			terms[b.nodes[ref].VarID] = 1
		}
	}
	if len(terms) <= 1 {
		return nil
	}

	return b.Model.AddLinearConstraint(terms, milp.LessOrEqual, 1, fmt.Sprintf("nodivdiv_%d_%d", key.frameID, key.segID))
}

func (b *Builder) setObjective() {
	terms := make(map[milp.VarID]float64, len(b.nodes))
	for _, n := range b.nodes {
		terms[n.VarID] = n.Cost
	}
	b.Model.SetObjective(terms, true)
}

// Solve runs the MILP search within the given wall-clock budget (seconds;
// <= 0 means unbounded) and maps the result onto SolverStatus.
func (b *Builder) Solve(maxSeconds float64) (SolverStatus, error) {
	if b.state != StateReadyToSolve {
		return StatusError, ErrNotReady
	}

	status, err := b.Model.Solve(maxSeconds)
	if err != nil {
		b.status = StatusError
		return b.status, err
	}

	switch status {
	case milp.StatusOptimal:
		b.status = StatusSolvedOptimal
	case milp.StatusFeasible:
		b.status = StatusSolvedFeasible
	case milp.StatusInfeasible, milp.StatusNoSolution:
		b.status = StatusUnsolvable
	default:
		b.status = StatusError
	}

	return b.status, nil
}

// Status reports the Builder's current lifecycle/solve status.
func (b *Builder) Status() SolverStatus { return b.status }

// Stats reports the built model's size, mirroring the original tracker's
// "Model has N vars, M constraints" diagnostic line.
func (b *Builder) Stats() (vars, constraints int) {
	return b.Model.NumVars(), b.Model.NumConstraints()
}

// SegmentNode returns the NodeRef of the candidate segment identified by
// (frameID, segID), for use with Force.
func (b *Builder) SegmentNode(frameID, segID int) (NodeRef, error) {
	ref, ok := b.segNodeByKey[segKey{frameID: frameID, segID: segID}]
	if !ok {
		return 0, ErrUnknownNode
	}

	return ref, nil
}

// Force pins node's inclusion variable to 1 (on=true) or releases a
// previous pin (on=false), implementing spec.md §4.6 (C6). force_inclusion
// is part of every node's shared header (spec.md §3), so any node kind
// (segment, appearance, exit, mapping, or division) may be forced, not
// just segment nodes. Callers must Solve again to see the effect.
func (b *Builder) Force(node NodeRef, on bool) error {
	if int(node) < 0 || int(node) >= len(b.nodes) {
		return ErrUnknownNode
	}
	n := &b.nodes[node]

	name := fmt.Sprintf("manual_%s", n.Name)
	if on {
		if n.ForceInclusion {
			return nil
		}
		if err := b.Model.AddLinearConstraint(map[milp.VarID]float64{n.VarID: 1}, milp.Equal, 1, name); err != nil {
			return err
		}
		n.ForceInclusion = true

		return nil
	}

	if !n.ForceInclusion {
		return nil
	}
	if err := b.Model.RemoveConstraint(name); err != nil {
		return err
	}
	n.ForceInclusion = false

	return nil
}

// Node returns a copy of the node at ref, for inspection (e.g. by package tracking).
func (b *Builder) Node(ref NodeRef) (Node, error) {
	if int(ref) < 0 || int(ref) >= len(b.nodes) {
		return Node{}, ErrUnknownNode
	}

	return b.nodes[ref], nil
}

// NumNodes reports how many variable nodes the graph holds.
func (b *Builder) NumNodes() int { return len(b.nodes) }

// Value reports the solved 0/1 value of a node's MILP variable.
func (b *Builder) Value(ref NodeRef) (float64, error) {
	if int(ref) < 0 || int(ref) >= len(b.nodes) {
		return 0, ErrUnknownNode
	}

	return b.Model.Value(b.nodes[ref].VarID)
}

// Frames returns the frames this Builder was constructed from, in order.
func (b *Builder) Frames() []segment.ProcessedFrame { return b.frames }

// NodesOfKind returns every NodeRef of the given kind, in creation order.
func (b *Builder) NodesOfKind(kind NodeKind) []NodeRef {
	var out []NodeRef
	for i, n := range b.nodes {
		if n.Kind == kind {
			out = append(out, NodeRef(i))
		}
	}

	return out
}

// OutgoingAssignments returns the assignment nodes (exit/mapping/division)
// that may carry flow out of the segment node segRef, in creation order.
func (b *Builder) OutgoingAssignments(segRef NodeRef) ([]NodeRef, error) {
	n, err := b.Node(segRef)
	if err != nil {
		return nil, err
	}
	if n.Kind != KindSegment {
		return nil, ErrNotSegmentNode
	}

	out := append([]NodeRef(nil), b.outgoing[keyOf(n.Seg)]...)

	return out, nil
}

// SegmentAt returns the underlying *segment.Segment identified by
// (frameID, segID), if known.
func (b *Builder) SegmentAt(frameID, segID int) (*segment.Segment, bool) {
	s, ok := b.segByKey[segKey{frameID: frameID, segID: segID}]

	return s, ok
}
