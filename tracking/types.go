// Package tracking extracts cell lineages from a solved factor graph
// (spec.md §4.5, C5): each chosen appearance becomes the start of a Cell,
// walked forward frame by frame along chosen outgoing assignments until an
// exit is reached, splitting into two Cells at each chosen division.
package tracking

import (
	"fmt"
	"strings"

	"github.com/alanpreed/phd-image-analysis/segment"
)

// AssignmentType classifies one step in a Cell's lineage.
type AssignmentType int

const (
	// Appear marks a cell's first frame: it is new, not continued from a previous one.
	Appear AssignmentType = iota
	// Map marks a one-to-one continuation from the previous frame.
	Map
	// Divide marks a frame in which the cell's predecessor split into two.
	Divide
	// Exit marks a cell's last frame: it has no continuation.
	Exit
)

// String renders the assignment type the way Cell.String does, minus the arrow.
func (a AssignmentType) String() string {
	switch a {
	case Appear:
		return "Appearance"
	case Map:
		return "Mapping"
	case Divide:
		return "Division"
	case Exit:
		return "Exit"
	default:
		return "Unknown"
	}
}

// SegmentAssignment records one step of a Cell's lineage and the MILP cost
// that step contributed to the solved objective.
type SegmentAssignment struct {
	AssignmentType AssignmentType
	Cost           float64
}

// Cell is one continuous lineage segment: a cell that appears (or is
// spawned by a division), persists across zero or more frames, and ends by
// exiting or dividing. ParentID is nil unless this Cell was spawned by a
// division.
type Cell struct {
	CellID   int
	ParentID *int

	Segments    []*segment.Segment
	Assignments []SegmentAssignment

	FirstFrame int
	Lifespan   int
}

// String renders a one-line identity followed by an arrow-joined lineage,
// matching the original tracker's diagnostic Cell.__str__.
func (c *Cell) String() string {
	parent := "<none>"
	if c.ParentID != nil {
		parent = fmt.Sprintf("%d", *c.ParentID)
	}

	steps := make([]string, 0, len(c.Assignments))
	for _, a := range c.Assignments {
		steps = append(steps, a.AssignmentType.String())
	}

	return fmt.Sprintf("Cell ID %d, parent ID %s, lineage:\n %s", c.CellID, parent, strings.Join(steps, " -> "))
}

// ExistsAt reports whether this Cell has a segment in frameID.
func (c *Cell) ExistsAt(frameID int) bool {
	return frameID >= c.FirstFrame && frameID < c.FirstFrame+c.Lifespan
}

// SegmentAt returns the Cell's segment in frameID, if it exists there.
func (c *Cell) SegmentAt(frameID int) (*segment.Segment, bool) {
	if !c.ExistsAt(frameID) {
		return nil, false
	}

	return c.Segments[frameID-c.FirstFrame], true
}

// AssignmentAt returns the Cell's assignment type in frameID, if it exists there.
func (c *Cell) AssignmentAt(frameID int) (AssignmentType, bool) {
	if !c.ExistsAt(frameID) {
		return 0, false
	}

	return c.Assignments[frameID-c.FirstFrame].AssignmentType, true
}

// Solution is the complete tracking result for one movie (spec.md §4.5/§6).
type Solution struct {
	TotalFrames    int
	RootDirectory  string
	ImageFilenames [][]string
	Cells          []Cell
}
