package tracking

import (
	"fmt"

	"github.com/alanpreed/phd-image-analysis/segment"
	"github.com/alanpreed/phd-image-analysis/trackgraph"
)

// pendingCell accumulates one lineage while it is being walked; it is
// discarded once converted into the public Cell type.
type pendingCell struct {
	cellID   int
	parentID *int
	nodes    []trackgraph.NodeRef
	segments []*segment.Segment
}

// Extract walks a solved Builder's chosen nodes into cell lineages
// (spec.md §4.5, C5). rootDirectory is recorded on the returned Solution
// verbatim; callers typically pass the frames' source directory.
//
// Every chosen appearance starts a new Cell. The Cell is walked forward
// along its unique chosen outgoing assignment at each frame until a chosen
// exit is reached. At a chosen division, the larger of the two daughters
// continues the current Cell and the smaller spawns a new Cell parented by
// it — unless the division is itself the first node of the current Cell
// (i.e. this Cell was just spawned by a division), in which case this Cell
// continues as the smaller daughter, matching the original tracker's
// lineage convention.
func Extract(b *trackgraph.Builder, rootDirectory string) (Solution, error) {
	switch b.Status() {
	case trackgraph.StatusSolvedOptimal, trackgraph.StatusSolvedFeasible:
	default:
		return Solution{}, ErrNotSolved
	}

	var cells []*pendingCell
	cellCount := 0
	for _, ref := range b.NodesOfKind(trackgraph.KindAppearance) {
		v, err := b.Value(ref)
		if err != nil {
			return Solution{}, err
		}
		if v < 0.5 {
			continue
		}
		cells = append(cells, &pendingCell{cellID: cellCount, nodes: []trackgraph.NodeRef{ref}})
		cellCount++
	}

	// cells grows during this loop as divisions spawn new lineages; a
	// plain index-based loop picks those up just as Python's for-over-list does.
	for i := 0; i < len(cells); i++ {
		cell := cells[i]
		for {
			lastRef := cell.nodes[len(cell.nodes)-1]
			lastNode, err := b.Node(lastRef)
			if err != nil {
				return Solution{}, err
			}
			if lastNode.Kind == trackgraph.KindExit {
				break
			}

			segRef, spawnsNewCell, err := resolveLineageStep(b, lastNode, len(cell.nodes) == 1)
			if err != nil {
				return Solution{}, err
			}
			if spawnsNewCell {
				parentID := cell.cellID
				cells = append(cells, &pendingCell{cellID: cellCount, parentID: &parentID, nodes: []trackgraph.NodeRef{lastRef}})
				cellCount++
			}

			segNode, err := b.Node(segRef)
			if err != nil {
				return Solution{}, err
			}

			outgoing, err := b.OutgoingAssignments(segRef)
			if err != nil {
				return Solution{}, err
			}
			var chosen trackgraph.NodeRef
			numChosen := 0
			for _, o := range outgoing {
				v, err := b.Value(o)
				if err != nil {
					return Solution{}, err
				}
				if v >= 0.5 {
					chosen = o
					numChosen++
				}
			}
			if numChosen != 1 {
				return Solution{}, fmt.Errorf("%w: frame %d seg %d", ErrBrokenContinuity, segNode.Seg.FrameID, segNode.Seg.SegID)
			}

			cell.segments = append(cell.segments, segNode.Seg)
			cell.nodes = append(cell.nodes, chosen)
		}
	}

	result := make([]Cell, len(cells))
	for i, cell := range cells {
		newCell := Cell{
			CellID:     cell.cellID,
			ParentID:   cell.parentID,
			Segments:   cell.segments,
			FirstFrame: cell.segments[0].FrameID,
			Lifespan:   len(cell.segments),
		}
		for _, nref := range cell.nodes {
			n, err := b.Node(nref)
			if err != nil {
				return Solution{}, err
			}
			newCell.Assignments = append(newCell.Assignments, SegmentAssignment{
				AssignmentType: assignmentTypeOf(n.Kind),
				Cost:           n.Cost,
			})
		}
		result[i] = newCell
	}

	frames := b.Frames()
	imageFilenames := make([][]string, len(frames))
	for i := range frames {
		imageFilenames[i] = frames[i].ImageNames
	}

	return Solution{
		TotalFrames:    len(frames),
		RootDirectory:  rootDirectory,
		ImageFilenames: imageFilenames,
		Cells:          result,
	}, nil
}

// resolveLineageStep determines which segment node the current cell
// continues through next, given the last node appended to its lineage.
// For a division, isFirstNode (true when this division is the Cell's own
// first node, i.e. it was just spawned by that division) selects which of
// the two daughters this particular Cell continues as; spawnsNewCell
// reports whether the caller must start a sibling Cell for the other daughter.
// On an exact size tie, the newly-spawned branch treats NewNode2 as the
// smaller daughter and the continuing branch treats NewNode1 as the larger
// one, so the two branches never pick the same daughter.
func resolveLineageStep(b *trackgraph.Builder, node trackgraph.Node, isFirstNode bool) (trackgraph.NodeRef, bool, error) {
	switch node.Kind {
	case trackgraph.KindAppearance:
		return node.SegNode, false, nil
	case trackgraph.KindMapping:
		return node.NewNode, false, nil
	case trackgraph.KindDivision:
		d1, err := b.Node(node.NewNode1)
		if err != nil {
			return 0, false, err
		}
		d2, err := b.Node(node.NewNode2)
		if err != nil {
			return 0, false, err
		}

		if isFirstNode {
			if d1.Seg.Size < d2.Seg.Size {
				return node.NewNode1, false, nil
			}

			return node.NewNode2, false, nil
		}

		if d1.Seg.Size >= d2.Seg.Size {
			return node.NewNode1, true, nil
		}

		return node.NewNode2, true, nil
	default:
		return 0, false, fmt.Errorf("%w: %v", ErrUnknownNodeKind, node.Kind)
	}
}

func assignmentTypeOf(kind trackgraph.NodeKind) AssignmentType {
	switch kind {
	case trackgraph.KindAppearance:
		return Appear
	case trackgraph.KindMapping:
		return Map
	case trackgraph.KindDivision:
		return Divide
	default:
		return Exit
	}
}
