package trackgraph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alanpreed/phd-image-analysis/costmodel"
	"github.com/alanpreed/phd-image-analysis/milp"
	"github.com/alanpreed/phd-image-analysis/segment"
	"github.com/alanpreed/phd-image-analysis/trackgraph"
)

func squareMaskAt(size, topRow, topCol, gridH, gridW int) segment.Mask {
	m := make(segment.Mask, gridH)
	for r := range m {
		m[r] = make([]bool, gridW)
	}
	for r := topRow; r < topRow+size; r++ {
		for c := topCol; c < topCol+size; c++ {
			m[r][c] = true
		}
	}

	return m
}

func cliqueFrame(frameID int) segment.ProcessedFrame {
	a := segment.Segment{
		SegID: 1, FrameID: frameID, Name: "s",
		Mask: squareMaskAt(10, 0, 0, 20, 20), Centroid: [2]float64{4.5, 4.5},
		Size: 100, Compactness: 0.9, Conflicts: []int{1, 2},
	}
	b := segment.Segment{
		SegID: 2, FrameID: frameID, Name: "s",
		Mask: squareMaskAt(10, 5, 5, 20, 20), Centroid: [2]float64{9.5, 9.5},
		Size: 100, Compactness: 0.3, Conflicts: []int{1, 2},
	}

	return segment.ProcessedFrame{
		FrameNo: frameID, Height: 20, Width: 20,
		Segmentations: []segment.Segmentation{{Name: "s", Segments: []segment.Segment{a, b}}},
	}
}

func paramsFavoringSelection() costmodel.Parameters {
	p := costmodel.DefaultParameters()
	p.AppearanceCostScale = 0.5

	return p
}

func TestBuilder_ConflictCliqueAtMostOneChosen(t *testing.T) {
	frames := []segment.ProcessedFrame{cliqueFrame(0)}
	model := milp.NewBranchAndBound()
	b, err := trackgraph.NewBuilder(frames, paramsFavoringSelection(), model)
	require.NoError(t, err)
	require.NoError(t, b.Build())

	status, err := b.Solve(5)
	require.NoError(t, err)
	require.Equal(t, trackgraph.StatusSolvedOptimal, status)

	refA, err := b.SegmentNode(0, 1)
	require.NoError(t, err)
	refB, err := b.SegmentNode(0, 2)
	require.NoError(t, err)

	va, err := b.Value(refA)
	require.NoError(t, err)
	vb, err := b.Value(refB)
	require.NoError(t, err)

	require.LessOrEqual(t, va+vb, 1.0)
	require.Equal(t, 1.0, va+vb) // negative per-segment cost makes selecting one strictly better than none
}

func TestBuilder_ForceIncludeOverridesClique(t *testing.T) {
	frames := []segment.ProcessedFrame{cliqueFrame(0)}
	model := milp.NewBranchAndBound()
	b, err := trackgraph.NewBuilder(frames, paramsFavoringSelection(), model)
	require.NoError(t, err)
	require.NoError(t, b.Build())

	refA, err := b.SegmentNode(0, 1)
	require.NoError(t, err)
	refB, err := b.SegmentNode(0, 2)
	require.NoError(t, err)

	require.NoError(t, b.Force(refB, true))
	status, err := b.Solve(5)
	require.NoError(t, err)
	require.Equal(t, trackgraph.StatusSolvedOptimal, status)

	va, _ := b.Value(refA)
	vb, _ := b.Value(refB)
	require.Equal(t, 0.0, va)
	require.Equal(t, 1.0, vb)

	require.NoError(t, b.Force(refB, false))
	status, err = b.Solve(5)
	require.NoError(t, err)
	require.Equal(t, trackgraph.StatusSolvedOptimal, status)
	va, _ = b.Value(refA)
	require.Equal(t, 1.0, va) // A has the stronger (more negative) cost once unforced
}

func TestBuilder_Force_AcceptsNonSegmentNode(t *testing.T) {
	// force_inclusion is part of every node's shared header (spec.md §3),
	// so forcing an ExitNode (not just a SegmentNode) must work and must
	// pull its segment in via the continuity constraint.
	frames := []segment.ProcessedFrame{singleSegmentFrame(0, 1, 4.5, 4.5, 100)}
	model := milp.NewBranchAndBound()
	b, err := trackgraph.NewBuilder(frames, costmodel.DefaultParameters(), model)
	require.NoError(t, err)
	require.NoError(t, b.Build())

	segRef, err := b.SegmentNode(0, 1)
	require.NoError(t, err)
	outgoing, err := b.OutgoingAssignments(segRef)
	require.NoError(t, err)
	require.Len(t, outgoing, 1) // a single-frame movie only has ExitNode as an outgoing option
	exitRef := outgoing[0]
	node, err := b.Node(exitRef)
	require.NoError(t, err)
	require.Equal(t, trackgraph.KindExit, node.Kind)

	require.NoError(t, b.Force(exitRef, true))
	status, err := b.Solve(5)
	require.NoError(t, err)
	require.Equal(t, trackgraph.StatusSolvedOptimal, status)

	vExit, err := b.Value(exitRef)
	require.NoError(t, err)
	require.Equal(t, 1.0, vExit)
	vSeg, err := b.Value(segRef)
	require.NoError(t, err)
	require.Equal(t, 1.0, vSeg) // continuity pulls the segment in once its only outgoing edge is forced
}

func TestBuilder_Force_RejectsUnknownNode(t *testing.T) {
	frames := []segment.ProcessedFrame{cliqueFrame(0)}
	model := milp.NewBranchAndBound()
	b, err := trackgraph.NewBuilder(frames, paramsFavoringSelection(), model)
	require.NoError(t, err)
	require.NoError(t, b.Build())

	err = b.Force(trackgraph.NodeRef(b.NumNodes()+1000), true)
	require.ErrorIs(t, err, trackgraph.ErrUnknownNode)
}

func singleSegmentFrame(frameID, segID int, cr, cc float64, size int) segment.ProcessedFrame {
	s := segment.Segment{
		SegID: segID, FrameID: frameID, Name: "s",
		Mask: squareMaskAt(10, 0, 0, 20, 20), Centroid: [2]float64{cr, cc},
		Size: size, Compactness: 0.9, Conflicts: []int{segID},
	}

	return segment.ProcessedFrame{
		FrameNo: frameID, Height: 20, Width: 20,
		Segmentations: []segment.Segmentation{{Name: "s", Segments: []segment.Segment{s}}},
	}
}

func TestBuilder_TwoFrameChainPrefersMappingOverAppearExit(t *testing.T) {
	frames := []segment.ProcessedFrame{
		singleSegmentFrame(0, 1, 4.5, 4.5, 100),
		singleSegmentFrame(1, 1, 4.5, 4.5, 100),
	}
	model := milp.NewBranchAndBound()
	b, err := trackgraph.NewBuilder(frames, costmodel.DefaultParameters(), model)
	require.NoError(t, err)
	require.NoError(t, b.Build())

	status, err := b.Solve(5)
	require.NoError(t, err)
	require.Equal(t, trackgraph.StatusSolvedOptimal, status)

	ref0, err := b.SegmentNode(0, 1)
	require.NoError(t, err)
	ref1, err := b.SegmentNode(1, 1)
	require.NoError(t, err)

	v0, _ := b.Value(ref0)
	v1, _ := b.Value(ref1)
	require.Equal(t, 1.0, v0)
	require.Equal(t, 1.0, v1)

	mappings := b.NodesOfKind(trackgraph.KindMapping)
	require.Len(t, mappings, 1)
	vMap, err := b.Value(mappings[0])
	require.NoError(t, err)
	require.Equal(t, 1.0, vMap)
}

func nonConflictingFrame(frameID int) segment.ProcessedFrame {
	a := segment.Segment{
		SegID: 1, FrameID: frameID, Name: "s",
		Mask: squareMaskAt(5, 0, 0, 20, 20), Centroid: [2]float64{2, 2},
		Size: 25, Compactness: 0.9, Conflicts: []int{1},
	}
	b := segment.Segment{
		SegID: 2, FrameID: frameID, Name: "s",
		Mask: squareMaskAt(5, 15, 15, 20, 20), Centroid: [2]float64{17, 17},
		Size: 25, Compactness: 0.3, Conflicts: []int{2},
	}

	return segment.ProcessedFrame{
		FrameNo: frameID, Height: 20, Width: 20,
		Segmentations: []segment.Segmentation{{Name: "s", Segments: []segment.Segment{a, b}}},
	}
}

func TestBuilder_ForceAllSegmentsOption(t *testing.T) {
	frames := []segment.ProcessedFrame{nonConflictingFrame(0)}
	model := milp.NewBranchAndBound()
	b, err := trackgraph.NewBuilder(frames, paramsFavoringSelection(), model, trackgraph.WithForceAllSegments())
	require.NoError(t, err)
	require.NoError(t, b.Build())

	status, err := b.Solve(5)
	require.NoError(t, err)
	require.Equal(t, trackgraph.StatusSolvedOptimal, status)

	refA, _ := b.SegmentNode(0, 1)
	refB, _ := b.SegmentNode(0, 2)
	va, _ := b.Value(refA)
	vb, _ := b.Value(refB)
	require.Equal(t, 1.0, va)
	require.Equal(t, 1.0, vb)
}

func TestNewBuilder_RejectsInvalidFrames(t *testing.T) {
	_, err := trackgraph.NewBuilder(nil, costmodel.DefaultParameters(), milp.NewBranchAndBound())
	require.ErrorIs(t, err, trackgraph.ErrInconsistentFrames)
}

func TestBuilder_Build_RejectsSecondCall(t *testing.T) {
	frames := []segment.ProcessedFrame{cliqueFrame(0)}
	b, err := trackgraph.NewBuilder(frames, paramsFavoringSelection(), milp.NewBranchAndBound())
	require.NoError(t, err)
	require.NoError(t, b.Build())
	require.ErrorIs(t, b.Build(), trackgraph.ErrAlreadyBuilt)
}

func TestBuilder_Solve_RejectsUnbuiltGraph(t *testing.T) {
	frames := []segment.ProcessedFrame{cliqueFrame(0)}
	b, err := trackgraph.NewBuilder(frames, paramsFavoringSelection(), milp.NewBranchAndBound())
	require.NoError(t, err)
	_, err = b.Solve(5)
	require.ErrorIs(t, err, trackgraph.ErrNotReady)
}
