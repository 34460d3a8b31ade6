package tracking_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alanpreed/phd-image-analysis/costmodel"
	"github.com/alanpreed/phd-image-analysis/milp"
	"github.com/alanpreed/phd-image-analysis/segment"
	"github.com/alanpreed/phd-image-analysis/tracking"
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

func singleSegmentFrame(frameID, segID int, cr, cc float64, size int) segment.ProcessedFrame {
	s := segment.Segment{
		SegID: segID, FrameID: frameID, Name: "s",
		Mask: squareMaskAt(10, 0, 0, 20, 20), Centroid: [2]float64{cr, cc},
		Size: size, Compactness: 0.9, Conflicts: []int{segID},
	}

	return segment.ProcessedFrame{
		FrameNo: frameID, Height: 20, Width: 20, ImageNames: []string{"frame.tif"},
		Segmentations: []segment.Segmentation{{Name: "s", Segments: []segment.Segment{s}}},
	}
}

func TestExtract_TwoFrameChain(t *testing.T) {
	frames := []segment.ProcessedFrame{
		singleSegmentFrame(0, 1, 4.5, 4.5, 100),
		singleSegmentFrame(1, 1, 4.5, 4.5, 100),
	}
	b, err := trackgraph.NewBuilder(frames, costmodel.DefaultParameters(), milp.NewBranchAndBound())
	require.NoError(t, err)
	require.NoError(t, b.Build())
	_, err = b.Solve(5)
	require.NoError(t, err)

	sol, err := tracking.Extract(b, "/data/movie1")
	require.NoError(t, err)
	require.Equal(t, "/data/movie1", sol.RootDirectory)
	require.Equal(t, 2, sol.TotalFrames)
	require.Len(t, sol.Cells, 1)

	cell := sol.Cells[0]
	require.Nil(t, cell.ParentID)
	require.Equal(t, 0, cell.FirstFrame)
	require.Equal(t, 2, cell.Lifespan)
	require.True(t, cell.ExistsAt(0))
	require.True(t, cell.ExistsAt(1))
	require.False(t, cell.ExistsAt(2))

	at0, ok := cell.AssignmentAt(0)
	require.True(t, ok)
	require.Equal(t, tracking.Appear, at0)
	at1, ok := cell.AssignmentAt(1)
	require.True(t, ok)
	require.Equal(t, tracking.Map, at1)

	seg0, ok := cell.SegmentAt(0)
	require.True(t, ok)
	require.Equal(t, 1, seg0.SegID)
}

// rectMaskAt builds a filled rectangle of the given height/width with its
// top-left corner at (topRow, topCol) within a gridH x gridW frame.
func rectMaskAt(height, width, topRow, topCol, gridH, gridW int) segment.Mask {
	m := make(segment.Mask, gridH)
	for r := range m {
		m[r] = make([]bool, gridW)
	}
	for r := topRow; r < topRow+height; r++ {
		for c := topCol; c < topCol+width; c++ {
			m[r][c] = true
		}
	}

	return m
}

// divisionFrames builds a two-frame scenario mirroring spec.md's symmetric
// division scenario: one segment in frame 0 whose mask exactly splits into
// two equal-size, touching, non-overlapping segments in frame 1 (an exact
// size tie between the daughters).
func divisionFrames() []segment.ProcessedFrame {
	mother := segment.Segment{
		SegID: 1, FrameID: 0, Name: "s",
		Mask: rectMaskAt(20, 20, 0, 0, 20, 20), Centroid: [2]float64{9.5, 9.5},
		Size: 400, Compactness: 0.9, Conflicts: []int{1},
	}
	d1 := segment.Segment{
		SegID: 1, FrameID: 1, Name: "s",
		Mask: rectMaskAt(10, 20, 0, 0, 20, 20), Centroid: [2]float64{4.5, 9.5},
		Size: 200, Compactness: 0.9, Conflicts: []int{1},
	}
	d2 := segment.Segment{
		SegID: 2, FrameID: 1, Name: "s",
		Mask: rectMaskAt(10, 20, 10, 0, 20, 20), Centroid: [2]float64{14.5, 9.5},
		Size: 200, Compactness: 0.9, Conflicts: []int{2},
	}

	return []segment.ProcessedFrame{
		{
			FrameNo: 0, Height: 20, Width: 20, ImageNames: []string{"f0.tif"},
			Segmentations: []segment.Segmentation{{Name: "s", Segments: []segment.Segment{mother}}},
		},
		{
			FrameNo: 1, Height: 20, Width: 20, ImageNames: []string{"f1.tif"},
			Segmentations: []segment.Segmentation{{Name: "s", Segments: []segment.Segment{d1, d2}}},
		},
	}
}

func TestExtract_Division_BothDaughtersSurviveSizeTie(t *testing.T) {
	frames := divisionFrames()
	params := costmodel.DefaultParameters()
	params.MaxCost = 1000 // keep the division candidate from being pruned; it is force-included below.

	b, err := trackgraph.NewBuilder(frames, params, milp.NewBranchAndBound())
	require.NoError(t, err)
	require.NoError(t, b.Build())

	divisions := b.NodesOfKind(trackgraph.KindDivision)
	require.Len(t, divisions, 1)
	require.NoError(t, b.Force(divisions[0], true))

	status, err := b.Solve(5)
	require.NoError(t, err)
	require.Contains(t, []trackgraph.SolverStatus{trackgraph.StatusSolvedOptimal, trackgraph.StatusSolvedFeasible}, status)

	sol, err := tracking.Extract(b, "/data/movie2")
	require.NoError(t, err)
	require.Len(t, sol.Cells, 2)

	// On the exact size tie, the continuing (mother) Cell carries NewNode1
	// (seg 1) into frame 1, and a new sibling Cell is spawned for NewNode2
	// (seg 2). Before the tie-break fix, both branches picked NewNode2,
	// so seg 1 never appeared anywhere and seg 2 was duplicated.
	var mother, daughter *tracking.Cell
	for i := range sol.Cells {
		if sol.Cells[i].ParentID == nil {
			mother = &sol.Cells[i]
		} else {
			daughter = &sol.Cells[i]
		}
	}
	require.NotNil(t, mother)
	require.NotNil(t, daughter)
	require.Equal(t, mother.CellID, *daughter.ParentID)

	require.Equal(t, 0, mother.FirstFrame)
	require.Equal(t, 2, mother.Lifespan)
	at0, ok := mother.AssignmentAt(0)
	require.True(t, ok)
	require.Equal(t, tracking.Appear, at0)
	at1, ok := mother.AssignmentAt(1)
	require.True(t, ok)
	require.Equal(t, tracking.Divide, at1)
	motherSeg1, ok := mother.SegmentAt(1)
	require.True(t, ok)
	require.Equal(t, 1, motherSeg1.SegID)

	require.Equal(t, 1, daughter.FirstFrame)
	require.Equal(t, 1, daughter.Lifespan)
	dAt1, ok := daughter.AssignmentAt(1)
	require.True(t, ok)
	require.Equal(t, tracking.Divide, dAt1)
	daughterSeg, ok := daughter.SegmentAt(1)
	require.True(t, ok)
	require.Equal(t, 2, daughterSeg.SegID)
}

func TestExtract_RejectsUnsolvedGraph(t *testing.T) {
	frames := []segment.ProcessedFrame{singleSegmentFrame(0, 1, 4.5, 4.5, 100)}
	b, err := trackgraph.NewBuilder(frames, costmodel.DefaultParameters(), milp.NewBranchAndBound())
	require.NoError(t, err)
	require.NoError(t, b.Build())

	_, err = tracking.Extract(b, "")
	require.ErrorIs(t, err, tracking.ErrNotSolved)
}

func TestCell_String(t *testing.T) {
	parentID := 3
	c := tracking.Cell{
		CellID:   7,
		ParentID: &parentID,
		Assignments: []tracking.SegmentAssignment{
			{AssignmentType: tracking.Appear, Cost: 0.1},
			{AssignmentType: tracking.Exit, Cost: 0},
		},
	}
	s := c.String()
	require.Contains(t, s, "Cell ID 7")
	require.Contains(t, s, "parent ID 3")
	require.Contains(t, s, "Appearance -> Exit")
}
