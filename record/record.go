// Package record implements the persisted JSON representation of a solved
// tracking result (spec.md §4.7/§6, C7): stable field names chosen for
// cross-version compatibility, independent of the in-memory Go types in
// packages segment and tracking.
package record

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alanpreed/phd-image-analysis/segment"
	"github.com/alanpreed/phd-image-analysis/tracking"
)

// segmentRecord is the persisted form of segment.Segment. Masks are written
// as 2-D {0,1} integer arrays rather than booleans, matching the original
// wire format; there is no incoming/outgoing assignment field to omit here,
// since those transient back-references never exist on segment.Segment in
// the first place (spec.md §9 redesign: arena/index references replace them).
type segmentRecord struct {
	SegID              int        `json:"seg_id"`
	FrameID            int        `json:"frame_id"`
	MaskImage          [][]int    `json:"mask_image"`
	Name               string     `json:"name"`
	Centroid           [2]float64 `json:"centroid"`
	Size               int        `json:"size"`
	Compactness        float64    `json:"compactness"`
	ChannelIntensities []float64  `json:"channel_intensities"`
	Conflicts          []int      `json:"conflicts"`
	ManuallyChosen     bool       `json:"manually_chosen"`
}

type assignmentRecord struct {
	AssignmentType string  `json:"assignment_type"`
	Cost           float64 `json:"cost"`
}

type cellRecord struct {
	CellID      int                `json:"cell_id"`
	ParentID    *int               `json:"parent_id,omitempty"`
	FirstFrame  int                `json:"first_frame"`
	Lifespan    int                `json:"lifespan"`
	Segments    []segmentRecord    `json:"segments"`
	Assignments []assignmentRecord `json:"assignments"`
}

type solutionRecord struct {
	TotalFrames    int          `json:"total_frames"`
	RootDirectory  string       `json:"root_directory"`
	ImageFilenames [][]string   `json:"image_filenames"`
	Cells          []cellRecord `json:"cells"`
}

func maskToInts(m segment.Mask) [][]int {
	out := make([][]int, len(m))
	for r, row := range m {
		out[r] = make([]int, len(row))
		for c, v := range row {
			if v {
				out[r][c] = 1
			}
		}
	}

	return out
}

func maskFromInts(rows [][]int) segment.Mask {
	m := make(segment.Mask, len(rows))
	for r, row := range rows {
		m[r] = make([]bool, len(row))
		for c, v := range row {
			m[r][c] = v != 0
		}
	}

	return m
}

func segmentToRecord(s *segment.Segment) segmentRecord {
	return segmentRecord{
		SegID:              s.SegID,
		FrameID:            s.FrameID,
		MaskImage:          maskToInts(s.Mask),
		Name:               s.Name,
		Centroid:           s.Centroid,
		Size:               s.Size,
		Compactness:        s.Compactness,
		ChannelIntensities: s.ChannelIntensities,
		Conflicts:          s.Conflicts,
		ManuallyChosen:     s.ManuallyChosen,
	}
}

func segmentFromRecord(r segmentRecord) *segment.Segment {
	return &segment.Segment{
		SegID:              r.SegID,
		FrameID:            r.FrameID,
		Name:               r.Name,
		Mask:               maskFromInts(r.MaskImage),
		Centroid:           r.Centroid,
		Size:               r.Size,
		Compactness:        r.Compactness,
		ChannelIntensities: r.ChannelIntensities,
		Conflicts:          r.Conflicts,
		ManuallyChosen:     r.ManuallyChosen,
	}
}

func assignmentTypeToString(a tracking.AssignmentType) (string, error) {
	switch a {
	case tracking.Appear:
		return "APPEAR", nil
	case tracking.Map:
		return "MAP", nil
	case tracking.Divide:
		return "DIVIDE", nil
	case tracking.Exit:
		return "EXIT", nil
	default:
		return "", fmt.Errorf("%w: assignment type %d", ErrMalformedRecord, a)
	}
}

func assignmentTypeFromString(s string) (tracking.AssignmentType, error) {
	switch s {
	case "APPEAR":
		return tracking.Appear, nil
	case "MAP":
		return tracking.Map, nil
	case "DIVIDE":
		return tracking.Divide, nil
	case "EXIT":
		return tracking.Exit, nil
	default:
		return 0, fmt.Errorf("%w: unknown assignment_type %q", ErrMalformedRecord, s)
	}
}

func cellToRecord(c *tracking.Cell) (cellRecord, error) {
	segments := make([]segmentRecord, len(c.Segments))
	for i, s := range c.Segments {
		segments[i] = segmentToRecord(s)
	}

	assignments := make([]assignmentRecord, len(c.Assignments))
	for i, a := range c.Assignments {
		typeName, err := assignmentTypeToString(a.AssignmentType)
		if err != nil {
			return cellRecord{}, err
		}
		assignments[i] = assignmentRecord{AssignmentType: typeName, Cost: a.Cost}
	}

	return cellRecord{
		CellID:      c.CellID,
		ParentID:    c.ParentID,
		FirstFrame:  c.FirstFrame,
		Lifespan:    c.Lifespan,
		Segments:    segments,
		Assignments: assignments,
	}, nil
}

func cellFromRecord(r cellRecord) (tracking.Cell, error) {
	segments := make([]*segment.Segment, len(r.Segments))
	for i, s := range r.Segments {
		segments[i] = segmentFromRecord(s)
	}

	assignments := make([]tracking.SegmentAssignment, len(r.Assignments))
	for i, a := range r.Assignments {
		t, err := assignmentTypeFromString(a.AssignmentType)
		if err != nil {
			return tracking.Cell{}, err
		}
		assignments[i] = tracking.SegmentAssignment{AssignmentType: t, Cost: a.Cost}
	}

	return tracking.Cell{
		CellID:      r.CellID,
		ParentID:    r.ParentID,
		FirstFrame:  r.FirstFrame,
		Lifespan:    r.Lifespan,
		Segments:    segments,
		Assignments: assignments,
	}, nil
}

func solutionToRecord(sol *tracking.Solution) (solutionRecord, error) {
	cells := make([]cellRecord, len(sol.Cells))
	for i := range sol.Cells {
		r, err := cellToRecord(&sol.Cells[i])
		if err != nil {
			return solutionRecord{}, err
		}
		cells[i] = r
	}

	return solutionRecord{
		TotalFrames:    sol.TotalFrames,
		RootDirectory:  sol.RootDirectory,
		ImageFilenames: sol.ImageFilenames,
		Cells:          cells,
	}, nil
}

func solutionFromRecord(r solutionRecord) (tracking.Solution, error) {
	cells := make([]tracking.Cell, len(r.Cells))
	for i, cr := range r.Cells {
		c, err := cellFromRecord(cr)
		if err != nil {
			return tracking.Solution{}, err
		}
		cells[i] = c
	}

	return tracking.Solution{
		TotalFrames:    r.TotalFrames,
		RootDirectory:  r.RootDirectory,
		ImageFilenames: r.ImageFilenames,
		Cells:          cells,
	}, nil
}

// Encode writes sol to w as the persisted JSON record.
func Encode(w io.Writer, sol *tracking.Solution) error {
	r, err := solutionToRecord(sol)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(r)
}

// Decode reads a persisted JSON record from r. It does not perform the
// root-directory relocation Load does; callers reading from a non-file
// source (e.g. a network stream) should set RootDirectory themselves.
func Decode(r io.Reader) (tracking.Solution, error) {
	var rec solutionRecord
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return tracking.Solution{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	return solutionFromRecord(rec)
}

// Save writes sol to path as indented JSON.
func Save(path string, sol *tracking.Solution) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return Encode(f, sol)
}

// Load reads a persisted solution from path and replaces RootDirectory with
// path's containing directory (spec.md §4.7: "external paths are
// relocation-tolerant"), so a dataset moved to a new location still
// resolves correctly.
func Load(path string) (tracking.Solution, error) {
	f, err := os.Open(path)
	if err != nil {
		return tracking.Solution{}, err
	}
	defer f.Close()

	sol, err := Decode(f)
	if err != nil {
		return tracking.Solution{}, err
	}
	sol.RootDirectory = filepath.Dir(path)

	return sol, nil
}
