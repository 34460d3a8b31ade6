// Package segment defines the immutable candidate-segment descriptors and the
// per-frame containers that the tracking engine consumes from the external
// segmentation front-ends.
//
// Segment is a value type: once delivered by a segmenter it is never mutated
// by this module. Mask is a flat per-frame boolean raster; Conflicts records
// the symmetric, reflexive "overlaps with" relation among segments of the
// same frame (see ProcessedFrame.Validate below).
//
// Complexity: all accessors here are O(1) or O(H*W) in the mask dimensions.
// Apart from its own return value, only ProcessedFrame.Validate allocates
// (a per-frame seg_id index and the flattened segment list).
package segment

import "fmt"

// Mask is a fixed-shape 2-D binary raster, Mask[row][col].
// All masks within one frame share the same shape (Height x Width).
type Mask [][]bool

// Dims returns the (height, width) of m. An empty Mask has Dims() == (0, 0).
func (m Mask) Dims() (height, width int) {
	if len(m) == 0 {
		return 0, 0
	}

	return len(m), len(m[0])
}

// Popcount returns the number of set pixels in m.
func (m Mask) Popcount() int {
	count := 0
	for _, row := range m {
		for _, v := range row {
			if v {
				count++
			}
		}
	}

	return count
}

// Segment is a candidate cell region within one frame.
//
// Invariants (enforced by Validate, not by the zero value):
//   - Size == Mask.Popcount()
//   - Centroid lies inside Mask's axis-aligned bounding box
//   - SegID is unique within the enclosing Frame, not globally
type Segment struct {
	// SegID uniquely identifies this segment within its frame.
	SegID int

	// FrameID is the index of the frame this segment belongs to.
	FrameID int

	// Name identifies the Segmentation (segmenter/parameter choice) this
	// segment came from; echoed in the persisted record and in MILP
	// variable names.
	Name string

	// Mask is the candidate region's binary raster.
	Mask Mask

	// Centroid is (row, column) in pixels.
	Centroid [2]float64

	// Size is the pixel count of Mask (popcount).
	Size int

	// Compactness is the isoperimetric quotient 4*pi*area/perimeter^2, in [0,1].
	Compactness float64

	// ChannelIntensities holds per-channel mean intensity over Mask, one
	// entry per imaging channel, in channel order.
	ChannelIntensities []float64

	// Conflicts holds the seg_id of every segment in the same frame whose
	// mask overlaps this one. By convention this set is reflexive: SegID
	// is always a member of its own Conflicts.
	Conflicts []int

	// ManuallyChosen suppresses division assignments involving this
	// segment when true (pre-curated / forced segments never divide).
	ManuallyChosen bool
}

// HasConflict reports whether otherSegID is recorded as conflicting with s.
func (s *Segment) HasConflict(otherSegID int) bool {
	for _, c := range s.Conflicts {
		if c == otherSegID {
			return true
		}
	}

	return false
}

// Validate checks the structural invariants spec.md §3 requires of a
// Segment in isolation (it cannot check cross-segment symmetry of
// Conflicts; ProcessedFrame.Validate does that).
func (s *Segment) Validate() error {
	if s.FrameID < 0 {
		return fmt.Errorf("segment %d: %w", s.SegID, ErrNegativeFrameID)
	}
	h, w := s.Mask.Dims()
	if h == 0 || w == 0 {
		return fmt.Errorf("segment %d: %w", s.SegID, ErrEmptyMask)
	}
	if popcount := s.Mask.Popcount(); popcount != s.Size {
		return fmt.Errorf("segment %d: %w: size=%d popcount=%d", s.SegID, ErrSizeMismatch, s.Size, popcount)
	}
	if s.Size == 0 {
		return fmt.Errorf("segment %d: %w", s.SegID, ErrEmptyMask)
	}
	minRow, minCol, maxRow, maxCol, ok := boundingBox(s.Mask)
	if !ok {
		return fmt.Errorf("segment %d: %w", s.SegID, ErrEmptyMask)
	}
	cr, cc := s.Centroid[0], s.Centroid[1]
	if cr < float64(minRow) || cr > float64(maxRow) || cc < float64(minCol) || cc > float64(maxCol) {
		return fmt.Errorf("segment %d: %w", s.SegID, ErrCentroidOutOfBounds)
	}
	if !s.HasConflict(s.SegID) {
		return fmt.Errorf("segment %d: %w", s.SegID, ErrConflictsNotReflexive)
	}

	return nil
}

// boundingBox returns the axis-aligned bounding box of the set pixels in m.
func boundingBox(m Mask) (minRow, minCol, maxRow, maxCol int, ok bool) {
	minRow, minCol = 1<<62, 1<<62
	maxRow, maxCol = -1, -1
	for r, row := range m {
		for c, v := range row {
			if !v {
				continue
			}
			ok = true
			if r < minRow {
				minRow = r
			}
			if r > maxRow {
				maxRow = r
			}
			if c < minCol {
				minCol = c
			}
			if c > maxCol {
				maxCol = c
			}
		}
	}

	return minRow, minCol, maxRow, maxCol, ok
}

// Segmentation is one named candidate segmentation of a frame: a
// segmenter's (or parameter choice's) full set of candidate Segments plus
// the background it measured against.
type Segmentation struct {
	// Name identifies the segmenter/parameter choice, e.g. "histogram" or
	// "cellpose-v2".
	Name string

	// SegmentationChannelID is the imaging channel this segmenter ran on.
	SegmentationChannelID int

	// BackgroundMask is the per-frame raster of pixels considered
	// background by this segmentation.
	BackgroundMask Mask

	// BackgroundIntensities holds per-channel mean background intensity.
	BackgroundIntensities []float64

	// Segments is the ordered list of candidate regions this segmentation produced.
	Segments []Segment
}

// ProcessedFrame is one frame's worth of input: its pixel shape, the
// filenames of its source images (opaque to this module), and every
// Segmentation computed for it.
type ProcessedFrame struct {
	// FrameNo is this frame's position in the movie, 0-based.
	FrameNo int

	// Height, Width give the frame's pixel shape; every Mask in every
	// Segmentation of this frame must share these dimensions.
	Height, Width int

	// ImageNames holds the (opaque) source image filenames for this frame,
	// one per channel.
	ImageNames []string

	// Segmentations is the ordered list of candidate segmentations for
	// this frame, typically one per competing segmenter.
	Segmentations []Segmentation
}

// AllSegments flattens every Segmentation's Segments, in Segmentation
// order, mirroring how the graph builder enumerates a frame's candidates.
func (f *ProcessedFrame) AllSegments() []*Segment {
	var out []*Segment
	for i := range f.Segmentations {
		seg := f.Segmentations[i].Segments
		for j := range seg {
			out = append(out, &seg[j])
		}
	}

	return out
}

// Validate checks frame-level invariants: non-empty shape, every mask
// matching (Height, Width), every segment individually valid, and
// Conflicts symmetric within the frame (spec.md §4.1).
func (f *ProcessedFrame) Validate() error {
	if f.Height <= 0 || f.Width <= 0 {
		return fmt.Errorf("frame %d: %w", f.FrameNo, ErrEmptyFrameShape)
	}

	bySegID := make(map[int]*Segment)
	for _, s := range f.AllSegments() {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("frame %d: %w", f.FrameNo, err)
		}
		h, w := s.Mask.Dims()
		if h != f.Height || w != f.Width {
			return fmt.Errorf("frame %d segment %d: %w", f.FrameNo, s.SegID, ErrShapeMismatch)
		}
		if _, dup := bySegID[s.SegID]; dup {
			return fmt.Errorf("frame %d: %w: seg_id=%d", f.FrameNo, ErrDuplicateSegID, s.SegID)
		}
		bySegID[s.SegID] = s
	}

	for _, s := range bySegID {
		for _, otherID := range s.Conflicts {
			other, ok := bySegID[otherID]
			if !ok {
				return fmt.Errorf("frame %d segment %d: %w: references missing seg_id=%d", f.FrameNo, s.SegID, ErrConflictsNotSymmetric, otherID)
			}
			if !other.HasConflict(s.SegID) {
				return fmt.Errorf("frame %d: %w: %d<->%d", f.FrameNo, ErrConflictsNotSymmetric, s.SegID, otherID)
			}
		}
	}

	return nil
}

// ValidateFrames checks every frame individually and that every frame
// shares a common shape with its neighbors is NOT required by spec.md
// (frame shape may legitimately vary, e.g. after a crop/resize step);
// only per-frame internal consistency is enforced here.
func ValidateFrames(frames []ProcessedFrame) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	for i := range frames {
		if err := frames[i].Validate(); err != nil {
			return err
		}
	}

	return nil
}
