package segment

import "errors"

// Sentinel errors for segment and frame validation.
var (
	// ErrNoFrames indicates an empty frame list was supplied where at
	// least one frame is required.
	ErrNoFrames = errors.New("segment: no frames supplied")

	// ErrEmptyFrameShape indicates a frame with a non-positive height or width.
	ErrEmptyFrameShape = errors.New("segment: frame has empty shape")

	// ErrEmptyMask indicates a segment whose mask has zero set pixels or
	// zero dimensions.
	ErrEmptyMask = errors.New("segment: mask is empty")

	// ErrShapeMismatch indicates a segment mask whose dimensions differ
	// from its frame's declared shape.
	ErrShapeMismatch = errors.New("segment: mask shape does not match frame shape")

	// ErrSizeMismatch indicates Segment.Size disagrees with the mask's popcount.
	ErrSizeMismatch = errors.New("segment: size does not match mask popcount")

	// ErrCentroidOutOfBounds indicates a centroid outside the mask's
	// bounding box.
	ErrCentroidOutOfBounds = errors.New("segment: centroid outside mask bounding box")

	// ErrConflictsNotReflexive indicates a segment whose Conflicts does
	// not include its own seg_id.
	ErrConflictsNotReflexive = errors.New("segment: conflicts set is not reflexive")

	// ErrConflictsNotSymmetric indicates a conflicts relation between two
	// segments of a frame that is not mutual.
	ErrConflictsNotSymmetric = errors.New("segment: conflicts relation is not symmetric")

	// ErrDuplicateSegID indicates two segments of the same frame sharing a seg_id.
	ErrDuplicateSegID = errors.New("segment: duplicate seg_id within frame")

	// ErrNegativeFrameID indicates a segment with a negative frame id.
	ErrNegativeFrameID = errors.New("segment: frame id is negative")
)
