package trackgraph

import "errors"

// Sentinel errors returned by package trackgraph.
var (
	// ErrAlreadyBuilt indicates Build was called more than once on the same Builder.
	ErrAlreadyBuilt = errors.New("trackgraph: graph already built")

	// ErrNotReady indicates Solve was called before Build completed.
	ErrNotReady = errors.New("trackgraph: graph is not ready to solve")

	// ErrUnknownNode indicates a NodeRef outside the built node arena was used.
	ErrUnknownNode = errors.New("trackgraph: unknown node reference")

	// ErrNotSegmentNode indicates a segment-only operation (e.g.
	// OutgoingAssignments) was called on a NodeRef that does not refer to a
	// KindSegment node.
	ErrNotSegmentNode = errors.New("trackgraph: node is not a segment node")

	// ErrInconsistentFrames indicates the frames passed to NewBuilder failed validation.
	ErrInconsistentFrames = errors.New("trackgraph: frame validation failed")
)
