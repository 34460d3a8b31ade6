// Package engine ties together the joint segmentation-selection and
// cell-tracking pipeline: given per-frame candidate cell segmentations,
// possibly overlapping or mutually exclusive, it selects a consistent
// non-overlapping subset per frame and links the survivors across frames
// into cell lineages, including divisions.
//
// The pipeline is organized as one subpackage per concern:
//
//	segment/    — candidate Segment and ProcessedFrame input types
//	costmodel/  — pure cost functions scoring how plausible a node is
//	trackgraph/ — builds the per-movie factor graph and solves it
//	milp/       — the binary-integer-program adapter trackgraph solves against
//	tracking/   — extracts Cell lineages from a solved factor graph
//	record/     — persisted JSON representation of a TrackingSolution
//
// A typical build-solve-extract cycle:
//
//	b, err := trackgraph.NewBuilder(frames, costmodel.DefaultParameters(), milp.NewBranchAndBound())
//	if err != nil { ... }
//	if err := b.Build(); err != nil { ... }
//	if _, err := b.Solve(300); err != nil { ... }
//	solution, err := tracking.Extract(b, rootDirectory)
//
// This package intentionally does not include image segmentation
// front-ends, a GUI, dataset/filesystem layout conventions, or a
// general-purpose MILP engine: those are treated as external collaborators.
package engine
