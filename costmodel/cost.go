package costmodel

import (
	"math"

	"github.com/alanpreed/phd-image-analysis/segment"
)

// SegmentCost scores how likely s is to be a genuine cell region: more
// overlapping candidates and a more circular shape both make s more
// believable, and both pull the cost down (negative cost encourages
// inclusion in the MILP objective).
func SegmentCost(p Parameters, s *segment.Segment) float64 {
	return -(conflictBenefit(p, s) + compactnessBenefit(p, s))
}

func conflictBenefit(p Parameters, s *segment.Segment) float64 {
	scale := (p.ConflictMaxCost - p.ConflictMinCost) / float64(p.MaxConflicts)

	return scale*float64(len(s.Conflicts)) + p.ConflictMinCost
}

func compactnessBenefit(p Parameters, s *segment.Segment) float64 {
	return sigmoid(p.CompactnessMinCost, p.CompactnessMaxCost, p.CompactnessSlope, p.CompactnessMidPoint, s.Compactness)
}

// AppearanceCost is a positive multiple of |SegmentCost|, encouraging a
// cell to persist across frames once it has appeared rather than
// reappearing from scratch every frame.
func AppearanceCost(p Parameters, s *segment.Segment) float64 {
	return SegmentCost(p, s) * p.AppearanceCostScale * -1
}

// ExitCost is the constant cost of terminating a cell's lineage.
func ExitCost(p Parameters) float64 {
	return p.ExitCost
}

// MappingCost scores a one-to-one assignment of old (frame t) to new
// (frame t+1): cost grows with centroid displacement (relative to old's
// apparent radius) and with any size mismatch, and is exactly zero for the
// size term when both segments are equally sized.
func MappingCost(old, newSeg *segment.Segment) float64 {
	dSq := distanceSquared(old.Centroid, newSeg.Centroid)
	rSq := float64(old.Size) / math.Pi
	separationRatio := dSq / rSq

	sizeRatio := float64(old.Size)/float64(newSeg.Size) + float64(newSeg.Size)/float64(old.Size)

	return separationRatio*separationRatio + sizeRatio*sizeRatio - 4
}

func distanceSquared(a, b [2]float64) float64 {
	dr := b[0] - a[0]
	dc := b[1] - a[1]

	return dr*dr + dc*dc
}

// Division-cost shaping constants, local to this function's original
// Python implementation (original_source/Tracking/NodeCosts.py) and
// intentionally independent of Parameters.MaxCost, which the graph
// builder uses purely as a candidate-pruning threshold.
const (
	divisionBaseCostOffset = 0.8
	divisionMinCost        = 0.0
	divisionMaxCost        = 0.25
	divisionThresholdCost  = divisionMaxCost / 2
	divisionSizeSlope      = 10.0
	divisionMaxDaughterSz  = 230.0
	divisionMinMotherRatio = 2.0
	divisionSeparationSlp  = 2.0
	divisionMaxSeparation  = 1.0
)

// DivisionCost scores a one-to-two assignment of old (the mother candidate
// in frame t) to d1, d2 (the two daughter candidates in frame t+1). The
// larger of d1/d2 is treated as the mother's continuation, the smaller as
// the new daughter; the base mapping+appearance cost is then scaled by
// three logistic multipliers so that a close, appropriately-sized,
// sufficiently-smaller daughter costs less than mapping+appearance alone.
func DivisionCost(p Parameters, old, d1, d2 *segment.Segment) float64 {
	mother, daughter := d2, d1
	if d1.Size >= d2.Size {
		mother, daughter = d1, d2
	}

	separation := PixelSeparation(MaskRaster(mother.Mask), MaskRaster(daughter.Mask))

	separationMid := findMidpoint(divisionMinCost, divisionMaxCost, divisionSeparationSlp, divisionMaxSeparation, divisionThresholdCost)
	separationMult := sigmoid(divisionMinCost, divisionMaxCost, divisionSeparationSlp, separationMid, separation)

	daughterMid := findMidpoint(divisionMinCost, divisionMaxCost, divisionSizeSlope, 1, divisionThresholdCost)
	daughterMult := sigmoid(divisionMinCost, divisionMaxCost, divisionSizeSlope, daughterMid, float64(daughter.Size)/divisionMaxDaughterSz)

	motherMid := findMidpoint(divisionMinCost, divisionMaxCost, divisionSizeSlope, divisionMinMotherRatio, divisionThresholdCost)
	motherMult := sigmoid(divisionMinCost, divisionMaxCost, divisionSizeSlope, motherMid, 2*motherMid-(float64(mother.Size)/float64(daughter.Size)))

	base := MappingCost(old, mother) + AppearanceCost(p, daughter)

	return base * (divisionBaseCostOffset + motherMult + daughterMult + separationMult)
}

// sigmoid maps x through a logistic curve scaled and shifted to [minVal, maxVal].
func sigmoid(minVal, maxVal, slope, midPoint, x float64) float64 {
	return minVal + (maxVal-minVal)/(1+math.Exp(-slope*(x-midPoint)))
}

// findMidpoint solves sigmoid(minVal, maxVal, slope, midPoint, x) == y for
// midPoint, given the point (x, y) the curve should pass through.
func findMidpoint(minVal, maxVal, slope, x, y float64) float64 {
	return (1/slope)*math.Log((maxVal-minVal)/(y-minVal)-1) + x
}
