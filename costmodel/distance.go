package costmodel

import "math"

// inf is a stand-in for "no source pixel reachable in this row/column pass"
// during the squared Euclidean distance transform below.
const inf = math.MaxFloat64 / 4

// PixelSeparation computes the minimum Euclidean distance, in pixels,
// between any set pixel of a and any set pixel of b, minus one — so that
// two touching masks (adjacent pixels, center-to-center distance 1) report
// zero separation. If a and b overlap anywhere, separation is defined as
// zero (spec.md §4.2).
//
// a and b must share the same dimensions; mismatched shapes are treated as
// non-overlapping (callers validate shape equality upstream via
// segment.ProcessedFrame.Validate).
func PixelSeparation(a, b Raster) float64 {
	if overlaps(a, b) {
		return 0
	}

	dt := distanceTransform(b)
	minDist := math.Inf(1)
	h, w := a.dims()
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			if !a.at(r, c) {
				continue
			}
			if d := dt[r][c]; d < minDist {
				minDist = d
			}
		}
	}
	if math.IsInf(minDist, 1) {
		// a has no set pixels, so no distance was sampled: report the pair
		// as maximally separated rather than returning a misleading zero.
		// (An empty b instead yields a very large finite distance, since
		// inf above is a finite stand-in.)
		return math.Inf(1)
	}

	return minDist - 1
}

// Raster is the minimal 2-D boolean grid interface PixelSeparation needs;
// segment.Mask satisfies it via the adapter in costmodel.MaskRaster.
type Raster interface {
	dims() (height, width int)
	at(row, col int) bool
}

// MaskRaster adapts a plain [][]bool (such as a segment.Mask) into a
// Raster; DivisionCost uses it to pass segment masks to PixelSeparation.
type MaskRaster [][]bool

func (m MaskRaster) dims() (height, width int) {
	if len(m) == 0 {
		return 0, 0
	}

	return len(m), len(m[0])
}

func (m MaskRaster) at(row, col int) bool {
	return m[row][col]
}

func overlaps(a, b Raster) bool {
	ah, aw := a.dims()
	bh, bw := b.dims()
	if ah != bh || aw != bw {
		return false
	}
	for r := 0; r < ah; r++ {
		for c := 0; c < aw; c++ {
			if a.at(r, c) && b.at(r, c) {
				return true
			}
		}
	}

	return false
}

// distanceTransform returns, for every pixel, the Euclidean distance to the
// nearest set pixel of src (0 at set pixels themselves), using the
// Felzenszwalt-Huttenlocher two-pass squared distance transform: a 1-D
// lower-envelope-of-parabolas pass along columns, then along rows.
//
// Complexity: O(H*W) time and space, versus the O(H*W*P) a naive
// brute-force over every (pixel, source-pixel) pair would cost.
func distanceTransform(src Raster) [][]float64 {
	h, w := src.dims()
	sq := make([][]float64, h)
	for r := 0; r < h; r++ {
		sq[r] = make([]float64, w)
		for c := 0; c < w; c++ {
			if src.at(r, c) {
				sq[r][c] = 0
			} else {
				sq[r][c] = inf
			}
		}
	}

	// Pass 1: transform each column independently.
	col := make([]float64, h)
	for c := 0; c < w; c++ {
		for r := 0; r < h; r++ {
			col[r] = sq[r][c]
		}
		out := squaredDT1D(col)
		for r := 0; r < h; r++ {
			sq[r][c] = out[r]
		}
	}

	// Pass 2: transform each row, using the column-transformed values.
	for r := 0; r < h; r++ {
		sq[r] = squaredDT1D(sq[r])
	}

	out := make([][]float64, h)
	for r := 0; r < h; r++ {
		out[r] = make([]float64, w)
		for c := 0; c < w; c++ {
			out[r][c] = math.Sqrt(sq[r][c])
		}
	}

	return out
}

// squaredDT1D computes the 1-D squared distance transform of f: for every
// position q, min over p of (q-p)^2 + f[p]. f holds 0 at "source" positions
// and inf elsewhere (or, on the second pass, the partial squared distances
// from pass one). This is the classic lower envelope of parabolas algorithm.
func squaredDT1D(f []float64) []float64 {
	n := len(f)
	d := make([]float64, n)
	v := make([]int, n)       // v[k] = index of the k-th parabola in the envelope
	z := make([]float64, n+1) // z[k] = left boundary of parabola k's region
	k := 0
	v[0] = 0
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)

	for q := 1; q < n; q++ {
		var s float64
		for {
			p := v[k]
			s = ((f[q] + float64(q*q)) - (f[p] + float64(p*p))) / float64(2*(q-p))
			if s <= z[k] {
				k--
				if k < 0 {
					break
				}
				continue
			}
			break
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}

	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		p := v[k]
		dq := float64(q - p)
		d[q] = dq*dq + f[p]
	}

	return d
}
