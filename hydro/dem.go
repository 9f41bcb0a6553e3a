// Package hydro implements the seven tiled hydrology pipeline stages: pit
// breaching, depression filling, D8 flow direction with flat resolution,
// flow accumulation, basin labelling, stream extraction, and upstream flow
// length, plus the tile-orchestration machinery that scales them to rasters
// larger than memory.
package hydro

import "math"

// Flow-direction codes: a stable on-disk ABI. 0 corresponds to the offset
// (dr=0, dc=+1) and indices progress counter-clockwise from there; this
// package must never renumber them, since a raster written with one
// numbering and read back with another would silently misroute every flow
// path.
const (
	DirE    byte = 0
	DirNE   byte = 1
	DirN    byte = 2
	DirNW   byte = 3
	DirW    byte = 4
	DirSW   byte = 5
	DirS    byte = 6
	DirSE   byte = 7
	DirUndefined byte = 8
	DirNoData   byte = 9
)

// dRow/dCol give the (row, col) offset for each of the 8 D8 directions,
// indexed by the direction code 0..7 above (counter-clockwise from East).
var dRow = [8]int{0, -1, -1, -1, 0, 1, 1, 1}
var dCol = [8]int{1, 1, 0, -1, -1, -1, 0, 1}

// backlink maps a direction code to the code that points back the other
// way (the direction a neighbor would use to point at the cell that just
// looked at it), used by flat resolution to tell whether a neighbor drains
// into the flat cell next to it.
var backlink = [8]byte{DirW, DirSW, DirS, DirSE, DirE, DirNE, DirN, DirNW}

// StepDistance returns the horizontal travel distance of one D8 hop in a
// given direction, in units of one cell, i.e. 1 for a cardinal step and
// √2 for a diagonal one.
func StepDistance(dir byte) float64 {
	if dir%2 == 0 {
		return 1.0
	}
	return math.Sqrt2
}

// Offset returns the (dr, dc) neighbor offset for direction dir (0..7).
func Offset(dir byte) (dr, dc int) {
	return dRow[dir], dCol[dir]
}

// Back returns the direction that points back the way dir came from.
func Back(dir byte) byte { return backlink[dir] }

// IsValidFlowDir reports whether dir encodes an actual downstream
// direction (0..7), as opposed to UNDEFINED or NODATA.
func IsValidFlowDir(dir byte) bool { return dir <= DirSE }

// Epsilon returns a step size suitable for an epsilon-gradient: small
// relative to elev's value but large enough to survive a float round-trip,
// computed via math.Nextafter rather than a fixed constant so it scales
// with however many orders of magnitude the DEM spans.
func Epsilon(elev float64) float64 {
	next := math.Nextafter(elev, math.Inf(1))
	step := next - elev
	if step <= 0 {
		step = 1e-7
	}
	// A single ULP is too fine to reliably separate cells once they've been
	// raised a few thousand times (it can round away to nothing against a
	// large elevation), so scale up by a safety factor to leave a few spare
	// digits of headroom rather than using the tightest possible increment.
	return step * 1024
}

// minFloat64 / maxFloat64 are small helpers used throughout the kernels.
func minFloat64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
