// Stream extraction: threshold the flow-accumulation raster into a stream
// mask, find node cells (sources and confluences), and trace each one
// downstream along the flow-direction raster until it meets another node or
// runs off the raster, emitting a polyline per stream segment plus point
// features at every junction and source.
package hydro

import (
	"context"

	"github.com/jblindsay/hydroflow/raster"
)

// StreamsParams configures stream-network extraction.
type StreamsParams struct {
	ChunkSize int
	Threshold int64
	Progress  raster.Progress
}

// StreamPoint is a cell-center coordinate pair in world units.
type StreamPoint struct {
	X, Y float64
}

// StreamLine is one traced stream segment, from a source or confluence down
// to the next node or the raster boundary.
type StreamLine struct {
	Points []StreamPoint
}

// StreamNetwork is the extracted vector product of Streams: the boolean mask
// (returned so the caller can also write it as a raster), the junction/source
// points, and the traced line segments.
type StreamNetwork struct {
	Mask      []bool // row-major, rows*cols
	Rows      int
	Columns   int
	Junctions []StreamPoint
	Lines     []StreamLine
}

// Streams is the stream-extraction entry point. ChunkSize is accepted for
// interface symmetry with the other stages but the mask/trace pass always
// considers the whole raster: a stream segment can run for many tiles and
// its trace has to stay connected.
func Streams(ctx context.Context, fac, fdr raster.Tiled, p StreamsParams) (*StreamNetwork, error) {
	rows, cols := fac.Rows(), fac.Columns()
	facData := make([]float64, rows*cols)
	if err := fac.ReadBlock(0, 0, rows, cols, facData); err != nil {
		return nil, err
	}
	fdrData := make([]float64, rows*cols)
	if err := fdr.ReadBlock(0, 0, rows, cols, fdrData); err != nil {
		return nil, err
	}
	idx := func(r, c int) int { return r*cols + c }

	mask := make([]bool, rows*cols)
	for i, v := range facData {
		mask[i] = v != fac.NoData() && int64(v) >= p.Threshold
	}

	isStream := func(r, c int) bool {
		if r < 0 || r >= rows || c < 0 || c >= cols {
			return false
		}
		return mask[idx(r, c)]
	}

	isNode := func(r, c int) bool {
		if !mask[idx(r, c)] {
			return false
		}
		upstream := 0
		for n := 0; n < 8; n++ {
			dr, dc := Offset(byte(n))
			ur, uc := r-dr, c-dc
			if !isStream(ur, uc) {
				continue
			}
			dir := byte(fdrData[idx(ur, uc)])
			if IsValidFlowDir(dir) && dir == byte(n) {
				upstream++
			}
		}
		return upstream == 0 || upstream > 1
	}

	transform := fac.GeoTransform()
	net := &StreamNetwork{Mask: mask, Rows: rows, Columns: cols}

	total := 0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if isNode(r, c) {
				total++
			}
		}
	}
	done := 0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !isNode(r, c) {
				continue
			}
			x, y := transform.ToWorld(r, c)
			net.Junctions = append(net.Junctions, StreamPoint{X: x, Y: y})

			line := traceStream(r, c, fdrData, mask, rows, cols, idx, isNode, transform)
			net.Lines = append(net.Lines, line)

			done++
			p.Progress.Report("streams", "trace", done, total, "", float64(done)/float64(max(total, 1)))
		}
	}

	addDownstreamJunctions(net)
	return net, nil
}

// traceStream follows the flow-direction chain from (r0, c0) until it meets
// another node cell or leaves the stream mask / raster, collecting world
// coordinates at every cell along the way.
func traceStream(r0, c0 int, fdr []float64, mask []bool, rows, cols int, idx func(int, int) int, isNode func(int, int) bool, transform raster.GeoTransform) StreamLine {
	x, y := transform.ToWorld(r0, c0)
	line := StreamLine{Points: []StreamPoint{{X: x, Y: y}}}
	r, c := r0, c0
	for {
		dir := byte(fdr[idx(r, c)])
		if !IsValidFlowDir(dir) {
			break
		}
		dr, dc := Offset(dir)
		nr, nc := r+dr, c+dc
		if nr < 0 || nr >= rows || nc < 0 || nc >= cols || !mask[idx(nr, nc)] {
			break
		}
		x, y := transform.ToWorld(nr, nc)
		line.Points = append(line.Points, StreamPoint{X: x, Y: y})
		r, c = nr, nc
		if isNode(r, c) {
			break
		}
	}
	return line
}

// addDownstreamJunctions appends a junction one cell upstream of every
// stream line's downstream terminus that has no junction already recorded
// there, unless that upstream cell already has one. The terminus cell itself
// never gets a point here, and lines of a single point are skipped.
func addDownstreamJunctions(net *StreamNetwork) {
	existing := make(map[StreamPoint]bool, len(net.Junctions))
	for _, p := range net.Junctions {
		existing[p] = true
	}
	for _, line := range net.Lines {
		n := len(line.Points)
		if n < 2 {
			continue
		}
		end := line.Points[n-1]
		if existing[end] {
			continue
		}
		upstreamOfEnd := line.Points[n-2]
		if !existing[upstreamOfEnd] {
			net.Junctions = append(net.Junctions, upstreamOfEnd)
			existing[upstreamOfEnd] = true
		}
	}
}
