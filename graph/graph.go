// Package graph holds cross-tile reconciliation state: packing of local
// per-tile region labels into global labels (used by fill and flat
// resolution) and the region-edge graph with its spill-elevation solve
// (used by fill). Elevations
// are quantized to integer edge weights (lvlath's core.Graph requires int64
// weights) using a digit-counting multiplier derived from the DEM's own
// elevation range, so precision scales with however many orders of
// magnitude the DEM spans.
package graph

import (
	"errors"
	"math"

	"github.com/katalvlaran/lvlath/core"
)

// LabelRaster cell values are signed 64-bit region IDs, packed as
// (tileID << 32) | localLabel.
const tileIDShift = 32

// PackLabel combines a tile ID and a tile-local label (1..N) into a
// globally-unique region label.
func PackLabel(tileID int, localLabel int32) int64 {
	return (int64(tileID) << tileIDShift) | int64(uint32(localLabel))
}

// UnpackLabel splits a global label back into its tile ID and local label.
func UnpackLabel(label int64) (tileID int, localLabel int32) {
	return int(label >> tileIDShift), int32(uint32(label))
}

// BoundaryLabel is the sentinel global label representing the raster
// boundary / nodata, the seed region every spill-elevation search starts
// from.
const BoundaryLabel int64 = 0

// Quantizer turns floating-point elevations into the integer edge weights
// lvlath's core.Graph requires, using a digit-counting scheme that keeps
// enough decimal precision across the round trip to hold tie-breaks stable,
// however many orders of magnitude the DEM spans.
type Quantizer struct {
	multiplier float64
}

// NewQuantizer derives a multiplier from the DEM's elevation range.
func NewQuantizer(minElev, maxElev float64) Quantizer {
	spread := maxElev - minElev
	if spread < 1 {
		spread = 1
	}
	digits := len(itoa(int64(spread)))
	multiplier := math.Pow(10, float64(8-digits))
	return Quantizer{multiplier: multiplier}
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Quantize converts an elevation to an int64 weight. The mapping is
// monotonic, so "maximum elevation on a path" and "maximum quantized
// weight on a path" agree, which is all the fill/flats reconciliation needs.
func (q Quantizer) Quantize(elev float64) int64 {
	return int64(elev * q.multiplier)
}

// Dequantize reverses Quantize, for reporting spill elevations back in the
// DEM's own units.
func (q Quantizer) Dequantize(weight int64) float64 {
	return float64(weight) / q.multiplier
}

// EdgeGraph wraps an lvlath core.Graph restricted to the single operation
// the reconciliation phases need: upserting the cheapest-crossing-point
// threshold between two region labels. It is undirected and weighted;
// vertex IDs are the decimal string form of the int64 region label.
type EdgeGraph struct {
	g *core.Graph
}

// NewEdgeGraph constructs an empty global edge graph.
func NewEdgeGraph() *EdgeGraph {
	return &EdgeGraph{g: core.NewGraph(core.WithWeighted())}
}

func vid(label int64) string { return itoa(label) }

// UpsertMin records that labels a and b are adjacent with a spill threshold
// of weight: the elevation at which a path crossing at this particular cell
// pair would need to rise to. A region pair typically has many candidate
// crossing cells, so repeated calls lower the stored threshold whenever a
// cheaper crossing is found, leaving the edge holding the minimum threshold
// seen across the whole seam — the saddle point between the two regions.
func (eg *EdgeGraph) UpsertMin(a, b int64, weight int64) error {
	if a == b {
		return nil
	}
	av, bv := vid(a), vid(b)
	// AddVertex on an already-present ID is a safe no-op in lvlath.
	_ = eg.g.AddVertex(av)
	_ = eg.g.AddVertex(bv)

	if existing, ok := eg.findEdge(av, bv); ok {
		if weight >= existing.Weight {
			return nil
		}
		if err := eg.g.RemoveEdge(existing.ID); err != nil {
			return err
		}
	}
	_, err := eg.g.AddEdge(av, bv, weight)
	return err
}

func (eg *EdgeGraph) findEdge(av, bv string) (*core.Edge, bool) {
	neighbors, err := eg.g.Neighbors(av)
	if err != nil {
		return nil, false
	}
	for _, e := range neighbors {
		if (e.From == av && e.To == bv) || (e.From == bv && e.To == av) {
			return e, true
		}
	}
	return nil, false
}

// Neighbors returns the (otherLabel, weight) pairs adjacent to label.
func (eg *EdgeGraph) Neighbors(label int64) ([]LabelWeight, error) {
	edges, err := eg.g.Neighbors(vid(label))
	if err != nil {
		if err == core.ErrVertexNotFound {
			return nil, nil
		}
		return nil, err
	}
	out := make([]LabelWeight, 0, len(edges))
	for _, e := range edges {
		other := e.To
		if other == vid(label) {
			other = e.From
		}
		l, err := atoi64(other)
		if err != nil {
			continue
		}
		out = append(out, LabelWeight{Label: l, Weight: e.Weight})
	}
	return out, nil
}

// HasVertex reports whether label has ever been seen in the graph.
func (eg *EdgeGraph) HasVertex(label int64) bool {
	return eg.g.HasVertex(vid(label))
}

// EnsureVertex makes sure label exists as an isolated vertex, used to seed
// the boundary sentinel even when it has no recorded edges yet.
func (eg *EdgeGraph) EnsureVertex(label int64) {
	_ = eg.g.AddVertex(vid(label))
}

// LabelWeight pairs a neighboring region label with the edge weight to it.
type LabelWeight struct {
	Label  int64
	Weight int64
}

func atoi64(s string) (int64, error) {
	neg := false
	i := 0
	if len(s) > 0 && s[0] == '-' {
		neg = true
		i = 1
	}
	var v int64
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, errNotANumber
		}
		v = v*10 + int64(s[i]-'0')
	}
	if neg {
		v = -v
	}
	return v, nil
}

var errNotANumber = errors.New("graph: vertex ID is not a packed label")
