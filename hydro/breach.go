// Pit breaching by least-cost path: for every interior local minimum, search
// outward for the cheapest-to-reach lower (or off-raster) cell and cut a strictly
// descending channel to it, so a later depression-filling pass has less
// terrain left to raise.
package hydro

import (
	"context"
	"math"
	"strconv"

	"github.com/jblindsay/hydroflow/graph"
	"github.com/jblindsay/hydroflow/raster"
	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dijkstra"
)

// BreachParams configures pit breaching: the tile size to stream in, the
// search window radius around each pit, and the maximum path cost before a
// pit is left unresolved.
type BreachParams struct {
	ChunkSize    int
	SearchRadius int
	MaxCost      float64
	Progress     raster.Progress
}

// Breach is the pit-breaching entry point. When ChunkSize <= 1 the whole
// raster is processed as one tile.
func Breach(ctx context.Context, input raster.Tiled, output raster.Writer, p BreachParams) error {
	chunk := p.ChunkSize
	if chunk <= 1 {
		chunk = max(input.Rows(), input.Columns())
	}
	if err := copyRaster(input, output); err != nil {
		return err
	}
	it := raster.NewIterator(output, chunk, p.SearchRadius)
	totalRows, totalCols := output.Rows(), output.Columns()
	return it.ForEach(p.Progress, "breach", func(t *raster.Tile) error {
		breachTile(t, output, totalRows, totalCols, input.NoData(), p.SearchRadius, p.MaxCost)
		return nil
	})
}

// breachTile resolves every interior pit of t by least-cost Dijkstra search
// bounded to a (2r+1)x(2r+1) window and a maximum path cost. Unresolved
// pits (no reachable target) are left untouched. A breach corridor can run
// well past t's own interior into a neighboring tile's territory (the
// search window only needs the halo to be readable, not writable), so
// carved cells are written straight through to output by global coordinate
// rather than confined to t's interior; this keeps chunked and
// whole-raster runs equivalent regardless of where tile seams fall.
func breachTile(t *raster.Tile, output raster.Writer, totalRows, totalCols int, nodata float64, radius int, maxCost float64) {
	rows, cols := t.Spec.Rows, t.Spec.Columns
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			z := t.At(row, col)
			if z == nodata {
				continue
			}
			if !isInteriorPit(t, row, col, nodata, z) {
				continue
			}
			breachOnePit(t, output, totalRows, totalCols, nodata, radius, maxCost, row, col, z)
		}
	}
}

// isInteriorPit reports whether (row, col) is a pit that is not itself
// adjacent to nodata or the raster edge: those border cells already have a
// free escape off the raster and are never enumerated as pits needing a
// path.
func isInteriorPit(t *raster.Tile, row, col int, nodata, z float64) bool {
	for n := 0; n < 8; n++ {
		dr, dc := Offset(byte(n))
		zn := t.At(row+dr, col+dc)
		if zn == nodata {
			return false
		}
		if zn < z {
			return false
		}
	}
	return true
}

// breachSearchNode is a window-relative cell coordinate.
type breachSearchNode struct{ row, col int }

func breachVertexID(n breachSearchNode) string {
	return strconv.Itoa(n.row) + "," + strconv.Itoa(n.col)
}

// breachOnePit builds the (2r+1)x(2r+1) search window around the pit as a
// directed, weighted lvlath core.Graph (an edge u->v costs max(0, elev(v) -
// pitElev), so the cost of entering a cell never depends on which neighbor
// you came from) and runs lvlath/dijkstra.Dijkstra from the pit, bounded by
// maxCost, to find the cheapest path to any cell lower than the pit or off
// the raster (nodata). Dijkstra visits cells in increasing-cost order, so the
// first reachable target cell it finalizes is, by construction, the
// cheapest one — the same node the original priority-first search would
// have stopped at.
func breachOnePit(t *raster.Tile, output raster.Writer, totalRows, totalCols int, nodata float64, radius int, maxCost float64, row, col int, pitElev float64) {
	var nodes []breachSearchNode
	for dr := -radius; dr <= radius; dr++ {
		for dc := -radius; dc <= radius; dc++ {
			nodes = append(nodes, breachSearchNode{row + dr, col + dc})
		}
	}
	// Step costs are quantized against the window's own elevation spread, so
	// a large maxCost cannot round every per-step cost down to zero.
	hi := pitElev
	for _, n := range nodes {
		if z := t.At(n.row, n.col); z != nodata && z > hi {
			hi = z
		}
	}
	quant := graph.NewQuantizer(pitElev, hi)
	maxDist := int64(math.MaxInt64 / 2)
	if maxCost < quant.Dequantize(maxDist) {
		maxDist = quant.Quantize(maxCost)
	}
	inWindow := func(n breachSearchNode) bool {
		return absInt(n.row-row) <= radius && absInt(n.col-col) <= radius
	}

	g := core.NewGraph(core.WithWeighted(), core.WithDirected(true))
	for _, n := range nodes {
		_ = g.AddVertex(breachVertexID(n))
	}
	for _, u := range nodes {
		for n := 0; n < 8; n++ {
			dr, dc := Offset(byte(n))
			v := breachSearchNode{u.row + dr, u.col + dc}
			if !inWindow(v) {
				continue
			}
			vElev := t.At(v.row, v.col)
			step := 0.0
			if vElev != nodata {
				step = maxFloat64(0, vElev-pitElev)
			}
			_, _ = g.AddEdge(breachVertexID(u), breachVertexID(v), quant.Quantize(step))
		}
	}

	pit := breachSearchNode{row, col}
	dist, prev, err := dijkstra.Dijkstra(g,
		dijkstra.Source(breachVertexID(pit)),
		dijkstra.WithReturnPath(),
		dijkstra.WithMaxDistance(maxDist),
	)
	if err != nil {
		return
	}

	var target breachSearchNode
	found := false
	bestDist := int64(math.MaxInt64)
	for _, n := range nodes {
		if n == pit {
			continue
		}
		d, ok := dist[breachVertexID(n)]
		if !ok || d >= math.MaxInt64 {
			continue
		}
		elev := t.At(n.row, n.col)
		if elev != nodata && elev >= pitElev {
			continue
		}
		if !found || d < bestDist {
			found, bestDist, target = true, d, n
		}
	}
	if !found {
		return // unresolved pit: left for the fill stage to handle, not an error here
	}

	// Reconstruct the path from target back to the pit using the predecessor
	// map Dijkstra returns.
	path := []breachSearchNode{target}
	cur := breachVertexID(target)
	pitID := breachVertexID(pit)
	for cur != pitID {
		cur = prev[cur]
		r, c := parseBreachVertexID(cur)
		path = append(path, breachSearchNode{r, c})
	}
	// path is now [target, ..., pit]; reverse to [pit, ..., target].
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	targetElev := t.At(target.row, target.col)
	if targetElev == nodata {
		targetElev = pitElev - 2*Epsilon(pitElev)
	}
	hops := len(path) - 1 // pit .. target
	for i := 1; i < hops; i++ {
		frac := float64(i) / float64(hops)
		newElev := pitElev + frac*(targetElev-pitElev)
		p := path[i]
		t.Set(p.row, p.col, newElev) // keeps t's own buffer consistent for later pits in this same tile
		gr, gc := t.Spec.RowOff+p.row, t.Spec.ColOff+p.col
		if gr < 0 || gr >= totalRows || gc < 0 || gc >= totalCols {
			continue // path point fell outside the raster entirely (the off-raster escape case)
		}
		_ = output.WriteBlock(gr, gc, 1, 1, []float64{newElev})
	}
}

// parseBreachVertexID parses a "row,col" vertex ID back into coordinates.
func parseBreachVertexID(id string) (row, col int) {
	i := 0
	for i < len(id) && id[i] != ',' {
		i++
	}
	row, _ = strconv.Atoi(id[:i])
	col, _ = strconv.Atoi(id[i+1:])
	return row, col
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// copyRaster copies every cell of src into dst, used as the breach stage's
// "start from the input, then mutate in place" initialization.
func copyRaster(src raster.Tiled, dst raster.Writer) error {
	rows, cols := src.Rows(), src.Columns()
	buf := make([]float64, cols)
	for r := 0; r < rows; r++ {
		if err := src.ReadBlock(r, 0, 1, cols, buf); err != nil {
			return err
		}
		if err := dst.WriteBlock(r, 0, 1, cols, buf); err != nil {
			return err
		}
	}
	dst.SetGeoTransform(src.GeoTransform())
	dst.SetSRS(src.SRS())
	return nil
}
