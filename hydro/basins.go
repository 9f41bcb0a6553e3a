// Basin (watershed) labelling: every cell is marked with the drainage
// point its downstream D8 chain terminates at. Like flow accumulation, the
// raster is walked tile by tile: a tile's own drainage points seed an
// upstream breadth-first search bounded to that tile's interior, and a
// tile isn't processed until every tile its cells can flow into has
// already been labelled, so a boundary cell can inherit its downstream
// neighbor's final label the moment it's needed. Within a tile, concurrent
// frontiers claim cells with compare-and-set so they never step on each
// other.
package hydro

import (
	"context"

	"github.com/jblindsay/hydroflow/raster"
	"github.com/jblindsay/hydroflow/structures"
	"golang.org/x/sync/errgroup"
)

// DrainagePoint is one pour point to label a watershed from.
type DrainagePoint struct {
	ID       int64
	Row, Col int
}

// BasinsParams configures watershed labelling.
type BasinsParams struct {
	ChunkSize  int
	AllBasins  bool
	SnapRadius int
	FAC        raster.Tiled // optional; required when SnapRadius > 0
	Progress   raster.Progress
}

// Basins is the watershed-labelling entry point. When ChunkSize <= 1 the
// whole raster is processed as one tile. Output cells are written as
// float64(drainage point ID), or 0 for a cell whose downstream chain never
// reaches a drainage point, or (when AllBasins is false) reaches one that
// isn't in points.
func Basins(ctx context.Context, fdr raster.Tiled, points []DrainagePoint, output raster.Writer, p BasinsParams) error {
	output.SetGeoTransform(fdr.GeoTransform())
	output.SetSRS(fdr.SRS())

	rows, cols := fdr.Rows(), fdr.Columns()
	chunk := p.ChunkSize
	if chunk <= 1 {
		chunk = max(rows, cols)
	}

	snapped := make([]DrainagePoint, len(points))
	copy(snapped, points)
	if p.SnapRadius > 0 && p.FAC != nil {
		for i, pt := range snapped {
			snapped[i].Row, snapped[i].Col = snapToMaxFAC(p.FAC, pt.Row, pt.Col, p.SnapRadius)
		}
	}

	labels := structures.NewLabelGrid(rows, cols)
	for _, pt := range snapped {
		if pt.Row < 0 || pt.Row >= rows || pt.Col < 0 || pt.Col >= cols {
			continue
		}
		labels.ClaimIfUnset(pt.Row, pt.Col, pt.ID)
	}

	it := raster.NewIterator(fdr, chunk, 0)
	specs := it.Tiles()

	tileAt := func(row, col int) int {
		for _, spec := range specs {
			if row >= spec.RowOff && row < spec.RowOff+spec.Rows && col >= spec.ColOff && col < spec.ColOff+spec.Columns {
				return spec.ID
			}
		}
		return -1
	}

	// Discovery pass: learn, purely from FDR topology, which tiles feed
	// which others. This is the same dependency shape Accumulation builds,
	// but basin labelling runs upstream against it: a tile can't be
	// finalized until every tile its own cells drain INTO already has been,
	// so processing starts from the tiles with no outgoing cross-tile edge
	// (raster-edge tiles whose exits all leave the raster, or tiles that
	// only ever drain into already-resolved neighbors) and works backward.
	outEdges := make(map[int]map[int]bool, len(specs))
	for _, spec := range specs {
		outEdges[spec.ID] = map[int]bool{}
	}
	for _, spec := range specs {
		tile, err := it.Read(spec)
		if err != nil {
			return err
		}
		for r := 0; r < spec.Rows; r++ {
			for c := 0; c < spec.Columns; c++ {
				dir := byte(tile.At(r, c))
				if !IsValidFlowDir(dir) {
					continue
				}
				dr, dc := Offset(dir)
				nr, nc := r+dr, c+dc
				if nr >= 0 && nr < spec.Rows && nc >= 0 && nc < spec.Columns {
					continue // stays within this tile
				}
				gr, gc := spec.RowOff+r+dr, spec.ColOff+c+dc
				if gr < 0 || gr >= rows || gc < 0 || gc >= cols {
					continue // leaves the raster
				}
				if to := tileAt(gr, gc); to >= 0 && to != spec.ID {
					outEdges[spec.ID][to] = true
				}
			}
		}
	}

	outDegree := make(map[int]int, len(specs))
	preds := make(map[int][]int, len(specs))
	specByID := make(map[int]raster.TileSpec, len(specs))
	for _, spec := range specs {
		specByID[spec.ID] = spec
	}
	for id, targets := range outEdges {
		outDegree[id] = len(targets)
		for to := range targets {
			preds[to] = append(preds[to], id)
		}
	}

	queue := make([]raster.TileSpec, 0, len(specs))
	for _, spec := range specs {
		if outDegree[spec.ID] == 0 {
			queue = append(queue, spec)
		}
	}

	done := make(map[int]bool, len(specs))
	processed := 0
	for len(queue) > 0 {
		spec := queue[0]
		queue = queue[1:]
		if done[spec.ID] {
			continue
		}
		done[spec.ID] = true
		processed++

		tile, err := it.Read(spec)
		if err != nil {
			return err
		}
		if err := labelBasinTile(ctx, spec, tile, rows, cols, labels); err != nil {
			return err
		}
		p.Progress.Report("basins", "tile", processed, len(specs), "", float64(processed)/float64(len(specs)))

		for _, u := range preds[spec.ID] {
			if done[u] {
				continue
			}
			outDegree[u]--
			if outDegree[u] == 0 {
				queue = append(queue, specByID[u])
			}
		}
	}

	// A cyclic dependency would mean a bug in the FDR (D8 chains cannot
	// loop); guard against it rather than hang, labelling any leftover
	// tiles with whatever has resolved so far.
	for _, spec := range specs {
		if done[spec.ID] {
			continue
		}
		tile, err := it.Read(spec)
		if err != nil {
			return err
		}
		if err := labelBasinTile(ctx, spec, tile, rows, cols, labels); err != nil {
			return err
		}
	}

	wanted := make(map[int64]bool, len(snapped))
	for _, pt := range snapped {
		wanted[pt.ID] = true
	}

	buf := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			id := labels.Value(r, c)
			if id != 0 && !p.AllBasins && !wanted[id] {
				id = 0
			}
			buf[r*cols+c] = float64(id)
		}
	}
	return output.WriteBlock(0, 0, rows, cols, buf)
}

// labelBasinTile claims every still-unclaimed cell of spec's interior that
// a drainage point's downstream chain reaches. It seeds from cells already
// claimed (a drainage point inside this tile) plus boundary cells whose
// downstream neighbor lies in a different tile that has already been
// resolved (spec's own out-degree was 0 when the caller dequeued it, so
// every tile any of its cells can drain into is guaranteed final), then
// runs one upstream BFS per seed, concurrently, bounded to this tile's own
// interior: a neighbor across the seam belongs to a different tile and is
// left for that tile's own pass to pick up.
func labelBasinTile(ctx context.Context, spec raster.TileSpec, tile *raster.Tile, rows, cols int, labels *structures.LabelGrid) error {
	type cell struct{ row, col int }
	type seed struct {
		cell
		id int64
	}
	var seeds []seed

	for r := 0; r < spec.Rows; r++ {
		for c := 0; c < spec.Columns; c++ {
			gr, gc := spec.RowOff+r, spec.ColOff+c
			if id := labels.Value(gr, gc); id != 0 {
				seeds = append(seeds, seed{cell{r, c}, id})
				continue
			}
			dir := byte(tile.At(r, c))
			if !IsValidFlowDir(dir) {
				continue
			}
			dr, dc := Offset(dir)
			nr, nc := r+dr, c+dc
			if nr >= 0 && nr < spec.Rows && nc >= 0 && nc < spec.Columns {
				continue // resolved by the in-tile BFS below
			}
			tgr, tgc := gr+dr, gc+dc
			if tgr < 0 || tgr >= rows || tgc < 0 || tgc >= cols {
				continue // flows off the raster: never claimed
			}
			if downstreamID := labels.Value(tgr, tgc); downstreamID != 0 {
				if labels.ClaimIfUnset(gr, gc, downstreamID) {
					seeds = append(seeds, seed{cell{r, c}, downstreamID})
				}
			}
		}
	}

	g, _ := errgroup.WithContext(ctx)
	for _, s := range seeds {
		s := s
		g.Go(func() error {
			upstreamBFSTile(tile, spec, s.row, s.col, s.id, labels)
			return nil
		})
	}
	return g.Wait()
}

// upstreamBFSTile marks every cell within spec's interior whose downstream
// D8 chain reaches (row, col) with id, claiming cells with ClaimIfUnset so
// a cell already claimed by a different, concurrently running frontier is
// left untouched. The search never leaves spec's interior: a neighbor
// outside it belongs to a different tile, resolved by that tile's own
// pass.
func upstreamBFSTile(tile *raster.Tile, spec raster.TileSpec, row, col int, id int64, labels *structures.LabelGrid) {
	type cell struct{ row, col int }
	queue := []cell{{row, col}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for n := 0; n < 8; n++ {
			dr, dc := Offset(byte(n))
			ur, uc := cur.row-dr, cur.col-dc
			if ur < 0 || ur >= spec.Rows || uc < 0 || uc >= spec.Columns {
				continue
			}
			dir := byte(tile.At(ur, uc))
			if !IsValidFlowDir(dir) || dir != byte(n) {
				continue
			}
			gr, gc := spec.RowOff+ur, spec.ColOff+uc
			if labels.ClaimIfUnset(gr, gc, id) {
				queue = append(queue, cell{ur, uc})
			}
		}
	}
}

func snapToMaxFAC(fac raster.Tiled, row, col, radius int) (int, int) {
	bestRow, bestCol := row, col
	bestVal := readCell(fac, row, col)
	for dr := -radius; dr <= radius; dr++ {
		for dc := -radius; dc <= radius; dc++ {
			r, c := row+dr, col+dc
			v := readCell(fac, r, c)
			if v > bestVal {
				bestVal = v
				bestRow, bestCol = r, c
			}
		}
	}
	return bestRow, bestCol
}

// readCell reads a single cell out-of-line from a Tiled source; ReadBlock's
// halo padding means out-of-range coordinates just come back as NoData.
func readCell(src raster.Tiled, row, col int) float64 {
	buf := make([]float64, 1)
	if err := src.ReadBlock(row, col, 1, 1, buf); err != nil {
		return src.NoData()
	}
	return buf[0]
}
