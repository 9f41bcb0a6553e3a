// Depression filling by tiled priority-flood with an epsilon gradient:
// every interior cell is raised to the lowest elevation at which its
// enclosing watershed can drain to the raster boundary, leaving every
// non-nodata cell with at least one strictly lower (or boundary/nodata)
// neighbor.
package hydro

import (
	"context"
	"math"

	"github.com/jblindsay/hydroflow/graph"
	"github.com/jblindsay/hydroflow/raster"
	"github.com/jblindsay/hydroflow/structures"
)

// FillParams configures depression filling.
type FillParams struct {
	ChunkSize int
	FillHoles bool
	Progress  raster.Progress
}

// Fill is the depression-filling entry point. When ChunkSize <= 1 the whole
// raster is processed as one tile, skipping cross-tile reconciliation
// entirely (there is only ever one region graph, all local).
func Fill(ctx context.Context, input raster.Tiled, output raster.Writer, p FillParams) error {
	if err := copyRaster(input, output); err != nil {
		return err
	}
	chunk := p.ChunkSize
	if chunk <= 1 {
		chunk = max(input.Rows(), input.Columns())
	}

	minElev, maxElev, err := scanElevationRange(input)
	if err != nil {
		return err
	}
	q := graph.NewQuantizer(minElev, maxElev)
	eg := graph.NewEdgeGraph()

	labels := raster.NewMemRaster(input.Rows(), input.Columns(), 0, input.GeoTransform(), input.SRS())

	it := raster.NewIterator(output, chunk, 1)
	err = it.ForEach(p.Progress, "fill-pass1", func(t *raster.Tile) error {
		return fillTilePass1(t, output.NoData(), p.FillHoles, input.Rows(), input.Columns(), q, eg, labels)
	})
	if err != nil {
		return err
	}

	if err := buildFillSeamEdges(output, labels, output.NoData(), chunk, q, eg); err != nil {
		return err
	}

	spill, err := graph.SpillElevations(eg)
	if err != nil {
		return err
	}

	return it.ForEach(p.Progress, "fill-pass2", func(t *raster.Tile) error {
		fillTilePass2(t, output.NoData(), q, spill, labels)
		return nil
	})
}

func scanElevationRange(src raster.Tiled) (min, max float64, err error) {
	nodata := src.NoData()
	min, max = math.Inf(1), math.Inf(-1)
	rows, cols := src.Rows(), src.Columns()
	buf := make([]float64, cols)
	for r := 0; r < rows; r++ {
		if err := src.ReadBlock(r, 0, 1, cols, buf); err != nil {
			return 0, 0, err
		}
		for _, v := range buf {
			if v == nodata {
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	if math.IsInf(min, 1) {
		min, max = 0, 0
	}
	return min, max, nil
}

// fillTilePass1 runs the single-tile priority-flood over t, writing raised
// elevations back into t, recording every cell's globally-packed region
// label into labels, and upserting every flood-discovered region adjacency
// (including the implicit adjacency to the raster boundary sentinel) into
// the shared global edge graph eg.
func fillTilePass1(t *raster.Tile, nodata float64, fillHoles bool, totalRows, totalCols int, q graph.Quantizer, eg *graph.EdgeGraph, labels *raster.MemRaster) error {
	rows, cols := t.Spec.Rows, t.Spec.Columns
	localLabel := structures.NewGrid2D[int32](rows, cols)
	var next int32

	type cell struct{ row, col int }
	pq := structures.NewPQueue[cell]()

	isTrueEdge := func(row, col int) bool {
		gr, gc := t.Spec.RowOff+row, t.Spec.ColOff+col
		return gr == 0 || gr == totalRows-1 || gc == 0 || gc == totalCols-1
	}
	isNodataNeighbor := func(row, col int) bool {
		for n := 0; n < 8; n++ {
			dr, dc := Offset(byte(n))
			if t.At(row+dr, col+dc) == nodata {
				return true
			}
		}
		return false
	}
	// isTileBorder reports whether (row, col) sits on this tile's own
	// interior rectangle border. A tile that never touches the raster's
	// true edge still needs somewhere for its flood to start from: it
	// floods inward from its own border at that border's current
	// elevation, provisionally, and buildFillSeamEdges later compares
	// each such border against its neighbor tile's matching border to
	// connect the two sides' regions — that comparison is what corrects
	// the provisional assumption once the global spill solve runs.
	isTileBorder := func(row, col int) bool {
		return row == 0 || row == rows-1 || col == 0 || col == cols-1
	}

	newLabel := func() int32 {
		next++
		return next
	}

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			z := t.At(row, col)
			if z == nodata && !fillHoles {
				continue
			}
			isSeed := isTileBorder(row, col) || isTrueEdge(row, col) || (!fillHoles && isNodataNeighbor(row, col))
			if !isSeed {
				continue
			}
			localLabel.SetValue(row, col, newLabel())
			pq.Push(z, cell{row, col})
		}
	}

	for !pq.Empty() {
		c, ok := pq.Pop()
		if !ok {
			break
		}
		zc := t.At(c.row, c.col)
		lc := localLabel.Value(c.row, c.col)

		for n := 0; n < 8; n++ {
			dr, dc := Offset(byte(n))
			nr, ncol := c.row+dr, c.col+dc
			if nr < 0 || nr >= rows || ncol < 0 || ncol >= cols {
				continue // halo / off-tile: reconciled across tiles, not here
			}
			zn := t.At(nr, ncol)
			if zn == nodata && !fillHoles {
				continue
			}
			if ln := localLabel.Value(nr, ncol); ln != 0 {
				if ln != lc {
					threshold := maxFloat64(zc, zn)
					if err := eg.UpsertMin(graph.PackLabel(t.Spec.ID, lc), graph.PackLabel(t.Spec.ID, ln), q.Quantize(threshold)); err != nil {
						return err
					}
				}
				continue
			}
			effective := zn
			if zn == nodata {
				effective = math.Inf(-1)
			}
			raised := maxFloat64(effective, zc+Epsilon(zc))
			var label int32
			if raised == effective {
				label = lc
			} else {
				label = newLabel()
				if err := eg.UpsertMin(graph.PackLabel(t.Spec.ID, lc), graph.PackLabel(t.Spec.ID, label), q.Quantize(raised)); err != nil {
					return err
				}
			}
			localLabel.SetValue(nr, ncol, label)
			t.Set(nr, ncol, raised)
			pq.Push(raised, cell{nr, ncol})
		}
	}

	// True-edge/nodata-adjacent seeds connect directly to the raster
	// boundary sentinel at their own (unraised) elevation.
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if localLabel.Value(row, col) == 0 {
				continue
			}
			if isTrueEdge(row, col) || (!fillHoles && isNodataNeighbor(row, col)) {
				z := t.At(row, col)
				if err := eg.UpsertMin(graph.PackLabel(t.Spec.ID, localLabel.Value(row, col)), graph.BoundaryLabel, q.Quantize(z)); err != nil {
					return err
				}
			}
			gr, gc := t.Spec.RowOff+row, t.Spec.ColOff+col
			labels.SetValue(gr, gc, float64(graph.PackLabel(t.Spec.ID, localLabel.Value(row, col))))
		}
	}
	return nil
}

// buildFillSeamEdges walks every tile-to-tile seam (row and column chunk
// boundaries, including the diagonal pairs at four-tile corners) and
// upserts a graph edge between the two sides' global labels at the higher
// of the pair's two elevations. fillTilePass1's flood only ever compares a
// cell to its own tile's interior, so without this step two regions that
// are adjacent only across a seam would never learn they can spill into
// each other, breaking equivalence with the single-tile run.
func buildFillSeamEdges(output raster.Tiled, labels *raster.MemRaster, nodata float64, chunk int, q graph.Quantizer, eg *graph.EdgeGraph) error {
	rows, cols := output.Rows(), output.Columns()
	if chunk >= rows && chunk >= cols {
		return nil // single tile: no seams to walk
	}
	tilesPerCol := (cols + chunk - 1) / chunk
	tileID := func(r, c int) int { return (r/chunk)*tilesPerCol + c/chunk }

	row := make([]float64, cols)
	next := make([]float64, cols)
	dirs := [...][2]int{{0, 1}, {1, -1}, {1, 0}, {1, 1}}
	for r := 0; r < rows; r++ {
		if err := output.ReadBlock(r, 0, 1, cols, row); err != nil {
			return err
		}
		haveNext := r+1 < rows
		if haveNext {
			if err := output.ReadBlock(r+1, 0, 1, cols, next); err != nil {
				return err
			}
		}
		for c := 0; c < cols; c++ {
			za := row[c]
			if za == nodata {
				continue
			}
			la := int64(labels.Value(r, c))
			if la == 0 {
				continue
			}
			for _, d := range dirs {
				nr, nc := r+d[0], c+d[1]
				if nc < 0 || nc >= cols || nr >= rows {
					continue
				}
				if nr == r && nc <= c {
					continue // already visited this pair from the other side
				}
				if tileID(r, c) == tileID(nr, nc) {
					continue // intra-tile adjacency, already handled by the flood
				}
				var zb float64
				if nr == r {
					zb = row[nc]
				} else if haveNext {
					zb = next[nc]
				} else {
					continue
				}
				if zb == nodata {
					continue
				}
				lb := int64(labels.Value(nr, nc))
				if lb == 0 || lb == la {
					continue
				}
				if err := eg.UpsertMin(la, lb, q.Quantize(maxFloat64(za, zb))); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// fillTilePass2 raises every cell below its region's resolved spill
// elevation, using the labels recorded during pass 1.
func fillTilePass2(t *raster.Tile, nodata float64, q graph.Quantizer, spill map[int64]int64, labels *raster.MemRaster) {
	rows, cols := t.Spec.Rows, t.Spec.Columns
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			z := t.At(row, col)
			if z == nodata {
				continue
			}
			gr, gc := t.Spec.RowOff+row, t.Spec.ColOff+col
			label := int64(labels.Value(gr, gc))
			if label == 0 {
				continue
			}
			weight, ok := spill[label]
			if !ok {
				continue
			}
			target := q.Dequantize(weight)
			if z < target {
				t.Set(row, col, target)
			}
		}
	}
}
