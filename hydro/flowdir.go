// D8 flow direction and flat resolution: every non-nodata cell gets the
// direction code of its steepest downhill neighbor, with flats (maximal
// regions of equal elevation with no downhill step) resolved by a
// two-pass away-from-higher / towards-lower gradient so every flat cell
// still gets a deterministic direction towards its region's outflow.
package hydro

import (
	"context"
	"strconv"

	"github.com/jblindsay/hydroflow/graph"
	"github.com/jblindsay/hydroflow/raster"
	"github.com/jblindsay/hydroflow/structures"
	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"
)

// FlowDirParams configures D8 flow-direction computation.
type FlowDirParams struct {
	ChunkSize int
	// ResolveFlats enables the away-from-higher/towards-lower flat
	// resolution pass; without it, flat cells are left UNDEFINED.
	ResolveFlats bool
	// FlatChunkCap bounds how many cells a single flat region's component
	// scan collects within one tile; 0 means unbounded. When the cap is hit
	// the cells collected so far are resolved as a region of their own, cells
	// already queued at that moment stay UNDEFINED, and the rest of the flat
	// is picked up as further regions by the same scan. A flat stitched
	// across tiles that holds more cells than the cap is left UNDEFINED.
	FlatChunkCap int
	Progress     raster.Progress
}

// FlowDirection is the D8 flow-direction entry point. When ChunkSize <= 1
// the whole raster is processed as one tile. Flat resolution runs the same
// chunk-size tile grid: each tile resolves the flats wholly inside its own
// interior directly, and a second, bounded pass stitches together the
// (typically rare) flats that straddle a tile seam.
func FlowDirection(ctx context.Context, input raster.Tiled, output raster.Writer, p FlowDirParams) error {
	output.SetGeoTransform(input.GeoTransform())
	output.SetSRS(input.SRS())

	chunk := p.ChunkSize
	if chunk <= 1 {
		chunk = max(input.Rows(), input.Columns())
	}
	it := raster.NewIterator(output, chunk, 1)
	demIt := raster.NewIterator(input, chunk, 1)
	specs := it.Tiles()
	for i, spec := range specs {
		demTile, err := demIt.Read(spec)
		if err != nil {
			return err
		}
		fdrTile, err := it.Read(spec)
		if err != nil {
			return err
		}
		initialD8(demTile, fdrTile, input.NoData())
		if err := it.Write(fdrTile); err != nil {
			return err
		}
		p.Progress.Report("flow_direction", "initial", i+1, len(specs), "", float64(i+1)/float64(len(specs)))
	}

	if !p.ResolveFlats {
		return nil
	}
	return resolveFlats(input, output, p)
}

// initialD8 writes fdrTile's interior with the steepest-descent direction
// computed from demTile, which must share the same TileSpec/Halo.
func initialD8(demTile, fdrTile *raster.Tile, nodata float64) {
	rows, cols := demTile.Spec.Rows, demTile.Spec.Columns
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			z := demTile.At(row, col)
			if z == nodata {
				fdrTile.Set(row, col, float64(DirNoData))
				continue
			}
			best := DirUndefined
			bestSlope := 0.0
			for n := 0; n < 8; n++ {
				dr, dc := Offset(byte(n))
				zn := demTile.At(row+dr, col+dc)
				if zn == nodata {
					continue
				}
				slope := (z - zn) / StepDistance(byte(n))
				if slope > bestSlope {
					bestSlope = slope
					best = byte(n)
				}
			}
			fdrTile.Set(row, col, float64(best))
		}
	}
}

// flatCell is a raster cell in GLOBAL coordinates, used throughout flat
// resolution so the same region-solving code works whether its cells all
// came from one tile's interior or were stitched together from several.
type flatCell struct{ row, col int }

// flatRegion is one maximal 8-connected, equal-elevation, FDR-undefined
// component discovered within a single tile's interior. touchesBorder
// marks it as a candidate for cross-tile stitching: a region that never
// touches its tile's own interior border is guaranteed complete and can be
// resolved immediately.
type flatRegion struct {
	label         int64
	elev          float64
	cells         []flatCell
	touchesBorder bool
}

// resolveFlats runs flat resolution one ChunkSize tile at a time: each
// tile's own flat components are discovered and, if wholly interior,
// resolved directly; components touching a tile's border are deferred,
// then a seam-stitching pass unions same-elevation border regions across
// tiles (mirroring fill.go's region reconciliation) before a final,
// bounded-extent pass resolves each stitched group.
func resolveFlats(input raster.Tiled, output raster.Writer, p FlowDirParams) error {
	rows, cols := input.Rows(), input.Columns()
	nodata := input.NoData()
	chunk := p.ChunkSize
	if chunk <= 1 {
		chunk = max(rows, cols)
	}

	demIt := raster.NewIterator(input, chunk, 1)
	fdrIt := raster.NewIterator(output, chunk, 1)
	specs := demIt.Tiles()

	regionID := raster.NewMemRaster(rows, cols, 0, input.GeoTransform(), input.SRS())
	regions := make(map[int64]*flatRegion)
	var nextLocal int32

	for i, spec := range specs {
		demTile, err := demIt.Read(spec)
		if err != nil {
			return err
		}
		fdrTile, err := fdrIt.Read(spec)
		if err != nil {
			return err
		}
		visited := structures.NewGrid2D[bool](spec.Rows, spec.Columns)
		var discovered []int64

		for row := 0; row < spec.Rows; row++ {
			for col := 0; col < spec.Columns; col++ {
				if visited.Value(row, col) || fdrTile.At(row, col) != float64(DirUndefined) {
					continue
				}
				nextLocal++
				label := graph.PackLabel(spec.ID, nextLocal)
				region := collectFlatTile(row, col, demTile, fdrTile, visited, spec, label, regionID, p.FlatChunkCap)
				if len(region.cells) == 0 {
					continue
				}
				regions[label] = region
				discovered = append(discovered, label)
			}
		}

		// Resolve every region wholly inside this tile's interior right
		// away, using the tile's own in-memory halo for neighbor lookups;
		// border-touching regions are left for the stitching pass below.
		for _, label := range discovered {
			region := regions[label]
			if region.touchesBorder {
				continue
			}
			if err := resolveFlatRegion(region.cells, region.elev, nodata,
				tileElevReader(demTile, spec), tileFDRReader(fdrTile, spec), tileFDRWriter(fdrTile, spec)); err != nil {
				return err
			}
			delete(regions, label)
		}
		if err := fdrIt.Write(fdrTile); err != nil {
			return err
		}
		p.Progress.Report("flow_direction", "flats", i+1, len(specs), "", float64(i+1)/float64(len(specs)))
	}

	// Seam stitching: any two border-touching regions that are actually
	// the same physical flat agree on elevation across the seam between
	// their tiles.
	uf := structures.NewUnionFind()
	if err := stitchFlatSeams(input, regionID, nodata, chunk, uf); err != nil {
		return err
	}

	groups := make(map[int64][]*flatRegion)
	for _, region := range regions {
		root := uf.Find(region.label)
		groups[root] = append(groups[root], region)
	}
	for _, group := range groups {
		var cells []flatCell
		for _, region := range group {
			cells = append(cells, region.cells...)
		}
		if p.FlatChunkCap > 0 && len(cells) > p.FlatChunkCap {
			continue // oversized stitched flat: left UNDEFINED
		}
		if err := resolveFlatRegion(cells, group[0].elev, nodata,
			func(c flatCell) float64 { return readCell(input, c.row, c.col) },
			func(c flatCell) float64 { return readCell(output, c.row, c.col) },
			func(c flatCell, dir byte) error { return output.WriteBlock(c.row, c.col, 1, 1, []float64{float64(dir)}) },
		); err != nil {
			return err
		}
	}
	return nil
}

// collectFlatTile gathers the maximal 8-connected component of UNDEFINED,
// equal-elevation cells sharing (r0, c0), bounded to spec's interior
// (capped at maxCells if maxCells > 0), tagging every member cell's global
// coordinate with label in regionID and noting whether the component
// touches the tile's own interior border.
func collectFlatTile(r0, c0 int, demTile, fdrTile *raster.Tile, visited *structures.Grid2D[bool], spec raster.TileSpec, label int64, regionID *raster.MemRaster, maxCells int) *flatRegion {
	elev := demTile.At(r0, c0)
	type local struct{ row, col int }
	queue := []local{{r0, c0}}
	visited.SetValue(r0, c0, true)
	region := &flatRegion{label: label, elev: elev}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		gr, gc := spec.RowOff+cur.row, spec.ColOff+cur.col
		region.cells = append(region.cells, flatCell{gr, gc})
		regionID.SetValue(gr, gc, float64(label))
		if cur.row == 0 || cur.row == spec.Rows-1 || cur.col == 0 || cur.col == spec.Columns-1 {
			region.touchesBorder = true
		}
		if maxCells > 0 && len(region.cells) >= maxCells {
			break
		}
		for n := 0; n < 8; n++ {
			dr, dc := Offset(byte(n))
			nr, nc := cur.row+dr, cur.col+dc
			if nr < 0 || nr >= spec.Rows || nc < 0 || nc >= spec.Columns {
				continue
			}
			if visited.Value(nr, nc) || fdrTile.At(nr, nc) != float64(DirUndefined) || demTile.At(nr, nc) != elev {
				continue
			}
			visited.SetValue(nr, nc, true)
			queue = append(queue, local{nr, nc})
		}
	}
	return region
}

// stitchFlatSeams walks every tile-to-tile seam (mirroring
// buildFillSeamEdges) and unions the region labels of any two
// equal-elevation, still-undefined cells that face each other across a
// seam, so a flat that straddles a tile boundary is recognized as one
// region regardless of which tile discovered each half.
func stitchFlatSeams(input raster.Tiled, regionID *raster.MemRaster, nodata float64, chunk int, uf *structures.UnionFind) error {
	rows, cols := input.Rows(), input.Columns()
	if chunk >= rows && chunk >= cols {
		return nil
	}
	row := make([]float64, cols)
	next := make([]float64, cols)
	dirs := [...][2]int{{0, 1}, {1, -1}, {1, 0}, {1, 1}}
	for r := 0; r < rows; r++ {
		if err := input.ReadBlock(r, 0, 1, cols, row); err != nil {
			return err
		}
		haveNext := r+1 < rows
		if haveNext {
			if err := input.ReadBlock(r+1, 0, 1, cols, next); err != nil {
				return err
			}
		}
		for c := 0; c < cols; c++ {
			la := int64(regionID.Value(r, c))
			if la == 0 {
				continue
			}
			za := row[c]
			for _, d := range dirs {
				nr, nc := r+d[0], c+d[1]
				if nc < 0 || nc >= cols || nr >= rows {
					continue
				}
				if nr == r && nc <= c {
					continue
				}
				lb := int64(regionID.Value(nr, nc))
				if lb == 0 || lb == la {
					continue
				}
				var zb float64
				if nr == r {
					zb = row[nc]
				} else if haveNext {
					zb = next[nc]
				} else {
					continue
				}
				if za == nodata || zb == nodata || za != zb {
					continue
				}
				uf.Union(la, lb)
			}
		}
	}
	return nil
}

func tileElevReader(demTile *raster.Tile, spec raster.TileSpec) func(flatCell) float64 {
	return func(c flatCell) float64 { return demTile.At(c.row-spec.RowOff, c.col-spec.ColOff) }
}
func tileFDRReader(fdrTile *raster.Tile, spec raster.TileSpec) func(flatCell) float64 {
	return func(c flatCell) float64 { return fdrTile.At(c.row-spec.RowOff, c.col-spec.ColOff) }
}
func tileFDRWriter(fdrTile *raster.Tile, spec raster.TileSpec) func(flatCell, byte) error {
	return func(c flatCell, dir byte) error {
		fdrTile.Set(c.row-spec.RowOff, c.col-spec.ColOff, float64(dir))
		return nil
	}
}

// resolveFlatRegion computes the away-from-higher/towards-lower gradient
// for one flat region (already fully enumerated in cells) and writes the
// resulting direction to every cell the gradient can resolve, via the
// supplied accessors: neighborElev/neighborFDR read a neighbor cell
// outside the region (the tile's own halo, or a raster cell, depending on
// caller), and writeFDR commits one cell's resolved direction.
func resolveFlatRegion(cells []flatCell, elev, nodata float64, neighborElev, neighborFDR func(flatCell) float64, writeFDR func(flatCell, byte) error) error {
	if len(cells) == 0 {
		return nil
	}
	inFlat := make(map[flatCell]bool, len(cells))
	for _, c := range cells {
		inFlat[c] = true
	}

	isHighEdge := func(c flatCell) bool {
		for n := 0; n < 8; n++ {
			dr, dc := Offset(byte(n))
			nb := flatCell{c.row + dr, c.col + dc}
			if inFlat[nb] {
				continue
			}
			zn := neighborElev(nb)
			if zn == nodata {
				continue
			}
			if zn >= elev && neighborFDR(nb) != float64(Back(byte(n))) {
				return true
			}
		}
		return false
	}
	// lowEdgeDir returns the direction from c to an outflow neighbor outside
	// the flat: one that is lower, or at the flat's elevation and draining.
	lowEdgeDir := func(c flatCell) (byte, bool) {
		for n := 0; n < 8; n++ {
			dr, dc := Offset(byte(n))
			nb := flatCell{c.row + dr, c.col + dc}
			if inFlat[nb] {
				continue
			}
			zn := neighborElev(nb)
			if zn != nodata && (zn < elev || (zn == elev && IsValidFlowDir(byte(neighborFDR(nb))))) {
				return byte(n), true
			}
		}
		return 0, false
	}

	dHigh := make(map[flatCell]int, len(cells))
	dLow := make(map[flatCell]int, len(cells))
	var highSeeds, lowSeeds []flatCell
	for _, c := range cells {
		if isHighEdge(c) {
			highSeeds = append(highSeeds, c)
		}
		if _, ok := lowEdgeDir(c); ok {
			lowSeeds = append(lowSeeds, c)
		}
	}
	if len(lowSeeds) == 0 {
		return nil // endorheic flat: no outflow, cells stay UNDEFINED
	}

	maxDHigh := bfsDistances(cells, highSeeds, inFlat, dHigh)
	bfsDistances(cells, lowSeeds, inFlat, dLow)

	gradient := make(map[flatCell]int, len(cells))
	for _, c := range cells {
		dl, hasLow := dLow[c]
		dh := dHigh[c] // 0 if unreached (no high edge at all is fine)
		if !hasLow {
			dl = 0
		}
		// Falls towards low edges (dl) and away from high edges (dh).
		gradient[c] = 2*dl + maxDHigh - dh
	}

	for _, c := range cells {
		best := DirUndefined
		bestGrad := gradient[c]
		haveBest := false
		for n := 0; n < 8; n++ {
			dr, dc := Offset(byte(n))
			nb := flatCell{c.row + dr, c.col + dc}
			if !inFlat[nb] {
				continue
			}
			g, ok := gradient[nb]
			if !ok {
				continue
			}
			switch {
			case g < bestGrad:
				bestGrad, best, haveBest = g, byte(n), true
			case haveBest && g == bestGrad && n%2 == 0 && best%2 == 1:
				// Same gradient: prefer a cardinal step over a diagonal one.
				best = byte(n)
			}
		}
		if !haveBest {
			// No strictly lower flat neighbor: a low-edge cell drains out.
			best, haveBest = lowEdgeDir(c)
		}
		if haveBest {
			if err := writeFDR(c, best); err != nil {
				return err
			}
		}
	}
	return nil
}

// flatVertexID names the lvlath vertex for a flat-region cell.
func flatVertexID(c flatCell) string {
	return strconv.Itoa(c.row) + "," + strconv.Itoa(c.col)
}

// flatSourceVertex is the virtual vertex bfsDistances wires every seed to, so
// a single unweighted lvlath/bfs traversal (which only ever starts from one
// vertex) computes a genuine multi-source distance field: every reachable
// cell's true distance is its BFS depth from flatSourceVertex minus the one
// hop the virtual edge added.
const flatSourceVertex = "$source"

// bfsDistances runs a multi-source BFS restricted to the cells in region,
// seeded from seeds, recording each reached cell's hop distance in dist and
// returning the maximum distance reached. The region's adjacency is built as
// an lvlath core.Graph and walked with lvlath/bfs.BFS, since this is exactly
// the unweighted intra-region reachability scan that package is for; seeds
// are folded into one traversal via a virtual super-source vertex rather
// than running len(seeds) separate single-source searches.
func bfsDistances(region []flatCell, seeds []flatCell, inFlat map[flatCell]bool, dist map[flatCell]int) int {
	if len(seeds) == 0 {
		return 0
	}

	g := core.NewGraph()
	for _, c := range region {
		_ = g.AddVertex(flatVertexID(c))
	}
	// Directions 0..3 (E, NE, N, NW) and their backlinks 4..7 together cover
	// all eight neighbor directions, so walking only 0..3 from every cell
	// still finds each adjacent pair exactly once: the graph is undirected,
	// so adding it from one side is enough.
	for _, c := range region {
		for n := 0; n < 4; n++ {
			dr, dc := Offset(byte(n))
			nb := flatCell{c.row + dr, c.col + dc}
			if !inFlat[nb] {
				continue
			}
			_, _ = g.AddEdge(flatVertexID(c), flatVertexID(nb), 0)
		}
	}
	_ = g.AddVertex(flatSourceVertex)
	for _, s := range seeds {
		_, _ = g.AddEdge(flatSourceVertex, flatVertexID(s), 0)
	}

	res, err := bfs.BFS(g, flatSourceVertex)
	if err != nil {
		return 0
	}

	maxD := 0
	for _, c := range region {
		d, ok := res.Depth[flatVertexID(c)]
		if !ok {
			continue
		}
		d--
		dist[c] = d
		if d > maxD {
			maxD = d
		}
	}
	return maxD
}
