// Flow accumulation by tiled join-count: every cell's accumulated value is
// 1 (itself) plus the accumulated values of every upstream cell, computed
// without recursion by propagating mass only once a cell's full upstream
// join-count has arrived. Across tiles, the same idea runs one level up:
// a tile isn't finalized until every tile that feeds mass into it already
// has been.
package hydro

import (
	"context"
	"fmt"

	"github.com/jblindsay/hydroflow/raster"
	"github.com/jblindsay/hydroflow/structures"
)

// AccumulationParams configures flow accumulation.
type AccumulationParams struct {
	ChunkSize int
	Progress  raster.Progress
}

// link records mass that left a tile across its perimeter: spec.md §4.6's
// "(exit perimeter index, accumulated mass) plus the index of the entry
// point where the chain enters the downstream tile". ExitIndex/EntryIndex
// are the clockwise structures.Perimeter positions on the source/
// destination tile's own interior border; EntryIndex is -1 when the mass
// left the raster entirely rather than landing in another tile.
type link struct {
	toRow, toCol          int
	exitIndex, entryIndex int
	mass                  float64
}

// Accumulation is the flow-accumulation entry point.
func Accumulation(ctx context.Context, fdr raster.Tiled, output raster.Writer, p AccumulationParams) error {
	output.SetGeoTransform(fdr.GeoTransform())
	output.SetSRS(fdr.SRS())

	chunk := p.ChunkSize
	if chunk <= 1 {
		chunk = max(fdr.Rows(), fdr.Columns())
	}
	facIt := raster.NewIterator(output, chunk, 1)
	fdrIt := raster.NewIterator(fdr, chunk, 1)
	specs := facIt.Tiles()

	tileOf := func(row, col int) int {
		for _, spec := range specs {
			if row >= spec.RowOff && row < spec.RowOff+spec.Rows && col >= spec.ColOff && col < spec.ColOff+spec.Columns {
				return spec.ID
			}
		}
		return -1
	}

	// entryIndexFor resolves a link's entry perimeter index: the clockwise
	// structures.Perimeter position (row, col) occupies on the interior
	// border of whichever tile contains it, or -1 if (row, col) falls off
	// the raster entirely (no destination tile).
	entryIndexFor := func(row, col int) int {
		for _, spec := range specs {
			if row < spec.RowOff || row >= spec.RowOff+spec.Rows || col < spec.ColOff || col >= spec.ColOff+spec.Columns {
				continue
			}
			if spec.Rows < 2 || spec.Columns < 2 {
				return -1
			}
			perim := structures.NewPerimeter(spec.Rows, spec.Columns)
			if i, ok := perim.Index(row-spec.RowOff, col-spec.ColOff); ok {
				return i
			}
			return -1
		}
		return -1
	}

	// Discovery pass: run the unseeded kernel once per tile to learn which
	// tiles feed mass into which others. The mass values from this pass are
	// provisional; only the link topology is kept.
	deps := make(map[int]map[int]bool) // toTile -> set of fromTile
	for _, spec := range specs {
		deps[spec.ID] = map[int]bool{}
	}
	for _, spec := range specs {
		fdrTile, err := fdrIt.Read(spec)
		if err != nil {
			return err
		}
		tmp, err := facIt.Read(spec)
		if err != nil {
			return err
		}
		links := accumulateTile(fdrTile, tmp, fdr.NoData(), nil)
		for _, l := range links {
			to := tileOf(l.toRow, l.toCol)
			if to >= 0 {
				deps[to][spec.ID] = true
			}
		}
	}

	inDegree := make(map[int]int, len(specs))
	for id, preds := range deps {
		inDegree[id] = len(preds)
	}
	queue := make([]raster.TileSpec, 0, len(specs))
	for _, spec := range specs {
		if inDegree[spec.ID] == 0 {
			queue = append(queue, spec)
		}
	}

	arriving := make(map[[2]int]float64)
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

		fdrTile, err := fdrIt.Read(spec)
		if err != nil {
			return err
		}
		facTile, err := facIt.Read(spec)
		if err != nil {
			return err
		}
		seed := make(map[[2]int]float64)
		for k, v := range arriving {
			gr, gc := k[0], k[1]
			if gr >= spec.RowOff && gr < spec.RowOff+spec.Rows && gc >= spec.ColOff && gc < spec.ColOff+spec.Columns {
				seed[[2]int{gr - spec.RowOff, gc - spec.ColOff}] = v
			}
		}
		links := accumulateTile(fdrTile, facTile, fdr.NoData(), seed)
		if err := facIt.Write(facTile); err != nil {
			return err
		}
		for i := range links {
			links[i].entryIndex = entryIndexFor(links[i].toRow, links[i].toCol)
		}
		p.Progress.Report("accumulation", "tile", processed, len(specs), seamCrossingSummary(links), float64(processed)/float64(len(specs)))

		fed := make(map[int]bool)
		for _, l := range links {
			arriving[[2]int{l.toRow, l.toCol}] += l.mass
			to := tileOf(l.toRow, l.toCol)
			if to < 0 || done[to] || fed[to] {
				continue
			}
			fed[to] = true // inDegree counts feeding tiles, not links
			inDegree[to]--
			if inDegree[to] == 0 {
				for _, s := range specs {
					if s.ID == to {
						queue = append(queue, s)
						break
					}
				}
			}
		}
	}

	// A cyclic dependency would be a bug elsewhere (D8 chains cannot loop);
	// guard against it rather than hang, processing any leftover tiles with
	// whatever mass has arrived so far.
	for _, spec := range specs {
		if done[spec.ID] {
			continue
		}
		fdrTile, err := fdrIt.Read(spec)
		if err != nil {
			return err
		}
		facTile, err := facIt.Read(spec)
		if err != nil {
			return err
		}
		seed := make(map[[2]int]float64)
		for k, v := range arriving {
			gr, gc := k[0], k[1]
			if gr >= spec.RowOff && gr < spec.RowOff+spec.Rows && gc >= spec.ColOff && gc < spec.ColOff+spec.Columns {
				seed[[2]int{gr - spec.RowOff, gc - spec.ColOff}] = v
			}
		}
		accumulateTile(fdrTile, facTile, fdr.NoData(), seed)
		if err := facIt.Write(facTile); err != nil {
			return err
		}
	}
	return nil
}

// seamCrossingSummary reports how many of a tile's exit links actually
// landed on a neighboring tile's own perimeter (exitIndex/entryIndex both
// resolved), versus ones that left the raster entirely, for the progress
// message's benefit.
func seamCrossingSummary(links []link) string {
	if len(links) == 0 {
		return ""
	}
	seams := 0
	for _, l := range links {
		if l.exitIndex >= 0 && l.entryIndex >= 0 {
			seams++
		}
	}
	return fmt.Sprintf("%d/%d perimeter seam crossings", seams, len(links))
}

// accumulateTile runs the single-tile join-count kernel over fdrTile,
// writing results into facTile. seed (interior-local coordinates) adds
// extra initial mass to specific cells, used to deliver cross-tile
// contributions once they're known. It returns the links describing mass
// that flowed off this tile's interior.
func accumulateTile(fdrTile, facTile *raster.Tile, nodata float64, seed map[[2]int]float64) []link {
	rows, cols := fdrTile.Spec.Rows, fdrTile.Spec.Columns
	fac := make([]float64, rows*cols)
	joinCount := make([]int, rows*cols)
	idx := func(r, c int) int { return r*cols + c }
	valid := make([]bool, rows*cols)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			dir := byte(fdrTile.At(r, c))
			if dir == DirNoData {
				continue
			}
			valid[idx(r, c)] = true
			fac[idx(r, c)] = 1
			if extra, ok := seed[[2]int{r, c}]; ok {
				fac[idx(r, c)] += extra
			}
		}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !valid[idx(r, c)] {
				continue
			}
			dir := byte(fdrTile.At(r, c))
			if !IsValidFlowDir(dir) {
				continue
			}
			dr, dc := Offset(dir)
			nr, nc := r+dr, c+dc
			if nr >= 0 && nr < rows && nc >= 0 && nc < cols && valid[idx(nr, nc)] {
				joinCount[idx(nr, nc)]++
			}
		}
	}

	queue := make([]flatCell, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if valid[idx(r, c)] && joinCount[idx(r, c)] == 0 {
				queue = append(queue, flatCell{r, c})
			}
		}
	}

	var perim *structures.Perimeter
	if rows >= 2 && cols >= 2 {
		perim = structures.NewPerimeter(rows, cols)
	}

	var links []link
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		dir := byte(fdrTile.At(cur.row, cur.col))
		if !IsValidFlowDir(dir) {
			continue
		}
		dr, dc := Offset(dir)
		nr, nc := cur.row+dr, cur.col+dc
		if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
			exitIndex := -1
			if perim != nil {
				if i, ok := perim.Index(cur.row, cur.col); ok {
					exitIndex = i
				}
			}
			links = append(links, link{
				toRow:      fdrTile.Spec.RowOff + nr,
				toCol:      fdrTile.Spec.ColOff + nc,
				exitIndex:  exitIndex,
				entryIndex: -1,
				mass:       fac[idx(cur.row, cur.col)],
			})
			continue
		}
		if !valid[idx(nr, nc)] {
			continue
		}
		fac[idx(nr, nc)] += fac[idx(cur.row, cur.col)]
		joinCount[idx(nr, nc)]--
		if joinCount[idx(nr, nc)] == 0 {
			queue = append(queue, flatCell{nr, nc})
		}
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if valid[idx(r, c)] {
				facTile.Set(r, c, fac[idx(r, c)])
			} else {
				facTile.Set(r, c, nodata)
			}
		}
	}
	return links
}
