// Copyright 2015 the GoSpatial Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// licence that can be found in the LICENCE.txt file.

// Tile iteration walks a Tiled source in fixed-size chunks, each carrying a
// halo of neighboring cells, so a kernel written against one tile at a time
// scales to rasters much larger than memory.

package raster

// TileSpec identifies one tile's interior rectangle in raster space.
type TileSpec struct {
	ID       int // row-major tile index, stable across iterations of the same chunk size
	RowOff   int
	ColOff   int
	Rows     int // interior row count (<= chunk size; smaller at the raster's bottom/right edge)
	Columns  int // interior column count
}

// Tile is the interior-plus-halo view a kernel operates on. Local
// coordinates are offset so that (0,0) is the halo's top-left corner;
// At/Set address the interior using offsets relative to the interior's own
// top-left, so a kernel can look up a neighbor with z := t.At(row+dr,
// col+dc) without ever checking whether that neighbor falls in the halo.
type Tile struct {
	Spec  TileSpec
	Halo  int
	width int // Spec.Columns + 2*Halo
	data  []float64
}

// At reads the cell at interior-relative offset (dr, dc); dr/dc may range
// over [-Halo, Spec.Rows-1+Halo] and [-Halo, Spec.Columns-1+Halo].
func (t *Tile) At(dr, dc int) float64 {
	r := dr + t.Halo
	c := dc + t.Halo
	return t.data[r*t.width+c]
}

// Set writes the cell at interior-relative offset (dr, dc). Writes outside
// the interior (dr/dc landing in the halo) are ignored: halo writes never
// escape the tile.
func (t *Tile) Set(dr, dc int, value float64) {
	if dr < 0 || dr >= t.Spec.Rows || dc < 0 || dc >= t.Spec.Columns {
		return
	}
	r := dr + t.Halo
	c := dc + t.Halo
	t.data[r*t.width+c] = value
}

// InteriorSlice copies out the interior-only values, row-major, for
// flushing back to the backing Tiled via Iterator.Write.
func (t *Tile) InteriorSlice() []float64 {
	out := make([]float64, t.Spec.Rows*t.Spec.Columns)
	for r := 0; r < t.Spec.Rows; r++ {
		srcStart := (r+t.Halo)*t.width + t.Halo
		copy(out[r*t.Spec.Columns:(r+1)*t.Spec.Columns], t.data[srcStart:srcStart+t.Spec.Columns])
	}
	return out
}

// Iterator produces the row-major tile grid for a raster at a fixed
// interior chunk size and halo. Two Iterators built with the same (rows,
// columns, chunkSize) always produce identical TileSpecs, so tile
// boundaries stay stable across repeated passes over the same raster.
type Iterator struct {
	src       Tiled
	chunkSize int
	halo      int
	tiles     []TileSpec
}

// NewIterator builds the tile grid for src. If chunkSize <= 0 or exceeds
// the raster extent, a single tile covering the whole raster is produced.
// (The pipeline layer handles chunk_size <= 1 by calling single-tile
// kernels directly instead of going through an Iterator at all; this
// fallback exists so Iterator itself degrades gracefully too.)
func NewIterator(src Tiled, chunkSize, halo int) *Iterator {
	rows, cols := src.Rows(), src.Columns()
	if chunkSize <= 0 {
		chunkSize = max(rows, cols)
	}
	it := &Iterator{src: src, chunkSize: chunkSize, halo: halo}
	id := 0
	for rowOff := 0; rowOff < rows; rowOff += chunkSize {
		tr := chunkSize
		if rowOff+tr > rows {
			tr = rows - rowOff
		}
		for colOff := 0; colOff < cols; colOff += chunkSize {
			tc := chunkSize
			if colOff+tc > cols {
				tc = cols - colOff
			}
			it.tiles = append(it.tiles, TileSpec{ID: id, RowOff: rowOff, ColOff: colOff, Rows: tr, Columns: tc})
			id++
		}
	}
	return it
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Tiles returns the row-major tile specs.
func (it *Iterator) Tiles() []TileSpec { return it.tiles }

// NumTiles returns the tile count.
func (it *Iterator) NumTiles() int { return len(it.tiles) }

// Read materializes the interior+halo view, reading the current on-disk
// (or in-memory) state of the backing raster. Halo reads always reflect
// the latest write, so callers that depend on a prior pass's output must
// finish that whole pass first.
func (it *Iterator) Read(spec TileSpec) (*Tile, error) {
	width := spec.Columns + 2*it.halo
	height := spec.Rows + 2*it.halo
	data := make([]float64, width*height)
	if err := it.src.ReadBlock(spec.RowOff-it.halo, spec.ColOff-it.halo, height, width, data); err != nil {
		return nil, err
	}
	return &Tile{Spec: spec, Halo: it.halo, width: width, data: data}, nil
}

// Write flushes a tile's interior back to the backing raster. Halo cells
// are never written, regardless of what a kernel stored in them.
func (it *Iterator) Write(t *Tile) error {
	return it.src.WriteBlock(t.Spec.RowOff, t.Spec.ColOff, t.Spec.Rows, t.Spec.Columns, t.InteriorSlice())
}

// ForEach reads, applies fn, and writes back every tile in row-major
// order, reporting per-tile progress through report (which may be nil).
// Tiles within a stage are processed sequentially; fn itself may
// parallelize across the tile's interior cells.
func (it *Iterator) ForEach(report Progress, phase string, fn func(*Tile) error) error {
	total := len(it.tiles)
	for i, spec := range it.tiles {
		tile, err := it.Read(spec)
		if err != nil {
			return err
		}
		if err := fn(tile); err != nil {
			return err
		}
		if err := it.Write(tile); err != nil {
			return err
		}
		report.Report(phase, "tile", i+1, total, "", float64(i+1)/float64(total))
	}
	return nil
}
