package hydro

import (
	"context"
	"testing"

	"github.com/jblindsay/hydroflow/raster"
	"github.com/jblindsay/hydroflow/structures"
	"github.com/stretchr/testify/require"
)

func newFlowDirRaster(rows, cols int) *raster.MemRaster {
	return raster.NewMemRaster(rows, cols, float64(DirNoData), raster.GeoTransform{0, 1, 0, 0, 0, -1}, "")
}

// TestAccumulationLinearChain confirms a straight 3-cell chain accumulates
// 1, 2, 3 downstream.
func TestAccumulationLinearChain(t *testing.T) {
	fdr := newFlowDirRaster(3, 1)
	fdr.SetValue(0, 0, float64(DirS))
	fdr.SetValue(1, 0, float64(DirS))
	fdr.SetValue(2, 0, float64(DirUndefined))

	out := raster.NewMemRaster(3, 1, -9999, fdr.GeoTransform(), "")
	err := Accumulation(context.Background(), fdr, out, AccumulationParams{ChunkSize: 0})
	require.NoError(t, err)

	require.Equal(t, 1.0, out.Value(0, 0))
	require.Equal(t, 2.0, out.Value(1, 0))
	require.Equal(t, 3.0, out.Value(2, 0))
}

// TestAccumulationConvergingTributaries joins two independent headwater
// cells into a shared outlet and checks the mass sums correctly at each
// confluence.
func TestAccumulationConvergingTributaries(t *testing.T) {
	fdr := newFlowDirRaster(3, 3)
	fdr.SetValue(0, 0, float64(DirSE)) // -> (1,1)
	fdr.SetValue(0, 2, float64(DirSW)) // -> (1,1)
	fdr.SetValue(1, 1, float64(DirS))  // -> (2,1)
	fdr.SetValue(2, 1, float64(DirUndefined))

	out := raster.NewMemRaster(3, 3, -9999, fdr.GeoTransform(), "")
	err := Accumulation(context.Background(), fdr, out, AccumulationParams{ChunkSize: 0})
	require.NoError(t, err)

	require.Equal(t, 1.0, out.Value(0, 0))
	require.Equal(t, 1.0, out.Value(0, 2))
	require.Equal(t, 3.0, out.Value(1, 1), "the confluence cell counts itself plus both headwaters")
	require.Equal(t, 4.0, out.Value(2, 1), "the outlet counts everything that has passed through the confluence")
}

// TestAccumulateTileExitIndexMatchesPerimeter confirms a link that leaves a
// tile's interior is tagged with the exact clockwise structures.Perimeter
// index of the cell it left from, not just the raw coordinate.
func TestAccumulateTileExitIndexMatchesPerimeter(t *testing.T) {
	fdrTile := raster.NewMemRaster(3, 3, float64(DirNoData), raster.GeoTransform{0, 1, 0, 0, 0, -1}, "")
	// Every cell flows east; the rightmost column exits the tile.
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			fdrTile.SetValue(r, c, float64(DirE))
		}
	}
	it := raster.NewIterator(fdrTile, 3, 0)
	spec := it.Tiles()[0]
	fdrT, err := it.Read(spec)
	require.NoError(t, err)

	facOut := raster.NewMemRaster(3, 3, -9999, fdrTile.GeoTransform(), "")
	facIt := raster.NewIterator(facOut, 3, 0)
	facT, err := facIt.Read(spec)
	require.NoError(t, err)

	links := accumulateTile(fdrT, facT, fdrTile.NoData(), nil)
	require.Len(t, links, 3, "every row's rightmost cell exits the tile once")

	perim := structures.NewPerimeter(3, 3)
	for _, l := range links {
		want, ok := perim.Index(l.toRow, 2) // the cell the mass left from, col 2
		require.True(t, ok)
		require.Equal(t, want, l.exitIndex, "exitIndex must match the departing cell's own perimeter position")
		require.Equal(t, -1, l.entryIndex, "a single whole-raster tile has no downstream tile to enter")
	}
}

// TestAccumulationTiledMatchesSingleTile confirms spec.md's tiled/single-tile
// equivalence property for accumulation: running the same flow-direction
// raster through a small chunk size must produce cell-for-cell identical
// results to running it as one whole-raster tile, once every cross-tile
// seam has had a chance to carry mass across it.
func TestAccumulationTiledMatchesSingleTile(t *testing.T) {
	const n = 6
	fdr := newFlowDirRaster(n, n)
	// A diagonal herringbone: left half of each row flows SE into the
	// right half, and the right half flows S, so chains cross several
	// 2x2 tile seams before reaching the bottom edge.
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			switch {
			case r == n-1:
				fdr.SetValue(r, c, float64(DirUndefined))
			case c < n/2:
				fdr.SetValue(r, c, float64(DirSE))
			default:
				fdr.SetValue(r, c, float64(DirS))
			}
		}
	}

	whole := raster.NewMemRaster(n, n, -9999, fdr.GeoTransform(), "")
	require.NoError(t, Accumulation(context.Background(), fdr, whole, AccumulationParams{ChunkSize: 0}))

	tiled := raster.NewMemRaster(n, n, -9999, fdr.GeoTransform(), "")
	require.NoError(t, Accumulation(context.Background(), fdr, tiled, AccumulationParams{ChunkSize: 2}))

	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			require.Equal(t, whole.Value(r, c), tiled.Value(r, c),
				"cell (%d,%d) must match between chunk_size=0 and chunk_size=2", r, c)
		}
	}
}
