package hydro

import (
	"context"
	"testing"

	"github.com/jblindsay/hydroflow/raster"
	"github.com/stretchr/testify/require"
)

// TestFlowDirectionSteepestDescentNoFlats uses a 3x3 surface with a strictly
// decreasing gradient (val = 9 - 3*row - col) so every cell has an
// unambiguous steepest-descent neighbor, and the lowest corner has none.
func TestFlowDirectionSteepestDescentNoFlats(t *testing.T) {
	in := raster.NewMemRaster(3, 3, -9999, raster.GeoTransform{0, 1, 0, 0, 0, -1}, "")
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			in.SetValue(r, c, float64(9-3*r-c))
		}
	}
	out := raster.NewMemRaster(3, 3, float64(DirNoData), in.GeoTransform(), "")
	err := FlowDirection(context.Background(), in, out, FlowDirParams{ChunkSize: 0, ResolveFlats: false})
	require.NoError(t, err)

	require.Equal(t, float64(DirS), out.Value(0, 0), "south is the steepest drop from the top-left corner")
	require.Equal(t, float64(DirS), out.Value(1, 1), "south (slope 3) beats southeast (slope ~2.83) at the center cell")
	require.Equal(t, float64(DirUndefined), out.Value(2, 2), "the lowest corner has no downhill neighbor")
}

// TestFlowDirectionFlatResolvesTowardsOutlet builds a flat plateau draining
// out a single low corner and confirms every flat cell ends up with a
// defined (not UNDEFINED) direction once flats are resolved.
func TestFlowDirectionFlatResolvesTowardsOutlet(t *testing.T) {
	in := raster.NewMemRaster(3, 3, -9999, raster.GeoTransform{0, 1, 0, 0, 0, -1}, "")
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			in.SetValue(r, c, 5)
		}
	}
	in.SetValue(2, 2, 1) // single outlet below the plateau

	out := raster.NewMemRaster(3, 3, float64(DirNoData), in.GeoTransform(), "")
	err := FlowDirection(context.Background(), in, out, FlowDirParams{ChunkSize: 0, ResolveFlats: true})
	require.NoError(t, err)

	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if r == 2 && c == 2 {
				continue
			}
			require.NotEqual(t, float64(DirUndefined), out.Value(r, c), "cell (%d,%d) on the flat plateau must resolve to a defined direction", r, c)
		}
	}
}

// TestFlowDirectionFlatTiledMatchesSingleTile confirms spec.md's
// tiled/single-tile equivalence property for flat resolution: a plateau
// much larger than the chunk size, so its flat region is discovered,
// deferred, and stitched back together across several tile seams, must
// still resolve identically to a single whole-raster pass.
func TestFlowDirectionFlatTiledMatchesSingleTile(t *testing.T) {
	const n = 6
	in := raster.NewMemRaster(n, n, -9999, raster.GeoTransform{0, 1, 0, 0, 0, -1}, "")
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			in.SetValue(r, c, 5)
		}
	}
	in.SetValue(n-1, n-1, 1) // single outlet below the plateau

	whole := raster.NewMemRaster(n, n, float64(DirNoData), in.GeoTransform(), "")
	require.NoError(t, FlowDirection(context.Background(), in, whole, FlowDirParams{ChunkSize: 0, ResolveFlats: true}))

	tiled := raster.NewMemRaster(n, n, float64(DirNoData), in.GeoTransform(), "")
	require.NoError(t, FlowDirection(context.Background(), in, tiled, FlowDirParams{ChunkSize: 2, ResolveFlats: true}))

	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			require.Equal(t, whole.Value(r, c), tiled.Value(r, c),
				"cell (%d,%d) must match between chunk_size=0 and chunk_size=2", r, c)
		}
	}
}
