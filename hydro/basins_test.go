package hydro

import (
	"context"
	"testing"

	"github.com/jblindsay/hydroflow/raster"
	"github.com/stretchr/testify/require"
)

func TestBasinsLabelsWholeUpstreamChain(t *testing.T) {
	fdr := newFlowDirRaster(3, 1)
	fdr.SetValue(0, 0, float64(DirS))
	fdr.SetValue(1, 0, float64(DirS))
	fdr.SetValue(2, 0, float64(DirUndefined))

	out := raster.NewMemRaster(3, 1, 0, fdr.GeoTransform(), "")
	points := []DrainagePoint{{ID: 1, Row: 2, Col: 0}}
	err := Basins(context.Background(), fdr, points, out, BasinsParams{})
	require.NoError(t, err)

	require.Equal(t, 1.0, out.Value(0, 0))
	require.Equal(t, 1.0, out.Value(1, 0))
	require.Equal(t, 1.0, out.Value(2, 0))
}

func TestBasinsLabelsConvergingTributaries(t *testing.T) {
	fdr := newFlowDirRaster(3, 3)
	fdr.SetValue(0, 0, float64(DirSE))
	fdr.SetValue(0, 2, float64(DirSW))
	fdr.SetValue(1, 1, float64(DirS))
	fdr.SetValue(2, 1, float64(DirUndefined))

	out := raster.NewMemRaster(3, 3, 0, fdr.GeoTransform(), "")
	points := []DrainagePoint{{ID: 5, Row: 2, Col: 1}}
	err := Basins(context.Background(), fdr, points, out, BasinsParams{})
	require.NoError(t, err)

	require.Equal(t, 5.0, out.Value(0, 0))
	require.Equal(t, 5.0, out.Value(0, 2))
	require.Equal(t, 5.0, out.Value(1, 1))
	require.Equal(t, 5.0, out.Value(2, 1))
	require.Equal(t, 0.0, out.Value(0, 1), "a cell with no valid flow direction never joins any basin")
}

func TestBasinsIndependentOutletsStayIsolated(t *testing.T) {
	fdr := newFlowDirRaster(2, 2)
	fdr.SetValue(0, 0, float64(DirS))
	fdr.SetValue(1, 0, float64(DirUndefined))
	fdr.SetValue(0, 1, float64(DirS))
	fdr.SetValue(1, 1, float64(DirUndefined))

	out := raster.NewMemRaster(2, 2, 0, fdr.GeoTransform(), "")
	points := []DrainagePoint{
		{ID: 1, Row: 1, Col: 0},
		{ID: 2, Row: 1, Col: 1},
	}
	err := Basins(context.Background(), fdr, points, out, BasinsParams{AllBasins: true})
	require.NoError(t, err)

	require.Equal(t, 1.0, out.Value(0, 0))
	require.Equal(t, 1.0, out.Value(1, 0))
	require.Equal(t, 2.0, out.Value(0, 1))
	require.Equal(t, 2.0, out.Value(1, 1))
}

// TestBasinsTiledMatchesSingleTile confirms spec.md's tiled/single-tile
// equivalence property for basin labelling: the same flow-direction raster
// and drainage points must produce cell-for-cell identical labels whether
// the raster is processed as one whole tile or as many small chunks that
// force the upstream search to cross tile seams.
func TestBasinsTiledMatchesSingleTile(t *testing.T) {
	const n = 6
	fdr := newFlowDirRaster(n, n)
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
	points := []DrainagePoint{{ID: 7, Row: n - 1, Col: 0}, {ID: 9, Row: n - 1, Col: n - 1}}

	whole := raster.NewMemRaster(n, n, 0, fdr.GeoTransform(), "")
	require.NoError(t, Basins(context.Background(), fdr, points, whole, BasinsParams{ChunkSize: 0, AllBasins: true}))

	tiled := raster.NewMemRaster(n, n, 0, fdr.GeoTransform(), "")
	require.NoError(t, Basins(context.Background(), fdr, points, tiled, BasinsParams{ChunkSize: 2, AllBasins: true}))

	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			require.Equal(t, whole.Value(r, c), tiled.Value(r, c),
				"cell (%d,%d) must match between chunk_size=0 and chunk_size=2", r, c)
		}
	}
}
