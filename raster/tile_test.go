package raster

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIteratorTilesCoverWholeRaster(t *testing.T) {
	it := NewIterator(NewMemRaster(5, 5, 0, GeoTransform{}, ""), 2, 0)
	require.Equal(t, 9, it.NumTiles()) // ceil(5/2)^2 = 3x3

	covered := make(map[[2]int]bool)
	for _, spec := range it.Tiles() {
		for r := spec.RowOff; r < spec.RowOff+spec.Rows; r++ {
			for c := spec.ColOff; c < spec.ColOff+spec.Columns; c++ {
				covered[[2]int{r, c}] = true
			}
		}
	}
	require.Len(t, covered, 25)
}

func TestIteratorReadIncludesHalo(t *testing.T) {
	m := NewMemRaster(4, 4, -1, GeoTransform{}, "")
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			m.SetValue(r, c, float64(r*4+c))
		}
	}
	it := NewIterator(m, 2, 1)
	spec := it.Tiles()[0] // top-left 2x2 interior tile
	tile, err := it.Read(spec)
	require.NoError(t, err)

	// Interior cell (0,0) is raster cell (0,0) == 0.
	require.Equal(t, 0.0, tile.At(0, 0))
	// Halo cell one row above the interior is out of raster bounds -> nodata.
	require.Equal(t, -1.0, tile.At(-1, 0))
	// Halo cell to the interior's right-below is raster cell (2,2) == 10.
	require.Equal(t, 10.0, tile.At(2, 2))
}

func TestTileSetIgnoresHaloWrites(t *testing.T) {
	m := NewMemRaster(4, 4, 0, GeoTransform{}, "")
	it := NewIterator(m, 2, 1)
	spec := it.Tiles()[0]
	tile, err := it.Read(spec)
	require.NoError(t, err)

	tile.Set(-1, -1, 99) // halo write must be silently dropped
	tile.Set(0, 0, 7)
	require.NoError(t, it.Write(tile))

	require.Equal(t, 7.0, m.Value(0, 0))
	require.Equal(t, 0.0, m.Value(0, 1)) // untouched by the halo write attempt
}

func TestIteratorForEachReportsProgress(t *testing.T) {
	m := NewMemRaster(4, 4, 0, GeoTransform{}, "")
	it := NewIterator(m, 2, 0)

	var calls int
	var lastFraction float64
	progress := Progress(func(phase, step string, n, total int, msg string, frac float64) {
		calls++
		lastFraction = frac
	})

	err := it.ForEach(progress, "test", func(tile *Tile) error {
		for r := 0; r < tile.Spec.Rows; r++ {
			for c := 0; c < tile.Spec.Columns; c++ {
				tile.Set(r, c, 1)
			}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, it.NumTiles(), calls)
	require.Equal(t, 1.0, lastFraction)

	for _, v := range m.Data() {
		require.Equal(t, 1.0, v)
	}
}

func TestNilProgressReportIsNoop(t *testing.T) {
	var p Progress
	require.NotPanics(t, func() {
		p.Report("phase", "step", 1, 1, "", 1.0)
	})
}
