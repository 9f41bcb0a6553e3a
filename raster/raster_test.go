package raster

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeoTransformToWorldAndBackToCell(t *testing.T) {
	// Origin at (100, 200), 10-unit cells, north-up (no rotation).
	gt := GeoTransform{100, 10, 0, 200, 0, -10}
	x, y := gt.ToWorld(0, 0)
	require.Equal(t, 105.0, x)
	require.Equal(t, 195.0, y)

	row, col := gt.ToCell(x, y)
	require.Equal(t, 0, row)
	require.Equal(t, 0, col)

	x2, y2 := gt.ToWorld(3, 4)
	row2, col2 := gt.ToCell(x2, y2)
	require.Equal(t, 3, row2)
	require.Equal(t, 4, col2)
}

func TestGeoTransformPixelDimensions(t *testing.T) {
	gt := GeoTransform{0, 2.5, 0, 0, 0, -3.5}
	require.Equal(t, 2.5, gt.PixelWidth())
	require.Equal(t, 3.5, gt.PixelHeight())
}

func TestMemRasterReadBlockPadsWithNoData(t *testing.T) {
	m := NewMemRaster(2, 2, -9999, GeoTransform{}, "")
	m.SetValue(0, 0, 1)
	m.SetValue(0, 1, 2)
	m.SetValue(1, 0, 3)
	m.SetValue(1, 1, 4)

	dst := make([]float64, 16)
	require.NoError(t, m.ReadBlock(-1, -1, 4, 4, dst))
	// Row 0 of the 4x4 window is all halo (nodata); interior values start
	// at window row 1, col 1.
	for c := 0; c < 4; c++ {
		require.Equal(t, -9999.0, dst[c])
	}
	require.Equal(t, 1.0, dst[1*4+1])
	require.Equal(t, 2.0, dst[1*4+2])
	require.Equal(t, 3.0, dst[2*4+1])
	require.Equal(t, 4.0, dst[2*4+2])
}

func TestMemRasterWriteBlockRejectsOutOfRange(t *testing.T) {
	m := NewMemRaster(2, 2, 0, GeoTransform{}, "")
	err := m.WriteBlock(1, 1, 2, 2, make([]float64, 4))
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestMemRasterWriteBlockRejectsLengthMismatch(t *testing.T) {
	m := NewMemRaster(2, 2, 0, GeoTransform{}, "")
	err := m.WriteBlock(0, 0, 2, 2, make([]float64, 3))
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNewMemRasterFromDataValidatesLength(t *testing.T) {
	_, err := NewMemRasterFromData(2, 2, 0, GeoTransform{}, "", []float64{1, 2, 3})
	require.ErrorIs(t, err, ErrDimensionMismatch)

	r, err := NewMemRasterFromData(2, 2, 0, GeoTransform{}, "", []float64{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, 4.0, r.Value(1, 1))
}
