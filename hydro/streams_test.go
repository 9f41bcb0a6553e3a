package hydro

import (
	"context"
	"testing"

	"github.com/jblindsay/hydroflow/raster"
	"github.com/stretchr/testify/require"
)

// TestStreamsThresholdAndTrace reuses the converging-tributaries FDR shape
// and supplies its already-known accumulation values directly, checking the
// threshold mask and the traced line between the one cell the mask
// classifies as a source and its outlet.
func TestStreamsThresholdAndTrace(t *testing.T) {
	fdr := newFlowDirRaster(3, 3)
	fdr.SetValue(0, 0, float64(DirSE))
	fdr.SetValue(0, 2, float64(DirSW))
	fdr.SetValue(1, 1, float64(DirS))
	fdr.SetValue(2, 1, float64(DirUndefined))

	fac := raster.NewMemRaster(3, 3, -9999, fdr.GeoTransform(), "")
	fac.SetValue(0, 0, 1)
	fac.SetValue(0, 2, 1)
	fac.SetValue(1, 1, 3)
	fac.SetValue(2, 1, 4)

	net, err := Streams(context.Background(), fac, fdr, StreamsParams{Threshold: 2})
	require.NoError(t, err)

	require.True(t, net.Mask[1*3+1])
	require.True(t, net.Mask[2*3+1])
	require.False(t, net.Mask[0*3+0], "below-threshold cells must not be in the stream mask")

	require.Len(t, net.Junctions, 1)
	require.Equal(t, StreamPoint{X: 1.5, Y: -1.5}, net.Junctions[0])

	require.Len(t, net.Lines, 1)
	require.Equal(t, []StreamPoint{{X: 1.5, Y: -1.5}, {X: 1.5, Y: -2.5}}, net.Lines[0].Points)
}

func TestStreamsEmptyWhenNothingMeetsThreshold(t *testing.T) {
	fdr := newFlowDirRaster(2, 2)
	fac := raster.NewMemRaster(2, 2, -9999, fdr.GeoTransform(), "")

	net, err := Streams(context.Background(), fac, fdr, StreamsParams{Threshold: 5})
	require.NoError(t, err)
	require.Empty(t, net.Junctions)
	require.Empty(t, net.Lines)
	for _, v := range net.Mask {
		require.False(t, v)
	}
}
