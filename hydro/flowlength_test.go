package hydro

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFlowLengthLinearChainAccumulatesDistance walks upstream from a single
// outlet along a 3-cell chain and checks both the per-cell cumulative
// distance and the traced longest-flow-path polyline back down to it.
func TestFlowLengthLinearChainAccumulatesDistance(t *testing.T) {
	fdr := newFlowDirRaster(3, 1)
	fdr.SetValue(0, 0, float64(DirS))
	fdr.SetValue(1, 0, float64(DirS))
	fdr.SetValue(2, 0, float64(DirUndefined))

	points := []DrainagePoint{{ID: 1, Row: 2, Col: 0}}
	result, err := FlowLength(context.Background(), fdr, points, FlowLengthParams{})
	require.NoError(t, err)

	require.Equal(t, 2.0, result.Values[0*1+0], "farthest upstream cell carries the largest cumulative distance")
	require.Equal(t, 1.0, result.Values[1*1+0])
	require.Equal(t, 0.0, result.Values[2*1+0], "the outlet itself has zero distance to itself")

	require.Len(t, result.LongestPath, 1)
	lp := result.LongestPath[0]
	require.Equal(t, int64(1), lp.DrainagePointID)
	require.Equal(t, 2.0, lp.Length)
	require.Equal(t, []StreamPoint{{X: 0.5, Y: -0.5}, {X: 0.5, Y: -1.5}, {X: 0.5, Y: -2.5}}, lp.Points)
}

// TestFlowLengthLeavesUnreachedCellsAsNoData confirms a cell outside any
// drainage point's upstream basin gets the raster's NoData value rather than
// a stray distance.
func TestFlowLengthLeavesUnreachedCellsAsNoData(t *testing.T) {
	fdr := newFlowDirRaster(2, 2)
	fdr.SetValue(0, 0, float64(DirS))
	fdr.SetValue(1, 0, float64(DirUndefined))
	fdr.SetValue(0, 1, float64(DirS))
	fdr.SetValue(1, 1, float64(DirUndefined))

	points := []DrainagePoint{{ID: 7, Row: 1, Col: 0}}
	result, err := FlowLength(context.Background(), fdr, points, FlowLengthParams{})
	require.NoError(t, err)

	idx := func(r, c int) int { return r*2 + c }
	require.Equal(t, 0.0, result.Values[idx(1, 0)])
	require.Equal(t, 1.0, result.Values[idx(0, 0)])
	require.Equal(t, fdr.NoData(), result.Values[idx(0, 1)], "a cell never reached by the requested point's basin is NoData")
	require.Equal(t, fdr.NoData(), result.Values[idx(1, 1)])
}
