package vector

import (
	"testing"

	"github.com/jblindsay/hydroflow/hydro"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/require"
)

func TestToHydroPointsUsesCallerCellLookup(t *testing.T) {
	features := []DrainagePointFeature{
		{ID: 1, Point: orb.Point{10, 20}},
		{ID: 2, Point: orb.Point{30, 40}},
	}
	toCell := func(p orb.Point) (int, int) {
		return int(p[1]) / 10, int(p[0]) / 10
	}

	out := ToHydroPoints(features, toCell)
	require.Equal(t, []hydro.DrainagePoint{
		{ID: 1, Row: 2, Col: 1},
		{ID: 2, Row: 4, Col: 3},
	}, out)
}

func TestBasinFeatureCollectionAppendsBasinFields(t *testing.T) {
	features := []DrainagePointFeature{
		{ID: 1, Point: orb.Point{0, 0}, Properties: geojson.Properties{"name": "a"}},
		{ID: 2, Point: orb.Point{1, 1}},
	}
	dsBasinID := map[int64]int64{1: 2, 2: 0}

	fc := BasinFeatureCollection(features, dsBasinID)
	require.Len(t, fc.Features, 2)
	require.Equal(t, "a", fc.Features[0].Properties["name"])
	require.EqualValues(t, 1, fc.Features[0].Properties["basin_id"])
	require.EqualValues(t, 2, fc.Features[0].Properties["ds_basin_id"])
	require.EqualValues(t, 2, fc.Features[1].Properties["basin_id"])
	require.EqualValues(t, 0, fc.Features[1].Properties["ds_basin_id"])
}

func TestJunctionsFeatureCollectionOneFeaturePerPoint(t *testing.T) {
	net := &hydro.StreamNetwork{Junctions: []hydro.StreamPoint{{X: 1, Y: 2}, {X: 3, Y: 4}}}
	fc := JunctionsFeatureCollection(net)
	require.Len(t, fc.Features, 2)
	require.Equal(t, orb.Point{1, 2}, fc.Features[0].Geometry)
	require.Equal(t, orb.Point{3, 4}, fc.Features[1].Geometry)
}

func TestStreamsFeatureCollectionBuildsLineStringsWithIDs(t *testing.T) {
	net := &hydro.StreamNetwork{
		Lines: []hydro.StreamLine{
			{Points: []hydro.StreamPoint{{X: 0, Y: 0}, {X: 1, Y: 1}}},
		},
	}
	fc := StreamsFeatureCollection(net)
	require.Len(t, fc.Features, 1)
	ls, ok := fc.Features[0].Geometry.(orb.LineString)
	require.True(t, ok)
	require.Equal(t, orb.LineString{{0, 0}, {1, 1}}, ls)
	require.EqualValues(t, 0, fc.Features[0].Properties["stream_id"])
}

func TestLongestFlowPathFeatureCollectionCarriesLengthAndID(t *testing.T) {
	result := &hydro.FlowLengthResult{
		LongestPath: []hydro.LongestFlowPath{
			{DrainagePointID: 9, Length: 12.5, Points: []hydro.StreamPoint{{X: 0, Y: 0}, {X: 0, Y: 1}}},
		},
	}
	fc := LongestFlowPathFeatureCollection(result)
	require.Len(t, fc.Features, 1)
	require.EqualValues(t, 9, fc.Features[0].Properties["drainage_point_id"])
	require.EqualValues(t, 12.5, fc.Features[0].Properties["length"])
}
