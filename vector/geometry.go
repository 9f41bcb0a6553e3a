// Package vector bridges the hydro package's plain coordinate types to the
// drainage-point input features and stream/flow-length output features
// spec.md §6 describes: point and line geometries carrying numeric
// attribute fields. Geometry itself is github.com/paulmach/orb's Point/
// LineString/Feature types, the geometry library used elsewhere in the
// retrieval pack for exactly this purpose (feature geometry + GeoJSON
// properties).
package vector

import (
	"github.com/jblindsay/hydroflow/hydro"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DrainagePointFeature is one outlet input feature: a point geometry plus
// whatever numeric/string attributes the caller's vector file carried, with
// an ID the basins/flow-length stages use to key their output.
type DrainagePointFeature struct {
	ID         int64
	Point      orb.Point
	Properties geojson.Properties
}

// ToHydroPoints converts drainage features into the plain
// hydro.DrainagePoint the pipeline stages consume, resolving each feature's
// world point to (row, col) through the caller's toCell lookup.
func ToHydroPoints(features []DrainagePointFeature, toCell func(orb.Point) (row, col int)) []hydro.DrainagePoint {
	out := make([]hydro.DrainagePoint, len(features))
	for i, f := range features {
		row, col := toCell(f.Point)
		out[i] = hydro.DrainagePoint{ID: f.ID, Row: row, Col: col}
	}
	return out
}

// BasinFeatureCollection appends basin_id/ds_basin_id properties to the
// input drainage-point features, per spec.md §6 ("basins must, on
// completion, append basin_id and ds_basin_id fields to each input
// drainage point"). dsBasinID maps a basin's ID to the ID of the basin it
// drains into downstream (0 if it drains off the raster without reaching
// another drainage point).
func BasinFeatureCollection(features []DrainagePointFeature, dsBasinID map[int64]int64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		feat := geojson.NewFeature(f.Point)
		feat.Properties = geojson.Properties{}
		for k, v := range f.Properties {
			feat.Properties[k] = v
		}
		feat.Properties["basin_id"] = f.ID
		feat.Properties["ds_basin_id"] = dsBasinID[f.ID]
		fc.Append(feat)
	}
	return fc
}

// streamPointToOrb converts a hydro.StreamPoint (world x/y) to an orb.Point.
func streamPointToOrb(p hydro.StreamPoint) orb.Point { return orb.Point{p.X, p.Y} }

// JunctionsFeatureCollection builds the point-feature layer for a stream
// network's junction/source cells.
func JunctionsFeatureCollection(net *hydro.StreamNetwork) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range net.Junctions {
		fc.Append(geojson.NewFeature(streamPointToOrb(p)))
	}
	return fc
}

// StreamsFeatureCollection builds the line-feature layer for a stream
// network's traced segments.
func StreamsFeatureCollection(net *hydro.StreamNetwork) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, line := range net.Lines {
		ls := make(orb.LineString, len(line.Points))
		for j, p := range line.Points {
			ls[j] = streamPointToOrb(p)
		}
		feat := geojson.NewFeature(ls)
		feat.Properties = geojson.Properties{"stream_id": i}
		fc.Append(feat)
	}
	return fc
}

// LongestFlowPathFeatureCollection builds the line-feature layer for each
// drainage point's longest upstream flow path.
func LongestFlowPathFeatureCollection(result *hydro.FlowLengthResult) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, lp := range result.LongestPath {
		ls := make(orb.LineString, len(lp.Points))
		for j, p := range lp.Points {
			ls[j] = streamPointToOrb(p)
		}
		feat := geojson.NewFeature(ls)
		feat.Properties = geojson.Properties{
			"drainage_point_id": lp.DrainagePointID,
			"length":            lp.Length,
		}
		fc.Append(feat)
	}
	return fc
}
