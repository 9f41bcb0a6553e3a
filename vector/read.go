package vector

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ReadDrainagePoints parses a GeoJSON FeatureCollection of point features
// (the format the basins/flow_length entry points take as drainage_points,
// per spec.md §6) into DrainagePointFeature values. Each feature's id, if
// present, is kept as the DrainagePointFeature's ID; otherwise features are
// numbered in file order starting at 1.
func ReadDrainagePoints(path string) ([]DrainagePointFeature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vector: reading %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("vector: parsing %s as GeoJSON: %w", path, err)
	}

	out := make([]DrainagePointFeature, 0, len(fc.Features))
	for i, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, fmt.Errorf("vector: feature %d in %s is not a point geometry", i, path)
		}
		id := int64(i + 1)
		if n, ok := f.Properties["id"]; ok {
			if fv, ok := n.(float64); ok {
				id = int64(fv)
			}
		}
		out = append(out, DrainagePointFeature{ID: id, Point: pt, Properties: f.Properties})
	}
	return out, nil
}
