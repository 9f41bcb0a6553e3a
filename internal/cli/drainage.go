package cli

import (
	"github.com/jblindsay/hydroflow/hydro"
	"github.com/jblindsay/hydroflow/raster"
	"github.com/jblindsay/hydroflow/vector"
	"github.com/paulmach/orb"
)

// loadDrainagePoints reads a GeoJSON drainage-point file and resolves each
// feature's world coordinate to a (row, col) cell against ref's geo-transform.
func loadDrainagePoints(path string, ref raster.Tiled) ([]hydro.DrainagePoint, []vector.DrainagePointFeature, error) {
	features, err := vector.ReadDrainagePoints(path)
	if err != nil {
		return nil, nil, err
	}
	transform := ref.GeoTransform()
	points := vector.ToHydroPoints(features, func(pt orb.Point) (int, int) {
		return transform.ToCell(pt[0], pt[1])
	})
	return points, features, nil
}
