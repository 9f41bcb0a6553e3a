package vector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadDrainagePointsUsesExplicitIDsWhenPresent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.geojson")
	data := `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "properties": {"id": 42}, "geometry": {"type": "Point", "coordinates": [1, 2]}},
			{"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [3, 4]}}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	features, err := ReadDrainagePoints(path)
	require.NoError(t, err)
	require.Len(t, features, 2)
	require.Equal(t, int64(42), features[0].ID, "an explicit numeric id property is kept")
	require.Equal(t, int64(2), features[1].ID, "a feature with no id property is numbered in file order")
	require.Equal(t, 1.0, features[0].Point[0])
	require.Equal(t, 2.0, features[0].Point[1])
}

func TestReadDrainagePointsRejectsNonPointGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "line.geojson")
	data := `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "properties": {}, "geometry": {"type": "LineString", "coordinates": [[0,0],[1,1]]}}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := ReadDrainagePoints(path)
	require.Error(t, err)
}

func TestReadDrainagePointsMissingFile(t *testing.T) {
	_, err := ReadDrainagePoints(filepath.Join(t.TempDir(), "missing.geojson"))
	require.Error(t, err)
}
