package vector

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestGpkgWriterWriteLayerRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gpkg")
	w, err := NewGpkgWriter(path, "EPSG:4326")
	require.NoError(t, err)

	fc := geojson.NewFeatureCollection()
	feat := geojson.NewFeature(orb.Point{1, 2})
	feat.Properties = geojson.Properties{"basin_id": 7}
	fc.Append(feat)

	require.NoError(t, w.WriteLayer("basins", "Point", fc))
	require.NoError(t, w.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var dataType, geomType, srs string
	require.NoError(t, db.QueryRow(
		`SELECT data_type, geometry_type, srs FROM gpkg_contents WHERE table_name = ?`, "basins",
	).Scan(&dataType, &geomType, &srs))
	require.Equal(t, "features", dataType)
	require.Equal(t, "Point", geomType)
	require.Equal(t, "EPSG:4326", srs)

	var blob []byte
	var props string
	require.NoError(t, db.QueryRow(`SELECT geom, properties FROM "basins" WHERE fid = 0`).Scan(&blob, &props))
	geom, err := wkb.Unmarshal(blob)
	require.NoError(t, err)
	require.Equal(t, orb.Point{1, 2}, geom)
	require.JSONEq(t, `{"basin_id": 7}`, props)
}

func TestGpkgWriterWriteLayerReplacesExistingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gpkg")
	w, err := NewGpkgWriter(path, "")
	require.NoError(t, err)
	defer w.Close()

	fcFirst := geojson.NewFeatureCollection()
	fcFirst.Append(geojson.NewFeature(orb.Point{0, 0}))
	fcFirst.Append(geojson.NewFeature(orb.Point{1, 1}))
	require.NoError(t, w.WriteLayer("streams", "LineString", fcFirst))

	fcSecond := geojson.NewFeatureCollection()
	fcSecond.Append(geojson.NewFeature(orb.Point{5, 5}))
	require.NoError(t, w.WriteLayer("streams", "LineString", fcSecond))

	var count int
	require.NoError(t, w.db.QueryRow(`SELECT COUNT(*) FROM "streams"`).Scan(&count))
	require.Equal(t, 1, count, "re-writing a layer must replace, not append to, its table")
}
