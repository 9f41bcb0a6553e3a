// GpkgWriter writes the basins.gpkg / streams.gpkg sidecars spec.md §6
// names. A GeoPackage is, per the OGC spec, a SQLite database with a fixed
// set of bookkeeping tables plus one table per feature layer holding a WKB
// geometry blob and attribute columns; HydroFlow writes that same shape
// (gpkg_contents plus one table per layer) through modernc.org/sqlite, a
// pure-Go driver chosen (as in MeKo-Christian-WaterColorMap's MBTiles
// writer) so a cross-compiled pipeline binary never needs cgo.
package vector

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"

	_ "modernc.org/sqlite"
)

// GpkgWriter accumulates feature layers and flushes them to a single
// GeoPackage-shaped SQLite file.
type GpkgWriter struct {
	db  *sql.DB
	srs string
}

// NewGpkgWriter opens path, creating it if absent (an existing file and its
// other layers are kept), and prepares the bookkeeping tables shared by
// every layer.
func NewGpkgWriter(path, srs string) (*GpkgWriter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("vector: opening gpkg: %w", err)
	}
	schema := `
		CREATE TABLE IF NOT EXISTS gpkg_contents (
			table_name TEXT PRIMARY KEY,
			data_type TEXT NOT NULL,
			geometry_type TEXT NOT NULL,
			srs TEXT
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("vector: creating gpkg schema: %w", err)
	}
	return &GpkgWriter{db: db, srs: srs}, nil
}

// Close flushes and closes the backing SQLite file.
func (w *GpkgWriter) Close() error { return w.db.Close() }

// WriteLayer creates (or replaces) a feature-layer table named name and
// inserts every feature in fc, storing its geometry as a WKB blob alongside
// all of its properties as one JSON text column.
func (w *GpkgWriter) WriteLayer(name, geometryType string, fc *geojson.FeatureCollection) error {
	if _, err := w.db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, name)); err != nil {
		return fmt.Errorf("vector: dropping existing layer %q: %w", name, err)
	}
	if _, err := w.db.Exec(fmt.Sprintf(`CREATE TABLE "%s" (fid INTEGER PRIMARY KEY, geom BLOB, properties TEXT)`, name)); err != nil {
		return fmt.Errorf("vector: creating layer %q: %w", name, err)
	}
	if _, err := w.db.Exec(
		`INSERT OR REPLACE INTO gpkg_contents (table_name, data_type, geometry_type, srs) VALUES (?, 'features', ?, ?)`,
		name, geometryType, w.srs,
	); err != nil {
		return fmt.Errorf("vector: registering layer %q: %w", name, err)
	}

	stmt, err := w.db.Prepare(fmt.Sprintf(`INSERT INTO "%s" (fid, geom, properties) VALUES (?, ?, ?)`, name))
	if err != nil {
		return fmt.Errorf("vector: preparing layer %q insert: %w", name, err)
	}
	defer stmt.Close()

	for i, f := range fc.Features {
		blob, err := encodeGeometry(f.Geometry)
		if err != nil {
			return fmt.Errorf("vector: encoding geometry for layer %q feature %d: %w", name, i, err)
		}
		props, err := json.Marshal(f.Properties)
		if err != nil {
			return fmt.Errorf("vector: encoding properties for layer %q feature %d: %w", name, i, err)
		}
		if _, err := stmt.Exec(i, blob, string(props)); err != nil {
			return fmt.Errorf("vector: inserting layer %q feature %d: %w", name, i, err)
		}
	}
	return nil
}

func encodeGeometry(g orb.Geometry) ([]byte, error) {
	return wkb.Marshal(g)
}
