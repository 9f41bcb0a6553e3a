// Upstream flow length: the D8 flow-path distance from every basin cell to
// its drainage point, computed by the same upstream BFS basin labelling uses
// but carrying a cumulative distance instead of a plain count, plus the
// "longest flow path" polyline traced downstream from each basin's
// farthest-upstream cell.
package hydro

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/jblindsay/hydroflow/raster"
)

// wgs84SemiMajorAxis is the default ellipsoid semi-major axis (meters) used
// for geographic-CRS Haversine distances when the SRS string carries no
// explicit +a= token; HydroFlow deliberately keeps this one fixed-table
// entry rather than pulling in a full SRS/ellipsoid library, since spec.md
// §1 marks ellipsoid arithmetic as an external collaborator's concern.
const wgs84SemiMajorAxis = 6378137.0

// FlowLengthParams configures upstream flow-length computation.
type FlowLengthParams struct {
	SnapRadius int
	FAC        raster.Tiled // optional; required when SnapRadius > 0
	Progress   raster.Progress
}

// LongestFlowPath is the longest upstream-to-outlet polyline found for one
// drainage point, traced downstream from the argmax-distance cell in its
// (possibly nested) basin.
type LongestFlowPath struct {
	DrainagePointID int64
	Length          float64
	Points          []StreamPoint
}

// FlowLengthResult bundles the flow-length raster values (row-major,
// rows*cols, NoData where no basin claims the cell) with the longest-path
// polylines.
type FlowLengthResult struct {
	Values      []float64
	Rows        int
	Columns     int
	LongestPath []LongestFlowPath
}

// FlowLength is the flow-length entry point. Unlike Basins, which works tile
// by tile, it reads the flow-direction raster whole into memory: a basin's
// BFS can span arbitrarily many tiles.
func FlowLength(ctx context.Context, fdr raster.Tiled, points []DrainagePoint, p FlowLengthParams) (*FlowLengthResult, error) {
	rows, cols := fdr.Rows(), fdr.Columns()
	nodata := fdr.NoData()
	fdrData := make([]float64, rows*cols)
	if err := fdr.ReadBlock(0, 0, rows, cols, fdrData); err != nil {
		return nil, err
	}
	idx := func(r, c int) int { return r*cols + c }

	transform := fdr.GeoTransform()
	geographic := isGeographicSRS(fdr.SRS())
	semiMajor := semiMajorAxis(fdr.SRS())
	pxW, pxH := transform.PixelWidth(), transform.PixelHeight()

	stepDistance := func(r, c int, dir byte) float64 {
		dr, dc := Offset(dir)
		if geographic {
			return haversine(r, c, r+dr, c+dc, transform, semiMajor)
		}
		return StepDistance(dir) * math.Sqrt((pxW*pxW+pxH*pxH)/2)
	}

	snapped := make([]DrainagePoint, len(points))
	copy(snapped, points)
	if p.SnapRadius > 0 && p.FAC != nil {
		for i, pt := range snapped {
			snapped[i].Row, snapped[i].Col = snapToMaxFAC(p.FAC, pt.Row, pt.Col, p.SnapRadius)
		}
	}

	dist := make([]float64, rows*cols)
	owner := make([]int64, rows*cols)
	for i := range dist {
		dist[i] = math.Inf(-1)
	}

	// Nested basins mean a cell can be reached by more than one drainage
	// point's search; the canonical owner is whichever search reports the
	// larger cumulative distance (the outer basin, whose drainage point lies
	// further downstream), so each
	// point's BFS runs to completion in turn and simply overwrites dist/owner
	// whenever it finds a longer path to a cell, rather than racing with
	// compare-and-set the way Basins does (there is no concurrency here to
	// race against).
	argmax := make(map[int64]struct {
		row, col int
		dist     float64
	}, len(snapped))

	for _, pt := range snapped {
		if pt.Row < 0 || pt.Row >= rows || pt.Col < 0 || pt.Col >= cols {
			continue
		}
		owner[idx(pt.Row, pt.Col)] = pt.ID
		dist[idx(pt.Row, pt.Col)] = 0
		best := struct {
			row, col int
			dist     float64
		}{pt.Row, pt.Col, 0}

		type cell struct{ row, col int }
		queue := []cell{{pt.Row, pt.Col}}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			curDist := dist[idx(cur.row, cur.col)]
			for n := 0; n < 8; n++ {
				dr, dc := Offset(byte(n))
				ur, uc := cur.row-dr, cur.col-dc
				if ur < 0 || ur >= rows || uc < 0 || uc >= cols {
					continue
				}
				dir := byte(fdrData[idx(ur, uc)])
				if !IsValidFlowDir(dir) || dir != byte(n) {
					continue
				}
				step := stepDistance(ur, uc, dir)
				candidate := curDist + step
				if candidate > dist[idx(ur, uc)] {
					dist[idx(ur, uc)] = candidate
					owner[idx(ur, uc)] = pt.ID
					queue = append(queue, cell{ur, uc})
					if candidate > best.dist {
						best = struct {
							row, col int
							dist     float64
						}{ur, uc, candidate}
					}
				}
			}
		}
		argmax[pt.ID] = best
	}
	p.Progress.Report("flow_length", "bfs", 1, 1, "", 1)

	values := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if owner[idx(r, c)] == 0 {
				values[idx(r, c)] = nodata
				continue
			}
			if math.IsInf(dist[idx(r, c)], -1) {
				values[idx(r, c)] = nodata
				continue
			}
			values[idx(r, c)] = dist[idx(r, c)]
		}
	}

	result := &FlowLengthResult{Values: values, Rows: rows, Columns: cols}
	for _, pt := range snapped {
		best, ok := argmax[pt.ID]
		if !ok {
			continue
		}
		result.LongestPath = append(result.LongestPath, LongestFlowPath{
			DrainagePointID: pt.ID,
			Length:          best.dist,
			Points:          traceDownstreamPath(best.row, best.col, fdrData, rows, cols, idx, transform),
		})
	}
	return result, nil
}

// traceDownstreamPath follows the D8 chain from (r0, c0) to its terminus,
// collecting world coordinates along the way, used to materialize the
// longest-flow-path polyline from its argmax-distance starting cell.
func traceDownstreamPath(r0, c0 int, fdr []float64, rows, cols int, idx func(int, int) int, transform raster.GeoTransform) []StreamPoint {
	x, y := transform.ToWorld(r0, c0)
	path := []StreamPoint{{X: x, Y: y}}
	r, c := r0, c0
	for {
		dir := byte(fdr[idx(r, c)])
		if !IsValidFlowDir(dir) {
			break
		}
		dr, dc := Offset(dir)
		nr, nc := r+dr, c+dc
		if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
			break
		}
		x, y := transform.ToWorld(nr, nc)
		path = append(path, StreamPoint{X: x, Y: y})
		r, c = nr, nc
	}
	return path
}

// haversine returns the great-circle distance in meters between two
// adjacent cell centers, using the CRS's semi-major axis as the sphere
// radius (a fixed-mean-radius approximation, not a full ellipsoidal
// geodesic solve).
func haversine(r1, c1, r2, c2 int, transform raster.GeoTransform, semiMajor float64) float64 {
	lon1, lat1 := transform.ToWorld(r1, c1)
	lon2, lat2 := transform.ToWorld(r2, c2)
	lat1R, lon1R := lat1*math.Pi/180, lon1*math.Pi/180
	lat2R, lon2R := lat2*math.Pi/180, lon2*math.Pi/180
	dLat := lat2R - lat1R
	dLon := lon2R - lon1R
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1R)*math.Cos(lat2R)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Asin(math.Sqrt(a))
	return semiMajor * c
}

// isGeographicSRS reports whether srs names a geographic (lat/lon) CRS
// rather than a projected one, recognizing the common PROJ-string and WKT
// spellings without pulling in a full SRS parser.
func isGeographicSRS(srs string) bool {
	lower := strings.ToLower(srs)
	if strings.Contains(lower, "+proj=longlat") {
		return true
	}
	return strings.Contains(lower, "geogcs") && !strings.Contains(lower, "projcs")
}

// semiMajorAxis extracts the +a= token from a PROJ string, if present,
// falling back to the WGS84 semi-major axis otherwise.
func semiMajorAxis(srs string) float64 {
	for _, tok := range strings.Fields(srs) {
		if strings.HasPrefix(tok, "+a=") {
			if v, err := strconv.ParseFloat(strings.TrimPrefix(tok, "+a="), 64); err == nil {
				return v
			}
		}
	}
	return wgs84SemiMajorAxis
}
