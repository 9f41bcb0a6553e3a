// Copyright 2015 the GoSpatial Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// licence that can be found in the LICENCE.txt file.

// Package raster defines the raster abstraction the hydrology core consumes.
// Concrete file-format codecs (GeoTIFF, ArcGIS binary, Idrisi, ...) are a
// deliberately out-of-scope external collaborator; this package keeps the
// interface boundary plus two reference implementations: MemRaster (in
// memory, used by tests and small jobs) and FileRaster (file.go, a plain-text
// header plus a raw float64 data file, used by the pipeline entry points).
// Every value, regardless of the
// raster's nominal on-disk data type, is carried as float64.
package raster

import "errors"

// GeoTransform is the six-coefficient affine transform from (row, col) to
// world coordinates, in the usual GDAL convention:
// [origin_x, px_w, rot, origin_y, rot, -px_h].
type GeoTransform [6]float64

// ToWorld converts a (row, col) cell-center coordinate to world (x, y).
func (t GeoTransform) ToWorld(row, col int) (x, y float64) {
	fc := float64(col) + 0.5
	fr := float64(row) + 0.5
	x = t[0] + fc*t[1] + fr*t[2]
	y = t[3] + fc*t[4] + fr*t[5]
	return x, y
}

// ToCell inverts ToWorld for the axis-aligned, no-rotation case this engine
// targets (t[2] == t[4] == 0): it returns the row/column of the cell
// containing world point (x, y).
func (t GeoTransform) ToCell(x, y float64) (row, col int) {
	col = int((x - t[0]) / t[1])
	row = int((y - t[3]) / t[5])
	return row, col
}

// PixelWidth and PixelHeight return the absolute cell dimensions implied by
// the transform, for the common axis-aligned, no-rotation case this engine
// targets.
func (t GeoTransform) PixelWidth() float64  { return absf(t[1]) }
func (t GeoTransform) PixelHeight() float64 { return absf(t[5]) }

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// ErrOutOfRange is returned by block I/O when a write rectangle falls
// (even partially) outside the raster's bounds.
var ErrOutOfRange = errors.New("raster: block is out of range")

// ErrDimensionMismatch is returned when two rasters expected to share a
// shape (e.g. an FDR and its companion FAC) do not.
var ErrDimensionMismatch = errors.New("raster: input rasters must be of the same dimensions")

// Tiled is the external raster collaborator: something that can be asked
// for an arbitrary, possibly out-of-bounds, rectangular block of cells
// (nodata-padded at the true raster edges) and can accept writes to
// in-bounds rectangles. Everything the hydrology core needs from file I/O,
// and nothing more, lives on this interface; a production deployment wires
// its own GeoTIFF/cloud-native-raster-backed implementation.
type Tiled interface {
	Rows() int
	Columns() int
	NoData() float64
	GeoTransform() GeoTransform
	SRS() string

	// ReadBlock fills dst (len == rows*cols, row-major) with the values of
	// the rows x cols rectangle whose top-left corner is (rowOff, colOff)
	// in raster space. rowOff/colOff may be negative and rowOff+rows /
	// colOff+cols may exceed the raster size; cells outside [0,Rows())x
	// [0,Columns()) are filled with NoData(). This is what gives tiles
	// their halo without every kernel special-casing raster edges.
	ReadBlock(rowOff, colOff, rows, cols int, dst []float64) error

	// WriteBlock writes src (len == rows*cols, row-major) into the
	// rows x cols rectangle at (rowOff, colOff), which must lie entirely
	// within the raster.
	WriteBlock(rowOff, colOff, rows, cols int, src []float64) error
}

// Writer is implemented by Tiled backends that also need to persist
// metadata once a stage completes (CRS, geo-transform, free-text notes).
// Kept separate from Tiled so read-only sources don't need to implement it.
type Writer interface {
	Tiled
	SetGeoTransform(GeoTransform)
	SetSRS(string)
	AddMetadataEntry(string)
	Save() error
}
