// FileRaster is a small self-contained on-disk raster codec: a plain-text
// header file (one "key: value" pair per line) next to a flat binary data
// file of little-endian float64 values, row-major. It exists to let
// cmd/hydroflow run the pipeline against real files without pulling in a
// full multi-codec raster library — spec.md §1 marks raster file I/O as an
// external collaborator, and this is a reference binding, not the
// production I/O layer: a deployment is free to swap in its own Tiled
// implementation (GeoTIFF, a cloud-native raster store, ...) behind the
// same two functions.
package raster

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

const (
	hydroRasterHeaderExt = ".hfhdr"
	hydroRasterDataExt   = ".hfdat"
)

// ErrMalformedHeader is returned when a .hfhdr file is missing a required
// field or carries a value that won't parse.
var ErrMalformedHeader = errors.New("raster: malformed header file")

// FileRaster is a Tiled/Writer backed by one header file plus one data
// file on disk, both loaded fully into memory on open — the same
// load-everything-then-serve-blocks model the teacher's Whitebox (.dep/
// .tas) codec uses.
type FileRaster struct {
	headerPath string
	dataPath   string

	rows, columns int
	nodata        float64
	transform     GeoTransform
	srs           string
	metadata      []string

	data []float64
}

// headerPaths derives the (header, data) file pair from path: path may
// name either file directly (by its extension) or carry no recognized
// extension at all, in which case it's treated as the shared basename.
func headerPaths(path string) (header, data string) {
	switch {
	case strings.HasSuffix(path, hydroRasterHeaderExt):
		base := strings.TrimSuffix(path, hydroRasterHeaderExt)
		return base + hydroRasterHeaderExt, base + hydroRasterDataExt
	case strings.HasSuffix(path, hydroRasterDataExt):
		base := strings.TrimSuffix(path, hydroRasterDataExt)
		return base + hydroRasterHeaderExt, base + hydroRasterDataExt
	default:
		return path + hydroRasterHeaderExt, path + hydroRasterDataExt
	}
}

// OpenFileRaster opens an existing raster file pair, reading the header
// and the full data file into memory.
func OpenFileRaster(path string) (*FileRaster, error) {
	headerPath, dataPath := headerPaths(path)

	f := &FileRaster{headerPath: headerPath, dataPath: dataPath}
	if err := f.readHeader(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, err
	}
	n := f.rows * f.columns
	if len(raw) != n*8 {
		return nil, fmt.Errorf("raster: data file %s has %d bytes, want %d", dataPath, len(raw), n*8)
	}
	f.data = make([]float64, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint64(raw[i*8 : i*8+8])
		f.data[i] = math.Float64frombits(bits)
	}
	return f, nil
}

// CreateFileRaster creates a new raster file pair of rows x cols cells,
// every cell initialized to nodata.
func CreateFileRaster(path string, rows, cols int, transform GeoTransform, nodata float64, srs string) (*FileRaster, error) {
	headerPath, dataPath := headerPaths(path)
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = nodata
	}
	return &FileRaster{
		headerPath: headerPath,
		dataPath:   dataPath,
		rows:       rows,
		columns:    cols,
		nodata:     nodata,
		transform:  transform,
		srs:        srs,
		data:       data,
	}, nil
}

func (f *FileRaster) Rows() int                     { return f.rows }
func (f *FileRaster) Columns() int                  { return f.columns }
func (f *FileRaster) NoData() float64               { return f.nodata }
func (f *FileRaster) SRS() string                   { return f.srs }
func (f *FileRaster) GeoTransform() GeoTransform     { return f.transform }
func (f *FileRaster) SetGeoTransform(t GeoTransform) { f.transform = t }
func (f *FileRaster) SetSRS(s string)                { f.srs = s }
func (f *FileRaster) AddMetadataEntry(s string)      { f.metadata = append(f.metadata, s) }

func (f *FileRaster) ReadBlock(rowOff, colOff, rows, cols int, dst []float64) error {
	if len(dst) != rows*cols {
		return ErrDimensionMismatch
	}
	for r := 0; r < rows; r++ {
		srcRow := rowOff + r
		for c := 0; c < cols; c++ {
			srcCol := colOff + c
			if srcRow < 0 || srcRow >= f.rows || srcCol < 0 || srcCol >= f.columns {
				dst[r*cols+c] = f.nodata
				continue
			}
			dst[r*cols+c] = f.data[srcRow*f.columns+srcCol]
		}
	}
	return nil
}

func (f *FileRaster) WriteBlock(rowOff, colOff, rows, cols int, src []float64) error {
	if len(src) != rows*cols {
		return ErrDimensionMismatch
	}
	if rowOff < 0 || colOff < 0 || rowOff+rows > f.rows || colOff+cols > f.columns {
		return ErrOutOfRange
	}
	for r := 0; r < rows; r++ {
		destRow := rowOff + r
		copy(f.data[destRow*f.columns+colOff:destRow*f.columns+colOff+cols], src[r*cols:(r+1)*cols])
	}
	return nil
}

// Save flushes both the header and the data file to disk.
func (f *FileRaster) Save() error {
	if err := f.writeHeader(); err != nil {
		return err
	}
	return f.writeData()
}

func (f *FileRaster) writeHeader() error {
	file, err := os.Create(f.headerPath)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	fmt.Fprintf(w, "rows: %d\n", f.rows)
	fmt.Fprintf(w, "columns: %d\n", f.columns)
	fmt.Fprintf(w, "nodata: %s\n", strconv.FormatFloat(f.nodata, 'g', -1, 64))
	fmt.Fprintf(w, "srs: %s\n", f.srs)
	for i, v := range f.transform {
		fmt.Fprintf(w, "transform%d: %s\n", i, strconv.FormatFloat(v, 'g', -1, 64))
	}
	for _, m := range f.metadata {
		fmt.Fprintf(w, "metadata: %s\n", m)
	}
	return w.Flush()
}

func (f *FileRaster) writeData() error {
	file, err := os.Create(f.dataPath)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	var buf [8]byte
	for _, v := range f.data {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (f *FileRaster) readHeader() error {
	file, err := os.Open(f.headerPath)
	if err != nil {
		return err
	}
	defer file.Close()

	haveRows, haveCols := false, false
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return ErrMalformedHeader
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch {
		case key == "rows":
			n, err := strconv.Atoi(value)
			if err != nil {
				return ErrMalformedHeader
			}
			f.rows, haveRows = n, true
		case key == "columns":
			n, err := strconv.Atoi(value)
			if err != nil {
				return ErrMalformedHeader
			}
			f.columns, haveCols = n, true
		case key == "nodata":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return ErrMalformedHeader
			}
			f.nodata = v
		case key == "srs":
			f.srs = value
		case key == "metadata":
			f.metadata = append(f.metadata, value)
		case strings.HasPrefix(key, "transform"):
			idx, err := strconv.Atoi(strings.TrimPrefix(key, "transform"))
			if err != nil || idx < 0 || idx > 5 {
				return ErrMalformedHeader
			}
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return ErrMalformedHeader
			}
			f.transform[idx] = v
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if !haveRows || !haveCols {
		return ErrMalformedHeader
	}
	return nil
}
