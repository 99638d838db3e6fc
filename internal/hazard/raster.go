// Package hazard answers point-geospatial queries against static geophysical
// datasets: Vs30 soil stiffness from a gridded raster, distance to the
// nearest known fault from vector geometries, and fixed regional risk-zone
// profiles. All datasets are loaded once at startup and never mutated, so
// concurrent reads need no locking.
package hazard

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// SoilClass is a categorical Vs30 stiffness band, from hard rock (A) to very
// soft soil (E).
type SoilClass string

const (
	SoilClassA SoilClass = "A"
	SoilClassB SoilClass = "B"
	SoilClassC SoilClass = "C"
	SoilClassD SoilClass = "D"
	SoilClassE SoilClass = "E"
)

// ClassifyVs30 buckets a Vs30 value (m/s) into its soil class. Boundaries are
// inclusive on the lower bound of each bin. The thresholds are authoritative
// constants, not tunables.
func ClassifyVs30(value float64) SoilClass {
	switch {
	case value >= 1500:
		return SoilClassA
	case value >= 760:
		return SoilClassB
	case value >= 360:
		return SoilClassC
	case value >= 180:
		return SoilClassD
	default:
		return SoilClassE
	}
}

// RasterIndex is an immutable gridded Vs30 dataset with its affine
// georeferencing. Index layout is row-major with row 0 at the northern edge.
type RasterIndex struct {
	// geoTransform holds the six GDAL-style affine coefficients:
	// originX, pixelWidth, rotationX, originY, rotationY, pixelHeight.
	geoTransform [6]float64
	band         []float64
	width        int
	height       int
	noData       *float64
}

// LoadRaster reads an ESRI ASCII grid from path. The grid header supplies a
// north-up geotransform; cell values follow row-major, northernmost row
// first.
func LoadRaster(path string) (*RasterIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raster: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	header := map[string]float64{}
	var values []float64

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		// Header rows are "<key> <value>" pairs; the first row starting with
		// a number begins the data block.
		if len(fields) == 2 && !isNumeric(fields[0]) {
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("raster header %s: %w", fields[0], err)
			}
			header[strings.ToLower(fields[0])] = v
			continue
		}

		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("raster cell value %q: %w", field, err)
			}
			values = append(values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read raster: %w", err)
	}

	return buildRaster(header, values)
}

func buildRaster(header map[string]float64, values []float64) (*RasterIndex, error) {
	ncols, okC := header["ncols"]
	nrows, okR := header["nrows"]
	cellsize, okS := header["cellsize"]
	if !okC || !okR || !okS || ncols < 1 || nrows < 1 || cellsize <= 0 {
		return nil, fmt.Errorf("raster header incomplete: ncols/nrows/cellsize required")
	}

	width := int(ncols)
	height := int(nrows)
	if len(values) != width*height {
		return nil, fmt.Errorf("raster has %d values, expected %d", len(values), width*height)
	}

	// The lower-left anchor may reference the corner or the cell center.
	originX, okX := header["xllcorner"]
	originY, okY := header["yllcorner"]
	if !okX || !okY {
		centerX, okCX := header["xllcenter"]
		centerY, okCY := header["yllcenter"]
		if !okCX || !okCY {
			return nil, fmt.Errorf("raster header missing xllcorner/yllcorner")
		}
		originX = centerX - cellsize/2
		originY = centerY - cellsize/2
	}

	var noData *float64
	if v, ok := header["nodata_value"]; ok {
		noData = &v
	}

	return &RasterIndex{
		geoTransform: [6]float64{
			originX, cellsize, 0,
			originY + nrows*cellsize, 0, -cellsize,
		},
		band:   values,
		width:  width,
		height: height,
		noData: noData,
	}, nil
}

// Lookup samples the raster at a geographic coordinate. Both return values
// are nil when the point has no coverage: outside the grid extent, on a
// no-data cell, or when the geotransform cannot be inverted. No-coverage is
// never an error.
func (r *RasterIndex) Lookup(lat, lon float64) (*float64, *SoilClass) {
	x, y, ok := r.pixelAt(lat, lon)
	if !ok {
		return nil, nil
	}

	value := r.band[y*r.width+x]
	if math.IsNaN(value) {
		return nil, nil
	}
	if r.noData != nil && value == *r.noData {
		return nil, nil
	}

	vs30 := math.Round(value*100) / 100
	class := ClassifyVs30(vs30)
	return &vs30, &class
}

// Size returns the grid dimensions.
func (r *RasterIndex) Size() (width, height int) {
	return r.width, r.height
}

// pixelAt inverts the affine geotransform to map (lon, lat) to integer pixel
// indices. A zero determinant means the dataset is unusable; out-of-extent
// coordinates report no coverage.
func (r *RasterIndex) pixelAt(lat, lon float64) (x, y int, ok bool) {
	originX, pixelWidth, rotationX := r.geoTransform[0], r.geoTransform[1], r.geoTransform[2]
	originY, rotationY, pixelHeight := r.geoTransform[3], r.geoTransform[4], r.geoTransform[5]

	denominator := pixelWidth*pixelHeight - rotationX*rotationY
	if denominator == 0 {
		return 0, 0, false
	}

	relX := lon - originX
	relY := lat - originY

	pixelX := (pixelHeight*relX - rotationX*relY) / denominator
	pixelY := (-rotationY*relX + pixelWidth*relY) / denominator

	if math.IsNaN(pixelX) || math.IsNaN(pixelY) {
		return 0, 0, false
	}

	x = int(math.Floor(pixelX))
	y = int(math.Floor(pixelY))
	if x < 0 || y < 0 || x >= r.width || y >= r.height {
		return 0, 0, false
	}
	return x, y, true
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
