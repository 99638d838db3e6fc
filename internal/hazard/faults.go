package hazard

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const earthRadiusKm = 6371.0

// ErrNoFaultData reports that no fault geometry is available. It is distinct
// from "very far from any fault": the index never fabricates a distance.
var ErrNoFaultData = errors.New("no fault geometries loaded")

// ProximityLevel is the qualitative fault-proximity band.
type ProximityLevel string

const (
	LevelVeryHigh ProximityLevel = "Very High"
	LevelHigh     ProximityLevel = "High"
	LevelMedium   ProximityLevel = "Medium"
	LevelLow      ProximityLevel = "Low"
	LevelVeryLow  ProximityLevel = "Very Low"
)

// Proximity describes the nearest known fault for a query point.
type Proximity struct {
	DistanceKm float64
	Score      int
	Level      ProximityLevel
}

// faultLine is one polyline of fault geometry with its precomputed bounding
// box, used to skip lines that cannot improve on the current minimum.
type faultLine struct {
	points orb.LineString
	bound  orb.Bound
}

// FaultIndex answers nearest-fault distance queries against an immutable set
// of fault polylines loaded at startup.
type FaultIndex struct {
	lines []faultLine
}

// LoadFaults reads a GeoJSON FeatureCollection of LineString/MultiLineString
// fault geometries. A file with no usable geometry is an error so the caller
// can report unavailability instead of serving fabricated distances.
func LoadFaults(path string) (*FaultIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open faults: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode faults: %w", err)
	}

	var lines []faultLine
	for _, feature := range fc.Features {
		switch geometry := feature.Geometry.(type) {
		case orb.LineString:
			lines = appendFaultLine(lines, geometry)
		case orb.MultiLineString:
			for _, ls := range geometry {
				lines = appendFaultLine(lines, ls)
			}
		}
	}

	if len(lines) == 0 {
		return nil, ErrNoFaultData
	}
	return &FaultIndex{lines: lines}, nil
}

func appendFaultLine(lines []faultLine, ls orb.LineString) []faultLine {
	if len(ls) < 2 {
		return lines
	}
	return append(lines, faultLine{points: ls, bound: ls.Bound()})
}

// LineCount returns the number of loaded fault polylines.
func (idx *FaultIndex) LineCount() int {
	return len(idx.lines)
}

// Nearest computes the minimum distance from the query point to any loaded
// fault segment (the nearest point on the segment, not merely a vertex) and
// maps it to the fixed proximity score and level.
func (idx *FaultIndex) Nearest(lat, lon float64) Proximity {
	minKm := math.Inf(1)
	for _, line := range idx.lines {
		if boundLowerDistanceKm(line.bound, lat, lon) >= minKm {
			continue
		}
		for i := 0; i < len(line.points)-1; i++ {
			d := pointSegmentDistanceKm(lat, lon, line.points[i], line.points[i+1])
			if d < minKm {
				minKm = d
			}
		}
	}

	score := scoreForDistance(minKm)
	return Proximity{
		DistanceKm: minKm,
		Score:      score,
		Level:      levelForScore(score),
	}
}

// scoreForDistance maps distance to the bounded 0-100 proximity score. The
// breakpoints are authoritative constants.
func scoreForDistance(km float64) int {
	switch {
	case km <= 2:
		return 95
	case km <= 5:
		return 80
	case km <= 10:
		return 60
	case km <= 25:
		return 30
	default:
		return 10
	}
}

// levelForScore maps the score to its qualitative level. This is its own
// step function, independent of scoreForDistance; the two are never derived
// from one another by interpolation.
func levelForScore(score int) ProximityLevel {
	switch {
	case score >= 85:
		return LevelVeryHigh
	case score >= 70:
		return LevelHigh
	case score >= 45:
		return LevelMedium
	case score >= 20:
		return LevelLow
	default:
		return LevelVeryLow
	}
}

// pointSegmentDistanceKm returns the distance from (lat, lon) to the nearest
// point on the segment a-b. The projection happens in a local equirectangular
// plane centered on the query point, then the closest point is measured with
// the haversine formula. Points are (lon, lat).
func pointSegmentDistanceKm(lat, lon float64, a, b orb.Point) float64 {
	cosLat := math.Cos(radians(lat))

	ax := radians(a[0]-lon) * cosLat
	ay := radians(a[1] - lat)
	bx := radians(b[0]-lon) * cosLat
	by := radians(b[1] - lat)

	dx := bx - ax
	dy := by - ay

	t := 0.0
	if lenSq := dx*dx + dy*dy; lenSq > 0 {
		// Query point is the local origin; project it onto the segment.
		t = -(ax*dx + ay*dy) / lenSq
		t = math.Max(0, math.Min(1, t))
	}

	closestLon := a[0] + t*(b[0]-a[0])
	closestLat := a[1] + t*(b[1]-a[1])
	return haversineKm(lat, lon, closestLat, closestLon)
}

// boundLowerDistanceKm estimates the distance from the query point to the
// nearest point of the bound rectangle in the local equirectangular plane.
// Used only to skip lines that cannot beat the current minimum; at regional
// extents the estimate tracks the true distance closely enough that pruning
// does not change results.
func boundLowerDistanceKm(bound orb.Bound, lat, lon float64) float64 {
	clampedLon := math.Max(bound.Min[0], math.Min(bound.Max[0], lon))
	clampedLat := math.Max(bound.Min[1], math.Min(bound.Max[1], lat))

	x := radians(clampedLon-lon) * math.Cos(radians(lat))
	y := radians(clampedLat - lat)
	return math.Sqrt(x*x+y*y) * earthRadiusKm
}

// haversineKm is the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
