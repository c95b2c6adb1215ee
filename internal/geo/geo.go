// Package geo implements the spatial primitives used by the live route
// surfaces: haversine distance, venue proximity classification, and
// greedy marker clustering.
package geo

import "math"

// earthRadius is the mean Earth radius in meters.
const earthRadius = 6371000.0

// Point is a WGS84 coordinate pair. The zero value (0,0) is the
// "location unknown" sentinel, not a genuine position on the equator.
type Point struct {
	Lat float64
	Lng float64
}

// Known reports whether p carries a usable position. The (0,0) sentinel
// and non-finite components both mean unknown.
func (p Point) Known() bool {
	if p.Lat == 0 && p.Lng == 0 {
		return false
	}
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return false
	}
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return false
	}
	return true
}

// Distance returns the haversine distance between a and b in meters.
// ok is false when either point is unknown; callers must branch on it
// and never feed the zero distance into further math.
func Distance(a, b Point) (meters float64, ok bool) {
	if !a.Known() || !b.Known() {
		return 0, false
	}

	lat1 := a.Lat * math.Pi / 180
	lng1 := a.Lng * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	lng2 := b.Lng * math.Pi / 180

	sinLat := math.Sin((lat2 - lat1) / 2)
	sinLng := math.Sin((lng2 - lng1) / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	return 2 * earthRadius * math.Asin(math.Sqrt(h)), true
}
