package model

import "math"

const earthRadiusKm = 6371.0

// GeoPoint is a WGS84 coordinate
type GeoPoint struct {
	Lat float64
	Lng float64
}

// DistanceKm returns the great-circle distance between two points.
// ok is false when either point is unknown.
func DistanceKm(a, b *GeoPoint) (km float64, ok bool) {
	if a == nil || b == nil {
		return 0, false
	}

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h))), true
}
