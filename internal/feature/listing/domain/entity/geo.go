package entity

import "math"

const earthRadiusMeters = 6378100.0

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// BoundingBox is a coarse lat/lng rectangle around a circle.
// WrapsLng is set when the longitude range cannot be expressed as a single interval.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	WrapsLng       bool
}

// BoundsAround returns a box that contains every point within radius meters of c.
func BoundsAround(c Coordinates, radius float64) BoundingBox {
	dLat := radius / earthRadiusMeters * 180 / math.Pi
	box := BoundingBox{
		MinLat: math.Max(-90, c.Lat-dLat),
		MaxLat: math.Min(90, c.Lat+dLat),
		MinLng: -180,
		MaxLng: 180,
	}

	cosLat := math.Cos(c.Lat * math.Pi / 180)
	if box.MinLat <= -90 || box.MaxLat >= 90 || cosLat < 1e-6 {
		box.WrapsLng = true
		return box
	}
	dLng := dLat / cosLat
	if c.Lng-dLng < -180 || c.Lng+dLng > 180 {
		box.WrapsLng = true
		return box
	}
	box.MinLng = c.Lng - dLng
	box.MaxLng = c.Lng + dLng
	return box
}
