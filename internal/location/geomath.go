package location

import "math"

// MetersPerDegreeLatitude is fixed; it does not adapt to the ellipsoid.
const MetersPerDegreeLatitude = 111320.0

// minLongitudeScale floors cos(lat) so longitude conversions stay finite near the poles.
const minLongitudeScale = 0.2

// GeoPoint is a WGS84 position in degrees.
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// NewGeoPoint builds a point from latitude and longitude.
func NewGeoPoint(lat, lon float64) GeoPoint {
	return GeoPoint{Latitude: lat, Longitude: lon}
}

// Valid reports whether p is finite and inside the WGS84 coordinate range.
func (p GeoPoint) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// ValidPoints returns points without the invalid ones, keeping order. The
// input is returned as-is when every point is valid.
func ValidPoints(points []GeoPoint) []GeoPoint {
	for i, p := range points {
		if p.Valid() {
			continue
		}
		out := make([]GeoPoint, i, len(points)-1)
		copy(out, points[:i])
		for _, q := range points[i+1:] {
			if q.Valid() {
				out = append(out, q)
			}
		}
		return out
	}
	return points
}

// MetersPerDegreeLongitude returns the length of one degree of longitude at lat.
func MetersPerDegreeLongitude(lat float64) float64 {
	return MetersPerDegreeLatitude * math.Max(minLongitudeScale, math.Cos(toRadians(lat)))
}

// MetersToLatitudeDegrees converts a north/south distance to degrees.
func MetersToLatitudeDegrees(meters float64) float64 {
	return meters / MetersPerDegreeLatitude
}

// MetersToLongitudeDegrees converts an east/west distance at lat to degrees.
func MetersToLongitudeDegrees(meters, lat float64) float64 {
	return meters / MetersPerDegreeLongitude(lat)
}

// Offset returns p moved north and east by the given distances in meters.
func Offset(p GeoPoint, northMeters, eastMeters float64) GeoPoint {
	return GeoPoint{
		Latitude:  p.Latitude + MetersToLatitudeDegrees(northMeters),
		Longitude: p.Longitude + MetersToLongitudeDegrees(eastMeters, p.Latitude),
	}
}

// Projector maps geographic points to screen pixels. Map views implement it.
type Projector interface {
	ToPixels(p GeoPoint) (x, y float64)
}

// ProjectorFunc adapts a function to Projector.
type ProjectorFunc func(p GeoPoint) (x, y float64)

func (f ProjectorFunc) ToPixels(p GeoPoint) (x, y float64) {
	return f(p)
}

// ProjectedRadius returns how many pixels a radius of meters spans at center,
// measured towards north.
func ProjectedRadius(proj Projector, center GeoPoint, meters float64) float64 {
	north := GeoPoint{
		Latitude:  center.Latitude + MetersToLatitudeDegrees(meters),
		Longitude: center.Longitude,
	}
	cx, cy := proj.ToPixels(center)
	nx, ny := proj.ToPixels(north)
	return math.Hypot(nx-cx, ny-cy)
}
