package location

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetersPerDegreeLongitude(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		want float64
	}{
		{"Equator", 0, MetersPerDegreeLatitude},
		{"Sixty North", 60, MetersPerDegreeLatitude * 0.5},
		{"Floor Near Pole", 89.9, MetersPerDegreeLatitude * 0.2},
		{"Floor At South Pole", -90, MetersPerDegreeLatitude * 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MetersPerDegreeLongitude(tt.lat), 1e-6)
		})
	}
}

func TestDegreeConversionsRoundTrip(t *testing.T) {
	assert.InDelta(t, 1.0, MetersToLatitudeDegrees(MetersPerDegreeLatitude), 1e-12)
	assert.InDelta(t, 1.0, MetersToLongitudeDegrees(MetersPerDegreeLongitude(45), 45), 1e-12)
}

func TestOffsetMatchesDistance(t *testing.T) {
	origin := NewGeoPoint(51.5, -0.12)

	north := Offset(origin, 100, 0)
	assert.InDelta(t, 100, Distance(origin, north), 0.5)

	east := Offset(origin, 0, 100)
	assert.InDelta(t, 100, Distance(origin, east), 0.5)
}

func TestHaversineDistance(t *testing.T) {
	assert.Equal(t, 0.0, HaversineDistance(10, 10, 10, 10))

	// One degree of latitude on a 6371 km sphere.
	assert.InDelta(t, 111194.9, HaversineDistance(0, 0, 1, 0), 0.1)

	// Symmetric.
	a := HaversineDistance(48.85, 2.35, 48.86, 2.36)
	b := HaversineDistance(48.86, 2.36, 48.85, 2.35)
	assert.InDelta(t, a, b, 1e-9)
}

func TestPathLength(t *testing.T) {
	assert.Equal(t, 0.0, PathLength(nil))
	assert.Equal(t, 0.0, PathLength([]GeoPoint{{Latitude: 1, Longitude: 1}}))

	p := []GeoPoint{{0, 0}, {1, 0}, {2, 0}}
	assert.InDelta(t, 2*111194.9, PathLength(p), 0.5)
}

func TestProjectedRadius(t *testing.T) {
	// 1 pixel per meter northwards, y grows downwards like a screen.
	proj := ProjectorFunc(func(p GeoPoint) (float64, float64) {
		return p.Longitude * MetersPerDegreeLatitude, -p.Latitude * MetersPerDegreeLatitude
	})

	r := ProjectedRadius(proj, NewGeoPoint(12, 34), 50)
	assert.InDelta(t, 50, r, 1e-6)
	assert.False(t, math.IsNaN(r))
}

func TestGeoPointValid(t *testing.T) {
	tests := []struct {
		name string
		p    GeoPoint
		want bool
	}{
		{"origin", GeoPoint{}, true},
		{"corners", GeoPoint{Latitude: -90, Longitude: 180}, true},
		{"lat too high", GeoPoint{Latitude: 90.01}, false},
		{"lon too low", GeoPoint{Longitude: -180.5}, false},
		{"huge", GeoPoint{Latitude: 1e10}, false},
		{"nan", GeoPoint{Latitude: math.NaN()}, false},
		{"inf", GeoPoint{Longitude: math.Inf(1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Valid())
		})
	}
}

func TestValidPoints(t *testing.T) {
	good := []GeoPoint{{Latitude: 1, Longitude: 1}, {Latitude: 2, Longitude: 2}}
	assert.Equal(t, good, ValidPoints(good))

	mixed := []GeoPoint{good[0], {Latitude: 100}, good[1], {Longitude: math.NaN()}}
	assert.Equal(t, good, ValidPoints(mixed))
	assert.Empty(t, ValidPoints([]GeoPoint{{Latitude: 100}}))
}
