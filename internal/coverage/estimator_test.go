package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askwhyharsh/fogofearth/internal/location"
)

func TestEstimateUncoveredEmptyIsExactlyOne(t *testing.T) {
	assert.Equal(t, 1.0, EstimateUncovered(nil, 100))
	assert.Equal(t, 1.0, EstimateUncovered([]location.GeoPoint{}, 100))
}

func TestEstimateUncoveredSinglePoint(t *testing.T) {
	p := location.NewGeoPoint(45.0, 7.0)
	est := Sample([]location.GeoPoint{p}, 100)

	// A single point gives a 400 m padded box, below the minimum step cell budget.
	assert.Equal(t, minStepMeters, est.StepMeters)
	assert.Greater(t, est.TotalCells, 0)
	assert.Greater(t, est.CoveredCells, 0)
	assert.Less(t, est.CoveredCells, est.TotalCells)
	assert.Greater(t, est.Uncovered, 0.0)
	assert.Less(t, est.Uncovered, 1.0)
}

func TestEstimateUncoveredIsDeterministic(t *testing.T) {
	origin := location.NewGeoPoint(-33.86, 151.2)
	var points []location.GeoPoint
	for i := 0; i < 50; i++ {
		points = append(points, location.Offset(origin, float64(i)*30, float64(i%7)*40))
	}

	a := EstimateUncovered(points, 100)
	b := EstimateUncovered(points, 100)
	assert.Equal(t, a, b)
}

func TestEstimateUncoveredDropsWithLargerRadius(t *testing.T) {
	origin := location.NewGeoPoint(10, 10)
	points := []location.GeoPoint{origin, location.Offset(origin, 500, 500)}

	small := EstimateUncovered(points, 20)
	large := EstimateUncovered(points, 400)
	assert.Greater(t, small, large)
}

func TestEstimateUncoveredStaysInRange(t *testing.T) {
	origin := location.NewGeoPoint(0, 0)
	// Radius large enough to cover the whole padded box.
	v := EstimateUncovered([]location.GeoPoint{origin}, 5000)
	assert.Equal(t, 0.0, v)
}

func TestSampleStepIsClampedForLargeBoxes(t *testing.T) {
	a := location.NewGeoPoint(50, 0)
	b := location.Offset(a, 100000, 100000)
	est := Sample([]location.GeoPoint{a, b}, 100)

	assert.Equal(t, maxStepMeters, est.StepMeters)
	assert.Greater(t, est.Uncovered, 0.9)
}

func TestSampleBoundIncludesPadding(t *testing.T) {
	p := location.NewGeoPoint(60, 10)
	est := Sample([]location.GeoPoint{p}, 10)

	padLat := location.MetersToLatitudeDegrees(paddingMeters)
	assert.InDelta(t, p.Latitude-padLat, est.Bound.Min.Lat(), 1e-12)
	assert.InDelta(t, p.Latitude+padLat, est.Bound.Max.Lat(), 1e-12)
}
