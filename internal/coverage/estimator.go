// Package coverage derives progress and rendering data from revealed layers.
package coverage

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/askwhyharsh/fogofearth/internal/location"
)

const (
	paddingMeters  = 200.0
	targetCells    = 20000.0
	minStepMeters  = 50.0
	maxStepMeters  = 250.0
	stepSlackRatio = 0.8
)

// Estimate describes one grid sample run.
type Estimate struct {
	Uncovered    float64
	StepMeters   float64
	TotalCells   int
	CoveredCells int
	Bound        orb.Bound
}

// EstimateUncovered returns the approximate fraction of the area around
// points that is still unrevealed.
func EstimateUncovered(points []location.GeoPoint, radiusMeters float64) float64 {
	return Sample(points, radiusMeters).Uncovered
}

// Sample runs the deterministic grid estimate. The sampling box spans all
// points plus padding, so a new outlying point can move the result even when
// nothing new was revealed near existing points.
func Sample(points []location.GeoPoint, radiusMeters float64) Estimate {
	if len(points) == 0 {
		return Estimate{Uncovered: 1.0}
	}

	bound := paddedBound(points)
	meanLat := bound.Center().Lat()

	mLat := location.MetersPerDegreeLatitude
	mLon := location.MetersPerDegreeLongitude(meanLat)

	widthM := (bound.Max.Lon() - bound.Min.Lon()) * mLon
	heightM := (bound.Max.Lat() - bound.Min.Lat()) * mLat
	step := clamp(math.Sqrt(widthM*heightM/targetCells), minStepMeters, maxStepMeters)

	stepLat := step / mLat
	stepLon := step / mLon
	reach := radiusMeters + stepSlackRatio*step

	// Points sorted into latitude rows keep the inner scan short.
	rows := bucketByRow(points, bound.Min.Lat(), stepLat)
	rowReach := int(math.Ceil(location.MetersToLatitudeDegrees(reach)/stepLat)) + 1

	est := Estimate{StepMeters: step, Bound: bound}
	for row, lat := 0, bound.Min.Lat()+stepLat/2; lat < bound.Max.Lat(); row, lat = row+1, lat+stepLat {
		for lon := bound.Min.Lon() + stepLon/2; lon < bound.Max.Lon(); lon += stepLon {
			est.TotalCells++
			cell := location.GeoPoint{Latitude: lat, Longitude: lon}
			if covered(cell, rows, row, rowReach, reach) {
				est.CoveredCells++
			}
		}
	}

	if est.TotalCells == 0 {
		est.Uncovered = 1.0
		return est
	}
	est.Uncovered = clamp(1-float64(est.CoveredCells)/float64(est.TotalCells), 0, 1)
	return est
}

func paddedBound(points []location.GeoPoint) orb.Bound {
	first := orb.Point{points[0].Longitude, points[0].Latitude}
	bound := first.Bound()
	for _, p := range points[1:] {
		bound = bound.Extend(orb.Point{p.Longitude, p.Latitude})
	}

	meanLat := bound.Center().Lat()
	padLat := location.MetersToLatitudeDegrees(paddingMeters)
	padLon := location.MetersToLongitudeDegrees(paddingMeters, meanLat)

	return orb.Bound{
		Min: orb.Point{bound.Min.Lon() - padLon, bound.Min.Lat() - padLat},
		Max: orb.Point{bound.Max.Lon() + padLon, bound.Max.Lat() + padLat},
	}
}

func bucketByRow(points []location.GeoPoint, minLat, stepLat float64) map[int][]location.GeoPoint {
	rows := make(map[int][]location.GeoPoint)
	for _, p := range points {
		r := int(math.Floor((p.Latitude - minLat) / stepLat))
		rows[r] = append(rows[r], p)
	}
	return rows
}

func covered(cell location.GeoPoint, rows map[int][]location.GeoPoint, row, rowReach int, reach float64) bool {
	for r := row - rowReach; r <= row+rowReach; r++ {
		for _, p := range rows[r] {
			if location.Distance(cell, p) <= reach {
				return true
			}
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
