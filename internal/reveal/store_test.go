package reveal

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askwhyharsh/fogofearth/internal/location"
	"github.com/askwhyharsh/fogofearth/internal/polyline"
	apperrors "github.com/askwhyharsh/fogofearth/pkg/errors"
)

func newTestStore(minDist float64, indexed bool) *Store {
	opts := DefaultOptions()
	opts.MinDistanceMeters = minDist
	opts.SpatialIndex = indexed
	return NewStore(opts, nil, nil)
}

func TestAddPrimaryIdenticalPointIsNoOp(t *testing.T) {
	for _, indexed := range []bool{false, true} {
		s := newTestStore(4.5, indexed)
		p := location.NewGeoPoint(52.52, 13.405)

		assert.True(t, s.AddPrimary(p))
		assert.False(t, s.AddPrimary(p))
		assert.Equal(t, 1, s.PrimaryLen())
	}
}

func TestAddPrimaryBoundaryDistanceIsAccepted(t *testing.T) {
	a := location.NewGeoPoint(52.52, 13.405)
	b := location.NewGeoPoint(52.5201, 13.405)
	d := location.Distance(a, b)

	for _, indexed := range []bool{false, true} {
		s := newTestStore(d, indexed)
		require.True(t, s.AddPrimary(a))
		assert.True(t, s.AddPrimary(b), "point exactly minDistance away must be accepted")
		assert.Equal(t, 2, s.PrimaryLen())
	}
}

func TestAddPrimaryRejectsCloserThanMinDistance(t *testing.T) {
	s := newTestStore(10, true)
	origin := location.NewGeoPoint(40.0, -3.7)

	require.True(t, s.AddPrimary(origin))
	assert.False(t, s.AddPrimary(location.Offset(origin, 5, 0)))
	assert.True(t, s.AddPrimary(location.Offset(origin, 20, 0)))
	assert.Equal(t, 2, s.PrimaryLen())
}

func TestIndexedAndLinearStoresAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	origin := location.NewGeoPoint(35.68, 139.69)

	linear := newTestStore(15, false)
	indexed := newTestStore(15, true)

	for i := 0; i < 3000; i++ {
		p := location.Offset(origin, rng.Float64()*600, rng.Float64()*600)
		assert.Equal(t, linear.AddPrimary(p), indexed.AddPrimary(p))
	}
	assert.Equal(t, linear.PrimaryPoints(), indexed.PrimaryPoints())
}

func TestHydratedClosePointsAreNotMerged(t *testing.T) {
	p := location.NewGeoPoint(1, 1)
	s := NewStore(DefaultOptions(), []location.GeoPoint{p, p}, nil)
	assert.Equal(t, 2, s.PrimaryLen())

	// Spacing still applies to new points.
	assert.False(t, s.AddPrimary(p))
}

func TestSetSharedReplacesWithoutFiltering(t *testing.T) {
	s := NewStore(DefaultOptions(), nil, []location.GeoPoint{{Latitude: 9, Longitude: 9}})

	p := location.NewGeoPoint(1, 1)
	s.SetShared([]location.GeoPoint{p, p, p})
	assert.Equal(t, []location.GeoPoint{p, p, p}, s.SharedPoints())

	s.SetShared(nil)
	assert.Equal(t, 0, s.SharedLen())
}

func TestOutOfRangePointsAreDropped(t *testing.T) {
	s := NewStore(DefaultOptions(), nil, nil)

	assert.False(t, s.AddPrimary(location.NewGeoPoint(1e10, 0)))
	assert.False(t, s.AddPrimary(location.NewGeoPoint(0, 181)))
	assert.True(t, s.AddPrimary(location.NewGeoPoint(90, 180)))

	s.SetShared([]location.GeoPoint{{Latitude: -91, Longitude: 0}, {Latitude: 2, Longitude: 2}})
	assert.Equal(t, []location.GeoPoint{{Latitude: 2, Longitude: 2}}, s.SharedPoints())

	_, err := polyline.Decode(s.ExportPrimaryEncoded())
	assert.NoError(t, err)
}

func TestSetSharedWithDedupe(t *testing.T) {
	opts := DefaultOptions()
	opts.DedupeShared = true
	s := NewStore(opts, nil, nil)

	p := location.NewGeoPoint(1, 1)
	far := location.Offset(p, 100, 0)
	s.SetShared([]location.GeoPoint{p, p, far, far})
	assert.Equal(t, []location.GeoPoint{p, far}, s.SharedPoints())
}

func TestExportImportEncoded(t *testing.T) {
	src := NewStore(DefaultOptions(), nil, nil)
	origin := location.NewGeoPoint(48.8566, 2.3522)
	for i := 0; i < 10; i++ {
		src.AddPrimary(location.Offset(origin, float64(i)*20, 0))
	}

	dst := NewStore(DefaultOptions(), nil, nil)
	require.NoError(t, dst.ImportSharedEncoded(src.ExportPrimaryEncoded()))
	require.Equal(t, src.PrimaryLen(), dst.SharedLen())

	for i, p := range src.PrimaryPoints() {
		want := polyline.Round(p)
		assert.InDelta(t, want.Latitude, dst.SharedPoints()[i].Latitude, 1e-5)
		assert.InDelta(t, want.Longitude, dst.SharedPoints()[i].Longitude, 1e-5)
	}
}

func TestImportSharedEncodedIsAtomic(t *testing.T) {
	existing := []location.GeoPoint{{Latitude: 5, Longitude: 5}}
	s := NewStore(DefaultOptions(), nil, existing)

	err := s.ImportSharedEncoded("_p~iF~ps|U_")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMalformedPolyline))
	assert.Equal(t, existing, s.SharedPoints())
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := NewStore(DefaultOptions(), []location.GeoPoint{{Latitude: 1, Longitude: 2}}, nil)

	layer := s.Primary()
	layer.Points[0].Latitude = 99
	assert.Equal(t, 1.0, s.PrimaryPoints()[0].Latitude)

	assert.Equal(t, LayerPrimary, layer.LayerID)
	assert.Equal(t, DefaultPrimaryRadiusMeters, layer.RadiusMeters)
	assert.Equal(t, LayerShared, s.Shared().LayerID)
	assert.Equal(t, DefaultSharedRadiusMeters, s.Shared().RadiusMeters)
}

func TestClear(t *testing.T) {
	s := NewStore(DefaultOptions(), []location.GeoPoint{{Latitude: 1, Longitude: 2}}, []location.GeoPoint{{Latitude: 3, Longitude: 4}})
	s.Clear()
	assert.Equal(t, 0, s.PrimaryLen())
	assert.Equal(t, 0, s.SharedLen())
	assert.True(t, s.AddPrimary(location.NewGeoPoint(1, 2)))
}
