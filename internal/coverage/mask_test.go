package coverage

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askwhyharsh/fogofearth/internal/location"
	"github.com/askwhyharsh/fogofearth/internal/reveal"
)

func testLayers() (reveal.Layer, reveal.Layer) {
	origin := location.NewGeoPoint(51.0, 0.0)
	primary := reveal.Layer{
		LayerID:      reveal.LayerPrimary,
		RadiusMeters: 50,
		Points:       []location.GeoPoint{location.Offset(origin, 0, 2000)},
	}
	shared := reveal.Layer{
		LayerID:      reveal.LayerShared,
		RadiusMeters: 500,
		Points:       []location.GeoPoint{origin, location.Offset(origin, 0, 300)},
	}
	return primary, shared
}

func TestBuildMaskCircles(t *testing.T) {
	primary, shared := testLayers()
	m := BuildMask(primary, shared, DefaultMaskStyle())

	require.Len(t, m.Shared, 2)
	require.Len(t, m.Primary, 1)
	assert.Equal(t, 500.0, m.Shared[0].RadiusMeters)
	assert.Equal(t, 50.0, m.Primary[0].RadiusMeters)
	assert.Equal(t, DefaultFogAlpha, m.FogAlpha)
	assert.Equal(t, DefaultSharedClearAlpha, m.SharedClearAlpha)
}

func TestAlphaAtAppliesSharedUnionOnce(t *testing.T) {
	primary, shared := testLayers()
	m := BuildMask(primary, shared, DefaultMaskStyle())

	origin := shared.Points[0]
	single := location.Offset(origin, 0, -400) // only the first shared circle
	overlap := location.Offset(origin, 0, 150) // inside both shared circles
	outside := location.Offset(origin, 5000, 0)

	want := DefaultFogAlpha - DefaultSharedClearAlpha
	assert.Equal(t, want, m.AlphaAt(single))
	assert.Equal(t, want, m.AlphaAt(overlap), "overlapping shared circles must not stack")
	assert.Equal(t, DefaultFogAlpha, m.AlphaAt(outside))
}

func TestAlphaAtPrimaryClearsFully(t *testing.T) {
	primary, shared := testLayers()
	// Put the primary circle inside the shared union as well.
	primary.Points = append(primary.Points, shared.Points[0])
	m := BuildMask(primary, shared, DefaultMaskStyle())

	assert.Equal(t, uint8(0), m.AlphaAt(shared.Points[0]))
	assert.Equal(t, uint8(0), m.AlphaAt(primary.Points[0]))
}

func TestAlphaAtSharedClearAboveFog(t *testing.T) {
	_, shared := testLayers()
	m := BuildMask(reveal.Layer{}, shared, MaskStyle{FogAlpha: 100, SharedClearAlpha: 200})
	assert.Equal(t, uint8(0), m.AlphaAt(shared.Points[0]))
}

func TestPassesOrder(t *testing.T) {
	primary, shared := testLayers()
	passes := BuildMask(primary, shared, DefaultMaskStyle()).Passes()

	require.Len(t, passes, 2)
	assert.Equal(t, OpUnionErase, passes[0].Op)
	assert.Equal(t, reveal.LayerShared, passes[0].Layer)
	assert.Equal(t, DefaultSharedClearAlpha, passes[0].EraseAlpha)
	assert.Equal(t, OpClear, passes[1].Op)
	assert.Equal(t, reveal.LayerPrimary, passes[1].Layer)
}

func TestCull(t *testing.T) {
	primary, shared := testLayers()
	m := BuildMask(primary, shared, DefaultMaskStyle())

	origin := shared.Points[0]
	view := orb.Bound{
		Min: orb.Point{origin.Longitude - 0.001, origin.Latitude - 0.001},
		Max: orb.Point{origin.Longitude + 0.001, origin.Latitude + 0.001},
	}
	culled := m.Cull(view)
	assert.Len(t, culled.Shared, 2)
	assert.Len(t, culled.Primary, 0)
}

func TestGeoJSON(t *testing.T) {
	primary, shared := testLayers()
	m := BuildMask(primary, shared, DefaultMaskStyle())

	fc := m.GeoJSON(0)
	require.Len(t, fc.Features, 3)
	assert.Equal(t, reveal.LayerShared, fc.Features[0].Properties["layer"])
	assert.Equal(t, "Point", fc.Features[0].Geometry.GeoJSONType())
	assert.Equal(t, reveal.LayerPrimary, fc.Features[2].Properties["layer"])

	poly := m.GeoJSON(32)
	assert.Equal(t, "Polygon", poly.Features[0].Geometry.GeoJSONType())
	ring := poly.Features[0].Geometry.(orb.Polygon)[0]
	assert.Len(t, ring, 33)
	assert.Equal(t, ring[0], ring[len(ring)-1])

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)
}
