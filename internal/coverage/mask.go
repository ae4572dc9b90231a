package coverage

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/askwhyharsh/fogofearth/internal/location"
	"github.com/askwhyharsh/fogofearth/internal/reveal"
)

const (
	DefaultFogAlpha         uint8 = 255
	DefaultSharedClearAlpha uint8 = 170
)

// Pass operations, applied in order.
const (
	OpUnionErase = "union_erase"
	OpClear      = "clear"
)

// MaskStyle sets fog opacity and how much of it the shared union removes.
type MaskStyle struct {
	FogAlpha         uint8 `json:"fogAlpha" yaml:"fogAlpha"`
	SharedClearAlpha uint8 `json:"sharedClearAlpha" yaml:"sharedClearAlpha"`
}

// DefaultMaskStyle is a solid fog with a partial reveal for shared areas.
func DefaultMaskStyle() MaskStyle {
	return MaskStyle{FogAlpha: DefaultFogAlpha, SharedClearAlpha: DefaultSharedClearAlpha}
}

type Circle struct {
	Center       location.GeoPoint `json:"center" yaml:"center"`
	RadiusMeters float64           `json:"radiusMeters" yaml:"radiusMeters"`
}

// Contains reports whether p lies inside or on the circle.
func (c Circle) Contains(p location.GeoPoint) bool {
	return location.Distance(c.Center, p) <= c.RadiusMeters
}

// Bound is the circle's bounding box in degrees.
func (c Circle) Bound() orb.Bound {
	dLat := location.MetersToLatitudeDegrees(c.RadiusMeters)
	dLon := location.MetersToLongitudeDegrees(c.RadiusMeters, c.Center.Latitude)
	return orb.Bound{
		Min: orb.Point{c.Center.Longitude - dLon, c.Center.Latitude - dLat},
		Max: orb.Point{c.Center.Longitude + dLon, c.Center.Latitude + dLat},
	}
}

// Polygon approximates the circle with the given number of segments.
func (c Circle) Polygon(segments int) orb.Polygon {
	if segments < 3 {
		segments = 3
	}
	ring := make(orb.Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		theta := 2 * math.Pi * float64(i) / float64(segments)
		p := location.Offset(c.Center, c.RadiusMeters*math.Cos(theta), c.RadiusMeters*math.Sin(theta))
		ring = append(ring, orb.Point{p.Longitude, p.Latitude})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// Pass is one compositing step. A union_erase pass subtracts EraseAlpha
// once over the union of its circles; a clear pass removes all fog under
// each circle.
type Pass struct {
	Layer      string   `json:"layer" yaml:"layer"`
	Op         string   `json:"op" yaml:"op"`
	EraseAlpha uint8    `json:"eraseAlpha" yaml:"eraseAlpha"`
	Circles    []Circle `json:"circles" yaml:"circles"`
}

// MaskSpec describes how to paint fog minus the revealed circles.
//
// Renderers must first build the union of Shared as one region and subtract
// SharedClearAlpha from the fog inside it exactly once, however many shared
// circles overlap. Erasing each shared circle on its own would make overlaps
// progressively more transparent. Afterwards every Primary circle clears the
// fog completely.
type MaskSpec struct {
	FogAlpha         uint8    `json:"fogAlpha" yaml:"fogAlpha"`
	SharedClearAlpha uint8    `json:"sharedClearAlpha" yaml:"sharedClearAlpha"`
	Shared           []Circle `json:"shared" yaml:"shared"`
	Primary          []Circle `json:"primary" yaml:"primary"`
}

// BuildMask turns the two layers into a mask description.
func BuildMask(primary, shared reveal.Layer, style MaskStyle) MaskSpec {
	return MaskSpec{
		FogAlpha:         style.FogAlpha,
		SharedClearAlpha: style.SharedClearAlpha,
		Shared:           circles(shared.Points, shared.RadiusMeters),
		Primary:          circles(primary.Points, primary.RadiusMeters),
	}
}

func circles(points []location.GeoPoint, radius float64) []Circle {
	out := make([]Circle, len(points))
	for i, p := range points {
		out[i] = Circle{Center: p, RadiusMeters: radius}
	}
	return out
}

// Passes returns the compositing steps in the order they must run.
func (m MaskSpec) Passes() []Pass {
	return []Pass{
		{Layer: reveal.LayerShared, Op: OpUnionErase, EraseAlpha: m.SharedClearAlpha, Circles: m.Shared},
		{Layer: reveal.LayerPrimary, Op: OpClear, EraseAlpha: m.FogAlpha, Circles: m.Primary},
	}
}

// AlphaAt evaluates the composited fog opacity at p.
func (m MaskSpec) AlphaAt(p location.GeoPoint) uint8 {
	for _, c := range m.Primary {
		if c.Contains(p) {
			return 0
		}
	}

	for _, c := range m.Shared {
		if c.Contains(p) {
			if m.SharedClearAlpha >= m.FogAlpha {
				return 0
			}
			return m.FogAlpha - m.SharedClearAlpha
		}
	}

	return m.FogAlpha
}

// Cull keeps only circles whose bounding box touches view.
func (m MaskSpec) Cull(view orb.Bound) MaskSpec {
	out := m
	out.Shared = cull(m.Shared, view)
	out.Primary = cull(m.Primary, view)
	return out
}

func cull(cs []Circle, view orb.Bound) []Circle {
	out := make([]Circle, 0, len(cs))
	for _, c := range cs {
		if c.Bound().Intersects(view) {
			out = append(out, c)
		}
	}
	return out
}

// GeoJSON renders the mask as a feature collection, one feature per circle
// tagged with its layer, pass order and radius. With segments > 0 circles
// are emitted as polygons, otherwise as points.
func (m MaskSpec) GeoJSON(segments int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{
		"fogAlpha":         m.FogAlpha,
		"sharedClearAlpha": m.SharedClearAlpha,
	}

	for order, pass := range m.Passes() {
		for _, c := range pass.Circles {
			var g orb.Geometry = orb.Point{c.Center.Longitude, c.Center.Latitude}
			if segments > 0 {
				g = c.Polygon(segments)
			}
			f := geojson.NewFeature(g)
			f.Properties["layer"] = pass.Layer
			f.Properties["op"] = pass.Op
			f.Properties["pass"] = order
			f.Properties["radiusMeters"] = c.RadiusMeters
			fc.Append(f)
		}
	}

	return fc
}
