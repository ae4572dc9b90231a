package location

import (
	"math"

	"github.com/mmcloughlin/geohash"
)

const (
	// Degrees per meter along a great circle for earthRadiusMeters.
	degreesPerMeter = 180.0 / (math.Pi * earthRadiusMeters)

	// Beyond these bounds the 3x3 cell neighbourhood can miss close points,
	// so lookups fall back to a full scan.
	maxIndexedLatitude  = 80.0
	maxIndexedLongitude = 179.0

	maxBitsPerAxis = 30
)

// GeohashIndex buckets points by integer geohash cells sized so that any two
// points closer than radius meters share a cell or sit in neighbouring cells.
type GeohashIndex struct {
	radius float64
	bits   uint
	cells  map[uint64][]int
}

// NewGeohashIndex returns an index for neighbour queries within radius meters.
// It returns nil when no cell size can serve the radius.
func NewGeohashIndex(radius float64) *GeohashIndex {
	bits, ok := cellBits(radius)
	if !ok {
		return nil
	}
	return &GeohashIndex{
		radius: radius,
		bits:   bits,
		cells:  make(map[uint64][]int),
	}
}

// cellBits picks the finest even bit depth whose cells are at least twice
// radius tall and wide at maxIndexedLatitude.
func cellBits(radius float64) (uint, bool) {
	if radius <= 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return 0, false
	}

	needLat := 2 * radius * degreesPerMeter
	needLon := needLat / math.Cos(toRadians(maxIndexedLatitude))

	perAxis := 0
	for k := 1; k <= maxBitsPerAxis; k++ {
		cellLat := 180.0 / math.Pow(2, float64(k))
		cellLon := 360.0 / math.Pow(2, float64(k))
		if cellLat < needLat || cellLon < needLon {
			break
		}
		perAxis = k
	}
	if perAxis == 0 {
		return 0, false
	}
	return uint(2 * perAxis), true
}

// Bits reports the geohash bit depth used for cells.
func (g *GeohashIndex) Bits() uint {
	return g.bits
}

// Insert records the point stored at position idx.
func (g *GeohashIndex) Insert(idx int, p GeoPoint) {
	cell := geohash.EncodeIntWithPrecision(p.Latitude, p.Longitude, g.bits)
	g.cells[cell] = append(g.cells[cell], idx)
}

// Candidates returns the positions stored in p's cell and its eight
// neighbours. ok is false when p lies where the neighbourhood is not
// guaranteed to contain every point within the radius.
func (g *GeohashIndex) Candidates(p GeoPoint) (idx []int, ok bool) {
	if math.Abs(p.Latitude) > maxIndexedLatitude || math.Abs(p.Longitude) > maxIndexedLongitude {
		return nil, false
	}

	cell := geohash.EncodeIntWithPrecision(p.Latitude, p.Longitude, g.bits)
	idx = append(idx, g.cells[cell]...)
	for _, n := range geohash.NeighborsIntWithPrecision(cell, g.bits) {
		idx = append(idx, g.cells[n]...)
	}
	return idx, true
}

// Reset drops every entry.
func (g *GeohashIndex) Reset() {
	g.cells = make(map[uint64][]int)
}

// Len returns the number of indexed positions.
func (g *GeohashIndex) Len() int {
	n := 0
	for _, c := range g.cells {
		n += len(c)
	}
	return n
}
