// Package reveal holds the revealed point layers of a single device: the
// self-discovered primary layer and the shared layer imported from a peer.
package reveal

import (
	"fmt"

	"github.com/askwhyharsh/fogofearth/internal/location"
	"github.com/askwhyharsh/fogofearth/internal/polyline"
)

const (
	LayerPrimary = "primary"
	LayerShared  = "shared"
)

const (
	DefaultPrimaryRadiusMeters = 100.0
	DefaultSharedRadiusMeters  = 500.0
	DefaultMinDistanceMeters   = 4.5
)

// Layer is a snapshot of one point collection and its configuration.
type Layer struct {
	LayerID           string
	RadiusMeters      float64
	MinDistanceMeters float64
	Points            []location.GeoPoint
}

// Options configures a Store.
type Options struct {
	PrimaryRadiusMeters float64
	SharedRadiusMeters  float64
	MinDistanceMeters   float64

	// DedupeShared applies the primary spacing rule to imported points.
	// Off by default so peer data is kept exactly as received.
	DedupeShared bool

	// SpatialIndex answers spacing checks from a geohash grid instead of a
	// full scan. Results are identical either way.
	SpatialIndex bool
}

// DefaultOptions returns the radii and spacing used by the mobile client.
func DefaultOptions() Options {
	return Options{
		PrimaryRadiusMeters: DefaultPrimaryRadiusMeters,
		SharedRadiusMeters:  DefaultSharedRadiusMeters,
		MinDistanceMeters:   DefaultMinDistanceMeters,
		SpatialIndex:        true,
	}
}

// Store owns the primary and shared layers. It is not safe for concurrent
// use; callers serialize access.
type Store struct {
	opts    Options
	primary []location.GeoPoint
	shared  []location.GeoPoint
	index   *location.GeohashIndex
}

// NewStore builds a store hydrated with the given points. Hydrated points
// are kept as-is; spacing is only enforced for later AddPrimary calls.
func NewStore(opts Options, primary, shared []location.GeoPoint) *Store {
	s := &Store{
		opts:    opts,
		primary: clonePoints(primary),
		shared:  clonePoints(shared),
	}
	if opts.SpatialIndex {
		s.index = location.NewGeohashIndex(opts.MinDistanceMeters)
	}
	s.reindex()
	return s
}

func (s *Store) reindex() {
	if s.index == nil {
		return
	}
	s.index.Reset()
	for i, p := range s.primary {
		s.index.Insert(i, p)
	}
}

// Options returns the store configuration.
func (s *Store) Options() Options {
	return s.opts
}

// AddPrimary appends p unless an existing primary point lies strictly closer
// than MinDistanceMeters. A point exactly MinDistanceMeters away is accepted.
// Points outside the coordinate range are never added.
func (s *Store) AddPrimary(p location.GeoPoint) bool {
	if !p.Valid() || s.tooClose(p) {
		return false
	}

	s.primary = append(s.primary, p)
	if s.index != nil {
		s.index.Insert(len(s.primary)-1, p)
	}
	return true
}

func (s *Store) tooClose(p location.GeoPoint) bool {
	minDist := s.opts.MinDistanceMeters

	if s.index != nil {
		if cands, ok := s.index.Candidates(p); ok {
			for _, i := range cands {
				if location.Distance(s.primary[i], p) < minDist {
					return true
				}
			}
			return false
		}
	}

	for _, existing := range s.primary {
		if location.Distance(existing, p) < minDist {
			return true
		}
	}
	return false
}

// SetShared replaces the shared layer. Points outside the coordinate range
// are dropped.
func (s *Store) SetShared(points []location.GeoPoint) {
	points = location.ValidPoints(points)
	if s.opts.DedupeShared {
		s.shared = spaced(points, s.opts.MinDistanceMeters)
		return
	}
	s.shared = clonePoints(points)
}

// spaced keeps points in order, dropping any that fall strictly closer than
// minDist to an already kept point.
func spaced(points []location.GeoPoint, minDist float64) []location.GeoPoint {
	kept := NewStore(Options{MinDistanceMeters: minDist, SpatialIndex: true}, nil, nil)
	for _, p := range points {
		kept.AddPrimary(p)
	}
	return kept.primary
}

// ClearShared empties the shared layer.
func (s *Store) ClearShared() {
	s.shared = nil
}

// Clear empties both layers.
func (s *Store) Clear() {
	s.primary = nil
	s.shared = nil
	s.reindex()
}

// ExportPrimaryEncoded encodes the primary layer in insertion order.
func (s *Store) ExportPrimaryEncoded() string {
	return polyline.Encode(s.primary)
}

// ImportSharedEncoded decodes encoded and replaces the shared layer with it.
// On error the shared layer is left untouched.
func (s *Store) ImportSharedEncoded(encoded string) error {
	points, err := polyline.Decode(encoded)
	if err != nil {
		return fmt.Errorf("failed to import shared layer: %w", err)
	}
	s.SetShared(points)
	return nil
}

// PrimaryPoints returns a copy of the primary points.
func (s *Store) PrimaryPoints() []location.GeoPoint {
	return clonePoints(s.primary)
}

// SharedPoints returns a copy of the shared points.
func (s *Store) SharedPoints() []location.GeoPoint {
	return clonePoints(s.shared)
}

// PrimaryLen returns the number of primary points.
func (s *Store) PrimaryLen() int {
	return len(s.primary)
}

// SharedLen returns the number of shared points.
func (s *Store) SharedLen() int {
	return len(s.shared)
}

// Primary returns a snapshot of the primary layer.
func (s *Store) Primary() Layer {
	return Layer{
		LayerID:           LayerPrimary,
		RadiusMeters:      s.opts.PrimaryRadiusMeters,
		MinDistanceMeters: s.opts.MinDistanceMeters,
		Points:            s.PrimaryPoints(),
	}
}

// Shared returns a snapshot of the shared layer.
func (s *Store) Shared() Layer {
	return Layer{
		LayerID:           LayerShared,
		RadiusMeters:      s.opts.SharedRadiusMeters,
		MinDistanceMeters: s.opts.MinDistanceMeters,
		Points:            s.SharedPoints(),
	}
}

func clonePoints(points []location.GeoPoint) []location.GeoPoint {
	if len(points) == 0 {
		return nil
	}
	out := make([]location.GeoPoint, len(points))
	copy(out, points)
	return out
}
