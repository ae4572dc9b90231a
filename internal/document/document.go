// Package document models the persisted fog database and converts it to and
// from bytes and reveal stores.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/askwhyharsh/fogofearth/internal/location"
	"github.com/askwhyharsh/fogofearth/internal/polyline"
	"github.com/askwhyharsh/fogofearth/internal/reveal"
)

// CurrentSchemaVersion is written by Save. Version 1 stored plain point
// arrays; version 2 stores polyline-encoded points.
const CurrentSchemaVersion = 2

// Document is the in-memory form of the persisted fog database.
type Document struct {
	SchemaVersion int
	// Revision counts saves; conflict detection compares it.
	Revision int64
	Layers   []LayerRecord
}

// LayerRecord is one persisted layer. A non-empty PointsEncoded wins over
// PointsLegacy.
type LayerRecord struct {
	LayerID            string        `json:"layerId"`
	RevealRadiusMeters float64       `json:"revealRadiusMeters"`
	MinDistanceMeters  float64       `json:"minDistanceMeters"`
	PointsEncoded      string        `json:"pointsEnc,omitempty"`
	PointsLegacy       []LegacyPoint `json:"points,omitempty"`
}

// LegacyPoint accepts both {"lat","lon"} and {"latitude","longitude"}.
type LegacyPoint struct {
	Lat float64
	Lon float64
}

func (p *LegacyPoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		Lat       *float64 `json:"lat"`
		Lon       *float64 `json:"lon"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	lat, lon := raw.Lat, raw.Lon
	if lat == nil {
		lat = raw.Latitude
	}
	if lon == nil {
		lon = raw.Longitude
	}
	if lat == nil || lon == nil {
		return fmt.Errorf("legacy point missing coordinates")
	}

	p.Lat, p.Lon = *lat, *lon
	return nil
}

func (p LegacyPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}{p.Lat, p.Lon})
}

// Points returns the layer's points, preferring the encoded form.
func (r LayerRecord) Points() ([]location.GeoPoint, error) {
	if r.PointsEncoded != "" {
		return polyline.Decode(r.PointsEncoded)
	}
	if len(r.PointsLegacy) == 0 {
		return nil, nil
	}
	points := make([]location.GeoPoint, len(r.PointsLegacy))
	for i, lp := range r.PointsLegacy {
		points[i] = location.GeoPoint{Latitude: lp.Lat, Longitude: lp.Lon}
	}
	return points, nil
}

// NewLayerRecord encodes a reveal layer snapshot. Points outside the
// coordinate range are left out so the record always decodes.
func NewLayerRecord(l reveal.Layer) LayerRecord {
	return LayerRecord{
		LayerID:            l.LayerID,
		RevealRadiusMeters: l.RadiusMeters,
		MinDistanceMeters:  l.MinDistanceMeters,
		PointsEncoded:      polyline.Encode(location.ValidPoints(l.Points)),
	}
}

// Layer returns the first record with the given id.
func (d *Document) Layer(layerID string) (LayerRecord, bool) {
	for _, l := range d.Layers {
		if l.LayerID == layerID {
			return l, true
		}
	}
	return LayerRecord{}, false
}

// PutLayer replaces the record with the same id or appends it.
func (d *Document) PutLayer(rec LayerRecord) {
	for i, l := range d.Layers {
		if l.LayerID == rec.LayerID {
			d.Layers[i] = rec
			return
		}
	}
	d.Layers = append(d.Layers, rec)
}

// LayerPoints returns the points stored for layerID; a missing layer is empty.
func (d *Document) LayerPoints(layerID string) []location.GeoPoint {
	rec, ok := d.Layer(layerID)
	if !ok {
		return nil
	}
	points, err := rec.Points()
	if err != nil {
		return nil
	}
	return points
}

// IsEmpty reports whether the document holds no layers.
func (d *Document) IsEmpty() bool {
	return len(d.Layers) == 0
}

type wireDocument struct {
	SchemaVersion int      `json:"schemaVersion"`
	Revision      int64    `json:"revision,omitempty"`
	Fog           *wireFog `json:"fog"`
}

type wireFog struct {
	Layers []LayerRecord `json:"layers"`
}

// Load parses persisted bytes. Anything unusable yields an empty document;
// Load never fails. A bare JSON array of points is read as a primary layer
// written by the first app release.
func Load(data []byte) *Document {
	doc, err := parse(data)
	if err != nil {
		return &Document{}
	}
	return doc
}

func parse(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	if trimmed[0] == '[' {
		var legacy []LegacyPoint
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, fmt.Errorf("failed to parse legacy point array: %w", err)
		}
		return &Document{
			SchemaVersion: 1,
			Layers: []LayerRecord{{
				LayerID:      reveal.LayerPrimary,
				PointsLegacy: legacy,
			}},
		}, nil
	}

	var wire wireDocument
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if wire.Fog == nil || wire.Fog.Layers == nil {
		return nil, fmt.Errorf("document has no fog layers")
	}

	for _, l := range wire.Fog.Layers {
		if l.LayerID == "" {
			return nil, fmt.Errorf("layer without id")
		}
		if _, err := l.Points(); err != nil {
			return nil, fmt.Errorf("layer %q: %w", l.LayerID, err)
		}
	}

	return &Document{
		SchemaVersion: wire.SchemaVersion,
		Revision:      wire.Revision,
		Layers:        wire.Fog.Layers,
	}, nil
}

// Save serializes doc. Every layer is written polyline-encoded without legacy
// points, and the schema version is raised to CurrentSchemaVersion.
func Save(doc *Document) ([]byte, error) {
	version := doc.SchemaVersion
	if version < CurrentSchemaVersion {
		version = CurrentSchemaVersion
	}

	layers := make([]LayerRecord, 0, len(doc.Layers))
	for _, l := range doc.Layers {
		points, err := l.Points()
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", l.LayerID, err)
		}
		layers = append(layers, LayerRecord{
			LayerID:            l.LayerID,
			RevealRadiusMeters: l.RevealRadiusMeters,
			MinDistanceMeters:  l.MinDistanceMeters,
			PointsEncoded:      polyline.Encode(points),
		})
	}

	data, err := json.Marshal(wireDocument{
		SchemaVersion: version,
		Revision:      doc.Revision,
		Fog:           &wireFog{Layers: layers},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return data, nil
}

// FromStore snapshots both layers of s into a new document.
func FromStore(s *reveal.Store) *Document {
	doc := &Document{SchemaVersion: CurrentSchemaVersion}
	doc.PutLayer(NewLayerRecord(s.Primary()))
	doc.PutLayer(NewLayerRecord(s.Shared()))
	return doc
}

// Capture overwrites the layers of doc with the current contents of s,
// keeping its version and revision.
func (d *Document) Capture(s *reveal.Store) {
	d.PutLayer(NewLayerRecord(s.Primary()))
	d.PutLayer(NewLayerRecord(s.Shared()))
}

// Hydrate builds a reveal store from the document. Stored radii and spacing
// are configuration of the writing device; opts decides the live values.
func (d *Document) Hydrate(opts reveal.Options) *reveal.Store {
	return reveal.NewStore(opts, d.LayerPoints(reveal.LayerPrimary), d.LayerPoints(reveal.LayerShared))
}
