package transfer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/askwhyharsh/fogofearth/internal/location"
	"github.com/askwhyharsh/fogofearth/pkg/validator"
)

type legacyPoint struct {
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (p legacyPoint) coords() (lat, lon *float64) {
	lat, lon = p.Lat, p.Lon
	if lat == nil {
		lat = p.Latitude
	}
	if lon == nil {
		lon = p.Longitude
	}
	return lat, lon
}

func isLegacyArray(scan string) bool {
	return strings.HasPrefix(scan, "[")
}

// parseLegacy reads the pre-chunking share format, a bare JSON array of
// {"lat","lon"} (or {"latitude","longitude"}) objects. Every element must
// carry both coordinates.
func parseLegacy(scan string) ([]location.GeoPoint, error) {
	var raw []legacyPoint
	if err := json.Unmarshal([]byte(scan), &raw); err != nil {
		return nil, reject(scan, "invalid legacy point array")
	}

	v := validator.NewValidator()
	points := make([]location.GeoPoint, 0, len(raw))
	for i, p := range raw {
		lat, lon := p.coords()
		if lat == nil || lon == nil {
			return nil, reject(scan, fmt.Sprintf("legacy point %d missing lat/lon", i))
		}
		if err := v.ValidateCoordinates(*lat, *lon); err != nil {
			return nil, reject(scan, fmt.Sprintf("legacy point %d: %v", i, err))
		}
		points = append(points, location.GeoPoint{Latitude: *lat, Longitude: *lon})
	}
	return points, nil
}

// isLegacyNothingToShare matches the placeholder object older exporters
// rendered when they had no points, e.g. {"message":"No progress saved yet"}.
func isLegacyNothingToShare(scan string) bool {
	if !strings.HasPrefix(scan, "{") {
		return false
	}
	var obj struct {
		Message *string `json:"message"`
	}
	return json.Unmarshal([]byte(scan), &obj) == nil && obj.Message != nil
}
