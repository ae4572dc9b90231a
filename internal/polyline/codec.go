// Package polyline implements the Encoded Polyline Algorithm Format at 1e5
// precision for sequences of location.GeoPoint.
package polyline

import (
	"fmt"
	"math"
	"strings"

	"github.com/askwhyharsh/fogofearth/internal/location"
	apperrors "github.com/askwhyharsh/fogofearth/pkg/errors"
)

const (
	precision = 1e5

	charOffset   = 63
	continuation = 0x20
	groupMask    = 0x1f

	// A 1e5-scaled coordinate never needs more than 7 groups; anything
	// longer is corrupt input rather than a real delta.
	maxGroups = 7
)

// CodecError reports a malformed encoded string.
type CodecError struct {
	Offset int
	Reason string
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("malformed polyline at offset %d: %s", e.Offset, e.Reason)
}

func (e *CodecError) Unwrap() error {
	return apperrors.ErrMalformedPolyline
}

// Encode encodes points. The empty slice encodes to "".
func Encode(points []location.GeoPoint) string {
	if len(points) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(len(points) * 8)

	var prevLat, prevLon int64
	for _, p := range points {
		lat := scale(p.Latitude)
		lon := scale(p.Longitude)

		encodeValue(&b, lat-prevLat)
		encodeValue(&b, lon-prevLon)

		prevLat = lat
		prevLon = lon
	}

	return b.String()
}

// Round returns p as it survives an Encode/Decode round trip.
func Round(p location.GeoPoint) location.GeoPoint {
	return location.GeoPoint{
		Latitude:  float64(scale(p.Latitude)) / precision,
		Longitude: float64(scale(p.Longitude)) / precision,
	}
}

func scale(v float64) int64 {
	return int64(math.Round(v * precision))
}

// encodeValue writes one signed delta: shift left, invert when negative,
// then emit 5-bit groups least significant first.
func encodeValue(b *strings.Builder, value int64) {
	v := value << 1
	if value < 0 {
		v = ^v
	}

	u := uint64(v)
	for u >= continuation {
		b.WriteByte(byte((u&groupMask)|continuation) + charOffset)
		u >>= 5
	}
	b.WriteByte(byte(u) + charOffset)
}

// Decode decodes s. Truncated or otherwise malformed input yields a
// *CodecError and no points.
func Decode(s string) ([]location.GeoPoint, error) {
	if s == "" {
		return nil, nil
	}

	points := make([]location.GeoPoint, 0, len(s)/8+1)
	var lat, lon int64
	index := 0

	for index < len(s) {
		start := index

		dLat, next, err := decodeValue(s, index)
		if err != nil {
			return nil, err
		}
		index = next

		if index >= len(s) {
			return nil, &CodecError{Offset: start, Reason: "latitude without longitude"}
		}

		dLon, next, err := decodeValue(s, index)
		if err != nil {
			return nil, err
		}
		index = next

		lat += dLat
		lon += dLon

		points = append(points, location.GeoPoint{
			Latitude:  float64(lat) / precision,
			Longitude: float64(lon) / precision,
		})
	}

	return points, nil
}

func decodeValue(s string, index int) (int64, int, error) {
	var result uint64
	shift := uint(0)

	for groups := 0; ; groups++ {
		if index >= len(s) {
			return 0, index, &CodecError{Offset: index, Reason: "truncated continuation group"}
		}
		if groups >= maxGroups {
			return 0, index, &CodecError{Offset: index, Reason: "value too long"}
		}

		c := s[index]
		if c < charOffset || c > charOffset+continuation+groupMask {
			return 0, index, &CodecError{Offset: index, Reason: fmt.Sprintf("invalid character %q", c)}
		}

		b := uint64(c - charOffset)
		index++
		result |= (b & groupMask) << shift
		shift += 5

		if b < continuation {
			break
		}
	}

	if result&1 != 0 {
		return ^int64(result >> 1), index, nil
	}
	return int64(result >> 1), index, nil
}
