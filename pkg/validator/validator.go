package validator

import (
	"strings"

	apperrors "github.com/askwhyharsh/fogofearth/pkg/errors"
)

// MaxScanLength bounds a single scanned string. QR codes top out well below it.
const MaxScanLength = 8192

type Validator interface {
	ValidateCoordinates(lat, lon float64) error
	ValidateRadius(meters float64) error
	ValidateMinDistance(meters float64) error
	ValidateScan(content string) error
}

type validator struct{}

func NewValidator() Validator {
	return &validator{}
}

func (v *validator) ValidateCoordinates(lat, lon float64) error {
	if lat != lat || lon != lon {
		return apperrors.ErrInvalidCoordinates
	}

	if lat < -90 || lat > 90 {
		return apperrors.ErrInvalidLatitude
	}

	if lon < -180 || lon > 180 {
		return apperrors.ErrInvalidLongitude
	}

	return nil
}

func (v *validator) ValidateRadius(meters float64) error {
	if meters < 1 || meters > 5000 {
		return apperrors.ErrInvalidRadius
	}

	return nil
}

func (v *validator) ValidateMinDistance(meters float64) error {
	if meters < 0 || meters > 1000 {
		return apperrors.ErrInvalidMinDistance
	}

	return nil
}

func (v *validator) ValidateScan(content string) error {
	if len(strings.TrimSpace(content)) == 0 {
		return apperrors.ErrEmptyScan
	}

	if len(content) > MaxScanLength {
		return apperrors.ErrScanTooLarge
	}

	return nil
}
