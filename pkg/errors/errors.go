package errors

import "errors"

var (
	// Codec errors
	ErrMalformedPolyline = errors.New("malformed polyline")

	// Transfer errors
	ErrTransferRejected = errors.New("transfer chunk rejected")

	// Validation errors
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidLatitude    = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude   = errors.New("longitude must be between -180 and 180")
	ErrInvalidRadius      = errors.New("radius must be between 1 and 5000 meters")
	ErrInvalidMinDistance = errors.New("minimum distance must be between 0 and 1000 meters")
	ErrEmptyScan          = errors.New("scan cannot be empty")
	ErrScanTooLarge       = errors.New("scan exceeds maximum length")

	// Session errors
	ErrSessionNotActive = errors.New("no active session")

	// Rate limit errors
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// Storage errors
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrWriteConflict      = errors.New("document was modified by another writer")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
	}
}
