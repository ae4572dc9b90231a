package api

import (
	"errors"
	"net/http"

	apperrors "github.com/askwhyharsh/fogofearth/pkg/errors"
)

// Error codes carried in ErrorData.Code.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeRateLimit          = "RATE_LIMIT"
	CodeTransferRejected   = "TRANSFER_REJECTED"
	CodeMalformedPayload   = "MALFORMED_PAYLOAD"
	CodeWriteConflict      = "WRITE_CONFLICT"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeSessionNotActive   = "SESSION_NOT_ACTIVE"
	CodeInternal           = "INTERNAL_ERROR"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
}

type ErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func SuccessResponse(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

func ErrorResponse(message, code string) Response {
	return Response{
		Success: false,
		Error: &ErrorData{
			Message: message,
			Code:    code,
		},
	}
}

// ErrorFrom maps a domain error to a status and an error envelope. Unknown
// errors become a 500 carrying fallback as the message.
func ErrorFrom(err error, fallback string) (int, Response) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode, ErrorResponse(appErr.Error(), codeFor(appErr.Err))
	}

	switch code := codeFor(err); code {
	case CodeTransferRejected:
		return http.StatusUnprocessableEntity, ErrorResponse("Invalid or corrupted map data", code)
	case CodeMalformedPayload:
		return http.StatusUnprocessableEntity, ErrorResponse("Shared map could not be decoded", code)
	case CodeWriteConflict:
		return http.StatusConflict, ErrorResponse("Map was changed by another writer", code)
	case CodeSessionNotActive:
		return http.StatusConflict, ErrorResponse(err.Error(), code)
	case CodeRateLimit:
		return http.StatusTooManyRequests, ErrorResponse(err.Error(), code)
	case CodeStorageUnavailable:
		return http.StatusServiceUnavailable, ErrorResponse(fallback, code)
	default:
		return http.StatusInternalServerError, ErrorResponse(fallback, CodeInternal)
	}
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrTransferRejected):
		return CodeTransferRejected
	case errors.Is(err, apperrors.ErrMalformedPolyline):
		return CodeMalformedPayload
	case errors.Is(err, apperrors.ErrWriteConflict):
		return CodeWriteConflict
	case errors.Is(err, apperrors.ErrSessionNotActive):
		return CodeSessionNotActive
	case errors.Is(err, apperrors.ErrRateLimitExceeded):
		return CodeRateLimit
	case errors.Is(err, apperrors.ErrStorageUnavailable):
		return CodeStorageUnavailable
	default:
		return CodeInternal
	}
}
