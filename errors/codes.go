package errors

import "net/http"

// ErrorCode is a machine-readable error code.
type ErrorCode string

// Codes a failed API call is presented with.
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField       ErrorCode = "MISSING_FIELD"
	ErrCodeInvalidFormat      ErrorCode = "INVALID_FORMAT"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeExternalService    ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

type codeInfo struct {
	status    int
	retryable bool
	message   string
}

var catalog = map[ErrorCode]codeInfo{
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, true, "The service is temporarily unavailable. Please try again."},
	ErrCodeConnectionFailed:   {http.StatusServiceUnavailable, true, "Unable to connect to the service."},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, true, "The request took too long. Please try again."},
	ErrCodeRateLimited:        {http.StatusTooManyRequests, true, "Too many requests. Please wait a moment and try again."},
	ErrCodeNotFound:           {http.StatusNotFound, false, "The requested resource was not found."},
	ErrCodeConflict:           {http.StatusConflict, false, "The request conflicts with the current state of the resource."},
	ErrCodeInvalidInput:       {http.StatusBadRequest, false, "The request was rejected as invalid."},
	ErrCodeMissingField:       {http.StatusBadRequest, false, "A required field is missing."},
	ErrCodeInvalidFormat:      {http.StatusBadRequest, false, "A field has an invalid format."},
	ErrCodeUnauthorized:       {http.StatusUnauthorized, false, "Authentication required."},
	ErrCodeForbidden:          {http.StatusForbidden, false, "You don't have permission to perform this action."},
	ErrCodeTokenExpired:       {http.StatusUnauthorized, false, "Your session has expired. Please log in again."},
	ErrCodeExternalService:    {http.StatusBadGateway, true, "The remote service encountered an error."},
	ErrCodeInternal:           {http.StatusInternalServerError, false, "An unexpected error occurred."},
}

func (c ErrorCode) info() codeInfo {
	if info, ok := catalog[c]; ok {
		return info
	}
	return catalog[ErrCodeInternal]
}

// HTTPStatus returns the status the code is presented with. Unknown codes
// are presented as internal errors.
func (c ErrorCode) HTTPStatus() int { return c.info().status }

// Retryable reports whether a call failing with c may succeed when repeated.
func (c ErrorCode) Retryable() bool { return c.info().retryable }

// Message returns the default user-facing message for c.
func (c ErrorCode) Message() string { return c.info().message }
