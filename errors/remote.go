package errors

import "net/http"

var statusCodes = map[int]ErrorCode{
	http.StatusBadRequest:          ErrCodeInvalidInput,
	http.StatusUnprocessableEntity: ErrCodeInvalidInput,
	http.StatusUnauthorized:        ErrCodeUnauthorized,
	http.StatusForbidden:           ErrCodeForbidden,
	http.StatusNotFound:            ErrCodeNotFound,
	http.StatusConflict:            ErrCodeConflict,
	http.StatusTooManyRequests:     ErrCodeRateLimited,
	http.StatusServiceUnavailable:  ErrCodeServiceUnavailable,
	http.StatusGatewayTimeout:      ErrCodeTimeout,
}

// FromStatus maps a status code returned by a remote service to an
// AppError. The status and service are recorded as details.
func FromStatus(status int, service string) *AppError {
	var appErr *AppError
	code, ok := statusCodes[status]
	switch {
	case ok:
		appErr = New(code, "")
	case status >= 500:
		appErr = New(ErrCodeExternalService, "")
	default:
		appErr = Newf(ErrCodeExternalService, "The %s service returned an unexpected status (HTTP %d).", service, status).
			WithRetryable(false)
	}
	return appErr.WithDetail("service", service).WithDetail("http_status", status)
}
