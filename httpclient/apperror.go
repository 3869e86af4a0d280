package httpclient

import (
	"errors"
	"net/http"

	apperrors "github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/resilience"
)

const remoteService = "remote"

// AppError presents e as an application error. The returned value wraps e.
func (e *Error) AppError() *apperrors.AppError {
	var appErr *apperrors.AppError
	switch e.Kind {
	case KindExpiredCredential:
		appErr = apperrors.New(apperrors.ErrCodeTokenExpired, "")
	case KindNetwork:
		appErr = networkAppError(e)
	case KindRequest, KindServer:
		appErr = apperrors.FromStatus(e.StatusCode, remoteService)
	case KindDecode:
		appErr = decodeAppError(e.Decode)
	case KindNoResult:
		appErr = apperrors.Newf(apperrors.ErrCodeExternalService, "The remote service returned %s.", e.Status).
			WithRetryable(false).
			WithDetail("status", e.Status)
	case KindUnknownResponse:
		appErr = apperrors.New(apperrors.ErrCodeExternalService, "The remote service sent a response that could not be read.").
			WithRetryable(false)
	default:
		appErr = apperrors.New(apperrors.ErrCodeInternal, "")
	}
	if e.StatusCode != 0 {
		appErr.WithDetail("http_status", e.StatusCode)
	}
	return appErr.WithCause(e)
}

func networkAppError(e *Error) *apperrors.AppError {
	var appErr *apperrors.AppError
	switch {
	case IsTimeout(e):
		appErr = apperrors.New(apperrors.ErrCodeTimeout, "")
	case errors.Is(e, resilience.ErrCircuitOpen):
		appErr = apperrors.New(apperrors.ErrCodeServiceUnavailable, "")
	case errors.Is(e, resilience.ErrRateLimited), errors.Is(e, resilience.ErrBulkheadFull):
		appErr = apperrors.New(apperrors.ErrCodeRateLimited, "")
	default:
		return apperrors.New(apperrors.ErrCodeConnectionFailed, "").WithDetail("service", remoteService)
	}

	var rejected *resilience.RejectedError
	if errors.As(e, &rejected) {
		appErr.WithDetail("guard", rejected.Guard)
		if rejected.RetryAfter > 0 {
			appErr.WithDetail("retry_after", rejected.RetryAfter.String())
		}
	}
	return appErr
}

func decodeAppError(de *DecodeError) *apperrors.AppError {
	var appErr *apperrors.AppError
	switch {
	case de != nil && de.Kind == DecodeKeyNotFound:
		appErr = apperrors.Newf(apperrors.ErrCodeMissingField, "The response is missing the %q field.", de.Key).
			WithDetail("field", de.Key)
	case de != nil:
		appErr = apperrors.Newf(apperrors.ErrCodeInvalidFormat, "The response could not be read as %s.", de.Type).
			WithDetail("type", de.Type)
		if de.Key != "" {
			appErr.WithDetail("field", de.Key)
		}
	default:
		appErr = apperrors.New(apperrors.ErrCodeInvalidFormat, "")
	}
	// The malformed payload came from the remote side, not from the caller.
	return appErr.WithStatus(http.StatusBadGateway)
}
