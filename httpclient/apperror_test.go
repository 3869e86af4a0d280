package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	apperrors "github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/resilience"
)

func TestError_AppError(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		code      apperrors.ErrorCode
		status    int
		retryable bool
	}{
		{"expired", NewExpiredCredentialError(nil), apperrors.ErrCodeTokenExpired, http.StatusUnauthorized, false},
		{"timeout", NewNetworkError(context.DeadlineExceeded), apperrors.ErrCodeTimeout, http.StatusGatewayTimeout, true},
		{"refused", NewNetworkError(errors.New("connection refused")), apperrors.ErrCodeConnectionFailed, http.StatusServiceUnavailable, true},
		{"circuit open", NewNetworkError(resilience.ErrCircuitOpen), apperrors.ErrCodeServiceUnavailable, http.StatusServiceUnavailable, true},
		{"rate limited", NewNetworkError(fmt.Errorf("send: %w", resilience.ErrRateLimited)), apperrors.ErrCodeRateLimited, http.StatusTooManyRequests, true},
		{"bulkhead full", NewNetworkError(&resilience.RejectedError{Guard: "api", Reason: resilience.ErrBulkheadFull}), apperrors.ErrCodeRateLimited, http.StatusTooManyRequests, true},
		{"not found", NewRequestError(404, nil), apperrors.ErrCodeNotFound, http.StatusNotFound, false},
		{"bad gateway", NewServerError(502, nil), apperrors.ErrCodeExternalService, http.StatusBadGateway, true},
		{"unavailable", NewServerError(503, nil), apperrors.ErrCodeServiceUnavailable, http.StatusServiceUnavailable, true},
		{"missing key", NewDecodeError(200, &DecodeError{Kind: DecodeKeyNotFound, Key: "id"}, nil), apperrors.ErrCodeMissingField, http.StatusBadGateway, false},
		{"type mismatch", NewDecodeError(200, &DecodeError{Kind: DecodeTypeMismatch, Type: "Item"}, nil), apperrors.ErrCodeInvalidFormat, http.StatusBadGateway, false},
		{"no result", NewNoResultError(200, "Failure", nil), apperrors.ErrCodeExternalService, http.StatusBadGateway, false},
		{"unknown", NewUnknownResponseError(nil), apperrors.ErrCodeExternalService, http.StatusBadGateway, false},
		{"unhandled", NewUnhandledResponseError(errors.New("x")), apperrors.ErrCodeInternal, http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.AppError()
			if got.Code != tt.code {
				t.Errorf("code = %s, want %s", got.Code, tt.code)
			}
			if got.HTTPStatus != tt.status {
				t.Errorf("status = %d, want %d", got.HTTPStatus, tt.status)
			}
			if got.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", got.Retryable, tt.retryable)
			}
			var back *Error
			if !errors.As(got, &back) || back != tt.err {
				t.Error("AppError should wrap the client error")
			}
		})
	}
}

func TestError_AppErrorViaWrap(t *testing.T) {
	err := fmt.Errorf("load user: %w", NewRequestError(404, nil))
	got := apperrors.Wrap(err)
	if got.Code != apperrors.ErrCodeNotFound {
		t.Errorf("code = %s, want NOT_FOUND", got.Code)
	}
	if got.Details["http_status"] != 404 {
		t.Errorf("http_status detail = %v", got.Details["http_status"])
	}
}
