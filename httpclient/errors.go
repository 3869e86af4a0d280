package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies client errors. The set is closed.
type ErrorKind int

const (
	// KindUnknownResponse means no structured HTTP response was obtainable,
	// or the body was not parseable at all.
	KindUnknownResponse ErrorKind = iota
	// KindExpiredCredential indicates HTTP 401.
	KindExpiredCredential
	// KindNetwork indicates a transport-level failure before any response.
	KindNetwork
	// KindRequest indicates a request error (4xx other than 401).
	KindRequest
	// KindServer indicates a server error (5xx).
	KindServer
	// KindDecode indicates a structural decode failure.
	KindDecode
	// KindNoResult indicates the server returned a non-success status envelope.
	KindNoResult
	// KindUnhandledResponse covers every other failure.
	KindUnhandledResponse
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindUnknownResponse:
		return "unknown_response"
	case KindExpiredCredential:
		return "expired_credential"
	case KindNetwork:
		return "network"
	case KindRequest:
		return "request"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	case KindNoResult:
		return "no_result"
	case KindUnhandledResponse:
		return "unhandled_response"
	default:
		return "unknown"
	}
}

// Error is a classified client error. Exactly one Error terminates a failed call.
type Error struct {
	// Kind classifies the error.
	Kind ErrorKind
	// StatusCode is the HTTP status code (0 when no response was received).
	StatusCode int
	// Status is the server-reported status string (KindNoResult).
	Status string
	// Decode describes the decode failure (KindDecode).
	Decode *DecodeError
	// Body is the raw response body (may be nil).
	Body []byte
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindUnknownResponse:
		return "httpclient: unknown response"
	case KindExpiredCredential:
		return "httpclient: session has been expired, try logging in again"
	case KindNetwork:
		return fmt.Sprintf("httpclient: network error: %v", e.Err)
	case KindRequest:
		return fmt.Sprintf("httpclient: HTTP %d", e.StatusCode)
	case KindServer:
		return fmt.Sprintf("httpclient: server error (HTTP %d)", e.StatusCode)
	case KindDecode:
		return fmt.Sprintf("httpclient: decoding error: %v", e.Decode)
	case KindNoResult:
		return fmt.Sprintf("httpclient: server returned %s", e.Status)
	default:
		if e.Err != nil {
			return fmt.Sprintf("httpclient: unhandled response: %v", e.Err)
		}
		return "httpclient: unhandled response"
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.Decode != nil {
		return e.Decode
	}
	return nil
}

// DecodeKind is the shape of a decode failure.
type DecodeKind int

const (
	// DecodeKeyNotFound means a required key was missing.
	DecodeKeyNotFound DecodeKind = iota
	// DecodeTypeMismatch means a value had the wrong type for its path.
	DecodeTypeMismatch
	// DecodeValueNotFound means a value was expected but null or absent.
	DecodeValueNotFound
	// DecodeDataCorrupted means the bytes were not parseable.
	DecodeDataCorrupted
	// DecodeOther covers any other failure.
	DecodeOther
)

// String returns the decode kind name.
func (k DecodeKind) String() string {
	switch k {
	case DecodeKeyNotFound:
		return "key_not_found"
	case DecodeTypeMismatch:
		return "type_mismatch"
	case DecodeValueNotFound:
		return "value_not_found"
	case DecodeDataCorrupted:
		return "data_corrupted"
	default:
		return "other"
	}
}

// DecodeError describes why a body could not be decoded into a model.
type DecodeError struct {
	Kind DecodeKind
	// Key is the missing or offending key, in wire form.
	Key string
	// Type is the expected Go type.
	Type string
	// Context is a human-readable description of where decoding failed.
	Context string
	// Err is the underlying codec error.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	switch e.Kind {
	case DecodeKeyNotFound:
		return fmt.Sprintf("key %q not found (%s)", e.Key, e.Context)
	case DecodeTypeMismatch:
		return fmt.Sprintf("type mismatch decoding %s: %s", e.Type, e.Context)
	case DecodeValueNotFound:
		return fmt.Sprintf("value of type %s not found: %s", e.Type, e.Context)
	case DecodeDataCorrupted:
		return fmt.Sprintf("data corrupted: %s", e.Context)
	default:
		return fmt.Sprintf("decode %s: %s", e.Type, e.Context)
	}
}

// Unwrap returns the underlying codec error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewUnknownResponseError creates an unknown-response error.
func NewUnknownResponseError(err error) *Error {
	return &Error{Kind: KindUnknownResponse, Err: err}
}

// NewExpiredCredentialError creates an expired-credential error.
func NewExpiredCredentialError(body []byte) *Error {
	return &Error{Kind: KindExpiredCredential, StatusCode: http.StatusUnauthorized, Body: body}
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

// NewRequestError creates a request error for the status code.
func NewRequestError(statusCode int, body []byte) *Error {
	return &Error{Kind: KindRequest, StatusCode: statusCode, Body: body}
}

// NewServerError creates a server error for the status code.
func NewServerError(statusCode int, body []byte) *Error {
	return &Error{Kind: KindServer, StatusCode: statusCode, Body: body}
}

// NewDecodeError wraps a decode failure.
func NewDecodeError(statusCode int, de *DecodeError, body []byte) *Error {
	return &Error{Kind: KindDecode, StatusCode: statusCode, Decode: de, Body: body}
}

// NewNoResultError creates a no-result error carrying the server's status.
func NewNoResultError(statusCode int, status string, body []byte) *Error {
	return &Error{Kind: KindNoResult, StatusCode: statusCode, Status: status, Body: body}
}

// NewUnhandledResponseError creates an unhandled-response error.
func NewUnhandledResponseError(err error) *Error {
	return &Error{Kind: KindUnhandledResponse, Err: err}
}

// ClassifyStatus maps a status code to an error. Returns nil for 2xx.
// 401 is an expired credential, other 4xx request errors, 5xx server errors,
// and anything else unhandled.
func ClassifyStatus(statusCode int, body []byte) *Error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized:
		return NewExpiredCredentialError(body)
	case statusCode >= 400 && statusCode < 500:
		return NewRequestError(statusCode, body)
	case statusCode >= 500 && statusCode < 600:
		return NewServerError(statusCode, body)
	default:
		e := NewUnhandledResponseError(nil)
		e.StatusCode = statusCode
		e.Body = body
		return e
	}
}

// classifySendStatus is the Send path's status check: only 200 passes.
// 401 is checked first; 5xx are server errors and every other status is a
// request error.
func classifySendStatus(statusCode int, body []byte) *Error {
	switch {
	case statusCode == http.StatusUnauthorized:
		return NewExpiredCredentialError(body)
	case statusCode == http.StatusOK:
		return nil
	case statusCode >= 500 && statusCode < 600:
		return NewServerError(statusCode, body)
	default:
		return NewRequestError(statusCode, body)
	}
}

// KindOf returns the kind of err, and false if err is not an *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func isKind(err error, k ErrorKind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

// IsUnknownResponse checks if err is an unknown-response error.
func IsUnknownResponse(err error) bool { return isKind(err, KindUnknownResponse) }

// IsExpiredCredential checks if err is an expired-credential error.
func IsExpiredCredential(err error) bool { return isKind(err, KindExpiredCredential) }

// IsNetwork checks if err is a network error.
func IsNetwork(err error) bool { return isKind(err, KindNetwork) }

// IsRequestError checks if err is a request error.
func IsRequestError(err error) bool { return isKind(err, KindRequest) }

// IsServerError checks if err is a server error.
func IsServerError(err error) bool { return isKind(err, KindServer) }

// IsDecode checks if err is a decode error.
func IsDecode(err error) bool { return isKind(err, KindDecode) }

// IsNoResult checks if err is a no-result error.
func IsNoResult(err error) bool { return isKind(err, KindNoResult) }

// IsUnhandledResponse checks if err is an unhandled-response error.
func IsUnhandledResponse(err error) bool { return isKind(err, KindUnhandledResponse) }

// IsTimeout checks if err is a network error caused by a deadline or a
// transport timeout.
func IsTimeout(err error) bool {
	if !IsNetwork(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
