package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is a failure as presented to the user of an API call.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

// New creates an AppError whose status and retryability come from code. An
// empty message uses the code's default.
func New(code ErrorCode, message string) *AppError {
	if message == "" {
		message = code.Message()
	}
	return &AppError{
		Code:       code,
		Message:    message,
		Retryable:  code.Retryable(),
		HTTPStatus: code.HTTPStatus(),
	}
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithStatus overrides the HTTP status the error is presented with.
func (e *AppError) WithStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

// WithRetryable overrides the code's retryability.
func (e *AppError) WithRetryable(retryable bool) *AppError {
	e.Retryable = retryable
	return e
}

// WithDetail sets one detail.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Presenter is implemented by errors that map themselves onto an AppError.
type Presenter interface {
	AppError() *AppError
}

// AsAppError finds an *AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Wrap converts err into an *AppError. An AppError anywhere in the chain is
// returned as is, a Presenter is asked for its AppError and anything else
// becomes an internal error with err as the cause.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	var p Presenter
	if stderrors.As(err, &p) {
		if appErr := p.AppError(); appErr != nil {
			return appErr
		}
	}
	return New(ErrCodeInternal, "").WithCause(err)
}

// Body is the JSON form of an AppError.
type Body struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Status    int            `json:"status"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// Envelope nests Body under an "error" key.
type Envelope struct {
	Error Body `json:"error"`
}

// Envelope returns the JSON form of e.
func (e *AppError) Envelope() Envelope {
	return Envelope{Error: Body{
		Code:      e.Code,
		Message:   e.Message,
		Status:    e.HTTPStatus,
		Retryable: e.Retryable,
		Details:   e.Details,
	}}
}
