// Package errors presents failed API calls uniformly: a machine-readable
// code with a default message, an HTTP status and retryability, all taken
// from one catalog.
//
// Errors that know how to describe themselves implement Presenter, so Wrap
// turns any error into an *AppError:
//
//	appErr := errors.Wrap(err)
//	fmt.Println(appErr.Code, appErr.Message)
package errors
