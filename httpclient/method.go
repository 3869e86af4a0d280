package httpclient

import "net/http"

// Method is the HTTP method of a request.
type Method string

// Supported methods.
const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
)

// String returns the method name.
func (m Method) String() string {
	return string(m)
}

// Valid reports whether m is one of the supported methods.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return true
	default:
		return false
	}
}
