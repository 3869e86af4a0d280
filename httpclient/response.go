package httpclient

import "net/http"

// Response is a fully read HTTP response as seen by adapters.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers, first value per name.
	Headers map[string]string
	// Body is the raw response body.
	Body []byte
	// Request is the request that produced this response.
	Request *http.Request
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
