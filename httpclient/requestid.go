package httpclient

import (
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID is the request correlation header.
const HeaderRequestID = "X-Request-Id"

// RequestIDAdapter injects a unique X-Request-Id header into every request
// that does not already carry one.
type RequestIDAdapter struct {
	NopAdapter
}

// BeforeSend sets the header.
func (RequestIDAdapter) BeforeSend(req *http.Request) {
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.New().String())
	}
}
