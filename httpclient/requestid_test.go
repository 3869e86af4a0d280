package httpclient

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDAdapter(t *testing.T) {
	req, _ := http.NewRequest("GET", "http://example.com", nil)
	RequestIDAdapter{}.BeforeSend(req)

	id := req.Header.Get(HeaderRequestID)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("X-Request-Id %q is not a UUID: %v", id, err)
	}

	req.Header.Set(HeaderRequestID, "caller-id")
	RequestIDAdapter{}.BeforeSend(req)
	if got := req.Header.Get(HeaderRequestID); got != "caller-id" {
		t.Errorf("existing id overwritten: %q", got)
	}
}
