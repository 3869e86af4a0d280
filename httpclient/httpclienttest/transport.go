// Package httpclienttest provides test doubles for the httpclient package:
// a scripted transport and an adapter that records hook invocations.
package httpclienttest

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

// Transport is a scripted httpclient.Doer. It returns the configured
// response (or error) for every call and records the requests it received.
type Transport struct {
	// StatusCode of the canned response. Defaults to 200.
	StatusCode int
	// Header of the canned response.
	Header http.Header
	// Body of the canned response.
	Body []byte
	// Err, when set, is returned instead of a response.
	Err error
	// NoResponse makes Do return a nil response with a nil error.
	NoResponse bool
	// Handler, when set, produces the response instead of the fields above.
	Handler func(req *http.Request) (*http.Response, error)

	mu       sync.Mutex
	requests []Captured
}

// Captured is a request as seen by the transport, with its body read.
type Captured struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Respond returns a Transport answering every call with status and body.
func Respond(status int, body string) *Transport {
	return &Transport{StatusCode: status, Body: []byte(body)}
}

// Fail returns a Transport failing every call with err.
func Fail(err error) *Transport {
	return &Transport{Err: err}
}

// Do implements httpclient.Doer.
func (t *Transport) Do(req *http.Request) (*http.Response, error) {
	c := Captured{Method: req.Method, URL: req.URL.String(), Header: req.Header.Clone()}
	if req.Body != nil {
		c.Body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}
	t.mu.Lock()
	t.requests = append(t.requests, c)
	t.mu.Unlock()

	if t.Handler != nil {
		return t.Handler(req)
	}
	if t.Err != nil {
		return nil, t.Err
	}
	if t.NoResponse {
		return nil, nil
	}

	status := t.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	header := t.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(t.Body)),
		Request:    req,
	}, nil
}

// Requests returns the requests received so far.
func (t *Transport) Requests() []Captured {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Captured, len(t.requests))
	copy(out, t.requests)
	return out
}

// Calls returns the number of requests received so far.
func (t *Transport) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}
