package httpclient

import "net/url"

// Request is a declarative HTTP call. It wraps the Builder variant that
// produces its Descriptor; building happens when the request is sent.
type Request struct {
	builder Builder
}

// NewRequest wraps a custom Builder.
func NewRequest(b Builder) Request {
	return Request{builder: b}
}

// Descriptor builds the request descriptor.
func (r Request) Descriptor() Descriptor {
	if r.builder == nil {
		return Descriptor{method: MethodGet}
	}
	return r.builder.Build()
}

// Basic creates a request without a typed body. The method defaults to GET.
func Basic(baseURL *url.URL, path string, opts ...RequestOption) Request {
	return Request{builder: basicBuilder{newBaseBuilder(baseURL, path, MethodGet, opts)}}
}

// Post creates a request with an optional JSON body. The method defaults to
// POST and Content-Type to application/json.
func Post[B any](baseURL *url.URL, path string, body *B, opts ...RequestOption) Request {
	return Request{builder: bodyBuilder[B]{
		baseBuilder: newBaseBuilder(baseURL, path, MethodPost, opts),
		body:        body,
	}}
}

// Put is Post with PUT as the default method.
func Put[B any](baseURL *url.URL, path string, body *B, opts ...RequestOption) Request {
	return Request{builder: bodyBuilder[B]{
		baseBuilder: newBaseBuilder(baseURL, path, MethodPut, opts),
		body:        body,
	}}
}

// Delete creates a request with an optional JSON body. The method defaults to
// DELETE; Content-Type and Accept default to application/json.
func Delete[B any](baseURL *url.URL, path string, body *B, opts ...RequestOption) Request {
	return Request{builder: deleteBuilder[B]{
		baseBuilder: newBaseBuilder(baseURL, path, MethodDelete, opts),
		body:        body,
	}}
}
