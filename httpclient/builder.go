package httpclient

import (
	"net/http"
	"net/url"
)

// Builder turns typed inputs into a Descriptor. Build must be pure: the same
// builder always yields an equal Descriptor.
//
// The package ships three variants (no body, JSON body, JSON delete) behind
// the Basic, Post, Put and Delete factories. Custom variants can be wrapped
// with NewRequest.
type Builder interface {
	Build() Descriptor
}

const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	mimeJSON          = "application/json"
)

// requestOptions holds everything the factories accept besides the body.
type requestOptions struct {
	method  Method
	headers map[string]string
	query   []QueryItem
	data    []byte
}

// RequestOption configures a request built by one of the factories.
type RequestOption func(*requestOptions)

// WithMethod overrides the factory's default method.
func WithMethod(m Method) RequestOption {
	return func(o *requestOptions) {
		o.method = m
	}
}

// WithHeader adds a header. It overrides a variant default with the same name.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[http.CanonicalHeaderKey(key)] = value
	}
}

// WithHeaders adds every header in h.
func WithHeaders(h map[string]string) RequestOption {
	return func(o *requestOptions) {
		for k, v := range h {
			WithHeader(k, v)(o)
		}
	}
}

// WithQuery appends query items in the given order.
func WithQuery(items ...QueryItem) RequestOption {
	return func(o *requestOptions) {
		o.query = append(o.query, items...)
	}
}

// WithQueryParam appends a single query item.
func WithQueryParam(name, value string) RequestOption {
	return WithQuery(QueryItem{Name: name, Value: value})
}

// WithData sets raw body bytes. Raw bytes take precedence over a typed body.
func WithData(data []byte) RequestOption {
	return func(o *requestOptions) {
		if data == nil {
			o.data = nil
			return
		}
		o.data = make([]byte, len(data))
		copy(o.data, data)
	}
}

func collectOptions(def Method, opts []RequestOption) requestOptions {
	o := requestOptions{method: def}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// baseBuilder carries the fields shared by every variant.
type baseBuilder struct {
	baseURL url.URL
	path    string
	opts    requestOptions
}

func newBaseBuilder(baseURL *url.URL, path string, def Method, opts []RequestOption) baseBuilder {
	b := baseBuilder{path: path, opts: collectOptions(def, opts)}
	if baseURL != nil {
		b.baseURL = *baseURL
	}
	return b
}

// descriptor assembles the Descriptor. Defaults are applied first and the
// caller's headers overwrite them.
func (b baseBuilder) descriptor(defaults map[string]string, body []byte, encodeErr error) Descriptor {
	headers := make(map[string]string, len(defaults)+len(b.opts.headers))
	for k, v := range defaults {
		headers[http.CanonicalHeaderKey(k)] = v
	}
	for k, v := range b.opts.headers {
		headers[k] = v
	}

	var query []QueryItem
	if len(b.opts.query) > 0 {
		query = append([]QueryItem(nil), b.opts.query...)
	}

	return Descriptor{
		method:    b.opts.method,
		baseURL:   b.baseURL,
		path:      b.path,
		query:     query,
		headers:   headers,
		body:      body,
		encodeErr: encodeErr,
	}
}

// basicBuilder sends no typed body and no default headers.
type basicBuilder struct {
	baseBuilder
}

func (b basicBuilder) Build() Descriptor {
	return b.descriptor(nil, b.opts.data, nil)
}

// bodyBuilder serializes an optional typed body as JSON. Used for POST and PUT.
type bodyBuilder[B any] struct {
	baseBuilder
	body *B
}

func (b bodyBuilder[B]) Build() Descriptor {
	data, err := encodeBody(b.opts.data, b.body)
	return b.descriptor(map[string]string{headerContentType: mimeJSON}, data, err)
}

// deleteBuilder is bodyBuilder with an additional Accept default.
type deleteBuilder[B any] struct {
	baseBuilder
	body *B
}

func (b deleteBuilder[B]) Build() Descriptor {
	data, err := encodeBody(b.opts.data, b.body)
	return b.descriptor(map[string]string{
		headerContentType: mimeJSON,
		headerAccept:      mimeJSON,
	}, data, err)
}

// encodeBody picks the explicit bytes when present, otherwise the typed body
// encoded with its model codec. On failure it returns no body and the error.
func encodeBody[B any](data []byte, body *B) ([]byte, error) {
	if data != nil {
		return data, nil
	}
	if body == nil {
		return nil, nil
	}
	encoded, err := codecOf(body).Encode(body)
	if err != nil {
		return nil, err
	}
	return encoded, nil
}
