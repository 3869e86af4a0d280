package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// QueryItem is a single query parameter. Order is preserved on the wire.
type QueryItem struct {
	Name  string
	Value string
}

// Descriptor fully describes one HTTP call before it is translated into an
// *http.Request. A Descriptor is immutable once built: accessors return
// copies of the internal slices and maps.
type Descriptor struct {
	method    Method
	baseURL   url.URL
	path      string
	query     []QueryItem
	headers   map[string]string
	body      []byte
	encodeErr error
}

// Method returns the HTTP method.
func (d Descriptor) Method() Method { return d.method }

// BaseURL returns a copy of the base URL.
func (d Descriptor) BaseURL() *url.URL {
	u := d.baseURL
	return &u
}

// Path returns the path appended to the base URL.
func (d Descriptor) Path() string { return d.path }

// Query returns the query items in order. Nil means no query string.
func (d Descriptor) Query() []QueryItem {
	if d.query == nil {
		return nil
	}
	return append([]QueryItem(nil), d.query...)
}

// Headers returns a copy of the request headers.
func (d Descriptor) Headers() map[string]string {
	h := make(map[string]string, len(d.headers))
	for k, v := range d.headers {
		h[k] = v
	}
	return h
}

// Body returns a copy of the body bytes, or nil when no body is sent.
func (d Descriptor) Body() []byte {
	if d.body == nil {
		return nil
	}
	b := make([]byte, len(d.body))
	copy(b, d.body)
	return b
}

// EncodeErr returns the error raised while serializing the typed body, if
// any. When it is non-nil the request is sent without a body.
func (d Descriptor) EncodeErr() error { return d.encodeErr }

// URL resolves the full request URL. The path is appended to the base path;
// the base is never re-resolved, so the request cannot leave the base
// authority.
func (d Descriptor) URL() *url.URL {
	u := d.baseURL
	u.Path = joinPath(u.Path, d.path)
	u.RawPath = ""
	u.RawQuery = encodeQuery(d.query)
	u.ForceQuery = false
	u.Fragment = ""
	return &u
}

// HTTPRequest converts the descriptor into an *http.Request bound to ctx.
// Identical descriptors produce identical method, URL, headers and body.
func (d Descriptor) HTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if d.body != nil {
		body = bytes.NewReader(d.body)
	}

	req, err := http.NewRequestWithContext(ctx, d.method.String(), d.URL().String(), body)
	if err != nil {
		return nil, err
	}
	for k, v := range d.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// joinPath appends p to base with exactly one separating slash. Only the path
// is touched, so scheme and host always come from the base.
func joinPath(base, p string) string {
	if p == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p, "/")
}

func encodeQuery(items []QueryItem) string {
	if len(items) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(item.Name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(item.Value))
	}
	return sb.String()
}
