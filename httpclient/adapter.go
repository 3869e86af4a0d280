package httpclient

import (
	"fmt"
	"net/http"

	"github.com/kbukum/apikit/logger"
)

// Adapter observes, and before sending may mutate, every call made through
// Send. For each call the client invokes, on every adapter in registration
// order:
//
//  1. BeforeSend with the outgoing request; changes are visible to later
//     adapters and to the transport.
//  2. OnResponse with the fully read response, unless the transport failed.
//  3. Exactly one of OnSuccess or OnError.
//
// A panicking adapter is logged and skipped; it never stops the others.
// Adapters are shared by concurrent calls and must be safe for concurrent use.
type Adapter interface {
	BeforeSend(req *http.Request)
	OnResponse(resp *Response)
	OnSuccess(req *http.Request)
	// OnError receives the classified error. req is nil when the request
	// could not be constructed.
	OnError(req *http.Request, err *Error)
}

// NopAdapter implements Adapter with no-op hooks. Embed it to implement a
// subset of the hooks.
type NopAdapter struct{}

func (NopAdapter) BeforeSend(*http.Request) {}
func (NopAdapter) OnResponse(*Response) {}
func (NopAdapter) OnSuccess(*http.Request) {}
func (NopAdapter) OnError(*http.Request, *Error) {}

// Hooks is an Adapter built from optional functions.
type Hooks struct {
	BeforeSendFunc func(req *http.Request)
	OnResponseFunc func(resp *Response)
	OnSuccessFunc  func(req *http.Request)
	OnErrorFunc    func(req *http.Request, err *Error)
}

func (h Hooks) BeforeSend(req *http.Request) {
	if h.BeforeSendFunc != nil {
		h.BeforeSendFunc(req)
	}
}

func (h Hooks) OnResponse(resp *Response) {
	if h.OnResponseFunc != nil {
		h.OnResponseFunc(resp)
	}
}

func (h Hooks) OnSuccess(req *http.Request) {
	if h.OnSuccessFunc != nil {
		h.OnSuccessFunc(req)
	}
}

func (h Hooks) OnError(req *http.Request, err *Error) {
	if h.OnErrorFunc != nil {
		h.OnErrorFunc(req, err)
	}
}

// chain is the client's fixed, ordered adapter list.
type chain struct {
	adapters []Adapter
	log      *logger.Logger
}

func newChain(adapters []Adapter, log *logger.Logger) chain {
	list := make([]Adapter, 0, len(adapters))
	for _, a := range adapters {
		if a != nil {
			list = append(list, a)
		}
	}
	return chain{adapters: list, log: log}
}

func (c chain) beforeSend(req *http.Request) {
	c.each("before_send", func(a Adapter) { a.BeforeSend(req) })
}

func (c chain) onResponse(resp *Response) {
	c.each("on_response", func(a Adapter) { a.OnResponse(resp) })
}

func (c chain) onSuccess(req *http.Request) {
	c.each("on_success", func(a Adapter) { a.OnSuccess(req) })
}

func (c chain) onError(req *http.Request, err *Error) {
	c.each("on_error", func(a Adapter) { a.OnError(req, err) })
}

func (c chain) each(phase string, fn func(Adapter)) {
	for i, a := range c.adapters {
		c.invoke(phase, i, a, fn)
	}
}

func (c chain) invoke(phase string, index int, a Adapter, fn func(Adapter)) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("adapter panicked", logger.Fields(
				"phase", phase,
				"index", index,
				"adapter", fmt.Sprintf("%T", a),
				"panic", fmt.Sprint(r),
			))
		}
	}()
	fn(a)
}
