package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kbukum/apikit/logger"
)

// StatusSuccess is the status envelope value that means success.
const StatusSuccess = "Success"

// statusEnvelope is the minimal shape used to pull a server-reported status
// out of a body that did not match the expected model.
type statusEnvelope struct {
	Status *string `json:"status"`
}

// Send performs req and decodes the body into T.
//
// Only HTTP 200 is a success on this path. 401 yields an expired-credential
// error, 5xx a server error and every other status a request error. Adapters
// run around the call and exactly one of OnSuccess or OnError fires. The
// returned error is always an *Error.
func Send[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var zero T

	httpReq, err := c.prepare(ctx, req)
	if err != nil {
		return zero, c.fail(nil, NewUnhandledResponseError(err))
	}

	c.chain.beforeSend(httpReq)

	resp, e := c.roundTrip(ctx, httpReq)
	if e != nil {
		return zero, c.fail(httpReq, e)
	}
	if resp == nil {
		return zero, c.fail(httpReq, NewUnknownResponseError(nil))
	}

	c.chain.onResponse(resp)

	if e := classifySendStatus(resp.StatusCode, resp.Body); e != nil {
		return zero, c.fail(httpReq, e)
	}

	var out T
	if !isEmpty[T]() {
		codec := codecFor[T]()
		if err := codec.Decode(resp.Body, &out); err != nil {
			return zero, c.fail(httpReq, c.recoverDecode(resp, codec, err))
		}
	}

	c.chain.onSuccess(httpReq)
	return out, nil
}

// Fetch performs req and decodes the body into T without running adapters.
//
// Unlike Send, any 2xx status is a success. Every other status is reported
// as a request error, including 401 and 5xx, and any decode failure as an
// unhandled response.
func Fetch[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var zero T

	httpReq, err := c.prepare(ctx, req)
	if err != nil {
		return zero, NewUnhandledResponseError(err)
	}

	resp, e := c.roundTrip(ctx, httpReq)
	if e != nil {
		return zero, e
	}
	if resp == nil {
		return zero, NewUnknownResponseError(nil)
	}
	if !resp.IsSuccess() {
		return zero, NewRequestError(resp.StatusCode, resp.Body)
	}

	var out T
	if isEmpty[T]() {
		return out, nil
	}
	if err := codecFor[T]().Decode(resp.Body, &out); err != nil {
		return zero, NewUnhandledResponseError(err)
	}
	return out, nil
}

// prepare builds the descriptor and converts it into an *http.Request.
// Methods outside the supported set are rejected before anything is sent.
func (c *Client) prepare(ctx context.Context, req Request) (*http.Request, error) {
	d := req.Descriptor()
	if !d.Method().Valid() {
		return nil, fmt.Errorf("unsupported method %q", d.Method())
	}
	if err := d.EncodeErr(); err != nil {
		c.log.Warn("request body encoding failed, sending without body", logger.Fields(
			"method", d.Method().String(),
			"url", d.URL().String(),
			logger.FieldError, err.Error(),
		))
	}
	return d.HTTPRequest(ctx)
}

// fail runs the error hooks and returns e.
func (c *Client) fail(req *http.Request, e *Error) error {
	c.chain.onError(req, e)
	return e
}

// recoverDecode classifies a failed decode. A type mismatch gets a second
// chance: if the body is a status envelope with a non-success status, the
// server-reported status wins.
func (c *Client) recoverDecode(resp *Response, codec *Codec, err error) *Error {
	var de *DecodeError
	if !errors.As(err, &de) {
		return NewUnhandledResponseError(err)
	}

	fields := logger.Fields("kind", de.Kind.String(), "type", de.Type, "key", de.Key, "context", de.Context)

	switch de.Kind {
	case DecodeKeyNotFound:
		c.log.Debug("failed to decode due to missing key", fields)
		return NewDecodeError(resp.StatusCode, de, resp.Body)
	case DecodeTypeMismatch:
		var env statusEnvelope
		if codec.Decode(resp.Body, &env) == nil && env.Status != nil && *env.Status != StatusSuccess {
			return NewNoResultError(resp.StatusCode, *env.Status, resp.Body)
		}
		c.log.Debug("failed to decode due to type mismatch", fields)
		return NewDecodeError(resp.StatusCode, de, resp.Body)
	case DecodeValueNotFound:
		c.log.Debug("failed to decode due to missing value", fields)
		return NewDecodeError(resp.StatusCode, de, resp.Body)
	case DecodeDataCorrupted:
		c.log.Debug("failed to decode because the body is not valid JSON", fields)
		e := NewUnknownResponseError(de)
		e.StatusCode = resp.StatusCode
		e.Body = resp.Body
		return e
	default:
		e := NewUnhandledResponseError(de)
		e.StatusCode = resp.StatusCode
		e.Body = resp.Body
		return e
	}
}
