package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/resilience"
)

// Doer is the transport capability: send a request, get a response.
// *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client sends requests through the adapter pipeline. The adapter list is
// fixed at construction, so a Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	doer       Doer
	config     Config
	chain      chain
	log        *logger.Logger
	guard      *resilience.Guard
}

type clientOptions struct {
	adapters []Adapter
	doer     Doer
	log      *logger.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

// WithAdapters appends adapters. They run in the order given.
func WithAdapters(adapters ...Adapter) Option {
	return func(o *clientOptions) {
		o.adapters = append(o.adapters, adapters...)
	}
}

// WithTransport replaces the HTTP transport. Timeout and TLS settings from
// Config do not apply to a custom transport.
func WithTransport(d Doer) Option {
	return func(o *clientOptions) {
		o.doer = d
	}
}

// WithLogger sets the logger used for the client's own diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(o *clientOptions) {
		o.log = l
	}
}

// New creates a new client with the given configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	// Apply TLS configuration
	if cfg.TLS != nil {
		tlsCfg, err := cfg.TLS.Build()
		if err != nil {
			return nil, err
		}
		if tlsCfg != nil {
			transport.TLSClientConfig = tlsCfg
		}
	}

	log := o.log
	if log == nil {
		log = logger.NewDefault(cfg.Name)
	}
	log = log.WithComponent(cfg.Name)

	c := &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		config: cfg,
		log:    log,
	}
	c.doer = c.httpClient
	if o.doer != nil {
		c.doer = o.doer
	}
	c.chain = newChain(o.adapters, log)
	c.guard = resilience.NewGuard(cfg.Name, cfg.policy(),
		resilience.WithFailureClassifier(outage),
		resilience.WithStateChange(func(name string, from, to resilience.State) {
			log.Warn("circuit breaker state changed", logger.Fields(
				"client", name, "from", from.String(), "to", to.String(),
			))
		}),
	)

	return c, nil
}

// Name returns the client name.
func (c *Client) Name() string {
	return c.config.Name
}

// Config returns the client's configuration.
func (c *Client) Config() Config {
	return c.config
}

// IsAvailable reports whether the circuit breaker, if any, lets calls through.
func (c *Client) IsAvailable(_ context.Context) bool {
	return c.guard.Available()
}

// Close releases idle connections.
func (c *Client) Close(_ context.Context) error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// outage decides which call errors count against the circuit breaker:
// transport failures and server errors. The caller giving up does not.
func outage(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	kind, ok := KindOf(err)
	return ok && (kind == KindNetwork || kind == KindServer)
}

// roundTrip is the single suspension point of a call. The resilience guard,
// if configured, wraps the transport send. A 5xx response is returned like
// any other response after the guard has counted it. A nil response with a
// nil error means the transport produced no response.
func (c *Client) roundTrip(ctx context.Context, req *http.Request) (*Response, *Error) {
	var resp *Response
	err := c.guard.Do(ctx, func() error {
		var err error
		resp, err = c.transmit(req)
		if err != nil {
			return NewNetworkError(err)
		}
		if resp != nil && resp.StatusCode >= 500 {
			return NewServerError(resp.StatusCode, resp.Body)
		}
		return nil
	})
	if err == nil || IsServerError(err) {
		return resp, nil
	}
	var e *Error
	if errors.As(err, &e) {
		return nil, e
	}
	// Rejected by the guard, or ctx ended while waiting for it.
	return nil, NewNetworkError(err)
}

// transmit sends req and reads the whole body.
func (c *Client) transmit(req *http.Request) (*Response, error) {
	raw, err := c.doer.Do(req)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var body []byte
	if raw.Body != nil {
		defer func() { _ = raw.Body.Close() }()
		body, err = io.ReadAll(raw.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
	}

	return &Response{
		StatusCode: raw.StatusCode,
		Headers:    flattenHeaders(raw.Header),
		Body:       body,
		Request:    req,
	}, nil
}
