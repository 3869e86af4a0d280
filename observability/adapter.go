package observability

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/apikit/httpclient"
)

// OutcomeSuccess is the outcome attribute of a successful call. Failed calls
// carry the error kind name instead.
const OutcomeSuccess = "success"

type spanKey struct{}

// TracingAdapter opens a client span for every call, propagates it to the
// server through the request headers and ends it when the call finishes.
type TracingAdapter struct {
	httpclient.NopAdapter
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewTracingAdapter creates a tracing adapter. A nil provider or propagator
// falls back to the global one.
func NewTracingAdapter(tp trace.TracerProvider, propagator propagation.TextMapPropagator) *TracingAdapter {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}
	return &TracingAdapter{
		tracer:     tp.Tracer(instrumentationName),
		propagator: propagator,
	}
}

// BeforeSend starts the span and injects the trace context headers.
func (a *TracingAdapter) BeforeSend(req *http.Request) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrHTTPMethod, req.Method),
		attribute.String(AttrURL, req.URL.Redacted()),
		attribute.String(AttrServerHost, req.URL.Hostname()),
	}
	if id := req.Header.Get(httpclient.HeaderRequestID); id != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, id))
	}

	ctx, span := a.tracer.Start(req.Context(), SpanHTTPRequest,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	a.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))
	*req = *req.WithContext(context.WithValue(ctx, spanKey{}, span))
}

// OnResponse records the status code.
func (a *TracingAdapter) OnResponse(resp *httpclient.Response) {
	if resp.Request == nil {
		return
	}
	if span, ok := callSpan(resp.Request); ok {
		span.SetAttributes(attribute.Int(AttrStatusCode, resp.StatusCode))
	}
}

// OnSuccess ends the span with an OK status.
func (a *TracingAdapter) OnSuccess(req *http.Request) {
	if span, ok := callSpan(req); ok {
		span.SetStatus(codes.Ok, "")
		span.End()
	}
}

// OnError records the error on the span and ends it. A call that failed
// before BeforeSend has no span.
func (a *TracingAdapter) OnError(req *http.Request, err *httpclient.Error) {
	if req == nil {
		return
	}
	span, ok := callSpan(req)
	if !ok {
		return
	}
	span.RecordError(err)
	span.SetAttributes(attribute.String(AttrErrorKind, err.Kind.String()))
	span.SetStatus(codes.Error, err.Error())
	span.End()
}

func callSpan(req *http.Request) (trace.Span, bool) {
	span, ok := req.Context().Value(spanKey{}).(trace.Span)
	return span, ok
}

type startKey struct{}

// MetricsAdapter counts calls by outcome and records their duration.
type MetricsAdapter struct {
	httpclient.NopAdapter
	metrics *Metrics
	now     func() time.Time
}

// NewMetricsAdapter creates the client instruments on meter. A nil meter
// uses the global meter provider.
func NewMetricsAdapter(meter metric.Meter) (*MetricsAdapter, error) {
	if meter == nil {
		meter = Meter(instrumentationName)
	}
	m, err := NewMetrics(meter)
	if err != nil {
		return nil, err
	}
	return &MetricsAdapter{metrics: m, now: time.Now}, nil
}

// BeforeSend marks the call as in flight.
func (a *MetricsAdapter) BeforeSend(req *http.Request) {
	ctx := context.WithValue(req.Context(), startKey{}, a.now())
	a.metrics.RecordRequestStart(ctx, req.Method, req.URL.Hostname())
	*req = *req.WithContext(ctx)
}

// OnSuccess records a successful call.
func (a *MetricsAdapter) OnSuccess(req *http.Request) {
	a.finish(req, OutcomeSuccess)
}

// OnError records a failed call under its error kind.
func (a *MetricsAdapter) OnError(req *http.Request, err *httpclient.Error) {
	if req == nil {
		a.metrics.RecordOutcome(context.Background(), "", "", err.Kind.String())
		return
	}
	a.finish(req, err.Kind.String())
}

func (a *MetricsAdapter) finish(req *http.Request, outcome string) {
	ctx := req.Context()
	start, ok := ctx.Value(startKey{}).(time.Time)
	if !ok {
		a.metrics.RecordOutcome(ctx, req.Method, req.URL.Hostname(), outcome)
		return
	}
	a.metrics.RecordRequestEnd(ctx, req.Method, req.URL.Hostname(), outcome, a.now().Sub(start))
}
