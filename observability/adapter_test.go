package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/apikit/httpclient"
	"github.com/kbukum/apikit/logger"
)

type item struct {
	ID int `json:"id"`
}

func newTestClient(t *testing.T, adapters ...httpclient.Adapter) *httpclient.Client {
	t.Helper()
	c, err := httpclient.New(httpclient.Config{Name: "test"},
		httpclient.WithLogger(logger.Nop()),
		httpclient.WithAdapters(adapters...),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func newServer(t *testing.T, status int, seen *http.Header) *url.URL {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = r.Header.Clone()
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	t.Cleanup(srv.Close)
	u, _ := url.Parse(srv.URL)
	return u
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingAdapter_Success(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var seen http.Header
	base := newServer(t, http.StatusOK, &seen)
	c := newTestClient(t, httpclient.RequestIDAdapter{}, NewTracingAdapter(tp, propagation.TraceContext{}))

	if _, err := httpclient.Send[item](context.Background(), c, httpclient.Basic(base, "items/7")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != SpanHTTPRequest {
		t.Errorf("span name = %q", span.Name())
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", span.Status().Code)
	}
	if v, ok := attrValue(span.Attributes(), AttrStatusCode); !ok || v.AsInt64() != 200 {
		t.Errorf("%s = %v (present %v)", AttrStatusCode, v.AsInt64(), ok)
	}
	if v, ok := attrValue(span.Attributes(), AttrHTTPMethod); !ok || v.AsString() != "GET" {
		t.Errorf("%s = %q", AttrHTTPMethod, v.AsString())
	}
	if v, ok := attrValue(span.Attributes(), AttrRequestID); !ok || v.AsString() != seen.Get(httpclient.HeaderRequestID) {
		t.Errorf("%s = %q, header %q", AttrRequestID, v.AsString(), seen.Get(httpclient.HeaderRequestID))
	}

	traceparent := seen.Get("traceparent")
	if !strings.Contains(traceparent, span.SpanContext().TraceID().String()) {
		t.Errorf("traceparent %q does not carry trace id %s", traceparent, span.SpanContext().TraceID())
	}
}

func TestTracingAdapter_ServerError(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	base := newServer(t, http.StatusBadGateway, nil)
	c := newTestClient(t, NewTracingAdapter(tp, propagation.TraceContext{}))

	_, err := httpclient.Send[item](context.Background(), c, httpclient.Basic(base, "items"))
	if !httpclient.IsServerError(err) {
		t.Fatalf("expected server error, got %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(spans))
	}
	span := spans[0]
	if span.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", span.Status().Code)
	}
	if v, _ := attrValue(span.Attributes(), AttrErrorKind); v.AsString() != "server" {
		t.Errorf("%s = %q", AttrErrorKind, v.AsString())
	}
	if len(span.Events()) == 0 {
		t.Error("expected the error to be recorded as an event")
	}
}

func TestTracingAdapter_ParentSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, parent := tp.Tracer("test").Start(context.Background(), "parent")

	base := newServer(t, http.StatusOK, nil)
	c := newTestClient(t, NewTracingAdapter(tp, propagation.TraceContext{}))
	if _, err := httpclient.Send[item](ctx, c, httpclient.Basic(base, "items")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("the parent must stay open; got %d ended spans", len(spans))
	}
	if spans[0].Parent().SpanID() != parent.SpanContext().SpanID() {
		t.Error("client span is not a child of the caller's span")
	}
	parent.End()
}

func TestTracingAdapter_NoSpanHooks(t *testing.T) {
	a := NewTracingAdapter(nil, nil)

	a.OnError(nil, httpclient.NewUnhandledResponseError(nil))

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	a.OnSuccess(req)
	a.OnResponse(&httpclient.Response{StatusCode: 200})
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func outcomeCounts(t *testing.T, m metricdata.Metrics) map[string]int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: unexpected data %T", m.Name, m.Data)
	}
	out := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key(AttrOutcome))
		out[v.AsString()] += dp.Value
	}
	return out
}

func TestMetricsAdapter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	a, err := NewMetricsAdapter(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetricsAdapter: %v", err)
	}

	ok := newServer(t, http.StatusOK, nil)
	missing := newServer(t, http.StatusNotFound, nil)
	c := newTestClient(t, a)

	for i := 0; i < 2; i++ {
		if _, err := httpclient.Send[item](context.Background(), c, httpclient.Basic(ok, "items")); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	if _, err := httpclient.Send[item](context.Background(), c, httpclient.Basic(missing, "items")); !httpclient.IsRequestError(err) {
		t.Fatalf("expected request error, got %v", err)
	}

	metrics := collect(t, reader)

	counts := outcomeCounts(t, metrics[MetricRequestTotal])
	if counts[OutcomeSuccess] != 2 {
		t.Errorf("success count = %d, want 2", counts[OutcomeSuccess])
	}
	if counts["request"] != 1 {
		t.Errorf("request count = %d, want 1", counts["request"])
	}

	hist, isHist := metrics[MetricRequestDuration].Data.(metricdata.Histogram[float64])
	if !isHist {
		t.Fatalf("unexpected duration data %T", metrics[MetricRequestDuration].Data)
	}
	var n uint64
	for _, dp := range hist.DataPoints {
		n += dp.Count
	}
	if n != 3 {
		t.Errorf("duration observations = %d, want 3", n)
	}

	active, isSum := metrics[MetricRequestActive].Data.(metricdata.Sum[int64])
	if !isSum {
		t.Fatalf("unexpected active data %T", metrics[MetricRequestActive].Data)
	}
	for _, dp := range active.DataPoints {
		if dp.Value != 0 {
			t.Errorf("in-flight = %d after all calls finished", dp.Value)
		}
	}
}

func TestMetricsAdapter_Duration(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	a, err := NewMetricsAdapter(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetricsAdapter: %v", err)
	}
	now := time.Unix(0, 0)
	a.now = func() time.Time { return now }

	req := httptest.NewRequest(http.MethodGet, "http://example.com/items", nil)
	a.BeforeSend(req)
	now = now.Add(250 * time.Millisecond)
	a.OnSuccess(req)

	hist := collect(t, reader)[MetricRequestDuration].Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Sum != 0.25 {
		t.Errorf("unexpected duration points %+v", hist.DataPoints)
	}
}

func TestMetricsAdapter_ErrorWithoutRequest(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	a, err := NewMetricsAdapter(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetricsAdapter: %v", err)
	}
	a.OnError(nil, httpclient.NewUnhandledResponseError(nil))

	counts := outcomeCounts(t, collect(t, reader)[MetricRequestTotal])
	if counts["unhandled_response"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
