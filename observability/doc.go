// Package observability connects the HTTP client to OpenTelemetry.
//
// TracingAdapter and MetricsAdapter plug into an httpclient.Client. The
// tracing adapter opens a client span per call and injects W3C trace
// context headers; the metrics adapter counts calls by outcome and records
// their duration.
//
//	tp, err := observability.InitTracer(ctx, &tracerCfg, log)
//	defer tp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetricsAdapter(nil)
//	client, err := httpclient.New(cfg, httpclient.WithAdapters(
//		observability.NewTracingAdapter(nil, nil),
//		metrics,
//	))
package observability
