package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/apikit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	Environment    string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it as
// the global default. The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, config *MeterConfig, log *logger.Logger) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	if log != nil {
		log.Info("meter initialized", logger.Fields(
			"service", config.ServiceName,
			"endpoint", config.Endpoint,
			"interval", config.Interval.String(),
		))
	}

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metric instrument names.
const (
	MetricRequestTotal    = "apikit.client.requests"
	MetricRequestDuration = "apikit.client.request.duration"
	MetricRequestActive   = "apikit.client.requests.active"
)

// Metrics holds the client call instruments.
type Metrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
}

// NewMetrics creates the client instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requestTotal, err := meter.Int64Counter(MetricRequestTotal,
		metric.WithDescription("Completed client calls by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRequestTotal, err)
	}

	requestDuration, err := meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("Duration of client calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricRequestDuration, err)
	}

	requestActive, err := meter.Int64UpDownCounter(MetricRequestActive,
		metric.WithDescription("Number of client calls in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricRequestActive, err)
	}

	return &Metrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestActive:   requestActive,
	}, nil
}

// RecordRequestStart increments the in-flight count.
func (m *Metrics) RecordRequestStart(ctx context.Context, method, host string) {
	m.requestActive.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrServerHost, host),
	))
}

// RecordRequestEnd decrements the in-flight count and records a finished call.
func (m *Metrics) RecordRequestEnd(ctx context.Context, method, host, outcome string, duration time.Duration) {
	m.requestActive.Add(ctx, -1, metric.WithAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrServerHost, host),
	))
	m.RecordOutcome(ctx, method, host, outcome)
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrServerHost, host),
		attribute.String(AttrOutcome, outcome),
	))
}

// RecordOutcome counts a finished call without timing it.
func (m *Metrics) RecordOutcome(ctx context.Context, method, host, outcome string) {
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrServerHost, host),
		attribute.String(AttrOutcome, outcome),
	))
}
