// Package telemetry sets up OpenTelemetry metrics and tracing for PageSim.
// Metrics are exported in Prometheus format.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// Config holds all the configuration for the telemetry system.
type Config struct {
	// Enabled toggles the entire telemetry system on or off.
	Enabled bool `yaml:"enabled"`
	// ServiceName appears in traces and metrics.
	ServiceName string `yaml:"service_name"`
	// PrometheusPort serves /metrics. Zero means the caller mounts Handler itself.
	PrometheusPort int `yaml:"prometheus_port"`
	// TraceSampleRatio is the fraction of traces to sample. Defaults to 1.0.
	TraceSampleRatio float64 `yaml:"trace_sample_ratio"`
}

func DefaultConfig() Config {
	return Config{ServiceName: "pagesim", PrometheusPort: 9464, TraceSampleRatio: 1.0}
}

// Telemetry represents the active telemetry components.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
}

// ShutdownFunc gracefully shuts down the telemetry providers.
type ShutdownFunc func(ctx context.Context) error

// Noop returns telemetry whose tracer and meter record nothing.
func Noop() *Telemetry {
	return &Telemetry{
		Tracer: nooptrace.NewTracerProvider().Tracer(""),
		Meter:  noop.NewMeterProvider().Meter(""),
	}
}

// Handler serves the Prometheus exposition of the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// New initializes the OpenTelemetry SDK for metrics and tracing.
func New(config Config) (*Telemetry, ShutdownFunc, error) {
	if !config.Enabled {
		return Noop(), func(ctx context.Context) error { return nil }, nil
	}
	if config.ServiceName == "" {
		config.ServiceName = "pagesim"
	}

	// --- General OpenTelemetry Setup ---
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// --- Metrics Setup (Prometheus) ---
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	// Callers that run their own HTTP server mount Handler instead.
	var metricsServer *http.Server
	if config.PrometheusPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", config.PrometheusPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				otel.Handle(fmt.Errorf("prometheus http server failed: %w", err))
			}
		}()
	}

	// --- Tracing Setup ---
	sampleRatio := config.TraceSampleRatio
	if sampleRatio <= 0 || sampleRatio > 1 {
		sampleRatio = 1.0
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(sampleRatio)),
	)

	// --- Global Providers ---
	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	tel := &Telemetry{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
		Tracer:         tracerProvider.Tracer(config.ServiceName),
		Meter:          meterProvider.Meter(config.ServiceName),
	}

	// The metrics server stops before the providers.
	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if metricsServer != nil {
			if err := metricsServer.Shutdown(ctx); err != nil {
				return fmt.Errorf("failed to shutdown metrics server: %w", err)
			}
		}
		if err := tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown tracer provider: %w", err)
		}
		if err := meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown meter provider: %w", err)
		}
		return nil
	}

	return tel, shutdown, nil
}
