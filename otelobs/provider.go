package otelobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ProviderConfig controls optional OTLP export. An empty Endpoint leaves the
// global no-op providers untouched.
type ProviderConfig struct {
	Endpoint    string
	ServiceName string
	Insecure    bool
}

// SetupProviders installs trace/metric providers exporting via OTLP HTTP and
// returns a shutdown function. With no endpoint configured it is a no-op.
func SetupProviders(ctx context.Context, cfg ProviderConfig) (func(context.Context) error, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "toolgate"
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("otelobs: build resource: %w", err)
	}

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
	}
	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("otelobs: create trace exporter: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otelapi.SetTracerProvider(tracerProvider)

	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	otelapi.SetMeterProvider(meterProvider)

	return func(shutdownCtx context.Context) error {
		ctx, cancel := context.WithTimeout(shutdownCtx, 5*time.Second)
		defer cancel()
		traceErr := tracerProvider.Shutdown(ctx)
		meterErr := meterProvider.Shutdown(ctx)
		if traceErr != nil {
			return traceErr
		}
		return meterErr
	}, nil
}
