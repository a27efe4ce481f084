package otelobs

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/petal-labs/toolgate/gateway"
)

func TestObserveDispatchRecordsMetricsAndSpan(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	spanRecorder := tracetest.NewSpanRecorder()
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))

	observer, err := NewDispatchObserver(
		meterProvider.Meter("test"),
		tracerProvider.Tracer("test"),
	)
	if err != nil {
		t.Fatalf("NewDispatchObserver = %v", err)
	}

	observer.ObserveDispatch(gateway.Observation{
		Tool:       "query",
		CallID:     "call-1",
		DurationMS: 12,
		Outcome:    gateway.OutcomeOK,
	})
	observer.ObserveDispatch(gateway.Observation{
		Tool:       "query",
		CallID:     "call-2",
		DurationMS: 3,
		Outcome:    gateway.OutcomeFailed,
		ErrorCode:  "CONNECTION_FAILED",
	})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect = %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("no metrics recorded")
	}

	names := map[string]bool{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			names[m.Name] = true
		}
	}
	if !names["toolgate.dispatch.calls"] {
		t.Error("dispatch counter not recorded")
	}
	if !names["toolgate.dispatch.latency"] {
		t.Error("latency histogram not recorded")
	}

	spans := spanRecorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("span count = %d, want 2", len(spans))
	}
	for _, span := range spans {
		if span.Name() != "gateway.dispatch" {
			t.Errorf("span name = %s", span.Name())
		}
	}
}

func TestSetupProvidersNoEndpointIsNoop(t *testing.T) {
	shutdown, err := SetupProviders(context.Background(), ProviderConfig{})
	if err != nil {
		t.Fatalf("SetupProviders = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown = %v", err)
	}
}
