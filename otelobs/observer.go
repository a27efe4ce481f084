// Package otelobs provides OpenTelemetry integration for gateway dispatch
// events.
package otelobs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/toolgate/gateway"
)

// DispatchObserver records dispatch outcomes into OpenTelemetry.
type DispatchObserver struct {
	tracer trace.Tracer

	dispatches metric.Int64Counter
	latency    metric.Float64Histogram
}

// NewDispatchObserver creates a dispatch observer bound to the provided
// meter/tracer.
func NewDispatchObserver(meter metric.Meter, tracer trace.Tracer) (*DispatchObserver, error) {
	dispatches, err := meter.Int64Counter(
		"toolgate.dispatch.calls",
		metric.WithDescription("Number of tool dispatches"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"toolgate.dispatch.latency",
		metric.WithDescription("Tool dispatch latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &DispatchObserver{
		tracer:     tracer,
		dispatches: dispatches,
		latency:    latency,
	}, nil
}

// ObserveDispatch records one dispatch outcome.
func (o *DispatchObserver) ObserveDispatch(observation gateway.Observation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool", observation.Tool),
		attribute.String("outcome", string(observation.Outcome)),
	}
	if observation.ErrorCode != "" {
		attrs = append(attrs, attribute.String("error_code", observation.ErrorCode))
	}

	ctx := context.Background()
	options := metric.WithAttributes(attrs...)
	o.dispatches.Add(ctx, 1, options)
	o.latency.Record(ctx, float64(time.Duration(observation.DurationMS)*time.Millisecond)/float64(time.Second), options)

	if o.tracer == nil {
		return
	}
	_, span := o.tracer.Start(ctx, "gateway.dispatch", trace.WithAttributes(
		append(attrs, attribute.String("call_id", observation.CallID))...,
	))
	if observation.Outcome == gateway.OutcomeOK {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, observation.ErrorCode)
	}
	span.End()
}

var _ gateway.Observer = (*DispatchObserver)(nil)
