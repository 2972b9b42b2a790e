package dispatch

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ehaomiao/slim/internal/dispatch"

// Dispatch outcomes
const (
	OutcomeHandled  = "handled"
	OutcomeFallback = "fallback"
	OutcomeFatal    = "fatal"
)

type telemetry struct {
	tracer       trace.Tracer
	dispatches   metric.Int64Counter
	redispatches metric.Int64Counter
	depth        metric.Int64Histogram
}

func newTelemetry(tracer trace.Tracer, meter metric.Meter) (*telemetry, error) {
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	dispatches, err := meter.Int64Counter(
		"dispatch_total",
		metric.WithDescription("Total number of exception dispatches by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch counter: %w", err)
	}

	redispatches, err := meter.Int64Counter(
		"dispatch_redispatch_total",
		metric.WithDescription("Total number of re-dispatches caused by failing exception handlers"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redispatch counter: %w", err)
	}

	depth, err := meter.Int64Histogram(
		"dispatch_depth",
		metric.WithDescription("Exception handler invocations per dispatch"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create depth histogram: %w", err)
	}

	return &telemetry{
		tracer:       tracer,
		dispatches:   dispatches,
		redispatches: redispatches,
		depth:        depth,
	}, nil
}

func (t *telemetry) finish(ctx context.Context, span trace.Span, outcome string, invocations int) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	t.dispatches.Add(ctx, 1, attrs)
	t.depth.Record(ctx, int64(invocations), attrs)

	span.SetAttributes(
		attribute.String("dispatch.outcome", outcome),
		attribute.Int("dispatch.invocations", invocations),
	)
}

func (t *telemetry) redispatched(ctx context.Context, handlerID string) {
	t.redispatches.Add(ctx, 1, metric.WithAttributes(attribute.String("handler.id", handlerID)))
}
