package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Tracer interface {
	Start(ctx context.Context, methodName string, options ...trace.SpanStartOption) (context.Context, trace.Span)
	End(ctx context.Context, span trace.Span, err error, options ...trace.SpanEndOption)
}

// Providers carries the otel providers instruments are created from.
// Zero values fall back to the global providers.
type Providers struct {
	Meter  metric.MeterProvider
	Tracer trace.TracerProvider
}

func (p Providers) meterProvider() metric.MeterProvider {
	if p.Meter == nil {
		return otel.GetMeterProvider()
	}
	return p.Meter
}

func (p Providers) tracerProvider() trace.TracerProvider {
	if p.Tracer == nil {
		return otel.GetTracerProvider()
	}
	return p.Tracer
}
