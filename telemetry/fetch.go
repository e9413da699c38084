package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// FetchInstrumentName is the span name and metric prefix for resource fetches.
const FetchInstrumentName = "l10n.fetch"

// FetchRecorder records underlying resource fetches and coalesced requests.
type FetchRecorder struct {
	tracer    Tracer
	calls     metric.Int64Counter
	coalesced metric.Int64Counter
}

// NewFetchRecorder builds the fetch instruments from the given providers.
func NewFetchRecorder(providers Providers) *FetchRecorder {
	return &FetchRecorder{
		tracer: NewTracer(FetchInstrumentName, providers),
		calls: DimensionlessMeasure(FetchInstrumentName, ".calls",
			"Count of underlying resource fetches", providers),
		coalesced: DimensionlessMeasure(FetchInstrumentName, ".coalesced",
			"Count of fetch requests served by an existing cache entry", providers),
	}
}

// Start opens a span for one underlying fetch and counts it.
// The returned function ends the span with the fetch outcome.
func (r *FetchRecorder) Start(ctx context.Context, source, mode, path string) (context.Context, func(error)) {
	attrs := metric.WithAttributes(AttrSourceKey.String(source), AttrModeKey.String(mode))
	r.calls.Add(ctx, 1, attrs)

	ctx, span := r.tracer.Start(ctx, mode, trace.WithAttributes(
		AttrSourceKey.String(source),
		AttrPathKey.String(path),
	))
	return ctx, func(err error) {
		r.tracer.End(ctx, span, err)
	}
}

// Coalesced counts a request that joined an existing entry instead of fetching.
func (r *FetchRecorder) Coalesced(ctx context.Context, source string) {
	r.coalesced.Add(ctx, 1, metric.WithAttributes(AttrSourceKey.String(source)))
}
