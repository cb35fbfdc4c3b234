package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the flowrules tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("flowrules")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartTranslateSpan starts a span for a whole flow translation.
	StartTranslateSpan(ctx context.Context, flowID, service string) (context.Context, trace.Span)

	// StartFinalizeSpan starts a span for rule generation of one draft.
	StartFinalizeSpan(ctx context.Context, draftID, ruleName string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartTranslateSpan starts a span for a flow translation.
func (m *otelSpanManager) StartTranslateSpan(ctx context.Context, flowID, service string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "flowrules.translate",
		trace.WithAttributes(
			attribute.String("flow.id", flowID),
			attribute.String("flow.service", service),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartFinalizeSpan starts a span for rule generation.
func (m *otelSpanManager) StartFinalizeSpan(ctx context.Context, draftID, ruleName string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "flowrules.finalize",
		trace.WithAttributes(
			attribute.String("draft.id", draftID),
			attribute.String("rule.name", ruleName),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
