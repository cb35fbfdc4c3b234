package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordTranslation does nothing.
func (NoopMetrics) RecordTranslation(_ context.Context, _ bool, _ time.Duration, _ int) {}

// RecordBranchIssue does nothing.
func (NoopMetrics) RecordBranchIssue(_ context.Context, _ string) {}

// RecordRuleEmitted does nothing.
func (NoopMetrics) RecordRuleEmitted(_ context.Context, _ string) {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartTranslateSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartTranslateSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartFinalizeSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartFinalizeSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
