package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records translation metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordTranslation records a flow translation with its outcome,
	// duration and the number of drafts produced.
	RecordTranslation(ctx context.Context, success bool, duration time.Duration, drafts int)

	// RecordBranchIssue records a dropped or under-constrained branch.
	RecordBranchIssue(ctx context.Context, nodeID string)

	// RecordRuleEmitted records a generated rule.
	RecordRuleEmitted(ctx context.Context, actionType string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	translations       metric.Int64Counter
	translationLatency metric.Float64Histogram
	drafts             metric.Int64Histogram
	branchIssues       metric.Int64Counter
	rulesEmitted       metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("flowrules")

	translations, err := meter.Int64Counter("flowrules.translation.runs",
		metric.WithDescription("Number of flow translations"),
	)
	if err != nil {
		return nil, err
	}

	translationLatency, err := meter.Float64Histogram("flowrules.translation.latency_ms",
		metric.WithDescription("Flow translation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	drafts, err := meter.Int64Histogram("flowrules.translation.drafts",
		metric.WithDescription("Drafts produced per translation"),
	)
	if err != nil {
		return nil, err
	}

	branchIssues, err := meter.Int64Counter("flowrules.branch.issues",
		metric.WithDescription("Number of dropped or under-constrained branches"),
	)
	if err != nil {
		return nil, err
	}

	rulesEmitted, err := meter.Int64Counter("flowrules.rule.emitted",
		metric.WithDescription("Number of generated rules"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		translations:       translations,
		translationLatency: translationLatency,
		drafts:             drafts,
		branchIssues:       branchIssues,
		rulesEmitted:       rulesEmitted,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordTranslation records a flow translation.
func (m *otelMetrics) RecordTranslation(ctx context.Context, success bool, duration time.Duration, drafts int) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.translations.Add(ctx, 1, attrs)
	m.translationLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if success {
		m.drafts.Record(ctx, int64(drafts))
	}
}

// RecordBranchIssue records a branch issue.
func (m *otelMetrics) RecordBranchIssue(ctx context.Context, nodeID string) {
	m.branchIssues.Add(ctx, 1, metric.WithAttributes(attribute.String("node_id", nodeID)))
}

// RecordRuleEmitted records a generated rule.
func (m *otelMetrics) RecordRuleEmitted(ctx context.Context, actionType string) {
	m.rulesEmitted.Add(ctx, 1, metric.WithAttributes(attribute.String("action", actionType)))
}
