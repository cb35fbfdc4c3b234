package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest creates a test meter provider and returns its reader.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	cleanup := func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	}

	return reader, cleanup
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumFor returns the counter value for the datapoint carrying key=value.
func sumFor(t *testing.T, m *metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum type")
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.Emit() == value {
			total += dp.Value
		}
	}
	return total
}

// TestNewMetricsRecorder verifies a real recorder is returned.
func TestNewMetricsRecorder(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)

	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop, "expected real metrics recorder, got noop")
}

// TestRecordTranslation verifies run count, latency and draft histograms.
func TestRecordTranslation(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordTranslation(ctx, true, 20*time.Millisecond, 3)
	m.RecordTranslation(ctx, false, 5*time.Millisecond, 0)

	rm := collectMetrics(t, reader)

	runs := findMetric(rm, "flowrules.translation.runs")
	require.NotNil(t, runs)
	assert.Equal(t, int64(1), sumFor(t, runs, "success", "true"))
	assert.Equal(t, int64(1), sumFor(t, runs, "success", "false"))

	latency := findMetric(rm, "flowrules.translation.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected Histogram type")
	assert.Len(t, hist.DataPoints, 2)

	drafts := findMetric(rm, "flowrules.translation.drafts")
	require.NotNil(t, drafts)
	dh, ok := drafts.Data.(metricdata.Histogram[int64])
	require.True(t, ok, "expected Histogram type")
	require.Len(t, dh.DataPoints, 1)
	assert.Equal(t, uint64(1), dh.DataPoints[0].Count)
	assert.Equal(t, int64(3), dh.DataPoints[0].Sum)
}

// TestRecordBranchIssueAndRule verifies the per-node and per-action counters.
func TestRecordBranchIssueAndRule(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordBranchIssue(ctx, "sw1")
	m.RecordBranchIssue(ctx, "sw1")
	m.RecordRuleEmitted(ctx, "update")

	rm := collectMetrics(t, reader)

	issues := findMetric(rm, "flowrules.branch.issues")
	require.NotNil(t, issues)
	assert.Equal(t, int64(2), sumFor(t, issues, "node_id", "sw1"))

	rules := findMetric(rm, "flowrules.rule.emitted")
	require.NotNil(t, rules)
	assert.Equal(t, int64(1), sumFor(t, rules, "action", "update"))
}
