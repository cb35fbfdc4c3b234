package flowrules

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/randalmurphal/flowrules/pkg/flowrules/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestParseFlow verifies both document shapes.
func TestParseFlow(t *testing.T) {
	t.Run("bare node array", func(t *testing.T) {
		f, err := ParseFlow([]byte(`  [{"id":"a","type":"device out"},{"id":"b","type":"history"}]`))
		require.NoError(t, err)
		assert.Equal(t, "", f.ID)
		assert.Len(t, f.Nodes, 2)
	})

	t.Run("flow object", func(t *testing.T) {
		f, err := ParseFlow([]byte(`{"id":"f.1","service":"smartcity","flow":[{"id":"a","type":"device out"}]}`))
		require.NoError(t, err)
		assert.Equal(t, "f.1", f.ID)
		assert.Equal(t, "smartcity", f.Service)
		require.Len(t, f.Nodes, 1)
		assert.Equal(t, "a", f.Nodes[0]["id"])
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseFlow([]byte(`{"flow":`))
		assert.Error(t, err)
		_, err = ParseFlow([]byte(`[1,2]`))
		assert.Error(t, err)
	})
}

// TestRuleName verifies dots become underscores.
func TestRuleName(t *testing.T) {
	assert.Equal(t, "rule_6a666fff_bfb128_1", RuleName("6a666fff.bfb128", 1))
	assert.Equal(t, "rule_a_b_c_12", RuleName("a.b.c", 12))
	assert.Equal(t, "rule_plain_3", RuleName("plain", 3))
}

// TestTranslate_NamesAcrossSources verifies rule numbering is per flow and
// continues across sources.
func TestTranslate_NamesAcrossSources(t *testing.T) {
	other := sourceDesc("src3", "h3")
	other["z"] = "other.tab"

	flow := Flow{ID: "doc", Service: "smartcity", Nodes: []map[string]any{
		sourceDesc("src1", "h1", "h2"),
		sourceDesc("src2", "h1"),
		other,
		historySinkDesc("h1"),
		historySinkDesc("h2"),
		historySinkDesc("h3"),
	}}

	result, err := NewTranslator().Translate(context.Background(), flow)
	require.NoError(t, err)
	require.Len(t, result.Drafts, 4)

	var names []string
	for _, d := range result.Drafts {
		names = append(names, d.Name)
		assert.Equal(t, "smartcity", d.Service)
	}
	assert.Equal(t, []string{
		"rule_6a666fff_bfb128_1",
		"rule_6a666fff_bfb128_2",
		"rule_6a666fff_bfb128_3",
		"rule_other_tab_1",
	}, names)

	assert.Equal(t, "doc", result.FlowID)
	assert.Len(t, result.Subscriptions, 4)

	d, ok := result.Draft(result.Drafts[2].ID)
	require.True(t, ok)
	assert.Same(t, result.Drafts[2], d)
	_, ok = result.Draft("missing")
	assert.False(t, ok)
}

// TestTranslate_FlowIDFallback verifies nodes without a tab use the document id.
func TestTranslate_FlowIDFallback(t *testing.T) {
	src := sourceDesc("src", "h")
	delete(src, "z")

	result, err := NewTranslator().Translate(context.Background(), Flow{ID: "doc.1", Nodes: []map[string]any{src, historySinkDesc("h")}})
	require.NoError(t, err)
	require.Len(t, result.Drafts, 1)
	assert.Equal(t, "doc.1", result.Drafts[0].FlowID)
	assert.Equal(t, "rule_doc_1_1", result.Drafts[0].Name)
}

// TestTranslate_Issues verifies branch problems are collected, not fatal.
func TestTranslate_Issues(t *testing.T) {
	result, err := NewTranslator().Translate(context.Background(), Flow{Nodes: []map[string]any{
		sourceDesc("src", "sw"),
		switchDesc("sw", "payload.a", []map[string]any{switchRule("regex", "x"), switchRule("gt", "1")}, to("out"), to("out")),
		updateSinkDesc("out", "payload"),
	}})
	require.NoError(t, err)
	assert.Len(t, result.Drafts, 1)
	require.Len(t, result.Issues, 1)
	assert.ErrorIs(t, result.Issues[0].Err, ErrInvalidOperator)
	assert.Equal(t, testFlowID, result.FlowID)
}

// TestTranslate_Errors verifies structural problems fail the translation.
func TestTranslate_Errors(t *testing.T) {
	tr := NewTranslator()

	t.Run("dangling wire", func(t *testing.T) {
		_, err := tr.Translate(context.Background(), Flow{Nodes: []map[string]any{sourceDesc("src", "nowhere")}})
		assert.ErrorIs(t, err, ErrNodeNotFound)
	})

	t.Run("cycle", func(t *testing.T) {
		_, err := tr.Translate(context.Background(), Flow{Nodes: []map[string]any{
			sourceDesc("src", "sw"),
			switchDesc("sw", "payload.a", []map[string]any{switchRule("gt", "1")}, to("sw")),
		}})
		assert.ErrorIs(t, err, ErrCyclicGraph)

		var nodeErr *NodeError
		require.ErrorAs(t, err, &nodeErr)
		assert.Equal(t, "src", nodeErr.NodeID)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := tr.Translate(ctx, Flow{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// TestTranslate_Settings verifies notification URLs come from settings.
func TestTranslate_Settings(t *testing.T) {
	settings := config.DefaultSettings()
	settings.RuleEngineURL = "http://rules.local:9090"

	result, err := NewTranslator(WithSettings(settings)).Translate(context.Background(), Flow{Nodes: []map[string]any{
		sourceDesc("src", "out"),
		updateSinkDesc("out", "payload"),
	}})
	require.NoError(t, err)
	require.Len(t, result.Subscriptions, 1)
	assert.Equal(t, "http://rules.local:9090/noticesv2", result.Subscriptions[0].Subscription.Notification.HTTP.URL)
}

// TestTranslation_JSON verifies the serialized form used by the CLI.
func TestTranslation_JSON(t *testing.T) {
	result, err := NewTranslator().Translate(context.Background(), Flow{ID: "f", Nodes: []map[string]any{
		sourceDesc("src", "out"),
		updateSinkDesc("out", "payload"),
	}})
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded struct {
		FlowID        string `json:"flow_id"`
		Subscriptions []struct {
			DraftID string `json:"draft_id"`
			Slot    string `json:"slot"`
		} `json:"subscriptions"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "f", decoded.FlowID)
	require.Len(t, decoded.Subscriptions, 1)
	assert.Equal(t, result.Drafts[0].ID, decoded.Subscriptions[0].DraftID)
	assert.Equal(t, "fixed", decoded.Subscriptions[0].Slot)
}

// TestTranslator_Observability verifies logs, metrics and spans of a
// translation followed by rule generation.
func TestTranslator_Observability(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	originalMP := otel.GetMeterProvider()
	originalTP := otel.GetTracerProvider()
	otel.SetMeterProvider(mp)
	otel.SetTracerProvider(tp)
	defer func() {
		otel.SetMeterProvider(originalMP)
		otel.SetTracerProvider(originalTP)
		_ = mp.Shutdown(context.Background())
		_ = tp.Shutdown(context.Background())
	}()

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tr := NewTranslator(WithLogger(logger), WithMetrics(true), WithTracing(true))
	ctx := context.Background()

	result, err := tr.Translate(ctx, Flow{ID: "f.1", Nodes: []map[string]any{
		sourceDesc("src", "sw"),
		switchDesc("sw", "payload.a", []map[string]any{switchRule("regex", "x"), switchRule("gt", "1")}, to("out"), to("out")),
		updateSinkDesc("out", "payload"),
	}})
	require.NoError(t, err)

	rule, err := tr.Assign(ctx, result.Drafts[0], SlotFixed, "s1")
	require.NoError(t, err)
	require.NotNil(t, rule)

	// Logs
	out := logs.String()
	assert.Contains(t, out, `"msg":"flow translation starting"`)
	assert.Contains(t, out, `"msg":"branch issue"`)
	assert.Contains(t, out, `"msg":"flow translation completed"`)
	assert.Contains(t, out, `"msg":"subscription identifier assigned"`)
	assert.Contains(t, out, `"msg":"rule emitted"`)
	assert.Equal(t, 1, strings.Count(out, `"msg":"branch issue"`))

	// Spans
	names := map[string]bool{}
	for _, s := range exporter.GetSpans() {
		names[s.Name] = true
	}
	assert.True(t, names["flowrules.translate"])
	assert.True(t, names["flowrules.finalize"])

	// Metrics
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
		}
	}
	assert.True(t, found["flowrules.translation.runs"])
	assert.True(t, found["flowrules.branch.issues"])
	assert.True(t, found["flowrules.rule.emitted"])
}
