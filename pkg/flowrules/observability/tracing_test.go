package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest creates a test tracer provider with an in-memory span recorder.
func setupTracingTest(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	// Update the package-level tracer
	tracer = otel.Tracer("flowrules")

	cleanup := func() {
		otel.SetTracerProvider(originalProvider)
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	}

	return exporter, cleanup
}

func attrString(s tracetest.SpanStub, key string) string {
	for _, a := range s.Attributes {
		if string(a.Key) == key {
			return a.Value.AsString()
		}
	}
	return ""
}

// TestStartTranslateSpan verifies span name and flow attributes.
func TestStartTranslateSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()
	_, span := m.StartTranslateSpan(context.Background(), "6a666fff.bfb128", "smartcity")
	m.EndSpanWithError(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "flowrules.translate", spans[0].Name)
	assert.Equal(t, "6a666fff.bfb128", attrString(spans[0], "flow.id"))
	assert.Equal(t, "smartcity", attrString(spans[0], "flow.service"))
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
}

// TestStartFinalizeSpan verifies finalize spans nest under the translate span.
func TestStartFinalizeSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()
	ctx, parent := m.StartTranslateSpan(context.Background(), "f1", "")
	_, child := m.StartFinalizeSpan(ctx, "draft-1", "rule_f1_1")
	m.EndSpanWithError(child, nil)
	m.EndSpanWithError(parent, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	var finalize *tracetest.SpanStub
	for i := range spans {
		if spans[i].Name == "flowrules.finalize" {
			finalize = &spans[i]
		}
	}
	require.NotNil(t, finalize)
	assert.Equal(t, "draft-1", attrString(*finalize, "draft.id"))
	assert.Equal(t, "rule_f1_1", attrString(*finalize, "rule.name"))
	assert.True(t, finalize.Parent.IsValid(), "finalize span should have a parent")
}

// TestEndSpanWithError verifies the error is recorded and the status set.
func TestEndSpanWithError(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()
	_, span := m.StartFinalizeSpan(context.Background(), "d", "r")
	m.EndSpanWithError(span, errors.New("draft not ready"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "draft not ready", spans[0].Status.Description)
	require.NotEmpty(t, spans[0].Events)
	assert.Equal(t, "exception", spans[0].Events[0].Name)

	assert.NotPanics(t, func() { m.EndSpanWithError(nil, nil) })
}

// TestAddSpanEvent verifies events land on the span in context.
func TestAddSpanEvent(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()
	ctx, span := m.StartTranslateSpan(context.Background(), "f1", "")
	m.AddSpanEvent(ctx, "branch.issue", attribute.String("node_id", "sw1"))
	m.EndSpanWithError(span, nil)

	// No span in context: nothing happens.
	m.AddSpanEvent(context.Background(), "ignored")

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "branch.issue", spans[0].Events[0].Name)
}
