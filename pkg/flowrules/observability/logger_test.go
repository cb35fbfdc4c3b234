package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogger returns a JSON logger writing to a buffer at debug level.
func captureLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	h := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h), buf
}

// records decodes every JSON line written to buf.
func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

// TestEnrichLogger verifies flow context is attached to every record.
func TestEnrichLogger(t *testing.T) {
	logger, buf := captureLogger()

	enriched := EnrichLogger(logger, "6a666fff.bfb128", "smartcity")
	enriched.Info("hello")

	recs := records(t, buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "6a666fff.bfb128", recs[0]["flow_id"])
	assert.Equal(t, "smartcity", recs[0]["service"])
}

// TestLogHelpers verifies each helper emits one record with its level and fields.
func TestLogHelpers(t *testing.T) {
	tests := []struct {
		name   string
		log    func(*slog.Logger)
		level  string
		msg    string
		fields map[string]any
	}{
		{
			name:   "translation start",
			log:    func(l *slog.Logger) { LogTranslationStart(l, "f1", 7) },
			level:  "INFO",
			msg:    "flow translation starting",
			fields: map[string]any{"flow_id": "f1", "nodes": float64(7)},
		},
		{
			name:   "translation complete",
			log:    func(l *slog.Logger) { LogTranslationComplete(l, "f1", 1.5, 2, 3) },
			level:  "INFO",
			msg:    "flow translation completed",
			fields: map[string]any{"flow_id": "f1", "duration_ms": 1.5, "drafts": float64(2), "subscriptions": float64(3)},
		},
		{
			name:   "translation error",
			log:    func(l *slog.Logger) { LogTranslationError(l, "f1", errors.New("boom"), 2) },
			level:  "ERROR",
			msg:    "flow translation failed",
			fields: map[string]any{"flow_id": "f1", "error": "boom"},
		},
		{
			name:   "issue",
			log:    func(l *slog.Logger) { LogIssue(l, "sw1", errors.New("invalid operator")) },
			level:  "WARN",
			msg:    "branch issue",
			fields: map[string]any{"node_id": "sw1", "error": "invalid operator"},
		},
		{
			name:   "identifier assigned",
			log:    func(l *slog.Logger) { LogIdentifierAssigned(l, "d1", "first", "partial") },
			level:  "DEBUG",
			msg:    "subscription identifier assigned",
			fields: map[string]any{"draft_id": "d1", "slot": "first", "state": "partial"},
		},
		{
			name:   "rule emitted",
			log:    func(l *slog.Logger) { LogRuleEmitted(l, "rule_f1_1", "update") },
			level:  "INFO",
			msg:    "rule emitted",
			fields: map[string]any{"rule": "rule_f1_1", "action": "update"},
		},
		{
			name:   "finalize error",
			log:    func(l *slog.Logger) { LogFinalizeError(l, "d1", errors.New("not ready")) },
			level:  "ERROR",
			msg:    "rule generation failed",
			fields: map[string]any{"draft_id": "d1", "error": "not ready"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := captureLogger()
			tt.log(logger)

			recs := records(t, buf)
			require.Len(t, recs, 1)
			assert.Equal(t, tt.level, recs[0]["level"])
			assert.Equal(t, tt.msg, recs[0]["msg"])
			for k, v := range tt.fields {
				assert.Equal(t, v, recs[0][k], "field %s", k)
			}
		})
	}
}

// TestLogHelpers_NilLogger verifies helpers tolerate a nil logger.
func TestLogHelpers_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Nil(t, EnrichLogger(nil, "f", "s"))
		LogTranslationStart(nil, "f", 1)
		LogTranslationComplete(nil, "f", 1, 1, 1)
		LogTranslationError(nil, "f", errors.New("x"), 1)
		LogIssue(nil, "n", errors.New("x"))
		LogIdentifierAssigned(nil, "d", "fixed", "ready")
		LogRuleEmitted(nil, "r", "post")
		LogFinalizeError(nil, "d", errors.New("x"))
	})
}

// TestTimedOperation verifies elapsed time is reported in milliseconds.
func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), 5.0)
}

