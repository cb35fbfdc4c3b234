// Package observability provides logging, metrics, and tracing for flow
// translation.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds flow context to a logger.
// Returns a new logger with flow_id and service fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "6a666fff.bfb128", "smartcity")
//	enriched.Info("translating") // includes flow_id, service
func EnrichLogger(logger *slog.Logger, flowID, service string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("flow_id", flowID),
		slog.String("service", service),
	)
}

// LogTranslationStart logs the start of a flow translation.
func LogTranslationStart(logger *slog.Logger, flowID string, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("flow translation starting",
		slog.String("flow_id", flowID),
		slog.Int("nodes", nodeCount),
	)
}

// LogTranslationComplete logs successful translation.
func LogTranslationComplete(logger *slog.Logger, flowID string, durationMs float64, drafts, subscriptions int) {
	if logger == nil {
		return
	}
	logger.Info("flow translation completed",
		slog.String("flow_id", flowID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("drafts", drafts),
		slog.Int("subscriptions", subscriptions),
	)
}

// LogTranslationError logs translation failure.
func LogTranslationError(logger *slog.Logger, flowID string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("flow translation failed",
		slog.String("flow_id", flowID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogIssue logs a dropped or under-constrained branch (non-fatal).
func LogIssue(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("branch issue",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogIdentifierAssigned logs a subscription identifier arriving for a draft.
func LogIdentifierAssigned(logger *slog.Logger, draftID, slot, state string) {
	if logger == nil {
		return
	}
	logger.Debug("subscription identifier assigned",
		slog.String("draft_id", draftID),
		slog.String("slot", slot),
		slog.String("state", state),
	)
}

// LogRuleEmitted logs rule generation.
func LogRuleEmitted(logger *slog.Logger, ruleName, actionType string) {
	if logger == nil {
		return
	}
	logger.Info("rule emitted",
		slog.String("rule", ruleName),
		slog.String("action", actionType),
	)
}

// LogFinalizeError logs a failed rule generation.
func LogFinalizeError(logger *slog.Logger, draftID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("rule generation failed",
		slog.String("draft_id", draftID),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
