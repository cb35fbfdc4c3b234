package flowrules

import (
	"log/slog"

	"github.com/randalmurphal/flowrules/pkg/flowrules/config"
	"github.com/randalmurphal/flowrules/pkg/flowrules/observability"
	"github.com/randalmurphal/flowrules/pkg/flowrules/template"
)

// translatorConfig holds configuration for a Translator.
type translatorConfig struct {
	settings config.Settings
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
	resolver *template.Resolver
}

// defaultTranslatorConfig returns the default configuration: default
// endpoints, no logging, no-op metrics and tracing.
func defaultTranslatorConfig() translatorConfig {
	return translatorConfig{
		settings: config.DefaultSettings(),
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
		resolver: defaultResolver,
	}
}

// Option configures a Translator.
type Option func(*translatorConfig)

// WithSettings sets the endpoints subscriptions notify.
// Default: config.DefaultSettings()
func WithSettings(s config.Settings) Option {
	return func(c *translatorConfig) {
		c.settings = s
	}
}

// WithLogger enables structured logging.
// Default: nil (no logging)
//
// Example:
//
//	t := flowrules.NewTranslator(flowrules.WithLogger(slog.Default()))
func WithLogger(logger *slog.Logger) Option {
	return func(c *translatorConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics through the global meter provider.
// Default: disabled
func WithMetrics(enabled bool) Option {
	return func(c *translatorConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables OpenTelemetry spans through the global tracer provider.
// Default: disabled
func WithTracing(enabled bool) Option {
	return func(c *translatorConfig) {
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithResolver sets the resolver used for templated action fields.
// A nil resolver is ignored.
func WithResolver(r *template.Resolver) Option {
	return func(c *translatorConfig) {
		if r != nil {
			c.resolver = r
		}
	}
}
