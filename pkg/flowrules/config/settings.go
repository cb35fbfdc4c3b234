package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Default endpoints of the collaborating services.
const (
	DefaultRuleEngineURL = "http://perseo-fe:9090"
	DefaultHistoryURL    = "http://cygnus:5050"
)

// Settings holds the translator's runtime settings.
type Settings struct {
	// RuleEngineURL is the base URL of the rule engine. Subscriptions whose
	// draft produces a rule notify <RuleEngineURL>/noticesv2.
	RuleEngineURL string

	// HistoryURL is the base URL of the history store. Subscriptions whose
	// draft ends in a history sink notify <HistoryURL>/notify.
	HistoryURL string

	// DraftStorePath is the SQLite file used to keep drafts between
	// translation and identifier assignment. Empty means in-memory.
	DraftStorePath string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() Settings {
	return Settings{
		RuleEngineURL: DefaultRuleEngineURL,
		HistoryURL:    DefaultHistoryURL,
		LogLevel:      "info",
	}
}

// SettingsFrom extracts Settings from a Config, falling back to defaults
// for every missing value.
//
// Expected layout:
//
//	rule_engine:
//	  url: http://perseo-fe:9090
//	history:
//	  url: http://cygnus:5050
//	store:
//	  path: ./drafts.db
//	log:
//	  level: debug
func SettingsFrom(c Config) Settings {
	def := DefaultSettings()
	return Settings{
		RuleEngineURL:  strings.TrimRight(c.Section("rule_engine").String("url", def.RuleEngineURL), "/"),
		HistoryURL:     strings.TrimRight(c.Section("history").String("url", def.HistoryURL), "/"),
		DraftStorePath: c.Section("store").String("path", def.DraftStorePath),
		LogLevel:       c.Section("log").String("level", def.LogLevel),
	}
}

// LoadSettings reads Settings from a YAML or JSON file.
func LoadSettings(path string) (Settings, error) {
	c, err := FromFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return SettingsFrom(c), nil
}

// Level maps LogLevel to a slog.Level. Unknown values map to info.
func (s Settings) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RuleEngineNotifyURL is the notification endpoint for rule-producing drafts.
func (s Settings) RuleEngineNotifyURL() string {
	return s.RuleEngineURL + "/noticesv2"
}

// HistoryNotifyURL is the notification endpoint for history drafts.
func (s Settings) HistoryNotifyURL() string {
	return s.HistoryURL + "/notify"
}
