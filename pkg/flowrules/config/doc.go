/*
Package config provides type-safe value extraction from map[string]any and
the translator's runtime settings.

# Overview

config wraps a map[string]any and provides typed accessor methods that handle
missing keys and type mismatches gracefully by returning default values.
The flow translator uses it for two things: decoding node descriptors
exported by the flow editor, and reading its own settings file.

# Basic Usage

	node := config.New(map[string]any{
	    "type":     "switch",
	    "property": "payload.temperature",
	    "rules":    []any{map[string]any{"t": "gt", "v": "30"}},
	})

	kind := node.String("type", "")              // "switch"
	for _, rule := range node.Sections("rules") {
	    op := rule.String("t", "")               // "gt"
	    v := rule.Text("v", "")                  // "30"
	}

Text renders numbers and booleans as text, which matters because the editor
exports rule values either as strings or as JSON numbers.

# Settings

	s, err := config.LoadSettings("flowrules.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	url := s.RuleEngineNotifyURL() // http://perseo-fe:9090/noticesv2

Missing values fall back to DefaultSettings.

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation. However, if the original map is modified
externally, behavior is undefined.
*/
package config
