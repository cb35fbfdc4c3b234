package config

import (
	"strconv"
)

// Config wraps a map[string]any for type-safe value extraction.
// All accessor methods return default values if the key is missing
// or the value cannot be converted to the requested type.
//
// Node descriptors exported by the flow editor are decoded through Config,
// so the accessors tolerate the loose typing of editor JSON (numbers that
// arrive as strings, lists of mixed objects).
type Config struct {
	data map[string]any
}

// New creates a Config from the given map.
// If data is nil, an empty Config is returned.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// String returns the string value for key, or defaultVal if missing or not a string.
func (c Config) String(key, defaultVal string) string {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	if s, ok := v.(string); ok {
		return s
	}
	return defaultVal
}

// Text returns the value for key rendered as text, or defaultVal if missing.
//
// Accepts:
//   - string: used directly
//   - float64, int, int64: formatted without exponent or trailing zeros
//   - bool: "true" or "false"
func (c Config) Text(key, defaultVal string) string {
	v, ok := c.data[key]
	if !ok || v == nil {
		return defaultVal
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	}
	return defaultVal
}

// Section returns the nested object for key as a Config.
// Missing keys and non-object values yield an empty Config.
func (c Config) Section(key string) Config {
	if m, ok := asMap(c.data[key]); ok {
		return New(m)
	}
	return New(nil)
}

// Sections returns the list of nested objects for key.
// Elements that are not objects are skipped.
func (c Config) Sections(key string) []Config {
	list, ok := c.data[key].([]any)
	if !ok {
		return nil
	}
	result := make([]Config, 0, len(list))
	for _, item := range list {
		if m, ok := asMap(item); ok {
			result = append(result, New(m))
		}
	}
	return result
}

// Any returns the raw value for key, or defaultVal if missing.
func (c Config) Any(key string, defaultVal any) any {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	return v
}

// asMap accepts both JSON objects and YAML mappings.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}
