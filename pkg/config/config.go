package config

import (
	"strings"
	"time"
)

// Config is a decoded YAML or JSON document addressed by dotted keys such
// as "data_quality.max_orphan_rate". Accessors never fail: a missing key or a
// value of the wrong shape yields the caller's default.
type Config struct {
	data map[string]any
}

// New wraps data. A nil map is treated as empty.
func New(data map[string]any) Config {
	if data == nil {
		data = map[string]any{}
	}
	return Config{data: data}
}

// lookup resolves key. A top-level key that literally contains dots wins
// over the nested path.
func (c Config) lookup(key string) (any, bool) {
	if v, ok := c.data[key]; ok {
		return v, true
	}
	node := any(c.data)
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		if node, ok = m[part]; !ok {
			return nil, false
		}
	}
	return node, true
}

// get converts the value at key with conv, falling back to def.
func get[T any](c Config, key string, def T, conv func(any) (T, bool)) T {
	v, ok := c.lookup(key)
	if !ok {
		return def
	}
	if out, ok := conv(v); ok {
		return out
	}
	return def
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// asInt accepts whole floats because JSON numbers decode as float64.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asStrings(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// String returns the string at key.
func (c Config) String(key, def string) string { return get(c, key, def, asString) }

// Bool returns the boolean at key.
func (c Config) Bool(key string, def bool) bool { return get(c, key, def, asBool) }

// Int returns the integer at key. Fractional numbers are rejected.
func (c Config) Int(key string, def int) int { return get(c, key, def, asInt) }

// Float returns the number at key.
func (c Config) Float(key string, def float64) float64 { return get(c, key, def, asFloat) }

// StringSlice returns the list at key. A list with any non-string element
// yields def.
func (c Config) StringSlice(key string, def []string) []string {
	return get(c, key, def, asStrings)
}

// Duration returns the duration at key. Bare numbers count in unit
// (config files say "step_timeout_seconds: 300"); strings go through
// time.ParseDuration.
func (c Config) Duration(key string, unit, def time.Duration) time.Duration {
	return get(c, key, def, func(v any) (time.Duration, bool) {
		switch d := v.(type) {
		case time.Duration:
			return d, true
		case string:
			parsed, err := time.ParseDuration(d)
			return parsed, err == nil
		case float64:
			return time.Duration(d * float64(unit)), true
		}
		if n, ok := asInt(v); ok {
			return time.Duration(n) * unit, true
		}
		return 0, false
	})
}

// Has reports whether key resolves to any value.
func (c Config) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// Raw exposes the decoded document. Callers must not modify it.
func (c Config) Raw() map[string]any {
	return c.data
}
