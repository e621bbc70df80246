package config

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Options is a free-form option bag attached to a source or sink.
// Accessors return def when a key is absent or has an unusable type.
type Options map[string]any

func (o Options) Any(key string) any {
	if o == nil {
		return nil
	}
	return o[key]
}

func (o Options) String(key, def string) string {
	switch v := o.Any(key).(type) {
	case string:
		return v
	case nil:
		return def
	default:
		return fmt.Sprint(v)
	}
}

func (o Options) Bool(key string, def bool) bool {
	switch v := o.Any(key).(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

func (o Options) Int(key string, def int) int {
	switch v := o.Any(key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string option. "\t" and "tab" both mean
// a tab character.
func (o Options) Rune(key string, def rune) rune {
	s, ok := o.Any(key).(string)
	if !ok || s == "" {
		return def
	}
	switch s {
	case `\t`, "tab":
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return def
	}
	return r
}

// StringMap returns a string-to-string view of a nested map option.
// Non-string values are formatted with fmt.Sprint.
func (o Options) StringMap(key string) map[string]string {
	out := map[string]string{}
	switch m := o.Any(key).(type) {
	case map[string]string:
		for k, v := range m {
			out[k] = v
		}
	case map[string]any:
		for k, v := range m {
			if s, ok := v.(string); ok {
				out[k] = s
			} else {
				out[k] = fmt.Sprint(v)
			}
		}
	}
	return out
}

// StringSlice accepts a list or a comma-separated string.
func (o Options) StringSlice(key string) []string {
	switch v := o.Any(key).(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			out = append(out, fmt.Sprint(x))
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}
