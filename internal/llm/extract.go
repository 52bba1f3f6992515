package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// fencedBlock matches a fenced code block, optionally tagged as json.
var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")

// ExtractJSON finds the structured value inside a model reply. It tries the
// whole reply, then every fenced code block, then the widest bracketed span.
// The second return is false when the reply holds no JSON array or object.
func ExtractJSON(raw string) (any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	if v, ok := decodeStructured(raw); ok {
		return v, true
	}
	for _, m := range fencedBlock.FindAllStringSubmatch(raw, -1) {
		if v, ok := decodeStructured(m[1]); ok {
			return v, true
		}
	}
	// Whichever bracket opens first is the outermost value.
	pairs := [][2]string{{"[", "]"}, {"{", "}"}}
	if obj, arr := strings.Index(raw, "{"), strings.Index(raw, "["); obj != -1 && (arr == -1 || obj < arr) {
		pairs[0], pairs[1] = pairs[1], pairs[0]
	}
	for _, pair := range pairs {
		start := strings.Index(raw, pair[0])
		end := strings.LastIndex(raw, pair[1])
		if start == -1 || end <= start {
			continue
		}
		if v, ok := decodeStructured(raw[start : end+1]); ok {
			return v, true
		}
	}
	return nil, false
}

// decodeStructured accepts only arrays and objects.
func decodeStructured(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case []any, map[string]any:
		return v, true
	}
	return nil, false
}

// StringField returns the first non-empty value among keys, rendered as text.
// Nested values are stringified rather than dropped.
func StringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := Stringify(m[k]); s != "" {
			return s
		}
	}
	return ""
}

// Stringify renders any decoded JSON value as trimmed text.
// Objects and arrays become compact JSON; nil becomes "".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		out, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(out)
	}
}

// StringList converts a decoded value into a list of non-empty strings.
// A lone scalar becomes a one-element list.
func StringList(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s := Stringify(item); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := Stringify(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}
