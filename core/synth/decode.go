package synth

import (
	"strings"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/internal/llm"
	"github.com/huangsam/codetime/schema"
)

// Confidence labels attached to decoded patterns.
const (
	StructuredConfidence = "medium"
	FallbackConfidence   = "low"
)

// FallbackType marks a pattern built from unstructured model text.
const FallbackType = "insight"

// maxFallbackChars caps how much raw text a fallback insight keeps.
const maxFallbackChars = 2000

// Decoded is the canonical form of one pattern reply.
type Decoded struct {
	Patterns []schema.PatternRecord
	Insights []string
}

// Decode normalizes a model reply. The reply may be a list of pattern
// objects, a single object, an object wrapping a list, or free text; free
// text becomes one low-confidence insight pattern holding the raw text.
func Decode(raw string) Decoded {
	v, ok := llm.ExtractJSON(raw)
	if !ok {
		return fallback(raw)
	}

	var d Decoded
	empty := false // The model deliberately reported no patterns
	switch t := v.(type) {
	case []any:
		d.addItems(t)
		empty = len(t) == 0
	case map[string]any:
		if items, ok := wrappedList(t); ok {
			d.addItems(items)
			empty = len(items) == 0
		} else {
			d.addObject(t)
		}
	}
	if len(d.Patterns) == 0 && len(d.Insights) == 0 && !empty {
		return fallback(raw)
	}
	return d
}

// wrappedList finds a pattern list nested under a well-known key.
func wrappedList(m map[string]any) ([]any, bool) {
	for _, k := range []string{"patterns", "architectural_patterns", "results", "items"} {
		if items, ok := m[k].([]any); ok {
			return items, true
		}
	}
	return nil, false
}

func (d *Decoded) addItems(items []any) {
	for _, item := range items {
		switch t := item.(type) {
		case map[string]any:
			d.addObject(t)
		case string:
			if s := strings.TrimSpace(t); s != "" {
				d.Insights = append(d.Insights, s)
			}
		}
	}
}

func (d *Decoded) addObject(m map[string]any) {
	p := schema.PatternRecord{
		Type:            llm.StringField(m, "type", "pattern", "name", "title"),
		Description:     llm.StringField(m, "description", "summary", "details", "explanation"),
		Impact:          normalizeImpact(llm.StringField(m, "impact", "severity")),
		CommitsInvolved: llm.StringList(firstPresent(m, "commits_involved", "commits", "hashes")),
		Confidence:      llm.StringField(m, "confidence"),
	}
	if p.Type == "" && p.Description == "" {
		return
	}
	if p.Type == "" {
		p.Type = "pattern"
	}
	if p.Confidence == "" {
		p.Confidence = StructuredConfidence
	}
	d.Patterns = append(d.Patterns, p)
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// normalizeImpact maps free-form impact text onto the three known levels.
func normalizeImpact(s string) schema.ImpactLevel {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "high"), strings.Contains(s, "major"), strings.Contains(s, "critical"):
		return schema.HighImpact
	case strings.Contains(s, "low"), strings.Contains(s, "minor"):
		return schema.LowImpact
	default:
		return schema.MediumImpact
	}
}

func fallback(raw string) Decoded {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Decoded{}
	}
	return Decoded{Patterns: []schema.PatternRecord{{
		Type:        FallbackType,
		Description: contract.TruncateText(text, maxFallbackChars),
		Impact:      schema.LowImpact,
		Confidence:  FallbackConfidence,
	}}}
}
