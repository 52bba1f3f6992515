package query

import (
	"strings"

	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/internal/llm"
	"github.com/huangsam/codetime/schema"
)

// maxPlainAnswerChars caps a non-JSON reply used verbatim as the answer.
const maxPlainAnswerChars = 4000

// DecodeAnswer turns a raw model reply into the canonical answer shape.
// It never fails: unparseable replies become a plain-text answer, and a
// decoded value that yields neither answer text nor evidence falls back to
// text as well, so prose that merely quotes "[2019]" keeps its words.
func DecodeAnswer(raw string) schema.Answer {
	ans := emptyAnswer()
	plain := contract.TruncateText(strings.TrimSpace(raw), maxPlainAnswerChars)
	v, ok := llm.ExtractJSON(raw)
	if !ok {
		ans.Answer = plain
		return ans
	}

	switch t := v.(type) {
	case map[string]any:
		ans.Answer = answerText(t["answer"])
		if ans.Answer == "" {
			ans.Answer = llm.StringField(t, "response", "summary", "text", "result", "content")
		}
		ans.Evidence = decodeEvidence(t["evidence"])
		ans.Timeline = decodeTimeline(t["timeline"])
		if insights := llm.StringList(t["insights"]); insights != nil {
			ans.Insights = insights
		}
		if ans.Answer == "" && len(ans.Evidence) == 0 {
			ans.Answer = plain
			if structuredReply(raw) {
				ans.Answer = contract.TruncateText(llm.Stringify(t), maxPlainAnswerChars)
			}
		}
	case []any:
		// A bare list is read as evidence.
		ans.Evidence = decodeEvidence(t)
		if len(ans.Evidence) == 0 {
			ans.Answer = plain
		}
	}
	return ans
}

// structuredReply reports whether the reply is a JSON value or a fenced block
// rather than prose that happens to contain one.
func structuredReply(raw string) bool {
	raw = strings.TrimSpace(raw)
	return strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") || strings.HasPrefix(raw, "```")
}

func emptyAnswer() schema.Answer {
	return schema.Answer{
		Evidence: []schema.Evidence{},
		Timeline: []schema.TimelineItem{},
		Insights: []string{},
	}
}

// answerText always yields a string. Structured answers prefer a textual
// field and otherwise become compact JSON.
func answerText(v any) string {
	if obj, ok := v.(map[string]any); ok {
		if s := llm.StringField(obj, "summary", "text", "answer", "content"); s != "" {
			return s
		}
	}
	if list, ok := v.([]any); ok {
		return strings.Join(llm.StringList(list), "\n")
	}
	return llm.Stringify(v)
}

func decodeEvidence(v any) []schema.Evidence {
	items, _ := v.([]any)
	out := []schema.Evidence{}
	for _, item := range items {
		if ev, ok := NormalizeEvidence(item); ok {
			out = append(out, ev)
		}
	}
	return out
}

// NormalizeEvidence reads one evidence item in any of the shapes models
// produce. The commit may be named hash, commit_hash or sha, or be a nested
// commit object; author and date may be flat or nested. Items with neither a
// reference nor a summary are dropped.
func NormalizeEvidence(item any) (schema.Evidence, bool) {
	var ev schema.Evidence
	switch t := item.(type) {
	case string:
		ev.Summary = strings.TrimSpace(t)
	case map[string]any:
		ev.CommitRef = llm.StringField(t, "hash", "commit_hash", "sha", "commit_ref", "commit_id")
		ev.Summary = llm.StringField(t, "summary", "description", "message", "reason")
		ev.Author = personName(t["author"])
		ev.Date = llm.StringField(t, "date", "timestamp")

		switch commit := t["commit"].(type) {
		case string:
			if ev.CommitRef == "" {
				ev.CommitRef = strings.TrimSpace(commit)
			}
		case map[string]any:
			if ev.CommitRef == "" {
				ev.CommitRef = llm.StringField(commit, "hash", "sha", "id")
			}
			if ev.Summary == "" {
				ev.Summary = llm.StringField(commit, "summary", "message", "description")
			}
			if ev.Author == "" {
				ev.Author = personName(commit["author"])
			}
			if ev.Date == "" {
				ev.Date = llm.StringField(commit, "date", "timestamp")
			}
		}
	}
	if ev.CommitRef == "" && ev.Summary == "" {
		return schema.Evidence{}, false
	}
	return ev, true
}

// personName reads an author given as a string or as {name, email}.
func personName(v any) string {
	if obj, ok := v.(map[string]any); ok {
		return llm.StringField(obj, "name", "email", "login")
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func decodeTimeline(v any) []schema.TimelineItem {
	items, _ := v.([]any)
	out := []schema.TimelineItem{}
	for _, item := range items {
		var ti schema.TimelineItem
		switch t := item.(type) {
		case string:
			ti.Event = strings.TrimSpace(t)
		case map[string]any:
			ti.Event = llm.StringField(t, "event", "title", "description", "summary")
			ti.Date = llm.StringField(t, "date", "when", "period")
		}
		if ti.Event != "" {
			out = append(out, ti)
		}
	}
	return out
}
