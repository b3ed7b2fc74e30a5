package research

import (
	"context"
	"strings"
)

// TextCompleter is the single language-model capability the pipeline consumes:
// complete a chat given system and user text. A nil TextCompleter means the
// capability is absent and stages use their deterministic fallbacks.
type TextCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// extractJSON pulls the first JSON object out of a model response, tolerating
// markdown code fences and surrounding prose.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			text = rest[:j]
		} else {
			text = rest
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
