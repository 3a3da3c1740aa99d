package providers

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// ParseLabels reads a JSON array of strings from model output, which may be
// wrapped in a markdown code fence. Malformed data yields an empty list.
func ParseLabels(raw string) []string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	var parsed []string
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		slog.Warn("Failed to parse label list", "raw", raw, "error", err)
		return []string{}
	}
	return DedupeLabels(nil, parsed)
}

// DedupeLabels appends the labels not already present in existing, keeping
// first-seen order. Labels are trimmed; blanks are dropped.
func DedupeLabels(existing []string, labels []string) []string {
	out := make([]string, 0, len(existing)+len(labels))
	seen := make(map[string]struct{}, len(existing)+len(labels))
	for _, group := range [][]string{existing, labels} {
		for _, label := range group {
			label = strings.TrimSpace(label)
			if label == "" {
				continue
			}
			if _, dup := seen[label]; dup {
				continue
			}
			seen[label] = struct{}{}
			out = append(out, label)
		}
	}
	return out
}
