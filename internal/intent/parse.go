package intent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseIntent decodes the classifier's JSON reply. Models occasionally wrap
// the object in a code fence despite instructions, so fences are stripped
// before decoding. An empty action is rejected.
func ParseIntent(raw string) (Intent, error) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "```") {
		parts := strings.Split(raw, "```")
		if len(parts) >= 2 {
			raw = parts[1]
			raw = strings.TrimPrefix(raw, "json")
			raw = strings.TrimSpace(raw)
		}
	}

	var decoded struct {
		Action string `json:"action"`
		Hint   string `json:"hint"`
		// Older prompt revisions used dedicated fields per action.
		Topic    string `json:"topic"`
		Reply    string `json:"reply"`
		Question string `json:"question"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return Intent{}, fmt.Errorf("malformed classifier reply: %w", err)
	}
	if decoded.Action == "" {
		return Intent{}, fmt.Errorf("classifier reply has no action")
	}

	hint := decoded.Hint
	for _, alt := range []string{decoded.Topic, decoded.Reply, decoded.Question} {
		if hint == "" && alt != "" {
			hint = alt
		}
	}
	return Intent{Action: decoded.Action, Hint: strings.TrimSpace(hint)}, nil
}
