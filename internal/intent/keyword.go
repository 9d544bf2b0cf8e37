package intent

import (
	"context"
	"strings"
)

// KeywordClassifier routes by substring match on agent names. It backs demo
// mode and offline runs, where no model is available; anything that does not
// name an agent is unroutable.
type KeywordClassifier struct {
	names []string
}

// NewKeywordClassifier creates a classifier recognizing the given agent names.
func NewKeywordClassifier(names []string) *KeywordClassifier {
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}
	return &KeywordClassifier{names: lowered}
}

// Classify implements Classifier.
func (k *KeywordClassifier) Classify(_ context.Context, text string) (Intent, error) {
	lower := strings.ToLower(text)
	for _, name := range k.names {
		if strings.Contains(lower, name) {
			return Intent{Action: name, Hint: strings.TrimSpace(text)}, nil
		}
	}
	return Intent{}, ErrUnroutable
}
