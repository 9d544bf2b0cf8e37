package config

import "strings"

// Vocabulary is the fixed keyword sets the state machine matches against.
// Matching is exact after trimming and lowercasing; free text that merely
// contains a keyword does not match, except for the affirmative-prefix form
// ("yes, make it food-themed").
type Vocabulary struct {
	cancel      map[string]struct{}
	affirmative map[string]struct{}
	negative    map[string]struct{}
	finalize    map[string]struct{}
	back        map[string]struct{}
	help        map[string]struct{}

	// affirmativeList keeps insertion order for prefix matching, longest first.
	affirmativeList []string
}

// Built-in keyword sets, English plus the Japanese equivalents the original
// deployment used.
var (
	defaultCancel      = []string{"cancel", "stop", "quit", "キャンセル", "やめる", "やめて", "中止", "終了"}
	defaultAffirmative = []string{"yes", "ok", "y", "go", "sure", "👍", "はい", "実行", "よろしく", "お願い", "おねがい"}
	defaultNegative    = []string{"no", "n", "🙅", "いいえ", "やめとく"}
	defaultFinalize    = []string{"finalize", "approve", "confirm", "lgtm", "確定", "承認", "決定", "いいよ", "よし"}
	defaultBack        = []string{"other options", "start over", "go back", "他の案", "やり直し", "別の案", "最初から"}
	defaultHelp        = []string{"help", "?", "？", "ヘルプ", "使い方", "何ができる"}
)

// DefaultVocabulary returns the built-in keyword sets.
func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(VocabularyConfig{})
}

// NewVocabulary builds a Vocabulary from config, using the built-in defaults
// for any empty set.
func NewVocabulary(cfg VocabularyConfig) *Vocabulary {
	pick := func(words, fallback []string) []string {
		if len(words) > 0 {
			return words
		}
		return fallback
	}

	affirmative := pick(cfg.Affirmative, defaultAffirmative)
	v := &Vocabulary{
		cancel:          toSet(pick(cfg.Cancel, defaultCancel)),
		affirmative:     toSet(affirmative),
		negative:        toSet(pick(cfg.Negative, defaultNegative)),
		finalize:        toSet(pick(cfg.Finalize, defaultFinalize)),
		back:            toSet(pick(cfg.Back, defaultBack)),
		help:            toSet(pick(cfg.Help, defaultHelp)),
		affirmativeList: normalizeAll(affirmative),
	}
	return v
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[normalize(w)] = struct{}{}
	}
	return set
}

func normalizeAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, normalize(w))
	}
	return out
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// startsWithSeparator reports whether the string begins with a word
// separator (space or comma, ASCII or Japanese).
func startsWithSeparator(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', ',', '、', '，', '。':
			return true
		default:
			return false
		}
	}
	return false
}

func matches(set map[string]struct{}, text string) bool {
	_, ok := set[normalize(text)]
	return ok
}

// IsCancel reports whether the message is a cancellation keyword.
func (v *Vocabulary) IsCancel(text string) bool { return matches(v.cancel, text) }

// IsAffirmative reports whether the message is a confirmation keyword.
func (v *Vocabulary) IsAffirmative(text string) bool { return matches(v.affirmative, text) }

// IsNegative reports whether the message is a decline keyword.
func (v *Vocabulary) IsNegative(text string) bool { return matches(v.negative, text) }

// IsFinalize reports whether the message is a finalize keyword.
func (v *Vocabulary) IsFinalize(text string) bool { return matches(v.finalize, text) }

// IsBack reports whether the message asks to return to an earlier checkpoint.
func (v *Vocabulary) IsBack(text string) bool { return matches(v.back, text) }

// IsHelp reports whether the message asks for help.
func (v *Vocabulary) IsHelp(text string) bool { return matches(v.help, text) }

// AffirmativeWithHint detects the "yes, <extra instructions>" form: an
// affirmative keyword followed by more text. It returns the extra text and
// true on a match. A bare affirmative returns ("", true).
func (v *Vocabulary) AffirmativeWithHint(text string) (string, bool) {
	norm := normalize(text)
	if _, ok := v.affirmative[norm]; ok {
		return "", true
	}
	// Prefer the longest matching keyword, and require a separator after it
	// so "y" never swallows words like "yesterday".
	best := ""
	for _, kw := range v.affirmativeList {
		if len(kw) <= len(best) || !strings.HasPrefix(norm, kw) || len(norm) == len(kw) {
			continue
		}
		if !startsWithSeparator(norm[len(kw):]) {
			continue
		}
		best = kw
	}
	if best == "" {
		return "", false
	}
	rest := strings.TrimLeft(norm[len(best):], ",、， \t")
	return strings.TrimSpace(rest), true
}
