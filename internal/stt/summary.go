package stt

import (
	"strings"
	"unicode/utf8"
)

const DefaultSummaryRunes = 120

// ExtractiveSummarizer keeps whole leading sentences up to MaxRunes.
type ExtractiveSummarizer struct {
	MaxRunes int
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

// Summarize returns the longest prefix of complete sentences that fits in
// MaxRunes. A first sentence that is already too long is cut and ends with
// an ellipsis.
func (s ExtractiveSummarizer) Summarize(text string) string {
	limit := s.MaxRunes
	if limit <= 0 {
		limit = DefaultSummaryRunes
	}
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	cut := 0
	for i, r := range runes[:limit] {
		if isSentenceEnd(r) {
			cut = i + 1
		}
	}
	if cut == 0 {
		return strings.TrimSpace(string(runes[:limit-1])) + "…"
	}
	return strings.TrimSpace(string(runes[:cut]))
}
