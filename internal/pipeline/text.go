package pipeline

import (
	"strings"
	"unicode"
)

// fillerWords are transcripts that carry no content and never warrant a
// response on their own.
var fillerWords = map[string]bool{
	"mm": true, "hmm": true, "uh": true, "um": true,
	"huh": true, "ah": true, "eh": true, "oh": true,
}

// Normalize lowercases a transcript, strips punctuation, and collapses
// whitespace runs into single spaces.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// IsFiller reports whether a normalized transcript is a bare filler word
func IsFiller(normalized string) bool {
	return fillerWords[normalized]
}

// MatchTrigger scans a normalized transcript for the first matching trigger
// phrase, in configured order. Matching is by substring.
func MatchTrigger(normalized string, phrases []string) (string, bool) {
	for _, phrase := range phrases {
		if strings.Contains(normalized, Normalize(phrase)) {
			return phrase, true
		}
	}
	return "", false
}
