package labextract

import (
	"regexp"
	"strings"
)

// NotFound is returned by Locate when a label is absent from the text.
const NotFound = -1

// maxFuzzyDistance is the largest edit distance at which a token is still
// accepted as an OCR rendering of a label.
const maxFuzzyDistance = 1

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// MatchKind records how a label was found.
type MatchKind string

const (
	MatchNone  MatchKind = "none"
	MatchExact MatchKind = "exact"
	MatchFuzzy MatchKind = "fuzzy"
)

// Locate returns the offset in text at which label is considered present,
// or NotFound.
//
// A case-insensitive substring match always wins. Only when there is none
// is the text split on whitespace and each token compared, stripped of
// non-word characters, against the stripped label; the first token within
// edit distance 1 matches. The fuzzy offset is measured on the text rebuilt
// with single spaces between tokens, so it can drift from the real position
// when the text holds runs of whitespace. It only bounds where the numeric
// search starts.
func Locate(text, label string) int {
	offset, _ := locate(text, label)
	return offset
}

func locate(text, label string) (int, MatchKind) {
	upperText := strings.ToUpper(text)
	upperLabel := strings.ToUpper(label)
	if idx := strings.Index(upperText, upperLabel); idx >= 0 {
		return idx, MatchExact
	}

	target := normalizeToken(label)
	position := 0
	for _, token := range strings.Fields(text) {
		if Distance(normalizeToken(token), target) <= maxFuzzyDistance {
			return position, MatchFuzzy
		}
		position += len(token) + 1
	}
	return NotFound, MatchNone
}

func normalizeToken(s string) string {
	return strings.ToUpper(nonWord.ReplaceAllString(s, ""))
}
