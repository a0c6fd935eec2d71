package scoring

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/SAP-F-2025/placement-service/internal/models"
)

// Normalizer maps a response to the form it is compared in
type Normalizer func(string) string

var (
	whitespace    = regexp.MustCompile(`\s+`)
	nonAlnumASCII = regexp.MustCompile(`[^a-z0-9\s]`)
	spokenPunct   = regexp.MustCompile(`[.,!?]`)
)

// NormalizerFor returns the comparison rule of an item kind
func NormalizerFor(kind models.ItemKind) Normalizer {
	switch kind {
	case models.ItemSentence:
		return NormalizeSentence
	case models.ItemToken:
		return NormalizeToken
	case models.ItemSpoken:
		return NormalizeSpoken
	default:
		return NormalizeExact
	}
}

// NormalizeExact compares options verbatim
func NormalizeExact(s string) string {
	return s
}

// NormalizeSentence ignores case and punctuation; inner spacing collapses
func NormalizeSentence(s string) string {
	s = nonAlnumASCII.ReplaceAllString(strings.ToLower(s), "")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// NormalizeToken keeps only letters and digits, so spacing never matters
func NormalizeToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeSpoken drops the punctuation speech recognisers insert
func NormalizeSpoken(s string) string {
	s = spokenPunct.ReplaceAllString(strings.ToLower(s), "")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
