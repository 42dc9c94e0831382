package nlp

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinKeywordLength is the shortest token kept as a keyword; tokens of this
// length or shorter are dropped.
const MinKeywordLength = 2

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true, "were": true,
	"what": true, "when": true, "where": true, "who": true, "how": true, "can": true,
	"could": true, "would": true, "should": true, "do": true, "does": true, "did": true,
	"and": true, "for": true, "you": true, "your": true, "our": true, "with": true,
	"that": true, "this": true, "have": true, "has": true, "will": true, "from": true,
	"about": true, "any": true, "there": true, "which": true, "why": true, "please": true,
}

func IsStopWord(word string) bool {
	return stopWords[word]
}

// CleanText lowercases, removes diacritics and drops every rune that is not a
// letter, digit, underscore or whitespace. Removed punctuation does not split
// words ("don't" becomes "dont").
func CleanText(text string) string {
	text = strings.ToLower(text)

	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, err := transform.String(t, text)
	if err != nil {
		result = text
	}

	result = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, result)

	return strings.Join(strings.Fields(result), " ")
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// ExtractKeywords returns the distinct keywords of text in order of first
// appearance. The result is deterministic for a given input.
func ExtractKeywords(text string) []string {
	words := strings.Fields(CleanText(text))
	seen := make(map[string]bool, len(words))
	keywords := make([]string, 0, len(words))

	for _, word := range words {
		if len([]rune(word)) <= MinKeywordLength || stopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
	}

	return keywords
}

// MergeKeywords appends the normalized extras that are not already present.
func MergeKeywords(base []string, extras ...string) []string {
	seen := make(map[string]bool, len(base)+len(extras))
	merged := make([]string, 0, len(base)+len(extras))

	for _, k := range base {
		if !seen[k] {
			seen[k] = true
			merged = append(merged, k)
		}
	}
	for _, extra := range extras {
		for _, k := range ExtractKeywords(extra) {
			if !seen[k] {
				seen[k] = true
				merged = append(merged, k)
			}
		}
	}

	return merged
}
