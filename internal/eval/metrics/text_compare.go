package metrics

import (
	"regexp"
	"strings"
)

// Match methods, from best to worst
const (
	MethodExact       = "exact"
	MethodNormalized  = "normalized"
	MethodFuzzyHigh   = "fuzzy_high"
	MethodFuzzyMedium = "fuzzy_medium"
	MethodNoMatch     = "no_match"
	MethodBothEmpty   = "both_empty"
	MethodMissing     = "actual_missing"
	MethodUnexpected  = "unexpected_text"
)

var punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// TextComparison scores recognized text against a reference transcription
type TextComparison struct {
	Expected string
	Actual   string

	CharDistance int
	WordDistance int

	// CER and WER are edit distance over reference length; they may exceed 1
	CER float64
	WER float64

	// Similarity is 1 - normalized edit distance on normalized text, in [0, 1]
	Similarity float64
	Method     string
}

// CompareText scores actual against expected
func CompareText(expected, actual string) *TextComparison {
	c := &TextComparison{Expected: expected, Actual: actual}

	expRunes := []rune(strings.TrimSpace(expected))
	actRunes := []rune(strings.TrimSpace(actual))
	expWords := strings.Fields(expected)
	actWords := strings.Fields(actual)

	c.CharDistance = levenshteinDistance(expRunes, actRunes)
	c.WordDistance = levenshteinDistance(expWords, actWords)
	c.CER = errorRate(c.CharDistance, len(expRunes), len(actRunes))
	c.WER = errorRate(c.WordDistance, len(expWords), len(actWords))

	normExp := normalizeForComparison(expected)
	normAct := normalizeForComparison(actual)
	c.Similarity = calculateSimilarity(normExp, normAct)

	switch {
	case normExp == "" && normAct == "":
		c.Method = MethodBothEmpty
		c.Similarity = 1.0
	case normExp == "":
		c.Method = MethodUnexpected
	case normAct == "":
		c.Method = MethodMissing
	case string(expRunes) == string(actRunes):
		c.Method = MethodExact
	case normExp == normAct:
		c.Method = MethodNormalized
	case c.Similarity >= 0.9:
		c.Method = MethodFuzzyHigh
	case c.Similarity >= 0.7:
		c.Method = MethodFuzzyMedium
	default:
		c.Method = MethodNoMatch
	}

	return c
}

func errorRate(distance, refLen, hypLen int) float64 {
	if refLen == 0 {
		if hypLen == 0 {
			return 0
		}
		return 1
	}
	return float64(distance) / float64(refLen)
}

// normalizeForComparison lowercases, strips punctuation and collapses whitespace
func normalizeForComparison(text string) string {
	text = strings.ToLower(text)
	text = punctuation.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// calculateSimilarity calculates similarity ratio (0.0 to 1.0) using Levenshtein distance
func calculateSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 || len(r2) == 0 {
		return 0.0
	}

	distance := levenshteinDistance(r1, r2)
	maxLen := max(len(r1), len(r2))

	// Convert distance to similarity (0.0 to 1.0)
	return 1.0 - float64(distance)/float64(maxLen)
}

// levenshteinDistance counts insertions, deletions and substitutions between two sequences
func levenshteinDistance[T comparable](s1, s2 []T) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	// two rows are enough
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}

			deletion := prev[j] + 1
			insertion := curr[j-1] + 1
			substitution := prev[j-1] + cost

			curr[j] = min(deletion, insertion, substitution)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
