package metrics

import "testing"

func TestCompareText(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		actual   string
		method   string
		cer      float64
		wer      float64
	}{
		{name: "exact", expected: "NO PARKING", actual: "NO PARKING", method: MethodExact},
		{name: "surrounding whitespace", expected: "NO PARKING", actual: "  NO PARKING\n", method: MethodExact},
		{name: "case and punctuation", expected: "No Parking!", actual: "NO PARKING", method: MethodNormalized, cer: 8.0 / 11, wer: 1.0},
		{name: "one substitution", expected: "GRAND CRU CLASSE", actual: "GRAND CRU CLASSF", method: MethodFuzzyHigh, cer: 1.0 / 16, wer: 1.0 / 3},
		{name: "unrelated", expected: "EXIT", actual: "WELCOME", method: MethodNoMatch, cer: 6.0 / 4, wer: 1.0},
		{name: "blank image", expected: "", actual: "", method: MethodBothEmpty},
		{name: "nothing recognized", expected: "EXIT", actual: "", method: MethodMissing, cer: 1.0, wer: 1.0},
		{name: "hallucinated text", expected: "", actual: "EXIT", method: MethodUnexpected, cer: 1.0, wer: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CompareText(tt.expected, tt.actual)
			if c.Method != tt.method {
				t.Errorf("Expected method %s, got %s (similarity %f)", tt.method, c.Method, c.Similarity)
			}
			if !approx(c.CER, tt.cer) {
				t.Errorf("Expected CER %f, got %f", tt.cer, c.CER)
			}
			if !approx(c.WER, tt.wer) {
				t.Errorf("Expected WER %f, got %f", tt.wer, c.WER)
			}
			if c.Similarity < 0 || c.Similarity > 1 {
				t.Errorf("Similarity out of range: %f", c.Similarity)
			}
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1, s2   string
		expected int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"café", "cafe", 1},
	}

	for _, tt := range tests {
		if got := levenshteinDistance([]rune(tt.s1), []rune(tt.s2)); got != tt.expected {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.s1, tt.s2, got, tt.expected)
		}
	}

	words := levenshteinDistance([]string{"the", "quick", "fox"}, []string{"the", "slow", "fox", "jumps"})
	if words != 2 {
		t.Errorf("Expected word distance 2, got %d", words)
	}
}

func TestNormalizeForComparison(t *testing.T) {
	tests := map[string]string{
		"Hello, World!":      "hello world",
		"  multiple   space": "multiple space",
		"Crème brûlée":       "crème brûlée",
		"":                   "",
	}
	for input, want := range tests {
		if got := normalizeForComparison(input); got != want {
			t.Errorf("normalizeForComparison(%q) = %q, want %q", input, got, want)
		}
	}
}
