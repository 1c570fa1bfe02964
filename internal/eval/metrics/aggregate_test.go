package metrics

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregateEvaluationResults(t *testing.T) {
	results := []EvaluationResult{
		{
			ID:             "stop",
			ProcessingTime: 4 * time.Second,
			Comparison:     CompareText("STOP", "STOP"),
		},
		{
			ID:             "exit",
			ProcessingTime: 2 * time.Second,
			Comparison:     CompareText("EMERGENCY EXIT", "EMERGENCY EXlT"),
		},
		{
			ID:             "blank",
			ProcessingTime: 1 * time.Second,
			Comparison:     CompareText("", "mostly noise"),
		},
		{
			ID:             "missing",
			ProcessingTime: 1 * time.Second,
			Comparison:     CompareText("ONE WAY", ""),
		},
		{
			ID:             "slow",
			ErrorKind:      "timeout",
			Error:          "recognition exceeded 10s",
			ProcessingTime: 10 * time.Second,
		},
		{
			ID:             "broken",
			Error:          "boom",
			ProcessingTime: 1 * time.Second,
		},
	}

	agg := AggregateEvaluationResults(results, "ollama", "mistral-small3.2:24b")

	// Check basic stats
	if agg.TotalRecords != 6 {
		t.Errorf("Expected TotalRecords=6, got %d", agg.TotalRecords)
	}
	if agg.SuccessCount != 4 {
		t.Errorf("Expected SuccessCount=4, got %d", agg.SuccessCount)
	}
	if agg.FailureCount != 2 {
		t.Errorf("Expected FailureCount=2, got %d", agg.FailureCount)
	}
	if agg.FailuresByKind["timeout"] != 1 || agg.FailuresByKind["unknown_error"] != 1 {
		t.Errorf("Unexpected failures by kind %v", agg.FailuresByKind)
	}

	// Check provider/model
	if agg.Provider != "ollama" {
		t.Errorf("Expected Provider=ollama, got %s", agg.Provider)
	}
	if agg.Model != "mistral-small3.2:24b" {
		t.Errorf("Expected Model=mistral-small3.2:24b, got %s", agg.Model)
	}

	if agg.ExactMatches != 1 || agg.FuzzyMatches != 1 || agg.NoMatches != 1 || agg.MissingText != 1 {
		t.Errorf("Unexpected match counts: exact=%d fuzzy=%d none=%d missing=%d", agg.ExactMatches, agg.FuzzyMatches, agg.NoMatches, agg.MissingText)
	}

	// CERs are 0, 1/14, 1, 1
	wantMean := (0 + 1.0/14 + 1 + 1) / 4
	if !approx(agg.MeanCER, wantMean) {
		t.Errorf("Expected MeanCER=%f, got %f", wantMean, agg.MeanCER)
	}
	if wantMedian := (1.0/14 + 1) / 2; !approx(agg.MedianCER, wantMedian) {
		t.Errorf("Expected MedianCER=%f, got %f", wantMedian, agg.MedianCER)
	}

	if agg.AverageProcessingTime != 2*time.Second {
		t.Errorf("Expected AverageProcessingTime=2s, got %s", agg.AverageProcessingTime)
	}
	if agg.TotalProcessingTime != 19*time.Second {
		t.Errorf("Expected TotalProcessingTime=19s, got %s", agg.TotalProcessingTime)
	}
}

func TestAggregateEmpty(t *testing.T) {
	agg := AggregateEvaluationResults(nil, "openai", "gpt-4o")
	if agg.TotalRecords != 0 || agg.MeanCER != 0 || agg.AverageProcessingTime != 0 {
		t.Errorf("Unexpected aggregate %+v", agg)
	}
	var buf bytes.Buffer
	agg.PrintSummary(&buf)
	if !strings.Contains(buf.String(), "Successful: 0 (0.0%)") {
		t.Errorf("Unexpected summary:\n%s", buf.String())
	}
}

func TestCalculateAverage(t *testing.T) {
	tests := []struct {
		name     string
		scores   []float64
		expected float64
	}{
		{name: "empty", scores: []float64{}, expected: 0.0},
		{name: "single", scores: []float64{0.5}, expected: 0.5},
		{name: "multiple", scores: []float64{0.2, 0.4, 0.6}, expected: 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := calculateAverage(tt.scores)
			if !approx(result, tt.expected) {
				t.Errorf("Expected %f, got %f", tt.expected, result)
			}
		})
	}
}

func TestCalculateMedian(t *testing.T) {
	tests := []struct {
		name     string
		scores   []float64
		expected float64
	}{
		{name: "empty", scores: nil, expected: 0},
		{name: "odd", scores: []float64{0.9, 0.1, 0.5}, expected: 0.5},
		{name: "even", scores: []float64{0.4, 0.2, 0.8, 0.6}, expected: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := calculateMedian(tt.scores); !approx(result, tt.expected) {
				t.Errorf("Expected %f, got %f", tt.expected, result)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	agg := AggregateEvaluationResults([]EvaluationResult{
		{ID: "a", Comparison: CompareText("PUSH", "PUSH"), ProcessingTime: time.Second},
	}, "gemini", "gemini-1.5-flash")

	var buf bytes.Buffer
	if err := agg.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not JSON: %v", err)
	}
	if decoded["Provider"] != "gemini" {
		t.Errorf("Expected Provider=gemini, got %v", decoded["Provider"])
	}
}

func TestWriteDetailedReport(t *testing.T) {
	agg := AggregateEvaluationResults([]EvaluationResult{
		{ID: "door", Comparison: CompareText("PULL", "PUL1"), ProcessingTime: time.Second},
		{ID: "dark", ErrorKind: "unreadable_image", Error: "image data is truncated"},
	}, "tesseract", "")

	var buf bytes.Buffer
	agg.WriteDetailedReport(&buf)
	report := buf.String()

	for _, want := range []string{"SAMPLE 1: door", `Expected: "PULL"`, "SAMPLE 2: dark", "ERROR (unreadable_image)"} {
		if !strings.Contains(report, want) {
			t.Errorf("Expected report to contain %q", want)
		}
	}
}
