package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// EvaluationResult represents the outcome for a single benchmark sample
type EvaluationResult struct {
	ID             string
	Expected       string
	Actual         string
	Comparison     *TextComparison
	ProcessingTime time.Duration

	// Set when recognition failed
	ErrorKind string
	Error     string
}

// AggregateResults represents aggregated evaluation metrics
type AggregateResults struct {
	TotalRecords int
	SuccessCount int
	FailureCount int

	ExactMatches int
	FuzzyMatches int
	NoMatches    int
	MissingText  int

	MeanCER        float64
	MedianCER      float64
	MeanWER        float64
	MeanSimilarity float64

	FailuresByKind map[string]int

	// Timing
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration

	// Detailed results
	Results []EvaluationResult

	// Metadata
	EvaluationDate time.Time
	Provider       string
	Model          string
	SampleSize     int
}

// AggregateEvaluationResults aggregates multiple evaluation results
func AggregateEvaluationResults(results []EvaluationResult, provider, model string) *AggregateResults {
	agg := &AggregateResults{
		TotalRecords:   len(results),
		Results:        results,
		EvaluationDate: time.Now(),
		Provider:       provider,
		Model:          model,
		SampleSize:     len(results),
		FailuresByKind: make(map[string]int),
	}

	var cers, wers, sims []float64
	var totalDuration time.Duration
	var successDuration time.Duration

	for _, result := range results {
		totalDuration += result.ProcessingTime

		if result.Error != "" {
			agg.FailureCount++
			kind := result.ErrorKind
			if kind == "" {
				kind = "unknown_error"
			}
			agg.FailuresByKind[kind]++
			continue
		}

		agg.SuccessCount++
		successDuration += result.ProcessingTime

		if result.Comparison == nil {
			continue
		}

		countMethod(agg, result.Comparison.Method)
		cers = append(cers, result.Comparison.CER)
		wers = append(wers, result.Comparison.WER)
		sims = append(sims, result.Comparison.Similarity)
	}

	agg.MeanCER = calculateAverage(cers)
	agg.MedianCER = calculateMedian(cers)
	agg.MeanWER = calculateAverage(wers)
	agg.MeanSimilarity = calculateAverage(sims)
	if agg.SuccessCount > 0 {
		agg.AverageProcessingTime = successDuration / time.Duration(agg.SuccessCount)
	}
	agg.TotalProcessingTime = totalDuration

	return agg
}

func countMethod(agg *AggregateResults, method string) {
	switch method {
	case MethodExact, MethodNormalized, MethodBothEmpty:
		agg.ExactMatches++
	case MethodFuzzyHigh, MethodFuzzyMedium:
		agg.FuzzyMatches++
	case MethodNoMatch, MethodUnexpected:
		agg.NoMatches++
	case MethodMissing:
		agg.MissingText++
	}
}

// calculateAverage calculates the average of a slice of scores
func calculateAverage(scores []float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, score := range scores {
		sum += score
	}

	return sum / float64(len(scores))
}

func calculateMedian(scores []float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// PrintSummary writes a human-readable summary of the evaluation
func (a *AggregateResults) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(w, "TEXTSNAP OCR EVALUATION SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Evaluation Date: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Provider: %s\n", a.Provider)
	fmt.Fprintf(w, "Model: %s\n", a.Model)
	fmt.Fprintf(w, "Sample Size: %d images\n", a.SampleSize)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "PROCESSING STATISTICS")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Total Records: %d\n", a.TotalRecords)
	fmt.Fprintf(w, "Successful: %d (%.1f%%)\n", a.SuccessCount, percent(a.SuccessCount, a.TotalRecords))
	fmt.Fprintf(w, "Failed: %d (%.1f%%)\n", a.FailureCount, percent(a.FailureCount, a.TotalRecords))
	kinds := make([]string, 0, len(a.FailuresByKind))
	for kind := range a.FailuresByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(w, "  %s: %d\n", kind, a.FailuresByKind[kind])
	}
	fmt.Fprintf(w, "Average Processing Time: %s\n", a.AverageProcessingTime)
	fmt.Fprintf(w, "Total Processing Time: %s\n", a.TotalProcessingTime)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "TEXT ACCURACY")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Exact Matches: %d\n", a.ExactMatches)
	fmt.Fprintf(w, "Fuzzy Matches: %d\n", a.FuzzyMatches)
	fmt.Fprintf(w, "No Matches: %d\n", a.NoMatches)
	fmt.Fprintf(w, "Missing Text: %d\n", a.MissingText)
	fmt.Fprintf(w, "Mean CER: %.3f (median %.3f)\n", a.MeanCER, a.MedianCER)
	fmt.Fprintf(w, "Mean WER: %.3f\n", a.MeanWER)
	fmt.Fprintf(w, "Mean Similarity: %.2f%%\n", a.MeanSimilarity*100)
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

// WriteJSON encodes the aggregate results
func (a *AggregateResults) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(a); err != nil {
		return fmt.Errorf("failed to encode results to JSON: %w", err)
	}

	return nil
}

// WriteDetailedReport writes one block per sample
func (a *AggregateResults) WriteDetailedReport(w io.Writer) {
	separator := strings.Repeat("=", 80)
	dash := strings.Repeat("-", 80)

	fmt.Fprintf(w, "TEXTSNAP OCR EVALUATION DETAILED REPORT\n")
	fmt.Fprintf(w, "Generated: %s\n", a.EvaluationDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Provider: %s, Model: %s\n", a.Provider, a.Model)
	fmt.Fprintf(w, "%s\n\n", separator)

	for i, result := range a.Results {
		fmt.Fprintf(w, "SAMPLE %d: %s\n", i+1, result.ID)
		fmt.Fprintf(w, "%s\n", dash)
		fmt.Fprintf(w, "Processing Time: %s\n", result.ProcessingTime)

		if result.Error != "" {
			fmt.Fprintf(w, "ERROR (%s): %s\n", result.ErrorKind, result.Error)
		} else if c := result.Comparison; c != nil {
			fmt.Fprintf(w, "Expected: %q\n", c.Expected)
			fmt.Fprintf(w, "Actual:   %q\n", c.Actual)
			fmt.Fprintf(w, "Match: %s  CER: %.3f  WER: %.3f  Similarity: %.2f%%\n", c.Method, c.CER, c.WER, c.Similarity*100)
		}

		fmt.Fprintf(w, "\n%s\n\n", separator)
	}
}
