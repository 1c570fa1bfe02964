package results

import (
	"fmt"
	"io"
	"time"

	"github.com/lehigh-university-libraries/textsnap/internal/eval/metrics"
	"gopkg.in/yaml.v3"
)

// EvalConfig represents the configuration section of the eval YAML
type EvalConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Timeout     string  `yaml:"timeout"`
	DatasetPath string  `yaml:"datasetpath"`
	SampleSize  int     `yaml:"samplesize"`
	Timestamp   string  `yaml:"timestamp"`
	MeanCER     float64 `yaml:"meancer"`
	MeanWER     float64 `yaml:"meanwer"`
}

// EvalResult represents a single evaluation result
type EvalResult struct {
	Identifier   string  `yaml:"identifier"`
	Expected     string  `yaml:"expected"`
	Actual       string  `yaml:"actual"`
	Method       string  `yaml:"method,omitempty"`
	CER          float64 `yaml:"cer"`
	WER          float64 `yaml:"wer"`
	Similarity   float64 `yaml:"similarity"`
	ErrorKind    string  `yaml:"errorkind,omitempty"`
	Error        string  `yaml:"error,omitempty"`
	Milliseconds int64   `yaml:"milliseconds"`
}

// EvalSpec represents the complete evaluation specification
type EvalSpec struct {
	Config  EvalConfig   `yaml:"config"`
	Results []EvalResult `yaml:"results"`
}

// NewEvalSpec converts aggregated results into the YAML document layout
func NewEvalSpec(agg *metrics.AggregateResults, datasetPath string, timeout time.Duration) EvalSpec {
	spec := EvalSpec{
		Config: EvalConfig{
			Provider:    agg.Provider,
			Model:       agg.Model,
			Timeout:     timeout.String(),
			DatasetPath: datasetPath,
			SampleSize:  agg.SampleSize,
			Timestamp:   agg.EvaluationDate.Format("2006-01-02_15-04-05"),
			MeanCER:     agg.MeanCER,
			MeanWER:     agg.MeanWER,
		},
		Results: make([]EvalResult, 0, len(agg.Results)),
	}

	for _, r := range agg.Results {
		evalResult := EvalResult{
			Identifier:   r.ID,
			Expected:     r.Expected,
			Actual:       r.Actual,
			ErrorKind:    r.ErrorKind,
			Error:        r.Error,
			Milliseconds: r.ProcessingTime.Milliseconds(),
		}
		if c := r.Comparison; c != nil {
			evalResult.Method = c.Method
			evalResult.CER = c.CER
			evalResult.WER = c.WER
			evalResult.Similarity = c.Similarity
		}
		spec.Results = append(spec.Results, evalResult)
	}

	return spec
}

// WriteYAML writes the evaluation document to w
func WriteYAML(w io.Writer, spec EvalSpec) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&spec); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush YAML: %w", err)
	}
	return nil
}
