package evalcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/textsnap/internal/eval/dataset"
	"github.com/lehigh-university-libraries/textsnap/internal/eval/metrics"
	"github.com/lehigh-university-libraries/textsnap/internal/eval/results"
	"github.com/lehigh-university-libraries/textsnap/internal/images"
	"github.com/lehigh-university-libraries/textsnap/internal/models"
)

// Pipeline is the part of *pipeline.Pipeline an evaluation drives
type Pipeline interface {
	RequestFromSource(src images.Source) (uint64, error)
	Wait(ctx context.Context, generation uint64) (models.RequestState, error)
}

// RunOptions configures an evaluation run
type RunOptions struct {
	DatasetPath string
	Limit       int
	Tag         string
	Provider    string
	Model       string
	Timeout     time.Duration
	// Format is one of summary, report, json or yaml
	Format string
}

// Run recognizes every sample in the dataset one at a time and writes the
// aggregate in the requested format. Samples run sequentially because a
// pipeline keeps a single live request.
func Run(ctx context.Context, p Pipeline, opts RunOptions, w io.Writer) (*metrics.AggregateResults, error) {
	slog.Info("Starting evaluation run", "dataset", opts.DatasetPath, "provider", opts.Provider, "model", opts.Model)

	samples, err := loadSamples(opts.DatasetPath, opts.Limit, opts.Tag)
	if err != nil {
		return nil, err
	}
	slog.Info("Dataset loaded", "samples", len(samples))

	dir := dataset.NewLoader(opts.DatasetPath).Dir()
	evalResults := make([]metrics.EvaluationResult, 0, len(samples))
	for i, sample := range samples {
		if ctx.Err() != nil {
			slog.Warn("Evaluation interrupted", "completed", i, "total", len(samples))
			break
		}
		slog.Info("Processing sample", "id", sample.ID, "progress", fmt.Sprintf("%d/%d", i+1, len(samples)))
		evalResults = append(evalResults, processSample(ctx, p, sample, dir))
	}

	agg := metrics.AggregateEvaluationResults(evalResults, opts.Provider, opts.Model)

	switch opts.Format {
	case "", "summary":
		agg.PrintSummary(w)
	case "report":
		agg.WriteDetailedReport(w)
		agg.PrintSummary(w)
	case "json":
		err = agg.WriteJSON(w)
	case "yaml":
		err = results.WriteYAML(w, results.NewEvalSpec(agg, opts.DatasetPath, opts.Timeout))
	default:
		err = fmt.Errorf("unsupported format: %s", opts.Format)
	}
	return agg, err
}

func loadSamples(path string, limit int, tag string) ([]dataset.Sample, error) {
	loader := dataset.NewLoader(path)
	var (
		samples []dataset.Sample
		err     error
	)
	if tag != "" {
		samples, err = loader.LoadWithFilter(func(s *dataset.Sample) bool { return s.HasTag(tag) })
		if err == nil && limit > 0 && len(samples) > limit {
			samples = samples[:limit]
		}
	} else {
		samples, err = loader.LoadSample(limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	return samples, nil
}

func sourceFor(sample dataset.Sample, dir string) images.Source {
	if sample.IsRemote() {
		return images.NewGallery(images.NewURLPicker(sample.Image))
	}
	return images.NewGallery(images.FilePicker{Path: sample.ImagePath(dir)})
}

func processSample(ctx context.Context, p Pipeline, sample dataset.Sample, dir string) metrics.EvaluationResult {
	result := metrics.EvaluationResult{
		ID:       sample.ID,
		Expected: sample.Expected,
	}
	start := time.Now()

	generation, err := p.RequestFromSource(sourceFor(sample, dir))
	if err != nil {
		result.ErrorKind = string(models.UnknownError)
		result.Error = fmt.Sprintf("failed to start request: %v", err)
		result.ProcessingTime = time.Since(start)
		return result
	}

	state, err := p.Wait(ctx, generation)
	result.ProcessingTime = time.Since(start)
	if err != nil {
		result.ErrorKind = string(models.UnknownError)
		result.Error = fmt.Sprintf("failed to wait for recognition: %v", err)
		return result
	}
	if state.Result == nil {
		result.ErrorKind = string(models.UnknownError)
		result.Error = "request completed without a result"
		return result
	}
	if state.Result.Failed {
		result.ErrorKind = string(state.Result.Kind)
		result.Error = state.Result.Message
		return result
	}

	result.Actual = state.Result.Text
	result.Comparison = metrics.CompareText(sample.Expected, state.Result.Text)
	return result
}
