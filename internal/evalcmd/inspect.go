package evalcmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/textsnap/internal/eval/dataset"
)

// InspectOptions configures Inspect
type InspectOptions struct {
	DatasetPath string
	Limit       int
	Interactive bool
	ShowText    bool
}

// Inspect prints dataset samples, pausing between them when interactive
func Inspect(ctx context.Context, w io.Writer, in io.Reader, opts InspectOptions) error {
	loader := dataset.NewLoader(opts.DatasetPath)

	samples, err := loader.LoadSample(opts.Limit)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	fmt.Fprintf(w, "Loaded %d samples from %s\n", len(samples), opts.DatasetPath)
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)

	reader := bufio.NewReader(in)

	for i, sample := range samples {
		// Check for context cancellation (e.g., Ctrl+C) at the start of each iteration
		select {
		case <-ctx.Done():
			fmt.Fprintln(w, "\nInspection interrupted.")
			return nil
		default:
		}

		fmt.Fprintf(w, "SAMPLE %d/%d\n", i+1, len(samples))
		fmt.Fprintln(w, strings.Repeat("-", 80))
		fmt.Fprintf(w, "ID:             %s\n", sample.ID)
		fmt.Fprintf(w, "Image:          %s\n", sample.Image)
		if !sample.IsRemote() {
			path := sample.ImagePath(loader.Dir())
			status := "ok"
			if _, err := os.Stat(path); err != nil {
				status = "missing"
			}
			fmt.Fprintf(w, "Resolved:       %s (%s)\n", path, status)
		}
		if sample.Language != "" {
			fmt.Fprintf(w, "Language:       %s\n", sample.Language)
		}
		if len(sample.Tags) > 0 {
			fmt.Fprintf(w, "Tags:           %s\n", strings.Join(sample.Tags, ", "))
		}
		fmt.Fprintf(w, "Expected:       %d characters, %d words\n", len([]rune(sample.Expected)), len(strings.Fields(sample.Expected)))

		if opts.ShowText {
			// Show first 500 characters with indicator if truncated
			text := []rune(sample.Expected)
			maxChars := 500
			truncated := len(text) > maxChars
			if truncated {
				text = text[:maxChars]
			}

			fmt.Fprintln(w, strings.Repeat("-", 80))
			fmt.Fprintln(w, string(text))
			if truncated {
				fmt.Fprintf(w, "\n[... truncated, showing first %d of %d characters ...]\n", maxChars, len([]rune(sample.Expected)))
			}
			fmt.Fprintln(w, strings.Repeat("-", 80))
		}

		fmt.Fprintln(w)

		if opts.Interactive {
			fmt.Fprint(w, "Press Enter to continue to next sample (or Ctrl+C to quit)...")

			inputCh := make(chan struct{})
			go func() {
				_, _ = reader.ReadString('\n')
				close(inputCh)
			}()

			// Wait for either user input (Enter) or context cancellation (Ctrl+C)
			select {
			case <-ctx.Done():
				fmt.Fprintln(w, "\nInspection interrupted.")
				return nil
			case <-inputCh:
				fmt.Fprintln(w)
			}
		}
	}

	return nil
}
