package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/textsnap/internal/evalcmd"
	"github.com/spf13/cobra"
)

func newEvalCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "OCR accuracy evaluation tools",
		Long: `Evaluation tools for measuring how well an OCR engine reads a labelled dataset.

A dataset is a JSONL or Parquet file of samples with an id, an image path or URL
and the expected text. Each sample goes through the same acquisition pipeline as
"textsnap recognize" and is scored by character and word error rate.`,
	}

	cmd.AddCommand(newEvalRunCmd(opts))
	cmd.AddCommand(newEvalInspectCmd())

	return cmd
}

func newEvalRunCmd(opts *rootOptions) *cobra.Command {
	var (
		datasetPath string
		limit       int
		tag         string
		provider    string
		format      string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Recognize every sample in a dataset and score the results",
		Example: `  # Score the default engine on the first 20 samples
  textsnap eval run --dataset signs.jsonl --limit 20

  # Compare gemini on receipts only, as YAML
  textsnap eval run --dataset bench.parquet --tag receipt --provider gemini --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "summary", "report", "json", "yaml":
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, provider)
			if err != nil {
				return err
			}
			defer a.Close()

			_, err = evalcmd.Run(cmd.Context(), a.pipeline, evalcmd.RunOptions{
				DatasetPath: datasetPath,
				Limit:       limit,
				Tag:         tag,
				Provider:    a.client.ProviderName(),
				Model:       a.client.Model(),
				Timeout:     a.client.Timeout(),
				Format:      format,
			}, cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringVarP(&datasetPath, "dataset", "d", "", "Path to a JSONL or Parquet dataset")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Maximum samples to evaluate (0 for all)")
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Only evaluate samples carrying this tag")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "OCR engine (defaults to the configured provider)")
	cmd.Flags().StringVarP(&format, "format", "f", "summary", "Output format: summary, report, json or yaml")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func newEvalInspectCmd() *cobra.Command {
	var inspectOpts evalcmd.InspectOptions

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print dataset samples without running recognition",
		RunE: func(cmd *cobra.Command, args []string) error {
			return evalcmd.Inspect(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), inspectOpts)
		},
	}

	cmd.Flags().StringVarP(&inspectOpts.DatasetPath, "dataset", "d", "", "Path to a JSONL or Parquet dataset")
	cmd.Flags().IntVarP(&inspectOpts.Limit, "limit", "l", 10, "Number of samples to show (0 for all)")
	cmd.Flags().BoolVarP(&inspectOpts.Interactive, "interactive", "i", false, "Pause after each sample")
	cmd.Flags().BoolVar(&inspectOpts.ShowText, "text", false, "Print the expected text")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}
