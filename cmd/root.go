package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/textsnap/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func (o *rootOptions) load() (config.Config, error) {
	return config.Load(o.configPath)
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "textsnap",
		Short: "Capture or pick an image and recognize the text in it",
		Long: `Textsnap acquires an image from a camera or an existing file, normalizes it,
and extracts its text with an OCR engine (tesseract, Ollama, OpenAI or Gemini).

Only the most recent request ever produces a result; starting a new one or
resetting discards whatever was in flight and cleans up its temporary files.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newRecognizeCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newEnginesCmd(opts))
	cmd.AddCommand(newEvalCmd(opts))

	return cmd
}
