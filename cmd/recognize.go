package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/textsnap/internal/images"
	"github.com/lehigh-university-libraries/textsnap/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRecognizeCmd(opts *rootOptions) *cobra.Command {
	var (
		galleryPath string
		imageURL    string
		camera      bool
		provider    string
		format      string
	)

	cmd := &cobra.Command{
		Use:   "recognize",
		Short: "Acquire one image and print the recognized text",
		Example: `  # Recognize text in a photo on disk
  textsnap recognize --gallery label.jpg

  # Fetch an image and use OpenAI
  textsnap recognize --url https://example.org/sign.png --provider openai

  # Capture with the configured camera command and print YAML
  TEXTSNAP_CAMERA_PERMISSION=granted textsnap recognize --camera --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			selected := 0
			for _, set := range []bool{galleryPath != "", imageURL != "", camera} {
				if set {
					selected++
				}
			}
			if selected != 1 {
				return errors.New("exactly one of --gallery, --url or --camera is required")
			}
			if format != "text" && format != "json" && format != "yaml" {
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

			var src images.Source
			switch {
			case galleryPath != "":
				src = images.NewGallery(images.FilePicker{Path: galleryPath})
			case imageURL != "":
				src = images.NewGallery(images.NewURLPicker(imageURL))
			default:
				cam, err := a.camera()
				if err != nil {
					return err
				}
				src = cam
			}

			generation, err := a.pipeline.RequestFromSource(src)
			if err != nil {
				return err
			}
			state, err := a.pipeline.Wait(cmd.Context(), generation)
			if err != nil {
				return fmt.Errorf("failed to wait for recognition: %w", err)
			}

			if err := writeResult(cmd.OutOrStdout(), format, state); err != nil {
				return err
			}
			if state.Result != nil && state.Result.Failed {
				return fmt.Errorf("recognition failed: %s", state.Result.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&galleryPath, "gallery", "g", "", "Image file to recognize")
	cmd.Flags().StringVarP(&imageURL, "url", "u", "", "Image URL to download and recognize")
	cmd.Flags().BoolVar(&camera, "camera", false, "Capture with the configured camera command")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "OCR engine (defaults to OCR_PROVIDER)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")

	return cmd
}

func writeResult(w io.Writer, format string, state models.RequestState) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(state)
	}

	if state.Result == nil {
		return nil
	}
	if state.Result.Failed {
		_, err := fmt.Fprintf(w, "Error: %s\n", state.Result.Message)
		return err
	}
	_, err := fmt.Fprintln(w, state.Result.Text)
	return err
}
