//go:build tesseract

package tesseract

import (
	"context"
	"fmt"

	"github.com/lehigh-university-libraries/textsnap/internal/providers"
	"github.com/otiai10/gosseract/v2"
)

// Available reports whether the binary was built with tesseract support
const Available = true

// Tesseract runs on-device OCR through libtesseract
type Tesseract struct {
	languages []string
}

// New creates a Tesseract provider. Languages default to eng.
func New(languages ...string) *Tesseract {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Tesseract{languages: languages}
}

func (t *Tesseract) Name() string {
	return "tesseract"
}

// ExtractText ignores Model, Prompt and Temperature
func (t *Tesseract) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	langs := config.Languages
	if len(langs) == 0 {
		langs = t.languages
	}
	if err := client.SetLanguage(langs...); err != nil {
		return "", fmt.Errorf("failed to set languages: %w", err)
	}
	if err := client.SetImageFromBytes(config.Image); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to recognize text: %w", err)
	}
	return text, nil
}
