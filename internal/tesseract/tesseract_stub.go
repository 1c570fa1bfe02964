//go:build !tesseract

package tesseract

import (
	"context"
	"fmt"

	"github.com/lehigh-university-libraries/textsnap/internal/providers"
)

// Available reports whether the binary was built with tesseract support.
// Rebuild with -tags tesseract (requires libtesseract-dev) to enable it.
const Available = false

// Tesseract is unavailable in this build
type Tesseract struct {
	languages []string
}

func New(languages ...string) *Tesseract {
	return &Tesseract{languages: languages}
}

func (t *Tesseract) Name() string {
	return "tesseract"
}

func (t *Tesseract) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	return "", fmt.Errorf("%w: built without tesseract support, rebuild with -tags tesseract", providers.ErrUnavailable)
}
