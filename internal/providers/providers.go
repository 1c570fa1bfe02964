package providers

import (
	"context"
	"errors"
)

// ErrUnavailable means the backend is not configured or not compiled in
var ErrUnavailable = errors.New("ocr provider unavailable")

// Config represents a single OCR call against a provider
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	// Image is the encoded payload described by MimeType
	Image     []byte
	MimeType  string
	Languages []string
}

// Provider defines the interface for an OCR-capable backend
type Provider interface {
	Name() string
	ExtractText(ctx context.Context, config Config) (string, error)
}

// DefaultPrompt instructs vision models to transcribe without commentary
const DefaultPrompt = `You are performing OCR (Optical Character Recognition) on a photo.

Your task is to extract ALL visible text from the image exactly as it appears, preserving:
- Line breaks and formatting
- Capitalization
- Punctuation
- Special characters
- Order of text elements

INSTRUCTIONS:
1. Read the image carefully from top to bottom
2. Transcribe every piece of visible text
3. Preserve the original line breaks
4. Do not add any interpretation, commentary, or explanations
5. If text is partially obscured or unclear, transcribe what you can see and use [?] for illegible portions
6. If the image contains no text, respond with an empty message

OUTPUT FORMAT:
Provide ONLY the extracted text. Do not include phrases like "Here is the text:" or "The image contains:".`
