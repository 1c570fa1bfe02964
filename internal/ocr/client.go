package ocr

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/textsnap/internal/imaging"
	"github.com/lehigh-university-libraries/textsnap/internal/models"
	"github.com/lehigh-university-libraries/textsnap/internal/providers"
)

// DefaultTimeout bounds a single recognition call
const DefaultTimeout = 10 * time.Second

// Option configures a Client
type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func WithPrompt(prompt string) Option {
	return func(c *Client) { c.prompt = prompt }
}

func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = t }
}

func WithLanguages(langs ...string) Option {
	return func(c *Client) { c.languages = append([]string(nil), langs...) }
}

// WithTimeout ignores non-positive values
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Client submits normalized images to a provider. It never retries.
type Client struct {
	provider    providers.Provider
	model       string
	prompt      string
	temperature float64
	languages   []string
	timeout     time.Duration
}

func NewClient(p providers.Provider, opts ...Option) *Client {
	c := &Client{
		provider: p,
		prompt:   providers.DefaultPrompt,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ProviderName() string {
	if c.provider == nil {
		return ""
	}
	return c.provider.Name()
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Recognize produces exactly one result per call
func (c *Client) Recognize(ctx context.Context, img *models.NormalizedImage) models.RecognitionResult {
	if c.provider == nil {
		return models.Failure(models.EngineUnavailable, "no OCR provider configured")
	}

	payload, err := imaging.EncodePNG(img)
	if err != nil {
		return models.Failure(models.UnknownError, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	// buffered so a provider that ignores ctx does not leak the goroutine
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		text, err := c.provider.ExtractText(ctx, providers.Config{
			Model:       c.model,
			Temperature: c.temperature,
			Prompt:      c.prompt,
			Image:       payload,
			MimeType:    "image/png",
			Languages:   c.languages,
		})
		done <- result{text: text, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = result{err: ctx.Err()}
	}

	if res.err != nil {
		kind := classify(res.err)
		slog.Warn("Recognition failed", "provider", c.provider.Name(), "kind", kind, "elapsed", time.Since(start), "err", res.err)
		if kind == models.Timeout {
			return models.Failure(models.Timeout, "recognition exceeded "+c.timeout.String())
		}
		return models.Failure(kind, res.err.Error())
	}

	text := strings.TrimSpace(res.text)
	slog.Info("Extracted OCR text", "provider", c.provider.Name(), "model", c.model, "length", len(text), "elapsed", time.Since(start))
	return models.Success(text)
}

func classify(err error) models.ErrorKind {
	if errors.Is(err, providers.ErrUnavailable) {
		return models.EngineUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.Timeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.Timeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return models.EngineUnavailable
	}
	return models.UnknownError
}
