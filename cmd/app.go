package cmd

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/textsnap/internal/config"
	"github.com/lehigh-university-libraries/textsnap/internal/gemini"
	"github.com/lehigh-university-libraries/textsnap/internal/images"
	"github.com/lehigh-university-libraries/textsnap/internal/imaging"
	"github.com/lehigh-university-libraries/textsnap/internal/ocr"
	"github.com/lehigh-university-libraries/textsnap/internal/ollama"
	"github.com/lehigh-university-libraries/textsnap/internal/openai"
	"github.com/lehigh-university-libraries/textsnap/internal/pipeline"
	"github.com/lehigh-university-libraries/textsnap/internal/storage"
	"github.com/lehigh-university-libraries/textsnap/internal/tesseract"
)

const (
	defaultOllamaModel = "mistral-small3.2:24b"
	defaultOpenAIModel = "gpt-4o"
	defaultGeminiModel = "gemini-1.5-flash"
)

// buildService registers every OCR backend compiled into this binary
func buildService(cfg config.Config) *ocr.Service {
	s := ocr.NewService()
	s.Register(ollama.New(cfg.OCR.OllamaURL), modelOr(cfg.OCR.DefaultModel("ollama"), defaultOllamaModel))
	s.Register(openai.New(cfg.OCR.OpenAIAPIKey, cfg.OCR.OpenAIBaseURL), modelOr(cfg.OCR.DefaultModel("openai"), defaultOpenAIModel))
	s.Register(gemini.New(cfg.OCR.GeminiAPIKey), modelOr(cfg.OCR.DefaultModel("gemini"), defaultGeminiModel))
	s.Register(tesseract.New(cfg.OCR.Languages...), cfg.OCR.DefaultModel("tesseract"))
	return s
}

func modelOr(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}

// engineReady reports whether a provider has what it needs to be called
func engineReady(cfg config.Config, name string) bool {
	switch name {
	case "openai":
		return cfg.OCR.OpenAIAPIKey != ""
	case "gemini":
		return cfg.OCR.GeminiAPIKey != ""
	case "tesseract":
		return tesseract.Available
	}
	return true
}

// app bundles a running pipeline with the pieces that feed it
type app struct {
	cfg      config.Config
	assets   *storage.Manager
	client   *ocr.Client
	pipeline *pipeline.Pipeline
}

func newApp(cfg config.Config, provider string) (*app, error) {
	if provider == "" {
		provider = cfg.OCR.Provider
	}

	assets, err := storage.New(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare temp directory: %w", err)
	}

	client, err := buildService(cfg).Client(ocr.Settings{
		Provider:    provider,
		Model:       cfg.OCR.DefaultModel(provider),
		Temperature: cfg.OCR.Temperature,
		Prompt:      cfg.OCR.Prompt,
		Languages:   cfg.OCR.Languages,
		Timeout:     cfg.RecognitionTimeout,
	})
	if err != nil {
		return nil, err
	}

	p, err := pipeline.New(
		assets,
		imaging.NewNormalizer(cfg.MaxDimension, cfg.MaxPixels),
		client,
		pipeline.WithWorkers(cfg.Workers),
	)
	if err != nil {
		return nil, err
	}

	slog.Debug("Pipeline ready", "provider", client.ProviderName(), "temp_dir", assets.Dir(), "timeout", client.Timeout(), "workers", cfg.Workers)
	return &app{cfg: cfg, assets: assets, client: client, pipeline: p}, nil
}

// camera builds the camera source; a missing capture command yields a camera
// whose captures fail with CaptureDeviceError
func (a *app) camera() (*images.Camera, error) {
	var device images.CaptureDevice
	if a.cfg.Camera.Command != "" {
		cc, err := images.NewCommandCamera(a.cfg.Camera.Command)
		if err != nil {
			return nil, err
		}
		device = cc
	}
	return images.NewCamera(device, images.StaticPermission(a.cfg.Camera.Granted())), nil
}

// cameraSource is nil when no capture command is configured
func (a *app) cameraSource() (images.Source, error) {
	if a.cfg.Camera.Command == "" {
		return nil, nil
	}
	return a.camera()
}

func (a *app) Close() {
	a.pipeline.Close()
}
