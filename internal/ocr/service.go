package ocr

import (
	"fmt"
	"sort"
	"time"

	"github.com/lehigh-university-libraries/textsnap/internal/providers"
)

// Settings selects and tunes a provider for a Client
type Settings struct {
	Provider    string
	Model       string
	Temperature float64
	Prompt      string
	Languages   []string
	Timeout     time.Duration
}

type registration struct {
	provider     providers.Provider
	defaultModel string
}

// Service is the registry of OCR providers available to this process
type Service struct {
	providers map[string]registration
}

// NewService creates an empty registry
func NewService() *Service {
	return &Service{providers: make(map[string]registration)}
}

// Register adds p under p.Name(); a later registration with the same name wins
func (s *Service) Register(p providers.Provider, defaultModel string) {
	s.providers[p.Name()] = registration{provider: p, defaultModel: defaultModel}
}

func (s *Service) Provider(name string) (providers.Provider, bool) {
	r, ok := s.providers[name]
	return r.provider, ok
}

func (s *Service) DefaultModel(name string) string {
	return s.providers[name].defaultModel
}

// Names returns registered provider names in sorted order
func (s *Service) Names() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Client builds a RecognitionClient for the configured provider
func (s *Service) Client(settings Settings) (*Client, error) {
	r, ok := s.providers[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported OCR provider: %s", settings.Provider)
	}

	model := settings.Model
	if model == "" {
		model = r.defaultModel
	}

	opts := []Option{
		WithModel(model),
		WithTemperature(settings.Temperature),
		WithLanguages(settings.Languages...),
	}
	if settings.Prompt != "" {
		opts = append(opts, WithPrompt(settings.Prompt))
	}
	if settings.Timeout > 0 {
		opts = append(opts, WithTimeout(settings.Timeout))
	}
	return NewClient(r.provider, opts...), nil
}
