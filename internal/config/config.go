package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultProvider           = "ollama"
	DefaultRecognitionTimeout = 10 * time.Second
	DefaultMaxDimension       = 4096
	DefaultMaxPixels          = 64 << 20
	DefaultWorkers            = 4
)

// Config holds everything needed to build a pipeline and its OCR backends
type Config struct {
	TempDir            string        `yaml:"temp_dir"`
	RecognitionTimeout time.Duration `yaml:"recognition_timeout"`
	MaxDimension       int           `yaml:"max_dimension"`
	MaxPixels          int64         `yaml:"max_pixels"`
	Workers            int           `yaml:"workers"`

	Camera CameraConfig `yaml:"camera"`
	OCR    OCRConfig    `yaml:"ocr"`
}

type CameraConfig struct {
	Command    string `yaml:"command"`
	Permission string `yaml:"permission"`
}

// Granted reports whether camera use has been allowed
func (c CameraConfig) Granted() bool {
	switch strings.ToLower(strings.TrimSpace(c.Permission)) {
	case "granted", "true", "yes", "1":
		return true
	}
	return false
}

type OCRConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	Prompt      string   `yaml:"prompt"`
	Temperature float64  `yaml:"temperature"`
	Languages   []string `yaml:"languages"`

	OllamaURL   string `yaml:"ollama_url"`
	OllamaModel string `yaml:"ollama_model"`

	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIModel   string `yaml:"openai_model"`

	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		TempDir:            defaultTempDir(),
		RecognitionTimeout: DefaultRecognitionTimeout,
		MaxDimension:       DefaultMaxDimension,
		MaxPixels:          DefaultMaxPixels,
		Workers:            DefaultWorkers,
		OCR: OCRConfig{
			Provider: DefaultProvider,
		},
	}
}

func defaultTempDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "textsnap", "captures")
}

// Load applies defaults, then the YAML file at path (if any), then the environment
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.TempDir, "TEXTSNAP_TEMP_DIR")
	setString(&c.Camera.Command, "TEXTSNAP_CAMERA_COMMAND")
	setString(&c.Camera.Permission, "TEXTSNAP_CAMERA_PERMISSION")

	if v := os.Getenv("TEXTSNAP_RECOGNITION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TEXTSNAP_RECOGNITION_TIMEOUT: %w", err)
		}
		c.RecognitionTimeout = d
	}
	if err := setInt(&c.MaxDimension, "TEXTSNAP_MAX_DIMENSION"); err != nil {
		return err
	}
	if err := setInt(&c.Workers, "TEXTSNAP_WORKERS"); err != nil {
		return err
	}
	if v := os.Getenv("TEXTSNAP_MAX_PIXELS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TEXTSNAP_MAX_PIXELS: %w", err)
		}
		c.MaxPixels = n
	}

	setString(&c.OCR.Provider, "OCR_PROVIDER")
	setString(&c.OCR.Model, "OCR_MODEL")
	if v := os.Getenv("OCR_LANGUAGES"); v != "" {
		c.OCR.Languages = splitList(v)
	}

	// OLLAMA_URL takes precedence over OLLAMA_HOST
	setString(&c.OCR.OllamaURL, "OLLAMA_HOST")
	setString(&c.OCR.OllamaURL, "OLLAMA_URL")
	setString(&c.OCR.OllamaModel, "OLLAMA_MODEL")
	setString(&c.OCR.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.OCR.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&c.OCR.OpenAIModel, "OPENAI_MODEL")
	setString(&c.OCR.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.OCR.GeminiModel, "GEMINI_MODEL")
	return nil
}

// Validate rejects settings the pipeline cannot run with
func (c Config) Validate() error {
	var errs []error
	if c.TempDir == "" {
		errs = append(errs, errors.New("temp_dir must not be empty"))
	}
	if c.RecognitionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("recognition_timeout must be positive, got %s", c.RecognitionTimeout))
	}
	if c.MaxDimension <= 0 {
		errs = append(errs, fmt.Errorf("max_dimension must be positive, got %d", c.MaxDimension))
	}
	if c.MaxPixels <= 0 {
		errs = append(errs, fmt.Errorf("max_pixels must be positive, got %d", c.MaxPixels))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.OCR.Provider == "" {
		errs = append(errs, errors.New("ocr provider must not be empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// DefaultModel picks the model for provider: OCR_MODEL first, then the provider-specific setting
func (c OCRConfig) DefaultModel(provider string) string {
	if c.Model != "" && provider == c.Provider {
		return c.Model
	}
	switch provider {
	case "ollama":
		return c.OllamaModel
	case "openai":
		return c.OpenAIModel
	case "gemini":
		return c.GeminiModel
	}
	return ""
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '+' || r == ' ' })
}
