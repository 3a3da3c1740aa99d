// Package config loads roomstyler settings: defaults, then an optional YAML
// file, then environment overrides, then validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/roomstyler/internal/prompts"
	"github.com/lehigh-university-libraries/roomstyler/internal/providers"
)

const (
	// DefaultPath is read when no --config flag is given. A missing file is not an error.
	DefaultPath = "roomstyler.yaml"

	TransportSDK  = "sdk"
	TransportREST = "rest"

	defaultDetectModel    = "gemini-2.5-flash"
	defaultImageModel     = "gemini-2.5-flash-image"
	defaultTimeout        = 2 * time.Minute
	defaultPort           = 8888
	defaultMaxUploadBytes = 10 * 1024 * 1024
	defaultConcurrency    = 2
	defaultOutputDir      = "results"

	envAPIKey         = "GEMINI_API_KEY"
	envAPIKeyFallback = "API_KEY"
	envTransport      = "GEMINI_TRANSPORT"
	envBaseURL        = "GEMINI_BASE_URL"
	envDetectModel    = "GEMINI_DETECT_MODEL"
	envImageModel     = "GEMINI_IMAGE_MODEL"
	envPort           = "PORT"
	envDefaultPrompt  = "ROOMSTYLER_DEFAULT_PROMPT"
)

// ErrInvalidConfig indicates malformed configuration input.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the application configuration root.
type Config struct {
	Gemini GeminiConfig `yaml:"gemini"`
	Server ServerConfig `yaml:"server"`
	Studio StudioConfig `yaml:"studio"`
	Batch  BatchConfig  `yaml:"batch"`
}

// GeminiConfig selects and configures the model transport.
type GeminiConfig struct {
	APIKey      string        `yaml:"api_key"`
	Transport   string        `yaml:"transport"`
	BaseURL     string        `yaml:"base_url"`
	DetectModel string        `yaml:"detect_model"`
	ImageModel  string        `yaml:"image_model"`
	Timeout     time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Port           int   `yaml:"port"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

type StudioConfig struct {
	DefaultPrompt string `yaml:"default_prompt"`
}

type BatchConfig struct {
	Concurrency int    `yaml:"concurrency"`
	OutputDir   string `yaml:"output_dir"`
}

// Default returns application defaults.
func Default() Config {
	return Config{
		Gemini: GeminiConfig{
			Transport:   TransportSDK,
			DetectModel: defaultDetectModel,
			ImageModel:  defaultImageModel,
			Timeout:     defaultTimeout,
		},
		Server: ServerConfig{
			Port:           defaultPort,
			MaxUploadBytes: defaultMaxUploadBytes,
		},
		Studio: StudioConfig{
			DefaultPrompt: prompts.DefaultBrief,
		},
		Batch: BatchConfig{
			Concurrency: defaultConcurrency,
			OutputDir:   defaultOutputDir,
		},
	}
}

// Load reads the config file at path (DefaultPath when empty) then applies
// environment overrides. An explicitly named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	path = strings.TrimSpace(path)
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	if err := mergeConfigFile(&cfg, path, explicit); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Providers returns the transport settings for a model client.
func (c Config) Providers() providers.Config {
	return providers.Config{
		APIKey:      strings.TrimSpace(c.Gemini.APIKey),
		BaseURL:     strings.TrimRight(strings.TrimSpace(c.Gemini.BaseURL), "/"),
		DetectModel: strings.TrimSpace(c.Gemini.DetectModel),
		ImageModel:  strings.TrimSpace(c.Gemini.ImageModel),
		Timeout:     c.Gemini.Timeout,
	}
}

// Validate checks the loaded values. A missing API key is not a config
// error; the client constructors report it when a model call is needed.
func (c Config) Validate() error {
	switch c.Gemini.Transport {
	case TransportSDK, TransportREST:
	default:
		return fmt.Errorf("%w: gemini.transport must be %q or %q, got %q", ErrInvalidConfig, TransportSDK, TransportREST, c.Gemini.Transport)
	}
	if strings.TrimSpace(c.Gemini.DetectModel) == "" {
		return fmt.Errorf("%w: gemini.detect_model is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Gemini.ImageModel) == "" {
		return fmt.Errorf("%w: gemini.image_model is required", ErrInvalidConfig)
	}
	if c.Gemini.Timeout < 0 {
		return fmt.Errorf("%w: gemini.timeout must be >= 0", ErrInvalidConfig)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port must be between 1 and 65535", ErrInvalidConfig)
	}
	if c.Server.MaxUploadBytes < 1 {
		return fmt.Errorf("%w: server.max_upload_bytes must be positive", ErrInvalidConfig)
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("%w: batch.concurrency must be >= 1", ErrInvalidConfig)
	}
	return nil
}

func mergeConfigFile(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: parse config file %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if value := lookup(envAPIKey); value != "" {
		cfg.Gemini.APIKey = value
	} else if value := lookup(envAPIKeyFallback); value != "" {
		cfg.Gemini.APIKey = value
	}
	if value := lookup(envTransport); value != "" {
		cfg.Gemini.Transport = strings.ToLower(value)
	}
	if value := lookup(envBaseURL); value != "" {
		cfg.Gemini.BaseURL = value
	}
	if value := lookup(envDetectModel); value != "" {
		cfg.Gemini.DetectModel = value
	}
	if value := lookup(envImageModel); value != "" {
		cfg.Gemini.ImageModel = value
	}
	if value := lookup(envPort); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, envPort, err)
		}
		cfg.Server.Port = port
	}
	if value, ok := os.LookupEnv(envDefaultPrompt); ok {
		cfg.Studio.DefaultPrompt = value
	}
	return nil
}

func lookup(key string) string {
	value, _ := os.LookupEnv(key)
	return strings.TrimSpace(value)
}
