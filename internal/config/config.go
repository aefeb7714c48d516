package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in model definitions
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

const (
	defaultHTTPAddress     = "0.0.0.0"
	defaultHTTPPort        = 8080
	defaultMaxBodyMB       = 64
	defaultCleanupInterval = 30
	defaultRemoteTimeout   = 60
	defaultResamplerModel  = "builtin:resample"
	redactedSecret         = "***"
)

// Config represents the complete service configuration
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Pipelines PipelinesConfig `yaml:"pipelines"`
	Models    []ModelConfig   `yaml:"models"`
	Resampler ResamplerConfig `yaml:"resampler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port      int    `yaml:"port"`
	Address   string `yaml:"address"`
	Enabled   bool   `yaml:"enabled"`
	MaxBodyMB int    `yaml:"max_body_mb"`
}

// PipelinesConfig controls pipeline lifetime
type PipelinesConfig struct {
	IdleTimeout     int  `yaml:"idle_timeout"`     // seconds, 0 keeps pipelines loaded
	CleanupInterval int  `yaml:"cleanup_interval"` // seconds
	Preload         bool `yaml:"preload"`          // load every model at startup
}

// ModelConfig defines one named pipeline
type ModelConfig struct {
	Name    string            `yaml:"name"`
	Backend string            `yaml:"backend"`
	Local   LocalModelConfig  `yaml:"local"`
	Remote  RemoteModelConfig `yaml:"remote"`
}

// LocalModelConfig configures a local inference model
type LocalModelConfig struct {
	ModelPath       string `yaml:"model_path"`
	LibraryPath     string `yaml:"library_path"`
	ModelSampleRate int    `yaml:"model_sample_rate"`
}

// RemoteModelConfig configures a remote inference service
type RemoteModelConfig struct {
	URL           string `yaml:"url"`
	APIName       string `yaml:"api_name"`
	APIKey        string `yaml:"api_key"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent"`
	TempDir       string `yaml:"temp_dir"`
}

// ResamplerConfig selects the graph used for sample rate conversion
type ResamplerConfig struct {
	ModelPath   string `yaml:"model_path"`
	LibraryPath string `yaml:"library_path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, fills defaults and validates the result
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// SetDefaults fills unset optional fields
func (c *Config) SetDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = defaultHTTPAddress
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = defaultHTTPPort
	}
	if c.HTTP.MaxBodyMB == 0 {
		c.HTTP.MaxBodyMB = defaultMaxBodyMB
	}
	if c.Pipelines.CleanupInterval == 0 {
		c.Pipelines.CleanupInterval = defaultCleanupInterval
	}
	if c.Resampler.ModelPath == "" {
		c.Resampler.ModelPath = defaultResamplerModel
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	for i := range c.Models {
		if c.Models[i].Backend == BackendRemote && c.Models[i].Remote.Timeout == 0 {
			c.Models[i].Remote.Timeout = defaultRemoteTimeout
		}
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Pipelines.Validate(); err != nil {
		return fmt.Errorf("pipelines config: %w", err)
	}

	seen := make(map[string]bool, len(c.Models))
	for i := range c.Models {
		m := &c.Models[i]
		if err := m.Validate(); err != nil {
			return fmt.Errorf("model %d (%q): %w", i, m.Name, err)
		}
		if seen[m.Name] {
			return fmt.Errorf("model %d: duplicate name %q", i, m.Name)
		}
		seen[m.Name] = true
	}

	if err := c.Resampler.Validate(); err != nil {
		return fmt.Errorf("resampler config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Model returns the model definition with the given name
func (c *Config) Model(name string) (ModelConfig, bool) {
	for _, m := range c.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelConfig{}, false
}

// Sanitized returns a copy safe to expose over the API, with secrets redacted
func (c *Config) Sanitized() Config {
	out := *c
	out.Models = make([]ModelConfig, len(c.Models))
	copy(out.Models, c.Models)
	for i := range out.Models {
		if out.Models[i].Remote.APIKey != "" {
			out.Models[i].Remote.APIKey = redactedSecret
		}
	}
	return out
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	if h.MaxBodyMB < 1 {
		return fmt.Errorf("max_body_mb must be at least 1, got %d", h.MaxBodyMB)
	}

	return nil
}

// Validate validates pipeline configuration
func (p *PipelinesConfig) Validate() error {
	if p.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout cannot be negative, got %d", p.IdleTimeout)
	}

	if p.CleanupInterval < 1 {
		return fmt.Errorf("cleanup_interval must be at least 1 second, got %d", p.CleanupInterval)
	}

	return nil
}

// Validate validates a model definition
func (m *ModelConfig) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	switch m.Backend {
	case BackendLocal:
		return m.Local.Validate()
	case BackendRemote:
		return m.Remote.Validate()
	default:
		return fmt.Errorf("backend must be '%s' or '%s', got '%s'", BackendLocal, BackendRemote, m.Backend)
	}
}

// Validate validates local model configuration
func (l *LocalModelConfig) Validate() error {
	if l.ModelPath == "" {
		return fmt.Errorf("local.model_path cannot be empty")
	}

	if l.ModelSampleRate < 0 {
		return fmt.Errorf("local.model_sample_rate cannot be negative, got %d", l.ModelSampleRate)
	}

	return nil
}

// Validate validates remote model configuration
func (r *RemoteModelConfig) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("remote.url cannot be empty")
	}

	if r.APIName == "" {
		return fmt.Errorf("remote.api_name cannot be empty")
	}

	if r.Timeout < 1 {
		return fmt.Errorf("remote.timeout must be at least 1 second, got %d", r.Timeout)
	}

	if r.MaxRetries < 0 {
		return fmt.Errorf("remote.max_retries cannot be negative, got %d", r.MaxRetries)
	}

	if r.MaxConcurrent < 0 {
		return fmt.Errorf("remote.max_concurrent cannot be negative, got %d", r.MaxConcurrent)
	}

	return nil
}

// Validate validates resampler configuration
func (r *ResamplerConfig) Validate() error {
	if r.ModelPath == "" {
		return fmt.Errorf("model_path cannot be empty")
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// Output is stdout, stderr or a file path

	return nil
}

// GetIdleTimeoutDuration returns the pipeline idle timeout as a time.Duration
func (p *PipelinesConfig) GetIdleTimeoutDuration() time.Duration {
	return time.Duration(p.IdleTimeout) * time.Second
}

// GetCleanupIntervalDuration returns the cleanup interval as a time.Duration
func (p *PipelinesConfig) GetCleanupIntervalDuration() time.Duration {
	return time.Duration(p.CleanupInterval) * time.Second
}

// GetTimeoutDuration returns the remote request timeout as a time.Duration
func (r *RemoteModelConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}

// GetMaxBodyBytes returns the request body limit in bytes
func (h *HTTPConfig) GetMaxBodyBytes() int64 {
	return int64(h.MaxBodyMB) << 20
}
