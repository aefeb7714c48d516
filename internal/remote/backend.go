package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/TEAMuP-dev/HARP-sub001/internal/audio"
	"github.com/TEAMuP-dev/HARP-sub001/internal/inference"
	"github.com/TEAMuP-dev/HARP-sub001/internal/metrics"
	"github.com/TEAMuP-dev/HARP-sub001/internal/protocol"
	"github.com/TEAMuP-dev/HARP-sub001/internal/tensor"
)

var (
	// ErrTransport reports a file I/O or network failure during a remote call
	ErrTransport = errors.New("remote: transport failure")

	// ErrSampleRateMismatch is returned when the service answers at a
	// different sample rate and no resampler is configured
	ErrSampleRateMismatch = errors.New("remote: response sample rate differs from request")
)

// Config configures a remote inference backend
type Config struct {
	// URL is the service base URL; requests go to URL + APIName
	URL     string
	APIName string

	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int
	BackoffBase   time.Duration

	// TempDir holds the staged request and response files (os.TempDir when empty)
	TempDir string
}

// Endpoint returns the request URL
func (c Config) Endpoint() string {
	return c.URL + c.APIName
}

// Validate checks the config
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: url is required", inference.ErrConfiguration)
	}
	if c.APIName == "" {
		return fmt.Errorf("%w: api name is required", inference.ErrConfiguration)
	}

	u, err := url.Parse(c.Endpoint())
	if err != nil {
		return fmt.Errorf("%w: invalid endpoint %q: %v", inference.ErrConfiguration, c.Endpoint(), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: endpoint scheme must be http or https, got %q", inference.ErrConfiguration, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: endpoint %q has no host", inference.ErrConfiguration, c.Endpoint())
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative", inference.ErrConfiguration)
	}
	return nil
}

// ParseParams reads a Config from host parameters
func ParseParams(p inference.Params) (Config, error) {
	u, err := p.String(inference.ParamURL)
	if err != nil {
		return Config{}, err
	}
	apiName, err := p.String(inference.ParamAPIName)
	if err != nil {
		return Config{}, err
	}
	return Config{URL: u, APIName: apiName}, nil
}

// Backend processes buffers through a remote inference service.
// Calls on one backend are serialized.
type Backend struct {
	config    Config
	client    *Client
	resampler *inference.Resampler
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu sync.Mutex
}

// NewBackend creates an unloaded backend. The resampler is optional; without
// it, responses at a different sample rate are rejected.
func NewBackend(resampler *inference.Resampler, logger *slog.Logger, m *metrics.Metrics) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		resampler: resampler,
		logger:    logger.With(slog.String("component", "remote")),
		metrics:   m,
	}
}

// Load validates cfg and prepares the HTTP client. No request is sent.
// On failure the backend keeps its previous state.
func (b *Backend) Load(cfg Config) error {
	err := cfg.Validate()
	b.metrics.RecordModelLoad("remote", err)
	if err != nil {
		b.logger.Error("Invalid remote model configuration", slog.String("error", err.Error()))
		return err
	}

	client := NewClient(ClientConfig{
		Timeout:       cfg.Timeout,
		APIKey:        cfg.APIKey,
		MaxRetries:    cfg.MaxRetries,
		MaxConcurrent: cfg.MaxConcurrent,
		BackoffBase:   cfg.BackoffBase,
	}, b.logger, b.metrics)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		b.client.Close()
	}
	b.config = cfg
	b.client = client

	b.logger.Info("Remote model ready", slog.String("endpoint", cfg.Endpoint()))
	return nil
}

// LoadParams parses host parameters and loads the endpoint they name
func (b *Backend) LoadParams(p inference.Params) error {
	cfg, err := ParseParams(p)
	if err != nil {
		b.logger.Error("Invalid remote model parameters", slog.String("error", err.Error()))
		return err
	}
	return b.Load(cfg)
}

// Ready reports whether an endpoint is configured
func (b *Backend) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client != nil
}

// Config returns the loaded configuration
func (b *Backend) Config() Config {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.config
}

// Stats returns HTTP client statistics
func (b *Backend) Stats() ClientStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		return ClientStats{}
	}
	return b.client.Stats()
}

// Close releases the HTTP client; the backend becomes not ready
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	return err
}

// Process sends buf to the service as a 16-bit WAV file and replaces buf
// with the returned audio. buf is only written once every step succeeded.
func (b *Backend) Process(ctx context.Context, buf *audio.Buffer, sampleRate int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client == nil {
		return inference.ErrNotReady
	}

	logger := b.logger.With(slog.String("endpoint", b.config.Endpoint()))

	if sampleRate <= 0 {
		err := fmt.Errorf("%w: sample rate must be positive, got %d", inference.ErrConfiguration, sampleRate)
		logger.Error("Remote processing failed", slog.String("error", err.Error()))
		return err
	}

	result, err := b.exchange(ctx, buf, sampleRate)
	if err != nil {
		logger.Error("Remote processing failed", slog.String("error", err.Error()))
		return err
	}

	buf.CopyFrom(result)
	logger.Debug("Remote processing completed",
		slog.Int("channels", buf.NumChannels()),
		slog.Int("samples", buf.NumSamples()))
	return nil
}

// exchange runs the file round trip and returns the decoded response at
// sampleRate. Both staging files are removed before it returns.
func (b *Backend) exchange(ctx context.Context, buf *audio.Buffer, sampleRate int) (*audio.Buffer, error) {
	input, err := audio.CreateTemp(b.config.TempDir, "wave2wave-input-*.wav")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer b.removeTemp(input)

	output, err := audio.CreateTemp(b.config.TempDir, "wave2wave-output-*.wav")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer b.removeTemp(output)

	if err := audio.WriteWAVFile(input.Path(), buf, sampleRate); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	wav, err := os.ReadFile(input.Path())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	response, err := b.client.Predict(ctx, b.config.Endpoint(), protocol.NewPredictRequest(protocol.DefaultFileName, wav))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	if err := os.WriteFile(output.Path(), response, 0o600); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	result, info, err := audio.ReadWAVFile(output.Path())
	if err != nil {
		return nil, fmt.Errorf("%w: invalid response audio: %v", ErrTransport, err)
	}

	if info.SampleRate == sampleRate {
		return result, nil
	}
	return b.matchRate(ctx, result, info.SampleRate, sampleRate)
}

// matchRate resamples a response delivered at another rate back to the request rate
func (b *Backend) matchRate(ctx context.Context, result *audio.Buffer, from, to int) (*audio.Buffer, error) {
	if b.resampler == nil {
		return nil, fmt.Errorf("%w: sent %d Hz, received %d Hz", ErrSampleRateMismatch, to, from)
	}

	b.logger.Warn("Response sample rate differs from request, resampling",
		slog.Int("request_rate", to),
		slog.Int("response_rate", from))

	out, err := b.resampler.Convert(ctx, tensor.FromBuffer(result), from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: could not resample %d Hz response to %d Hz: %v", ErrSampleRateMismatch, from, to, err)
	}

	resampled := &audio.Buffer{}
	if err := tensor.ToBuffer(out, resampled); err != nil {
		return nil, err
	}
	return resampled, nil
}

func (b *Backend) removeTemp(f *audio.TempFile) {
	if err := f.Remove(); err != nil {
		b.logger.Warn("Failed to remove temporary file", slog.String("error", err.Error()))
	}
}
