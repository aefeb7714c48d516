package inference

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/TEAMuP-dev/HARP-sub001/internal/metrics"
)

// Backend is a local inference handle. It owns at most one graph; loads and
// forward passes are serialized on one mutex.
type Backend struct {
	loader  Loader
	logger  *slog.Logger
	metrics *metrics.Metrics

	graph  Graph
	config LocalConfig

	// Statistics
	loads        uint64
	forwards     uint64
	failures     uint64
	lastForward  time.Time
	lastDuration time.Duration

	mu sync.Mutex
}

// BackendStats represents local backend statistics
type BackendStats struct {
	ModelPath    string        `json:"model_path"`
	Ready        bool          `json:"ready"`
	Loads        uint64        `json:"loads"`
	Forwards     uint64        `json:"forwards"`
	Failures     uint64        `json:"failures"`
	LastForward  time.Time     `json:"last_forward"`
	LastDuration time.Duration `json:"last_duration"`
}

// NewBackend creates an unloaded backend. A nil loader selects DefaultLoader
// and a nil logger selects slog.Default.
func NewBackend(loader Loader, logger *slog.Logger, m *metrics.Metrics) *Backend {
	if loader == nil {
		loader = DefaultLoader
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		loader:  loader,
		logger:  logger.With(slog.String("component", "inference")),
		metrics: m,
	}
}

// Load deserializes the configured graph. On failure the backend keeps
// whatever it held before, loaded or not.
func (b *Backend) Load(cfg LocalConfig) error {
	if err := cfg.Validate(); err != nil {
		b.logger.Error("Invalid local model configuration", slog.String("error", err.Error()))
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	graph, err := b.loadGraph(cfg)
	b.metrics.RecordModelLoad("local", err)
	if err != nil {
		b.logger.Error("Failed to load model",
			slog.String("model_path", cfg.ModelPath),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %s: %v", ErrModelLoad, cfg.ModelPath, err)
	}

	if b.graph != nil {
		if err := b.graph.Close(); err != nil {
			b.logger.Warn("Failed to release previous model",
				slog.String("model_path", b.config.ModelPath),
				slog.String("error", err.Error()))
		}
	}

	b.graph = graph
	b.config = cfg
	b.loads++

	b.logger.Info("Model loaded", slog.String("model_path", cfg.ModelPath))
	return nil
}

// loadGraph calls the loader, turning a panic into an error
func (b *Backend) loadGraph(cfg LocalConfig) (graph Graph, err error) {
	defer func() {
		if r := recover(); r != nil {
			graph, err = nil, fmt.Errorf("loader panic: %v", r)
		}
	}()

	graph, err = b.loader.Load(cfg)
	if err == nil && graph == nil {
		err = fmt.Errorf("loader returned no graph")
	}
	return graph, err
}

// LoadParams parses host parameters and loads the model they name
func (b *Backend) LoadParams(p Params) error {
	cfg, err := ParseLocalParams(p)
	if err != nil {
		b.logger.Error("Invalid local model parameters", slog.String("error", err.Error()))
		return err
	}
	return b.Load(cfg)
}

// Ready reports whether a graph is loaded
func (b *Backend) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.graph != nil
}

// Config returns the configuration of the loaded graph
func (b *Backend) Config() LocalConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.config
}

// Forward runs the loaded graph on inputs and returns its first output
func (b *Backend) Forward(ctx context.Context, inputs ...Value) (Value, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.graph == nil {
		return Value{}, ErrNotReady
	}

	start := time.Now()
	out, err := b.run(ctx, inputs)
	elapsed := time.Since(start)

	b.forwards++
	b.lastForward = time.Now()
	b.lastDuration = elapsed
	b.metrics.RecordForward(elapsed.Seconds())

	if err != nil {
		b.failures++
		b.logger.Error("Forward pass failed",
			slog.String("model_path", b.config.ModelPath),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()))
		return Value{}, fmt.Errorf("%w: %v", ErrInference, err)
	}

	b.logger.Debug("Forward pass completed",
		slog.String("model_path", b.config.ModelPath),
		slog.Duration("elapsed", elapsed))
	return out, nil
}

func (b *Backend) run(ctx context.Context, inputs []Value) (out Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = Value{}, fmt.Errorf("graph panic: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return Value{}, err
	}
	return b.graph.Run(ctx, inputs)
}

// Close releases the loaded graph. The backend can be loaded again afterwards.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.graph == nil {
		return nil
	}

	err := b.graph.Close()
	b.graph = nil
	b.config = LocalConfig{}
	if err != nil {
		return fmt.Errorf("failed to release model: %w", err)
	}
	return nil
}

// Stats returns backend statistics
func (b *Backend) Stats() BackendStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BackendStats{
		ModelPath:    b.config.ModelPath,
		Ready:        b.graph != nil,
		Loads:        b.loads,
		Forwards:     b.forwards,
		Failures:     b.failures,
		LastForward:  b.lastForward,
		LastDuration: b.lastDuration,
	}
}
