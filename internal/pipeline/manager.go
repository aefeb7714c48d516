package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/TEAMuP-dev/HARP-sub001/internal/audio"
	"github.com/TEAMuP-dev/HARP-sub001/internal/config"
	"github.com/TEAMuP-dev/HARP-sub001/internal/inference"
	"github.com/TEAMuP-dev/HARP-sub001/internal/metrics"
	"github.com/TEAMuP-dev/HARP-sub001/internal/remote"
	"github.com/TEAMuP-dev/HARP-sub001/internal/wave2wave"
)

var (
	// ErrUnknownPipeline is returned for names with no model definition
	ErrUnknownPipeline = errors.New("pipeline: unknown pipeline")
	// ErrClosed is returned once the manager has been stopped
	ErrClosed = errors.New("pipeline: manager stopped")

	errPipelineClosed = errors.New("pipeline: pipeline closed")
)

const defaultCleanupInterval = 30 * time.Second

// Pipeline is a loaded processor for one model definition. Calls to Process
// are serialized.
type Pipeline struct {
	Name      string
	Backend   string
	CreatedAt time.Time

	processor wave2wave.Processor
	closed    bool
	mu        sync.Mutex

	lastUsed         time.Time
	calls            uint64
	failures         uint64
	processedSeconds float64
	statsMu          sync.RWMutex
}

// PipelineInfo is a snapshot of a pipeline for reporting
type PipelineInfo struct {
	Name             string    `json:"name"`
	Backend          string    `json:"backend"`
	Loaded           bool      `json:"loaded"`
	Ready            bool      `json:"ready"`
	CreatedAt        time.Time `json:"created_at"`
	LastUsed         time.Time `json:"last_used"`
	Calls            uint64    `json:"calls"`
	Failures         uint64    `json:"failures"`
	ProcessedSeconds float64   `json:"processed_seconds"`

	// backend counters; only the one matching Backend is set
	LocalStats  *inference.BackendStats `json:"local_stats,omitempty"`
	RemoteStats *remote.ClientStats     `json:"remote_stats,omitempty"`
}

// ManagerConfig contains configuration for the pipeline manager
type ManagerConfig struct {
	Models          []config.ModelConfig
	IdleTimeout     time.Duration // 0 keeps pipelines loaded until Stop
	CleanupInterval time.Duration
	Factory         Factory
}

// Manager owns the named pipelines
type Manager struct {
	models    map[string]config.ModelConfig
	pipelines map[string]*Pipeline
	factory   Factory
	stopped   bool
	mu        sync.RWMutex
	loadMu    sync.Mutex

	logger          *slog.Logger
	metrics         *metrics.Metrics
	idleTimeout     time.Duration
	cleanupInterval time.Duration

	// Cleanup management
	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// NewManager creates a pipeline manager and starts its cleanup routine
func NewManager(logger *slog.Logger, cfg ManagerConfig, m *metrics.Metrics) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("pipeline factory is required")
	}

	models := make(map[string]config.ModelConfig, len(cfg.Models))
	for _, model := range cfg.Models {
		if model.Name == "" {
			return nil, fmt.Errorf("model definition without a name")
		}
		if _, exists := models[model.Name]; exists {
			return nil, fmt.Errorf("duplicate model name %q", model.Name)
		}
		models[model.Name] = model
	}

	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = defaultCleanupInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	mgr := &Manager{
		models:          models,
		pipelines:       make(map[string]*Pipeline),
		factory:         cfg.Factory,
		logger:          logger.With(slog.String("component", "pipeline_manager")),
		metrics:         m,
		idleTimeout:     cfg.IdleTimeout,
		cleanupInterval: interval,
		ctx:             ctx,
		cancel:          cancel,
		cleanup:         make(chan struct{}),
	}

	go mgr.startCleanupRoutine()

	return mgr, nil
}

// Names returns the configured pipeline names in sorted order
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.models))
	for name := range m.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preload loads every configured pipeline. Failures are collected and
// returned together; pipelines that loaded stay loaded.
func (m *Manager) Preload() error {
	var errs []error
	for _, name := range m.Names() {
		if _, err := m.Get(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get returns the named pipeline, loading it on first use
func (m *Manager) Get(name string) (*Pipeline, error) {
	m.mu.RLock()
	if m.stopped {
		m.mu.RUnlock()
		return nil, ErrClosed
	}
	p, exists := m.pipelines[name]
	m.mu.RUnlock()
	if exists {
		return p, nil
	}

	model, ok := m.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPipeline, name)
	}

	// one load at a time so a model is never loaded twice
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	m.mu.RLock()
	p, exists = m.pipelines[name]
	m.mu.RUnlock()
	if exists {
		return p, nil
	}

	start := time.Now()
	processor, err := m.factory(model)
	if err != nil {
		m.logger.Error("Failed to load pipeline",
			slog.String("pipeline", name),
			slog.String("backend", model.Backend),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to load pipeline %q: %w", name, err)
	}

	now := time.Now()
	p = &Pipeline{
		Name:      name,
		Backend:   model.Backend,
		CreatedAt: now,
		processor: processor,
		lastUsed:  now,
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		_ = processor.Close()
		return nil, ErrClosed
	}
	m.pipelines[name] = p
	count := len(m.pipelines)
	m.mu.Unlock()

	m.metrics.RecordPipelineCreated()
	m.metrics.SetActivePipelines(count)

	m.logger.Info("Pipeline loaded",
		slog.String("pipeline", name),
		slog.String("backend", model.Backend),
		slog.Duration("load_time", time.Since(start)),
	)

	return p, nil
}

// Process runs the named pipeline over buf in place
func (m *Manager) Process(ctx context.Context, name string, buf *audio.Buffer, sampleRate int) error {
	for {
		p, err := m.Get(name)
		if err != nil {
			return err
		}

		err = p.process(ctx, buf, sampleRate, m.metrics)
		if errors.Is(err, errPipelineClosed) {
			// unloaded while waiting; load again
			continue
		}
		return err
	}
}

// Unload closes the named pipeline. It returns false if it was not loaded.
func (m *Manager) Unload(name string) bool {
	m.mu.Lock()
	p, exists := m.pipelines[name]
	if !exists {
		m.mu.Unlock()
		return false
	}
	delete(m.pipelines, name)
	count := len(m.pipelines)
	m.mu.Unlock()

	p.close(m.logger)

	m.metrics.RecordPipelineClosed()
	m.metrics.SetActivePipelines(count)

	calls, failures, _ := p.stats()
	m.logger.Info("Pipeline unloaded",
		slog.String("pipeline", name),
		slog.Uint64("calls", calls),
		slog.Uint64("failures", failures),
		slog.Duration("lifetime", time.Since(p.CreatedAt)),
	)

	return true
}

// GetActivePipelineCount returns the number of loaded pipelines
func (m *Manager) GetActivePipelineCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pipelines)
}

// Info reports every configured pipeline, loaded or not, sorted by name
func (m *Manager) Info() []PipelineInfo {
	infos := make([]PipelineInfo, 0, len(m.models))
	for _, name := range m.Names() {
		m.mu.RLock()
		p, loaded := m.pipelines[name]
		m.mu.RUnlock()

		if !loaded {
			infos = append(infos, PipelineInfo{Name: name, Backend: m.models[name].Backend})
			continue
		}
		infos = append(infos, p.Info())
	}
	return infos
}

// Stop closes every pipeline and stops the cleanup routine
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()

	m.logger.Info("Stopping pipeline manager...")

	// Cancel context to stop cleanup routine
	m.cancel()
	<-m.cleanup

	m.mu.RLock()
	names := make([]string, 0, len(m.pipelines))
	for name := range m.pipelines {
		names = append(names, name)
	}
	m.mu.RUnlock()

	for _, name := range names {
		m.Unload(name)
	}

	m.logger.Info("Pipeline manager stopped", slog.Int("unloaded", len(names)))
}

// startCleanupRoutine runs in a separate goroutine to unload idle pipelines
func (m *Manager) startCleanupRoutine() {
	defer close(m.cleanup)

	if m.idleTimeout <= 0 {
		<-m.ctx.Done()
		return
	}

	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	m.logger.Info("Pipeline cleanup routine started",
		slog.Duration("idle_timeout", m.idleTimeout),
		slog.Duration("check_interval", m.cleanupInterval),
	)

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Info("Pipeline cleanup routine stopping")
			return
		case <-ticker.C:
			m.cleanupIdlePipelines(time.Now())
		}
	}
}

// cleanupIdlePipelines unloads pipelines unused since before now-idleTimeout
func (m *Manager) cleanupIdlePipelines(now time.Time) {
	var idle []string

	m.mu.RLock()
	for name, p := range m.pipelines {
		if now.Sub(p.LastUsed()) > m.idleTimeout {
			idle = append(idle, name)
		}
	}
	m.mu.RUnlock()

	if len(idle) == 0 {
		return
	}

	m.logger.Info("Unloading idle pipelines", slog.Int("count", len(idle)))
	for _, name := range idle {
		m.Unload(name)
	}
}

// Ready reports whether the pipeline's processor can run
func (p *Pipeline) Ready() bool {
	return p.processor.Ready()
}

// LastUsed returns the time of the last process call, or the load time
func (p *Pipeline) LastUsed() time.Time {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	return p.lastUsed
}

// Info returns a snapshot of the pipeline
func (p *Pipeline) Info() PipelineInfo {
	info := PipelineInfo{
		Name:      p.Name,
		Backend:   p.Backend,
		Loaded:    true,
		Ready:     p.processor.Ready(),
		CreatedAt: p.CreatedAt,
	}

	switch v := p.processor.(type) {
	case *wave2wave.Local:
		stats := v.Backend().Stats()
		info.LocalStats = &stats
	case *wave2wave.Remote:
		stats := v.Backend().Stats()
		info.RemoteStats = &stats
	}

	p.statsMu.RLock()
	defer p.statsMu.RUnlock()

	info.LastUsed = p.lastUsed
	info.Calls = p.calls
	info.Failures = p.failures
	info.ProcessedSeconds = p.processedSeconds
	return info
}

func (p *Pipeline) process(ctx context.Context, buf *audio.Buffer, sampleRate int, m *metrics.Metrics) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errPipelineClosed
	}

	audioSeconds := buf.Duration(sampleRate)
	start := time.Now()
	err := p.processor.Process(ctx, buf, sampleRate)
	elapsed := time.Since(start)

	m.RecordProcess(p.Backend, err, elapsed.Seconds(), audioSeconds)

	p.statsMu.Lock()
	p.lastUsed = time.Now()
	p.calls++
	if err != nil {
		p.failures++
	} else {
		p.processedSeconds += audioSeconds
	}
	p.statsMu.Unlock()

	return err
}

// close waits for an in-flight call before releasing the processor
func (p *Pipeline) close(logger *slog.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	if err := p.processor.Close(); err != nil {
		logger.Warn("Error closing pipeline",
			slog.String("pipeline", p.Name),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Pipeline) stats() (calls, failures uint64, processedSeconds float64) {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	return p.calls, p.failures, p.processedSeconds
}
