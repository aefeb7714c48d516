package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/TEAMuP-dev/HARP-sub001/internal/config"
	"github.com/TEAMuP-dev/HARP-sub001/internal/inference"
	"github.com/TEAMuP-dev/HARP-sub001/internal/metrics"
	"github.com/TEAMuP-dev/HARP-sub001/internal/remote"
	"github.com/TEAMuP-dev/HARP-sub001/internal/wave2wave"
)

// Factory builds and loads the processor for a model definition
type Factory func(model config.ModelConfig) (wave2wave.Processor, error)

// NewFactory returns the default Factory. The resampler is shared by every
// processor it builds and may be nil.
func NewFactory(resampler *inference.Resampler, logger *slog.Logger, m *metrics.Metrics) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return func(model config.ModelConfig) (wave2wave.Processor, error) {
		modelLogger := logger.With(slog.String("pipeline", model.Name))

		switch model.Backend {
		case config.BackendLocal:
			if model.Local.ModelSampleRate > 0 && resampler == nil {
				return nil, fmt.Errorf("%w: model %s sets model_sample_rate but no resampler is available",
					inference.ErrConfiguration, model.Name)
			}
			backend := inference.NewBackend(nil, modelLogger, m)
			err := backend.Load(inference.LocalConfig{
				ModelPath:   model.Local.ModelPath,
				LibraryPath: model.Local.LibraryPath,
			})
			if err != nil {
				return nil, err
			}
			local := wave2wave.NewLocal(backend, resampler, modelLogger)
			local.ModelSampleRate = model.Local.ModelSampleRate
			return local, nil

		case config.BackendRemote:
			backend := remote.NewBackend(resampler, modelLogger, m)
			err := backend.Load(remote.Config{
				URL:           model.Remote.URL,
				APIName:       model.Remote.APIName,
				APIKey:        model.Remote.APIKey,
				Timeout:       model.Remote.GetTimeoutDuration(),
				MaxRetries:    model.Remote.MaxRetries,
				MaxConcurrent: model.Remote.MaxConcurrent,
				TempDir:       model.Remote.TempDir,
			})
			if err != nil {
				return nil, err
			}
			return wave2wave.NewRemote(backend), nil

		default:
			return nil, fmt.Errorf("%w: unknown backend %q", inference.ErrConfiguration, model.Backend)
		}
	}
}

// NewResampler loads the resampling graph named in the configuration
func NewResampler(cfg config.ResamplerConfig, logger *slog.Logger, m *metrics.Metrics) (*inference.Resampler, error) {
	backend := inference.NewBackend(nil, logger, m)
	if err := backend.Load(inference.LocalConfig{ModelPath: cfg.ModelPath, LibraryPath: cfg.LibraryPath}); err != nil {
		return nil, fmt.Errorf("failed to load resampler: %w", err)
	}
	return inference.NewResampler(backend, logger, m), nil
}
