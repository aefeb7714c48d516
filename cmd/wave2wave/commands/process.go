package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/TEAMuP-dev/HARP-sub001/internal/audio"
	"github.com/TEAMuP-dev/HARP-sub001/internal/config"
	"github.com/TEAMuP-dev/HARP-sub001/internal/pipeline"
)

type processOptions struct {
	configPath string
	model      string

	modelPath       string
	libraryPath     string
	modelSampleRate int

	url     string
	apiName string
	apiKey  string
	timeout int
	retries int

	resampler string
}

func newProcessCmd(newLogger loggerFactory) *cobra.Command {
	var opts processOptions

	cmd := &cobra.Command{
		Use:   "process <input> <output.wav>",
		Short: "Run one audio file through a model",
		Long: `Run one audio file through a local or remote model and write the result as
16-bit PCM WAV. Inputs may be WAV, MP3 or Ogg Vorbis.

The model comes from a configuration file (--config with --model) or is given
inline: --model-path for a local graph, or --url and --api-name for a remote
endpoint.

Examples:
  wave2wave process --model-path builtin:identity in.wav out.wav
  wave2wave process --model-path models/denoise.onnx --model-sample-rate 16000 in.mp3 out.wav
  wave2wave process --url http://localhost:7860 --api-name /predict in.wav out.wav
  wave2wave process --config configs/config.yaml --model denoise in.ogg out.wav`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, newLogger(cmd), opts, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "configuration file with model definitions")
	f.StringVar(&opts.model, "model", "", "model name in the configuration file")
	f.StringVar(&opts.modelPath, "model-path", "", "local model file, or builtin:<graph>")
	f.StringVar(&opts.libraryPath, "library-path", "", "ONNX Runtime shared library")
	f.IntVar(&opts.modelSampleRate, "model-sample-rate", 0, "sample rate the local model expects (0 = input rate)")
	f.StringVar(&opts.url, "url", "", "remote endpoint base URL")
	f.StringVar(&opts.apiName, "api-name", "", "remote endpoint path appended to --url")
	f.StringVar(&opts.apiKey, "api-key", "", "bearer token for the remote endpoint")
	f.IntVar(&opts.timeout, "timeout", 60, "remote request timeout in seconds")
	f.IntVar(&opts.retries, "retries", 0, "remote retries on 5xx and timeouts")
	f.StringVar(&opts.resampler, "resampler", "builtin:resample", "resampling graph")

	return cmd
}

// resolveModel picks the model definition and resampler graph for a run
func resolveModel(opts processOptions) (config.ModelConfig, config.ResamplerConfig, error) {
	resampler := config.ResamplerConfig{ModelPath: opts.resampler, LibraryPath: opts.libraryPath}

	switch {
	case opts.configPath != "":
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return config.ModelConfig{}, resampler, err
		}

		name := opts.model
		if name == "" {
			if len(cfg.Models) != 1 {
				return config.ModelConfig{}, resampler, fmt.Errorf("--model is required when the configuration defines %d models", len(cfg.Models))
			}
			name = cfg.Models[0].Name
		}

		model, ok := cfg.Model(name)
		if !ok {
			return config.ModelConfig{}, resampler, fmt.Errorf("model %q not found in %s", name, opts.configPath)
		}
		return model, cfg.Resampler, nil

	case opts.modelPath != "":
		return config.ModelConfig{
			Name:    "cli",
			Backend: config.BackendLocal,
			Local: config.LocalModelConfig{
				ModelPath:       opts.modelPath,
				LibraryPath:     opts.libraryPath,
				ModelSampleRate: opts.modelSampleRate,
			},
		}, resampler, nil

	case opts.url != "":
		return config.ModelConfig{
			Name:    "cli",
			Backend: config.BackendRemote,
			Remote: config.RemoteModelConfig{
				URL:        opts.url,
				APIName:    opts.apiName,
				APIKey:     opts.apiKey,
				Timeout:    opts.timeout,
				MaxRetries: opts.retries,
			},
		}, resampler, nil

	default:
		return config.ModelConfig{}, resampler, fmt.Errorf("one of --config, --model-path or --url is required")
	}
}

func runProcess(cmd *cobra.Command, logger *slog.Logger, opts processOptions, input, output string) error {
	model, resamplerCfg, err := resolveModel(opts)
	if err != nil {
		return err
	}

	resampler, err := pipeline.NewResampler(resamplerCfg, logger, nil)
	if err != nil {
		return err
	}
	defer resampler.Close()

	processor, err := pipeline.NewFactory(resampler, logger, nil)(model)
	if err != nil {
		return err
	}
	defer processor.Close()

	buf, sampleRate, err := audio.Load(input)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := processor.Process(cmd.Context(), buf, sampleRate); err != nil {
		return fmt.Errorf("processing %s: %w", input, err)
	}
	elapsed := time.Since(start)

	if err := audio.WriteWAVFile(output, buf, sampleRate); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: %d channel(s), %d samples at %d Hz, %.2fs audio in %s\n",
		input, output, buf.NumChannels(), buf.NumSamples(), sampleRate,
		buf.Duration(sampleRate), elapsed.Round(time.Millisecond))
	return nil
}
