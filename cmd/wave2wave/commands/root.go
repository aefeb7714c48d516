package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/TEAMuP-dev/HARP-sub001/internal/config"
	"github.com/TEAMuP-dev/HARP-sub001/internal/logging"
)

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "wave2wave",
		Short: "Audio-to-audio model runner",
		Long: `wave2wave - run audio through waveform-to-waveform models.

Models run either in-process (ONNX graphs or built-in graphs) or on a remote
inference endpoint that accepts a base64 WAV payload and answers with WAV.

Examples:
  # Process a file with a local ONNX model
  wave2wave process --model-path models/denoise.onnx in.wav out.wav

  # Process with a model from a configuration file
  wave2wave process --config configs/config.yaml --model denoise in.mp3 out.wav

  # Try the remote path against a local echo endpoint
  wave2wave echo-server --addr :7860 &
  wave2wave process --url http://localhost:7860 --api-name /predict in.wav out.wav`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	newLogger := func(cmd *cobra.Command) *slog.Logger {
		return slog.New(logging.NewHandler(cmd.ErrOrStderr(), config.LoggingConfig{Level: logLevel, Format: "text"}))
	}

	root.AddCommand(newProcessCmd(newLogger))
	root.AddCommand(newEchoServerCmd(newLogger))
	root.AddCommand(newGraphsCmd())

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

type loggerFactory func(cmd *cobra.Command) *slog.Logger
