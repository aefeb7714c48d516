package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TEAMuP-dev/HARP-sub001/internal/server"
)

func newEchoServerCmd(newLogger loggerFactory) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "echo-server",
		Short: "Serve a stub remote inference endpoint",
		Long: `Serve an endpoint that speaks the remote inference protocol and echoes the
submitted audio back unchanged. Every path accepts POST requests, so any
--api-name works against it.

Examples:
  wave2wave echo-server --addr :7860`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              addr,
				Handler:           server.EchoHandler(logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			logger.Info("Echo server listening", slog.String("address", addr))
			fmt.Fprintf(cmd.OutOrStdout(), "echo server listening on %s\n", addr)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":7860", "listen address")
	return cmd
}
