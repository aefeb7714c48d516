package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TEAMuP-dev/HARP-sub001/internal/config"
	"github.com/TEAMuP-dev/HARP-sub001/internal/logging"
	"github.com/TEAMuP-dev/HARP-sub001/internal/metrics"
	"github.com/TEAMuP-dev/HARP-sub001/internal/pipeline"
	"github.com/TEAMuP-dev/HARP-sub001/internal/server"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "wave2wave-server"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if !cfg.HTTP.Enabled {
		fmt.Fprintln(os.Stderr, "HTTP is disabled in the configuration, nothing to serve")
		os.Exit(1)
	}

	logger, closeLog := logging.New(cfg.Logging)
	defer closeLog()

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	logger.Info("Configuration loaded",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		slog.Int("models", len(cfg.Models)),
		slog.Duration("idle_timeout", cfg.Pipelines.GetIdleTimeoutDuration()),
		slog.Bool("preload", cfg.Pipelines.Preload),
		slog.String("resampler", cfg.Resampler.ModelPath),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()

	resampler, err := pipeline.NewResampler(cfg.Resampler, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to load resampler", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer resampler.Close()

	pipelineMgr, err := pipeline.NewManager(logger, pipeline.ManagerConfig{
		Models:          cfg.Models,
		IdleTimeout:     cfg.Pipelines.GetIdleTimeoutDuration(),
		CleanupInterval: cfg.Pipelines.GetCleanupIntervalDuration(),
		Factory:         pipeline.NewFactory(resampler, logger, appMetrics),
	}, appMetrics)
	if err != nil {
		logger.Error("Failed to create pipeline manager", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.Pipelines.Preload {
		if err := pipelineMgr.Preload(); err != nil {
			// failed pipelines are retried on first use
			logger.Warn("Some pipelines failed to preload", slog.String("error", err.Error()))
		}
	}

	httpServer := server.NewHTTPServer(cfg.HTTP, logger, cfg, pipelineMgr, appMetrics)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.Any("pipelines", pipelineMgr.Names()),
	)

	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Close pipelines once in-flight requests have drained
	infos := pipelineMgr.Info()
	pipelineMgr.Stop()

	for _, info := range infos {
		if !info.Loaded {
			continue
		}
		logger.Info("Final pipeline statistics",
			slog.String("pipeline", info.Name),
			slog.Uint64("calls", info.Calls),
			slog.Uint64("failures", info.Failures),
			slog.Float64("processed_seconds", info.ProcessedSeconds),
		)
	}

	logger.Info("Service stopped")
}
