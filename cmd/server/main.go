// Package main provides the entry point for the scholar harvest service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scholarcsv/scholar-harvest-service/internal/artifact"
	"github.com/scholarcsv/scholar-harvest-service/internal/config"
	"github.com/scholarcsv/scholar-harvest-service/internal/harvest"
	"github.com/scholarcsv/scholar-harvest-service/internal/observability"
	"github.com/scholarcsv/scholar-harvest-service/internal/scholar"
	httpserver "github.com/scholarcsv/scholar-harvest-service/internal/server/http"
)

const metricsNamespace = "scholar_harvest"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("scholar-harvest-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Register metrics when enabled.
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(metricsNamespace)
	}

	// Ephemeral CSV artifact store with TTL eviction.
	store := artifact.NewStore(cfg.Artifacts.TTL, cfg.Artifacts.SweepInterval, logger)
	defer store.Close()

	// Upstream Google Scholar client via SerpAPI.
	scholarClient := scholar.NewClient(scholar.Config{
		BaseURL:   cfg.SerpAPI.BaseURL,
		Timeout:   cfg.SerpAPI.Timeout,
		RateLimit: cfg.SerpAPI.RateLimit,
		BurstSize: cfg.SerpAPI.BurstSize,
	}, nil)

	// Pagination engine driving fetch, normalize, encode, and store.
	engine := harvest.NewEngine(harvest.EngineConfig{
		PageDelay: cfg.Harvest.PageDelay,
	}, scholarClient, store, logger, metrics)

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	httpSrv := httpserver.NewServer(httpCfg, engine, store, logger, metrics)

	// Prometheus metrics handler on a separate port when enabled.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:        cfg.Server.MetricsAddress(),
			Handler:     metricsMux,
			ReadTimeout: cfg.Server.ReadTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	go func() {
		logger.Info().
			Str("address", httpCfg.Address).
			Msg("HTTP server starting")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("scholar-harvest-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown. In-flight harvest streams get until the shutdown
	// timeout to finish.
	logger.Info().Msg("shutting down scholar-harvest-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("scholar-harvest-service shutdown complete")
	return nil
}
