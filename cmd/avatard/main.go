package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jurepetric/avatard/internal/app"
	"github.com/jurepetric/avatard/internal/config"
	"github.com/jurepetric/avatard/internal/observability"
	"github.com/jurepetric/avatard/internal/reliability"
)

const maxJobAttempts = 3

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := newLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("agent worker failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	ctx := context.Background()

	// Scrape endpoint for the worker's own instruments.
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{Addr: cfg.BindAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics listener failed", "addr", cfg.BindAddr, "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	// The orchestrator itself never retries: a failed session ends Closed.
	// Retry policy lives here, at the job layer.
	var lastErr error
	for attempt := 0; attempt < maxJobAttempts; attempt++ {
		if attempt > 0 {
			wait := reliability.ExponentialBackoff(attempt-1, 2*time.Second, 30*time.Second)
			logger.Info("retrying session", "attempt", attempt+1, "wait", wait.String())
			time.Sleep(wait)
		}

		result, err := app.BuildAgent(cfg, logger, metrics)
		if err != nil {
			return err
		}

		err = result.Orchestrator.Run(ctx)
		if cerr := result.Cleanup(); cerr != nil {
			logger.Warn("cleanup failed", "error", cerr)
		}
		if err == nil {
			logger.Info("session finished", "room", cfg.RoomName)
			return nil
		}
		lastErr = err
		logger.Error("session failed", "attempt", attempt+1, "error", err)
	}

	return lastErr
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
