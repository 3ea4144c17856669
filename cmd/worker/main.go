// Package main provides the worker application entry point.
// The worker scans the configured trend categories on a fixed interval,
// archives the results and announces each scan on the event topic.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/trendpulse/internal/adapter/observability"
	"github.com/fairyhunter13/trendpulse/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/trendpulse/internal/app"
	"github.com/fairyhunter13/trendpulse/internal/config"
	"github.com/fairyhunter13/trendpulse/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()
	metricsSrv := &http.Server{Addr: cfg.WorkerMetricsAddr, ReadHeaderTimeout: 5 * time.Second}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv.Handler = mux
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	scanCfg, err := config.LoadScanConfig(cfg.ScanConfigPath)
	if err != nil {
		slog.Error("scan config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.OpenInfra(ctx, cfg, true)
	if err != nil {
		slog.Error("infrastructure init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer infra.Close()

	if infra.Pool != nil && cfg.DataRetentionDays > 0 {
		cleanupSvc := postgres.NewCleanupService(infra.Pool, cfg.DataRetentionDays)
		go cleanupSvc.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("cleanup service started",
			slog.Int("retention_days", cfg.DataRetentionDays),
			slog.Duration("interval", cfg.CleanupInterval))
	}

	gen := app.NewGenerator(cfg, infra.Redis)
	// scans always hit the model, so the trend service gets no cache
	trends := usecase.NewTrendService(gen, nil, 0, nil)
	plan := usecase.ScanPlan{
		Categories: scanCfg.Categories,
		Languages:  scanCfg.LanguageList(),
		Limit:      scanCfg.Limit,
	}
	scanner := usecase.NewScanService(trends, infra.Archive(), infra.ScanPublisher(), plan, cfg.ScanCategoryPause)

	slog.Info("starting worker",
		slog.String("env", cfg.AppEnv),
		slog.Any("categories", plan.Categories),
		slog.Duration("interval", cfg.ScanInterval),
		slog.Bool("archive", infra.Pool != nil),
		slog.Bool("publish", infra.Publisher != nil))

	if err := scanner.Run(ctx, cfg.ScanInterval); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("scan loop stopped", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	slog.Info("worker stopped")
}
