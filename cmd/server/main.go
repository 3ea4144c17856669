// Command server starts the TrendPulse HTTP proxy.
package main

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

	"github.com/fairyhunter13/trendpulse/internal/adapter/ai/tokencount"
	httpserver "github.com/fairyhunter13/trendpulse/internal/adapter/httpserver"
	"github.com/fairyhunter13/trendpulse/internal/adapter/observability"
	"github.com/fairyhunter13/trendpulse/internal/app"
	"github.com/fairyhunter13/trendpulse/internal/config"
	"github.com/fairyhunter13/trendpulse/internal/usecase"
)

const trendCacheSize = 256

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	infra, err := app.OpenInfra(ctx, cfg, false)
	if err != nil {
		slog.Error("infrastructure init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer infra.Close()

	gen := app.NewGenerator(cfg, infra.Redis)

	trendSvc := usecase.NewTrendService(gen, infra.Cache(trendCacheSize), cfg.TrendCacheTTL, infra.Archive())
	contentSvc := usecase.NewContentService(gen, cfg.ThumbnailRetryMax, cfg.VideoPollInterval)
	analysisSvc := usecase.NewAnalysisService(gen)
	chatSvc := usecase.NewChatService(gen, tokencount.NewCounter(), cfg.ChatHistoryMaxToken)

	srv := httpserver.NewServer(cfg, trendSvc, contentSvc, analysisSvc, chatSvc, infra.ReadinessChecks()...)
	handler := app.BuildRouter(cfg, srv)

	if !cfg.AuthEnabled() {
		slog.Warn("proxy authentication disabled; set PROXY_USERNAME and PROXY_PASSWORD_HASH")
	}

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting",
			slog.Int("port", cfg.Port),
			slog.String("text_model", cfg.TextModel),
			slog.Bool("archive", cfg.ArchiveEnabled()),
			slog.Bool("redis", cfg.CacheEnabled()))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
