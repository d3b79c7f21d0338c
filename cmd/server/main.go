// Command server starts the bucket trace demo HTTP server.
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

	httpserver "github.com/fairyhunter13/bucket-trace-demo/internal/adapter/httpserver"
	"github.com/fairyhunter13/bucket-trace-demo/internal/adapter/observability"
	"github.com/fairyhunter13/bucket-trace-demo/internal/app"
	"github.com/fairyhunter13/bucket-trace-demo/internal/config"
	"github.com/fairyhunter13/bucket-trace-demo/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	ctx := context.Background()
	tracing, err := observability.SetupTracing(ctx, observability.TracingConfigFrom(cfg))
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
		os.Exit(1)
	}

	listers, err := app.BuildListers(ctx, cfg, tracing, nil)
	if err != nil {
		slog.Error("bucket source setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	traces := usecase.NewTraceService(listers.Plain, listers.Auto, tracing.Tracer("bucket-trace-demo"))
	storageCheck, tracingCheck := app.BuildReadinessChecks(cfg, listers.Probe)
	srv := httpserver.NewServer(cfg, traces, tracing, storageCheck, tracingCheck)
	srv.Stats = listers.Stats
	handler := app.BuildRouter(cfg, srv, logger)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("bucket_source", cfg.BucketSource))
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
		slog.Error("http shutdown failed", slog.Any("error", err))
	}
	// flush spans still queued in the batcher
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		slog.Error("tracer shutdown failed", slog.Any("error", err))
	}
}
