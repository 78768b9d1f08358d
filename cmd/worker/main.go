package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"attendvisor/internal/app"
	"attendvisor/internal/config"
	"attendvisor/internal/logger"
	"attendvisor/internal/rollup"
)

// Worker consumes attendance events and keeps the per-class day gauges current.
func main() {
	cfg := config.Load()
	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := app.CheckWorkerConfig(cfg); err != nil {
		zl.Fatal("invalid worker config",
			zap.String("queue", cfg.QueueBackend),
			zap.String("store", cfg.StoreBackend),
			zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		zl.Info("shutdown signal received")
		cancel()
	}()

	deps, err := app.Build(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("backend init failed", zap.Error(err))
	}
	defer deps.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zl.Info("metrics listening", zap.String("port", cfg.MetricsPort))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("metrics server error", zap.Error(err))
		}
	}()

	zl.Info("worker started, waiting for messages")
	proc := rollup.NewProcessor(deps.Store, zl.Named("rollup"))
	if err := proc.Run(ctx, deps.Queue); err != nil {
		zl.Error("rollup stopped", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = metricsSrv.Shutdown(shutdownCtx)
	zl.Info("worker stopped")
}
