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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"attendvisor/internal/app"
	"attendvisor/internal/attendance"
	"attendvisor/internal/auth"
	"attendvisor/internal/config"
	"attendvisor/internal/httpapi"
	"attendvisor/internal/httpmiddleware"
	"attendvisor/internal/insight"
	"attendvisor/internal/logger"
	"attendvisor/internal/metrics"
	"attendvisor/internal/rollup"
)

func main() {
	cfg := config.Load()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := runHTTP(cfg, zl); err != nil {
		zl.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, zl *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := app.Build(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer deps.Close()

	dir, err := app.Directory(cfg)
	if err != nil {
		return err
	}
	gate := auth.NewGate(dir, deps.Sessions, auth.GateConfig{
		Issuer:     cfg.JWTIssuer,
		SigningKey: cfg.JWTSigningKey,
		TTL:        cfg.SessionTTL,
	})

	svc := attendance.NewService(deps.Store, deps.Queue, zl.Named("attendance"))
	insights := insight.New(insight.Config{
		BaseURL: cfg.InsightAPIURL,
		APIKey:  cfg.InsightAPIKey,
		Model:   cfg.InsightModel,
		Timeout: cfg.InsightTimeout,
		Skip:    cfg.InsightSkip,
	}, zl.Named("insight"))

	// An in-memory queue is only visible to this process, so the rollup
	// consumer runs here instead of in the worker.
	if cfg.QueueBackend == "memory" {
		proc := rollup.NewProcessor(deps.Store, zl.Named("rollup"))
		go func() {
			if err := proc.Run(ctx, deps.Queue); err != nil {
				zl.Error("rollup stopped", zap.Error(err))
			}
		}()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(zl.Named("http"), "/healthz", "/metrics"))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(httpmiddleware.SecurityHeaders(cfg.Production()))
	r.Use(httpmiddleware.NewIPRateLimiter(cfg.RateLimitPerMin).GinMiddleware())
	r.Use(metrics.GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	httpapi.New(svc, gate, insights, deps.Checks, zl.Named("api")).Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutting down server")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("server forced shutdown", zap.Error(err))
	}
	zl.Info("server exited")
	return nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        24 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
