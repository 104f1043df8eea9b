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

	"github.com/GregMSThompson/chart-renderer/internal/bootstrap"
	"github.com/GregMSThompson/chart-renderer/internal/chartstate"
	statsclient "github.com/GregMSThompson/chart-renderer/internal/client/stats"
	"github.com/GregMSThompson/chart-renderer/internal/config"
	"github.com/GregMSThompson/chart-renderer/internal/dto"
	"github.com/GregMSThompson/chart-renderer/internal/handlers"
	"github.com/GregMSThompson/chart-renderer/internal/metrics"
	"github.com/GregMSThompson/chart-renderer/internal/middleware"
	"github.com/GregMSThompson/chart-renderer/internal/queue"
	"github.com/GregMSThompson/chart-renderer/internal/render"
	"github.com/GregMSThompson/chart-renderer/internal/response"
	"github.com/GregMSThompson/chart-renderer/internal/router"
	"github.com/GregMSThompson/chart-renderer/internal/services"
	"github.com/GregMSThompson/chart-renderer/internal/store"
	"github.com/GregMSThompson/chart-renderer/internal/throttle"
	"github.com/GregMSThompson/chart-renderer/pkg/clock"
	"github.com/GregMSThompson/chart-renderer/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func exitOnError(message string, err error, log *slog.Logger) {
	if err != nil {
		log.Error(message, "error", err)
		os.Exit(1)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// bootstrap
	cfg, err := config.New()
	exitOnError("config failed", err, slog.Default())
	bs, err := bootstrap.Run(ctx, cfg)
	exitOnError("bootstrap failed", err, bs.Log)
	ctx = logger.ToContext(ctx, bs.Log)

	clk := clock.System{}
	registry := chartstate.DefaultRegistry()

	// pipeline components
	thr, err := throttle.New(clk, throttle.Config{
		MaxRequests:   cfg.ThrottleMaxRequests,
		Window:        cfg.ThrottleWindow,
		SweepInterval: cfg.ThrottleSweepInterval,
	})
	exitOnError("throttle init failed", err, bs.Log)
	thr.Start(ctx)
	defer thr.Stop()

	rq, err := queue.New[dto.ChartImage](clk, queue.Config{
		MaxConcurrent: cfg.QueueMaxConcurrent,
		MaxQueueSize:  cfg.QueueMaxSize,
		QueueTimeout:  cfg.QueueTimeout,
	})
	exitOnError("queue init failed", err, bs.Log)

	cache, err := store.NewArtifactCache(cfg.CacheDir, cfg.CacheTTL, clk)
	exitOnError("cache init failed", err, bs.Log)
	go cache.RunSweeper(ctx, cfg.CacheSweepInterval)

	// metrics
	m := metrics.New(bs.Registry)
	bs.Registry.MustRegister(metrics.NewPipelineCollector(rq, thr))

	// services
	pipeline := services.NewPipelineService(services.PipelineDeps{
		Throttle: thr,
		Resolver: chartstate.NewResolver(registry),
		Cache:    cache,
		Queue:    rq,
		Fetcher:  statsclient.NewAdapter(cfg.StatsURL, cfg.StatsTimeout, registry),
		Renderer: render.New(),
		Metrics:  m,
	}, services.PipelineConfig{
		BusyRetryAfter: cfg.QueueRetryAfter,
		Dedupe:         cfg.DedupeRenders,
	})
	cacheSvc := services.NewCacheService(cache)

	// admin auth; a nil *auth.Client must not become a non-nil interface
	var verifier middleware.TokenVerifier
	if bs.Firebase != nil {
		verifier = bs.Firebase
	}

	// dependancies
	deps := new(handlers.Deps)
	deps.Log = bs.Log
	deps.ResponseHandler = response.New(bs.Log)
	deps.ChartSvc = pipeline
	deps.CacheSvc = cacheSvc
	deps.Middleware = middleware.NewMiddleware(verifier, cfg.AdminToken)

	// router
	r := router.NewRouter(deps, router.Options{
		TrustProxy: cfg.TrustProxy,
		Metrics:    promhttp.HandlerFor(bs.Registry, promhttp.HandlerOpts{}),
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		bs.Log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			exitOnError("server start failed", err, bs.Log)
		}
	}()

	<-ctx.Done()
	bs.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		bs.Log.Error("http shutdown failed", "error", err)
	}
	if err := rq.Shutdown(shutdownCtx); err != nil {
		bs.Log.Error("queue shutdown failed", "error", err)
	}
	if err := pipeline.Shutdown(shutdownCtx); err != nil {
		bs.Log.Error("pending cache writes abandoned", "error", err)
	}
}
