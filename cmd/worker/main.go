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

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/invoiceflow/invoiceflow/internal/analytics"
	"github.com/invoiceflow/invoiceflow/internal/app"
	"github.com/invoiceflow/invoiceflow/internal/invoices"
	jobmetrics "github.com/invoiceflow/invoiceflow/internal/jobs"
	"github.com/invoiceflow/invoiceflow/internal/platform/cache"
	"github.com/invoiceflow/invoiceflow/internal/platform/db"
	"github.com/invoiceflow/invoiceflow/internal/render"
	"github.com/invoiceflow/invoiceflow/internal/shared"
	"github.com/invoiceflow/invoiceflow/jobs"
	"github.com/invoiceflow/invoiceflow/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cache.WithAuth(cfg.RedisPassword, cfg.RedisDB))
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var converter render.HTMLConverter
	if cfg.PDFEngine == render.EngineGotenberg {
		converter = report.NewClient(cfg.GotenbergURL)
	}
	renderer, err := render.New(cfg.PDFEngine, converter)
	if err != nil {
		logger.Error("init pdf renderer", slog.Any("error", err))
		os.Exit(1)
	}

	analyticsService := analytics.NewService(analytics.NewRepository(pool), analytics.NewCache(redisClient, cfg.DashboardCacheTTL))
	invoiceService := invoices.NewService(invoices.NewRepository(pool), invoices.Dependencies{
		Cache:    analyticsService,
		Renderer: renderer,
		Logger:   logger,
	})

	metrics := jobmetrics.NewMetrics(nil)
	renderJob := jobs.NewRenderPDFJob(invoiceService, cfg.PDFStorageDir, logger, metrics)
	sweepJob := jobs.NewOverdueSweepJob(invoiceService, logger, metrics)
	cleanupJob := &jobs.KeysCleanupJob{Store: shared.NewIdempotencyStore(pool), Logger: logger, Metrics: metrics}

	sweepTask, err := jobs.NewOverdueSweepTask("")
	if err != nil {
		logger.Error("build overdue sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRenderPDF, Handler: renderJob.Handle},
			{Type: jobs.TaskOverdueSweep, Handler: sweepJob.Handle},
			{Type: jobs.TaskKeysCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.OverdueSweepCron, Task: sweepTask, Options: []asynq.Option{asynq.Unique(time.Hour)}},
			{Spec: "30 3 * * *", Task: jobs.NewKeysCleanupTask(), Options: []asynq.Option{asynq.Unique(time.Hour)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker started", slog.String("overdue_cron", cfg.OverdueSweepCron), slog.String("pdf_dir", cfg.PDFStorageDir))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
