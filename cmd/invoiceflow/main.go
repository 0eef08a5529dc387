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

	"github.com/invoiceflow/invoiceflow/internal/analytics"
	analytichttp "github.com/invoiceflow/invoiceflow/internal/analytics/http"
	"github.com/invoiceflow/invoiceflow/internal/audit"
	audithttp "github.com/invoiceflow/invoiceflow/internal/audit/http"
	"github.com/invoiceflow/invoiceflow/internal/app"
	"github.com/invoiceflow/invoiceflow/internal/clients"
	"github.com/invoiceflow/invoiceflow/internal/invoices"
	"github.com/invoiceflow/invoiceflow/internal/observability"
	"github.com/invoiceflow/invoiceflow/internal/platform/cache"
	"github.com/invoiceflow/invoiceflow/internal/platform/db"
	"github.com/invoiceflow/invoiceflow/internal/profiles"
	"github.com/invoiceflow/invoiceflow/internal/render"
	"github.com/invoiceflow/invoiceflow/internal/shared"
	"github.com/invoiceflow/invoiceflow/jobs"
	"github.com/invoiceflow/invoiceflow/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	var reportClient *report.Client
	if cfg.PDFEngine == render.EngineGotenberg {
		reportClient = report.NewClient(cfg.GotenbergURL)
	}
	var converter render.HTMLConverter
	if reportClient != nil {
		converter = reportClient
	}
	renderer, err := render.New(cfg.PDFEngine, converter)
	if err != nil {
		logger.Error("init pdf renderer", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	analyticsService := analytics.NewService(analytics.NewRepository(dbpool), analytics.NewCache(redisClient, cfg.DashboardCacheTTL))
	clientService := clients.NewService(clients.NewRepository(dbpool))
	profileService := profiles.NewService(profiles.NewRepository(dbpool))
	invoiceService := invoices.NewService(invoices.NewRepository(dbpool), invoices.Dependencies{
		Clients:     clientService,
		Profiles:    profileService,
		Idempotency: shared.NewIdempotencyStore(dbpool),
		Audit:       shared.NewAuditLogger(dbpool),
		Cache:       analyticsService,
		Renderer:    renderer,
		Queue:       jobClient,
		Logger:      logger,
	})

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,
		Checks: map[string]app.Pinger{
			"postgres": dbpool,
			"redis":    app.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		},
		InvoicesHandler:  invoices.NewHandler(logger, invoiceService),
		ClientsHandler:   clients.NewHandler(logger, clientService),
		ProfilesHandler:  profiles.NewHandler(logger, profileService),
		AnalyticsHandler: analytichttp.NewHandler(logger, analyticsService),
		AuditHandler:     audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool))),
		ReportHandler:    report.NewHandler(reportClient, renderer, logger),
		JobHandler:       jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("pdf_engine", cfg.PDFEngine))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
