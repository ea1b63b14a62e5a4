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

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/ledgerbooks/internal/analytics/export"
	analytichttp "github.com/odyssey-erp/ledgerbooks/internal/analytics/http"
	"github.com/odyssey-erp/ledgerbooks/internal/app"
	"github.com/odyssey-erp/ledgerbooks/internal/customreport"
	"github.com/odyssey-erp/ledgerbooks/internal/ledger"
	"github.com/odyssey-erp/ledgerbooks/internal/observability"
	"github.com/odyssey-erp/ledgerbooks/internal/platform/cache"
	"github.com/odyssey-erp/ledgerbooks/internal/platform/db"
	"github.com/odyssey-erp/ledgerbooks/internal/platform/gotenberg"
	"github.com/odyssey-erp/ledgerbooks/jobs"
)

const usage = `usage: ledgerbooks [serve]
       ledgerbooks jobs trigger <reports:warmup|reports:cache_bump>
       ledgerbooks jobs stats`

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Default().Error("ledgerbooks", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(args []string) error {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)

	command := "serve"
	if len(args) > 0 {
		command = args[0]
	}
	switch command {
	case "serve":
		return serve(ctx, stop, cfg, logger)
	case "jobs":
		return runJobs(ctx, cfg, args[1:])
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return err
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	repo := ledger.NewRepository(dbpool)
	reportService, err := app.NewReportService(cfg, repo, redisClient, metrics.Registerer(), logger)
	if err != nil {
		return fmt.Errorf("init report service: %w", err)
	}
	if err := reportService.Cache().ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}

	var pdf analytichttp.PDFService
	if cfg.GotenbergURL != "" {
		pdf = export.NewPDFExporter(gotenberg.NewClient(cfg.GotenbergURL))
	} else {
		logger.Warn("GOTENBERG_URL empty, pdf exports disabled")
	}

	reportsHandler := analytichttp.NewHandler(logger, reportService, customreport.NewRedisStore(redisClient, "ledgerbooks:customreports"), pdf)
	reportsHandler.WithTimeout(cfg.AppRequestTimeout)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		ReportsHandler: reportsHandler,
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
		Readiness: map[string]app.ReadinessCheck{
			"postgres": dbpool.Ping,
			"redis":    cache.Ping(redisClient),
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
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
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
