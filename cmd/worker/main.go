// Command worker runs the dashboard warmup and cache jobs and serves the ops
// endpoint.
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
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/pivotboard/internal/app"
	"github.com/odyssey-erp/pivotboard/internal/dashboard"
	jobmetrics "github.com/odyssey-erp/pivotboard/internal/jobs"
	"github.com/odyssey-erp/pivotboard/internal/observability"
	"github.com/odyssey-erp/pivotboard/internal/pages"
	"github.com/odyssey-erp/pivotboard/internal/platform/cache"
	"github.com/odyssey-erp/pivotboard/internal/platform/db"
	"github.com/odyssey-erp/pivotboard/internal/prefs"
	"github.com/odyssey-erp/pivotboard/internal/source"
	"github.com/odyssey-erp/pivotboard/jobs"
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
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	catalog, err := pages.LoadFile(cfg.PagesFile)
	if err != nil {
		return err
	}

	pool, err := db.Open(ctx, cfg.PGDSN, db.Options{
		ApplicationName: "pivotboard-worker",
		MaxConns:        int32(cfg.FetchConcurrency) * 2,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.Open(ctx, cfg.RedisAddr, cache.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	dashboardMetrics := dashboard.NewMetrics(metrics.Registerer())
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	recordCache := source.NewCache(redisClient, cfg.CacheTTL)
	if err := recordCache.ListenForInvalidation(ctx, source.BumpChannel); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
	fetcher := source.NewCachedFetcher(source.NewPGFetcher(pool), recordCache, dashboardMetrics)

	svc, err := dashboard.NewService(dashboard.Config{
		Catalog:     catalog,
		Fetcher:     fetcher,
		Prefs:       prefs.NewRedisStore(redisClient, "", cfg.PrefsTTL),
		Metrics:     dashboardMetrics,
		Logger:      logger,
		Concurrency: cfg.FetchConcurrency,
	})
	if err != nil {
		return err
	}

	warmupJob := jobs.NewDashboardWarmupJob(svc, catalog.Modules(), cfg.WarmupPeriods, logger, jobMetrics)
	bumpJob := &jobs.RecordsBumpJob{Cache: recordCache, Logger: logger, Metrics: jobMetrics}
	warmupTask, err := jobs.NewDashboardWarmupTask(jobs.DashboardWarmupPayload{})
	if err != nil {
		return err
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDashboardWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskRecordsBump, Handler: bumpJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.WarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(1), asynq.Timeout(5 * time.Minute)}},
		},
	})
	if err != nil {
		return err
	}

	inspector := asynq.NewInspector(redisOpts)
	defer func() { _ = inspector.Close() }()

	server := &http.Server{
		Addr: cfg.OpsAddr,
		Handler: app.NewOpsRouter(app.OpsRouterParams{
			Logger:     logger,
			Config:     cfg,
			Metrics:    metrics,
			JobHandler: jobs.NewHandler(inspector, logger),
			Checks: map[string]app.HealthCheck{
				"postgres": pool.Ping,
				"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
			},
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("ops endpoint listening", slog.String("addr", cfg.OpsAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})
	return g.Wait()
}
