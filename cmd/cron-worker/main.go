package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/address"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/catalog"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/cron"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/notifications"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/requests"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/rewards"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/bigquery"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/config"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/instance"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/metrics"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/migrate"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/redis"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/tracing"
)

const serviceName = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logg); err != nil {
		logg.Error(ctx, "cron worker exited", err)
		stop()
		os.Exit(1)
	}
}

// run owns every client it opens; deferred closes fire on both clean shutdown and
// bootstrap failure.
func run(ctx context.Context, logg *logger.Logger) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = serviceName
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, serviceName, cfg.App.Env, logg)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer closeWith(&err, "flush traces", func() error { return shutdownTracing(context.Background()) })

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeWith(&err, "close database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer closeWith(&err, "close redis", redisClient.Close)

	warehouse, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return fmt.Errorf("connect bigquery: %w", err)
	}
	defer closeWith(&err, "close bigquery", warehouse.Close)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceName+":"+cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}
	jobs, err := buildRegistry(cfg, logg, dbClient, warehouse)
	if err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}
	scheduler, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Tick:     cfg.Cron.Tick,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "cron.worker_started")
	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cron.worker_stopped")
	return nil
}

// closeWith runs a deferred close and keeps the first error seen.
func closeWith(err *error, what string, fn func() error) {
	if cerr := fn(); cerr != nil && *err == nil {
		*err = fmt.Errorf("%s: %w", what, cerr)
	}
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, warehouse *bigquery.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	requestRepo := requests.NewRepository(conn)
	requestSvc, err := requests.NewService(requests.ServiceParams{
		Repo:    requestRepo,
		Tx:      dbClient,
		Outbox:  outbox.NewService(outbox.NewRepository(conn), logg),
		Catalog: catalog.NewRepository(conn),
		Address: address.NewService(nil),
		Logger:  logg,
	})
	if err != nil {
		return nil, err
	}

	ttlJob, err := cron.NewRequestTTLJob(cron.RequestTTLJobParams{
		Logger:    logg,
		Reader:    requestRepo,
		Decliner:  requestSvc,
		StaleDays: cfg.Requests.StaleAfterDays,
	})
	if err != nil {
		return nil, err
	}
	exportJob, err := cron.NewRewardExportJob(cron.RewardExportJobParams{
		Logger:    logg,
		Rewards:   rewards.NewRepository(conn),
		Warehouse: warehouse,
		Table:     warehouse.RewardsTable(),
		BatchSize: cfg.Rewards.ExportBatchSize,
	})
	if err != nil {
		return nil, err
	}
	notificationJob, err := cron.NewNotificationRetentionJob(
		cron.RetentionParams{Logger: logg, Tx: dbClient, Days: cfg.Notifications.RetentionDays},
		notifications.NewRepository(conn))
	if err != nil {
		return nil, err
	}
	outboxJob, err := cron.NewOutboxRetentionJob(cron.RetentionParams{Logger: logg, Tx: dbClient}, outbox.NewRepository(conn), cfg.Outbox.MaxAttempts)
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry().
		Schedule(ttlJob, cfg.Cron.RequestTTLEvery).
		Schedule(exportJob, cfg.Cron.RewardExportEvery).
		Schedule(notificationJob, cfg.Cron.NotificationCleanupEvery).
		Schedule(outboxJob, cfg.Cron.OutboxRetentionEvery), nil
}
