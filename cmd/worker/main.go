package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/notifications"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/rewards"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/config"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/instance"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/migrate"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox/idempotency"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox/registry"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/pubsub"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/redis"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/tracing"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, "worker", cfg.App.Env, logg)
	if err != nil {
		logg.Error(ctx, "failed to init tracing", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logg.Error(context.Background(), "error flushing traces", err)
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.WorkerNeeds(cfg.PubSub), logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		logg.Error(ctx, "failed to build event registry", err)
		os.Exit(1)
	}
	dedupe, err := idempotency.NewGuard(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		logg.Error(ctx, "failed to create idempotency guard", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	commissions, err := rewards.NewCommissionTable(conn, cfg.Rewards.DefaultCommissionPercent)
	if err != nil {
		logg.Error(ctx, "invalid commission config", err)
		os.Exit(1)
	}
	rewardSvc, err := rewards.NewService(rewards.NewRepository(conn), dbClient, commissions, logg)
	if err != nil {
		logg.Error(ctx, "failed to create rewards service", err)
		os.Exit(1)
	}

	var transport notifications.Transport = notifications.NewLogTransport(logg)
	if cfg.PubSub.NotificationPushTopic != "" {
		pushTransport, err := notifications.NewPubSubTransport(pubsubClient.NotificationPushPublisher())
		if err != nil {
			logg.Error(ctx, "failed to create push transport", err)
			os.Exit(1)
		}
		transport = pushTransport
	}

	notificationConsumer, err := notifications.NewConsumer(notifications.ConsumerParams{
		Repo:         notifications.NewRepository(conn),
		Tx:           dbClient,
		Subscription: pubsubClient.DomainSubscription(),
		Idempotency:  dedupe,
		Resolver:     eventRegistry,
		Transport:    transport,
		Rewards:      rewardSvc,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create notification consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Logger: logg,
		Probes: []Probe{
			{Name: "database", Ping: dbClient.Ping},
			{Name: "redis", Ping: redisClient.Ping},
			{Name: "pubsub", Ping: pubsubClient.Ping},
		},
		Consumers: map[string]consumer{"notifications": notificationConsumer},
		Heartbeat: cfg.Eventing.WorkerHeartbeat,
	})
	if err != nil {
		logg.Error(ctx, "failed to create worker service", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}
