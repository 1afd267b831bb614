package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/relay"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/config"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/metrics"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/migrate"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox/registry"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/pubsub"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/tracing"
)

const serviceName = "outbox-publisher"

type options struct {
	dlq       string
	eventID   string
	eventType string
	limit     int
}

func main() {
	var opts options
	flag.StringVar(&opts.dlq, "dlq", "", "list|replay: inspect or requeue dead-lettered events instead of relaying")
	flag.StringVar(&opts.eventID, "event", "", "event id, for -dlq=replay")
	flag.StringVar(&opts.eventType, "type", "", "event type filter, for -dlq=list")
	flag.IntVar(&opts.limit, "limit", 50, "rows to show, for -dlq=list")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logg, opts); err != nil {
		logg.Error(ctx, "outbox publisher exited", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, opts options) (err error) {
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

	dlq := outbox.NewDLQRepository(dbClient.DB())
	if opts.dlq != "" {
		return runDLQ(ctx, logg, dlq, opts.dlq, opts.eventID, opts.eventType, opts.limit)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.PublisherNeeds(cfg.PubSub), logg)
	if err != nil {
		return fmt.Errorf("connect pubsub: %w", err)
	}
	defer closeWith(&err, "close pubsub", pubsubClient.Close)

	events, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}
	relayer, err := relay.New(relay.Params{
		Config:      cfg.Outbox,
		Logger:      logg,
		Tx:          dbClient,
		Store:       outbox.NewRepository(dbClient.DB()),
		DeadLetters: dlq,
		Resolver:    events,
		Publishers:  relay.GCPPublishers(pubsubClient),
		Metrics:     metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
		Checks: []relay.Check{
			{Name: "database", Ping: dbClient.Ping},
			{Name: "pubsub", Ping: pubsubClient.Ping},
		},
	})
	if err != nil {
		return fmt.Errorf("relay: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceName,
	})
	logg.Info(ctx, "outbox.relay_started")
	if err := relayer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "outbox.relay_stopped")
	return nil
}

// closeWith runs a deferred close and keeps the first error seen.
func closeWith(err *error, what string, fn func() error) {
	if cerr := fn(); cerr != nil && *err == nil {
		*err = fmt.Errorf("%s: %w", what, cerr)
	}
}
