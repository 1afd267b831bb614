package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/controllers"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/routes"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/address"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/attachments"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/catalog"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/disputes"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/notifications"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/offers"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/requests"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/rewards"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/config"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/instance"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/maps"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/metrics"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/migrate"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/redis"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/storage/gcs"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/tracing"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, "api", cfg.App.Env, logg)
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

	storage, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs", err)
		}
	}()

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient, storage)
	if err != nil {
		logg.Error(ctx, "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(runCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "graceful shutdown failed", err)
		}
	}
}

func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, storage *gcs.Client) (routes.Dependencies, error) {
	conn := dbClient.DB()
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	emitter := outbox.NewService(outbox.NewRepository(conn), logg, outbox.WithMetrics(metrics.NewOutboxMetrics(registry)))
	catalogRepo := catalog.NewRepository(conn)

	var places address.Places
	if cfg.GoogleMaps.APIKey != "" {
		mapsClient, err := maps.NewClient(cfg.GoogleMaps.APIKey,
			maps.WithDefaults(cfg.GoogleMaps.RegionCodes, cfg.GoogleMaps.Language),
			maps.WithRateLimit(cfg.GoogleMaps.RPS, cfg.GoogleMaps.Burst))
		if err != nil {
			return routes.Dependencies{}, err
		}
		places = mapsClient
	}

	addressSvc := address.NewService(places)
	requestSvc, err := requests.NewService(requests.ServiceParams{
		Repo:    requests.NewRepository(conn),
		Tx:      dbClient,
		Outbox:  emitter,
		Catalog: catalogRepo,
		Address: addressSvc,
		URLs:    storage,
		Logger:  logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	offerSvc, err := offers.NewService(offers.NewRepository(conn), dbClient, emitter, catalogRepo, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	disputeSvc, err := disputes.NewService(disputes.NewRepository(conn), dbClient, emitter, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	notificationSvc, err := notifications.NewService(notifications.NewRepository(conn), logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	commissions, err := rewards.NewCommissionTable(conn, cfg.Rewards.DefaultCommissionPercent)
	if err != nil {
		return routes.Dependencies{}, err
	}
	rewardSvc, err := rewards.NewService(rewards.NewRepository(conn), dbClient, commissions, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	attachmentSvc, err := attachments.NewService(storage, redisClient, cfg.GCS.DailyUploadQuota, cfg.GCS.MaxUploadMB, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		Config: cfg,
		Logger: logg,
		Ready: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
			"gcs":   storage,
		},
		Idempotency:   redisClient,
		Gatherer:      registry,
		HTTPMetrics:   metrics.NewHTTPMetrics(registry),
		Requests:      requestSvc,
		Offers:        offerSvc,
		Disputes:      disputeSvc,
		Notifications: notificationSvc,
		Attachments:   attachmentSvc,
		Rewards:       rewardSvc,
		Address:       addressSvc,
	}, nil
}
