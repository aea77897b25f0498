package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/washpoint/washpoint-backend/config"
	"github.com/washpoint/washpoint-backend/db"
	"github.com/washpoint/washpoint-backend/handlers"
	"github.com/washpoint/washpoint-backend/internal/live"
	"github.com/washpoint/washpoint-backend/internal/realtime"
	"github.com/washpoint/washpoint-backend/internal/store/postgres"
	"github.com/washpoint/washpoint-backend/logger"
	"github.com/washpoint/washpoint-backend/router"
	"github.com/washpoint/washpoint-backend/services"
	"github.com/washpoint/washpoint-backend/types"
)

const version = "1.0.0"

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer func() { _ = logger.Close() }()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	if err := db.RunMigrations(cfg.Database.URL()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL())
	if err != nil {
		log.Fatalf("Failed to parse database config: %v", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	if cfg.IsProduction() {
		poolConfig.ConnConfig.TLSConfig = &tls.Config{
			ServerName: cfg.Database.Host,
			MinVersion: tls.VersionTLS12,
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Redis
	redisOptions := &redis.Options{
		Addr:         cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}
	if cfg.Redis.UseTLS {
		redisOptions.TLSConfig = &tls.Config{
			ServerName: strings.Split(cfg.Redis.Address, ":")[0],
			MinVersion: tls.VersionTLS12,
		}
	}
	redisClient := redis.NewClient(redisOptions)
	defer func() { _ = redisClient.Close() }()

	// Stores
	locationStore := postgres.NewLocationStore(pool)
	userStore := postgres.NewUserStore(pool)
	subscriptionStore := postgres.NewSubscriptionStore(pool)
	notificationStore := postgres.NewNotificationStore(pool)
	pushTokenStore := postgres.NewPushTokenStore(pool)

	mirror := realtime.NewRedisStore(redisClient, cfg.Tracking.StreamMaxEntries)

	// Services
	var dispatcher services.PushDispatcher
	if cfg.Push.Enabled {
		dispatcher = services.NewExpoPushDispatcher(pushTokenStore, cfg.Push.ExpoURL, log.Named("push"))
	} else {
		dispatcher = services.NewNoopPushDispatcher(log.Named("push"))
	}

	defaults := types.TrackingSettings{
		UpdateIntervalMs:           cfg.Tracking.DefaultUpdateIntervalMs,
		SignificantChangeMeters:    cfg.Tracking.DefaultSignificantChangeMeters,
		BatteryOptimizationEnabled: cfg.Tracking.DefaultBatteryOptimization,
		MaxHistoryItems:            cfg.Tracking.DefaultMaxHistoryItems,
	}

	locationService := services.NewLocationService(locationStore, userStore, mirror, defaults)
	subscriptionService := services.NewSubscriptionService(
		subscriptionStore, locationStore, userStore, notificationStore, mirror, dispatcher)

	workerPool := services.NewWorkerPool(cfg.WorkerPool)
	workerPool.Start()
	locationService.SetFanout(workerPool, subscriptionService)

	nearbyCache := services.NewRedisNearbyCache(redisClient, time.Duration(cfg.Tracking.NearbyCacheTTLSeconds)*time.Second)
	proximityService := services.NewProximityService(locationStore, nearbyCache)

	healthService := services.NewHealthService(pool, redisClient, version)

	// HTTP surface
	engine := router.SetupRouter(router.Dependencies{
		Config:              cfg,
		HealthHandler:       handlers.NewHealthHandler(healthService),
		LocationHandler:     handlers.NewLocationHandler(locationService, proximityService),
		SubscriptionHandler: handlers.NewSubscriptionHandler(subscriptionService),
		LiveHandler:         live.NewHandler(mirror, subscriptionStore, &cfg.Server),
		Logger:              log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownTimeout := time.Duration(cfg.WorkerPool.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}
	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Worker pool shutdown failed", "error", err)
	}
	log.Info("Shutdown complete")
}
