package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"flatfinder/internal/cache"
	"flatfinder/internal/config"
	"flatfinder/internal/database"
	"flatfinder/internal/handlers"
	"flatfinder/internal/jobs"
	"flatfinder/internal/log"
	"flatfinder/internal/queue"
	"flatfinder/internal/repository"
	"flatfinder/internal/repository/bolt"
	"flatfinder/internal/repository/postgres"
	"flatfinder/internal/server"
	"flatfinder/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Backend.Driver).Msg("failed to open store")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	publisher := queue.NewPublisher(redisClient, cfg.Redis.Stream)

	handlerSet := handlers.NewHandlerSet(handlers.Dependencies{
		Config:       cfg,
		Log:          logger,
		Store:        store,
		Revocations:  cache.NewRevocations(redisClient),
		LoginLimiter: cache.NewAttemptCounter(redisClient, cfg.Security.LoginRateLimit, cfg.Security.LoginRateWindow),
		Tasks:        publisher,
		Objects:      objectStore,
		CachePing: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	})

	if err := handlerSet.Auth().PromoteAdmins(ctx, cfg.Security.AdminEmails); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	}

	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(cfg.Jobs.SweepSchedule, objectStore, store.Flats, publisher, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, store, redisClient)
}

func openStore(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (*repository.Store, error) {
	if cfg.Backend.Driver == config.BackendBolt {
		logger.Info().Str("path", cfg.Backend.BoltPath).Msg("using bolt backend")
		return bolt.Open(cfg.Backend.BoltPath)
	}

	pool, err := database.Connect(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}
	return postgres.NewStore(pool), nil
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, store *repository.Store, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop(shutdownCtx)

	if err := store.Close(); err != nil {
		logger.Error().Err(err).Msg("store close error")
	}
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
