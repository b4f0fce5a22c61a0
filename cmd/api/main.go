package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/pindrop/pindrop/internal/blob"
	"github.com/pindrop/pindrop/internal/config"
	"github.com/pindrop/pindrop/internal/server"
	"github.com/pindrop/pindrop/internal/storage"
	"github.com/pindrop/pindrop/internal/transfer"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := server.Dependencies{Config: cfg}

	var store transfer.Store
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		pool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect postgres")
		}
		defer pool.Close()
		if err := storage.EnsureTransfersSchema(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("ensure schema")
		}
		deps.DB = pool
		store = transfer.NewPostgresStore(pool)
	default:
		fileStore, err := transfer.NewFileStore(cfg.Store.DocumentPath(), logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("open metadata store")
		}
		store = fileStore
	}

	var blobs blob.Store
	switch cfg.Blob.Backend {
	case config.BlobBackendS3:
		client, err := storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect minio")
		}
		if err := storage.EnsureBucket(ctx, client, cfg.MinIO.Bucket, cfg.MinIO.Region); err != nil {
			logger.Fatal().Err(err).Msg("ensure bucket")
		}
		deps.ObjectStore = client
		blobs = blob.NewMinIO(client, cfg.MinIO.Bucket)
	default:
		disk, err := blob.NewDisk(cfg.Blob.Root)
		if err != nil {
			logger.Fatal().Err(err).Msg("open blob store")
		}
		blobs = disk
	}

	service := transfer.NewService(store, blobs, cfg.Relay.TTL, cfg.Relay.MaxFileSize, logger)
	deps.TransferService = service

	// Reap once at startup, then on the configured interval. The interval
	// bounds how stale the store can get; expired records are invisible to
	// lookups regardless.
	if _, err := service.Reap(ctx); err != nil {
		logger.Error().Err(err).Msg("startup reap failed")
	}
	go func() {
		ticker := time.NewTicker(cfg.Relay.ReapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := service.Reap(ctx); err != nil {
					logger.Error().Err(err).Msg("scheduled reap failed")
				}
			}
		}
	}()

	router := server.NewRouter(deps)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info().Str("address", cfg.Server.Address()).Msg("PinDrop API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info().Msg("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}
