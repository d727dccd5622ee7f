package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/image-compressor/internal/api/handlers/image"
	"github.com/aliskhannn/image-compressor/internal/api/handlers/storage"
	"github.com/aliskhannn/image-compressor/internal/api/router"
	"github.com/aliskhannn/image-compressor/internal/api/server"
	"github.com/aliskhannn/image-compressor/internal/compress"
	"github.com/aliskhannn/image-compressor/internal/config"
	"github.com/aliskhannn/image-compressor/internal/infra/kafka/consumer"
	"github.com/aliskhannn/image-compressor/internal/infra/kafka/producer"
	jobmsg "github.com/aliskhannn/image-compressor/internal/kafka/handlers/job"
	jobrepo "github.com/aliskhannn/image-compressor/internal/repository/job"
	imagesvc "github.com/aliskhannn/image-compressor/internal/service/image"
	"github.com/aliskhannn/image-compressor/internal/storage/file"
	"github.com/aliskhannn/image-compressor/internal/storage/kv"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	// Retry strategy for Kafka calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Object storage (MinIO) for originals and compressed results.
	objects, err := file.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
	}

	// Key-value store shared by the storage API and the job records.
	backend, err := kv.NewBuntBackend(cfg.KV.Path)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to open key-value store")
	}
	store := kv.New(backend, cfg.KV.Prefix)
	if !store.Supported() {
		zlog.Logger.Warn().Str("path", cfg.KV.Path).Msg("key-value store is not writable")
	}

	repo := jobrepo.NewRepository(kv.New(backend, jobrepo.Prefix), cfg.Jobs.TTL)
	compressor := compress.New(cfg.Compress.Compressor())
	p := producer.New(&cfg.Kafka, strategy)
	service := imagesvc.NewService(compressor, objects, p, repo)

	// Kafka consumer for queued compression jobs.
	c := consumer.New(&cfg.Kafka, strategy, jobmsg.NewHandler(service))

	var wg sync.WaitGroup
	wg.Add(1)
	go c.Consume(ctx, &wg)

	// Start HTTP server in a separate goroutine.
	r := router.Setup(image.NewHandler(service), storage.NewHandler(store))
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	zlog.Logger.Info().Str("addr", cfg.Server.HTTPPort).Msg("server started")

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Wait for Kafka consumer goroutine to finish.
	wg.Wait()

	// Close Kafka producer and consumer clients.
	if err = p.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
	}
	if err = c.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
	}

	if err := backend.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close key-value store")
	}
}
