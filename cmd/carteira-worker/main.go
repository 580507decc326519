package main

import (
	"context"
	"errors"
	"os"
	"time"

	"carteira/internal/backend"
	"carteira/internal/cli"
	"carteira/internal/log"
	"carteira/internal/services"
	"carteira/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting carteira-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the snapshot worker",
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	if cfg.DataBackend == string(backend.MemoryBackend) {
		logger.Warn("Memory backend is not shared with the server; snapshots will be empty")
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	}()
	if res.Broker == nil {
		logger.Error("AMQP broker unreachable", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	snapshots := services.NewSnapshotProcessor(res.Store, cli.NewSnapshotExporter(ctx, cfg, logger),
		services.SnapshotProcessorConfig{PollInterval: cfg.SnapshotInterval, MaxRetries: 3})
	w := worker.NewSnapshotWorker(snapshots)

	// Catch up on messages missed while the worker was down.
	if err := w.StartupSweep(ctx); err != nil {
		logger.Error("Startup sweep failed", log.FieldError, err)
	}

	if err := res.Broker.ConsumeTransactionEvents(ctx, w.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("carteira-worker stopped")
}
