package main

import (
	"context"
	"os"
	"time"

	"carteira/internal/backend"
	"carteira/internal/cli"
	"carteira/internal/events"
	"carteira/internal/log"
	"carteira/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentCommitment)
	logger.Info("Starting commitment-worker")
	cfg := cli.LoadAndValidateConfig(logger)

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

	// Generated transactions reach the snapshot worker through the broker.
	bus := events.NewBus()
	if res.Broker != nil {
		defer res.Broker.Forward(bus)()
	} else {
		logger.Info("AMQP disabled - generated transactions will not refresh snapshots")
	}

	commitments := services.NewCommitmentService(res.Store, bus)
	processor := services.NewCommitmentProcessor(res.Store, commitments)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Commitment processor stop failed", log.FieldError, err)
		}
	})

	if err := processor.Start(ctx, cfg.CommitmentInterval); err != nil {
		logger.Error("Failed to start commitment processor", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("commitment-worker stopped")
}
