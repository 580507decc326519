package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"carteira/internal/backend"
	"carteira/internal/cache"
	"carteira/internal/cli"
	"carteira/internal/events"
	apphttp "carteira/internal/http"
	"carteira/internal/invoice"
	"carteira/internal/log"
	"carteira/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	bus := events.NewBus()
	caches := cache.NewManager()
	var statements cache.Cache[invoice.Statement]
	if cfg.CacheSize > 0 {
		lru := cache.NewLRUCache[invoice.Statement](cfg.CacheSize, cfg.CacheTTL)
		caches.Register(lru)
		caches.StartCleanup(cfg.CacheTTL)
		statements = lru
	}

	invoices := services.NewInvoiceService(res.Store, statements)
	unsubscribers := []func(){invoices.Subscribe(bus)}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// With a broker the snapshot worker owns the snapshots; without one
	// they are rebuilt in process.
	var snapshots *services.SnapshotProcessor
	if res.Broker != nil {
		unsubscribers = append(unsubscribers, res.Broker.Forward(bus))
		logger.Info("Forwarding transaction events to AMQP", "queue", cfg.AMQPQueue)
	} else {
		snapshots = services.NewSnapshotProcessor(res.Store, cli.NewSnapshotExporter(ctx, cfg, logger),
			services.SnapshotProcessorConfig{PollInterval: cfg.SnapshotInterval, MaxRetries: 3})
		unsubscribers = append(unsubscribers, snapshots.Subscribe(bus))
		if err := snapshots.Start(ctx); err != nil {
			logger.Error("Failed to start snapshot processor", log.FieldError, err)
			os.Exit(1)
		}
	}

	srv := apphttp.NewServer(apphttp.Services{
		Cards:        services.NewCardService(res.Store, bus),
		Transactions: services.NewTransactionService(res.Store, bus),
		Invoices:     invoices,
		Commitments:  services.NewCommitmentService(res.Store, bus),
		Reports:      services.NewReportService(res.Store),
	}, res.Store, apphttp.Options{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	}()

	logger.Info("Starting carteira server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", res.Broker != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if snapshots != nil {
		if err := snapshots.Stop(stopCtx); err != nil {
			logger.Warn("Snapshot processor stop failed", log.FieldError, err)
		}
	}
	for _, unsubscribe := range unsubscribers {
		unsubscribe()
	}
	caches.Stop()
	if err := res.Cleanup(); err != nil {
		logger.Warn("Backend cleanup failed", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
