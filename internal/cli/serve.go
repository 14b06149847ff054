package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eshaffer321/nubank-ynab-sync/internal/api"
	"github.com/eshaffer321/nubank-ynab-sync/internal/application/service"
	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/config"
	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/logging"
	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/storage"
)

const (
	shutdownTimeout = 30 * time.Second
	cleanupInterval = 5 * time.Minute
)

// RunServe runs the API server.
func RunServe(cfg *config.Config, flags ServeFlags) error {
	// Set up logging
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "api")

	// Initialize storage
	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	// Each job gets a fresh orchestrator sharing the run history
	syncService := service.NewSyncService(cfg, func(jobLogger *slog.Logger) (service.Runner, error) {
		orchestrator, err := NewOrchestrator(cfg, store, jobLogger)
		if err != nil {
			return nil, err
		}
		return orchestrator, nil
	}, logger)
	syncService.StartBackgroundCleanup(cleanupInterval)
	defer syncService.StopBackgroundCleanup()

	apiCfg := api.DefaultConfig()
	apiCfg.Port = flags.Port

	server := api.NewServer(apiCfg, store, syncService, logger)

	// Handle graceful shutdown
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
