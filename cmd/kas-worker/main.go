package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kas/internal/amqp"
	"kas/internal/config"
	applog "kas/internal/log"
	gmirror "kas/internal/mirror/google"
	"kas/internal/storage"
	"kas/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent("worker")
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var syncWorker *worker.SyncWorker
	if cfg.MirrorEnabled() {
		sheet, err := gmirror.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("failed to initialize Google Sheets mirror", "error", err)
			os.Exit(1)
		}
		syncWorker = worker.NewSyncWorker(repo, sheet, sheet, cfg.SyncBatchSize)
		logger.Info("Google Sheets mirror initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		logger.Info("mirror disabled, no GOOGLE_SPREADSHEET_ID provided")
	}

	if syncWorker != nil {
		// Recover rows queued while the worker was down.
		if err := syncWorker.StartupSyncCheck(ctx); err != nil {
			logger.Error("startup sync check failed", "error", err)
		}
	}

	if syncWorker != nil && cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		go func() {
			err := amqpClient.ConsumeMessages(ctx, syncWorker.HandleSyncMessage, syncWorker.HandleDeleteMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("message consumption failed", "error", err)
			}
			cancel()
		}()
		logger.Info("consuming mirror events", "queue", cfg.AMQPQueue)
	}

	if syncWorker != nil {
		// Periodic scan backs up the AMQP path.
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := syncWorker.ProcessPending(ctx); err != nil {
						logger.Error("periodic sync failed", "error", err)
					}
				}
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	cancel()
	logger.Info("worker stopped")
}
