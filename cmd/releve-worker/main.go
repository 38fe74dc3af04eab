package main

import (
	"context"
	"errors"
	"os"
	"time"

	"releve/internal/amqp"
	"releve/internal/cli"
	"releve/internal/log"
	gsheet "releve/internal/sheets/google"
	"releve/internal/storage"
	"releve/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger(nil).Error("Configuration validation failed",
			log.FieldErrorType, log.ErrorTypeConfiguration, log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg)
	logger.Info("Starting releve-worker", log.FieldOperation, log.OpStartup)

	if cfg.AMQPURL == "" || cfg.GoogleSpreadsheetID == "" {
		logger.Error("releve-worker needs AMQP_URL and GOOGLE_SPREADSHEET_ID",
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	sheetsClient, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	if wrote, err := sheetsClient.EnsureHeader(ctx); err != nil {
		logger.Warn("Failed to check sheet header", log.FieldError, err)
	} else if wrote {
		logger.Info("Sheet header written", "sheet", cfg.GoogleSheetName)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(repo, sheetsClient, cfg.SyncBatchSize, logger)

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	go func() {
		err := amqpClient.ConsumeStatementImported(ctx, syncWorker.HandleStatementImported)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
		cancel()
	}()

	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown)
			return
		case <-ticker.C:
			if err := syncWorker.ProcessPendingImports(ctx); err != nil {
				logger.Error("Periodic sync failed", log.FieldError, err)
			}
		}
	}
}
