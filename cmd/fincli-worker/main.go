// Command fincli-worker consumes queued transaction imports and creates
// them on the backend with the stored session.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fincli/internal/amqp"
	"fincli/internal/cli"
	"fincli/internal/log"
	"fincli/internal/sheets"
	gsheet "fincli/internal/sheets/google"
	"fincli/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	bootLogger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel)

	logger.Info("Starting fincli-worker")

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	app, err := cli.NewApp(startCtx, cfg, logger)
	cancelStart()
	if err != nil {
		logger.Error("Failed to start", log.FieldError, err)
		os.Exit(1)
	}
	if app.Session.Credentials().Empty() {
		logger.Warn("No stored session yet, the worker stops at the first import unless `fincli login` runs before it")
	}

	ledger, closeLedger, err := cli.OpenLedger(cfg, app.Store, logger)
	if err != nil {
		logger.Error("Failed to open import ledger", log.FieldError, err, "path", cfg.SQLiteDBPath)
		app.Close()
		os.Exit(1)
	}

	// Google Sheets mirror is optional
	var writer sheets.TransactionWriter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	importWorker := worker.NewImportWorker(app.API.Transactions, app.Session, ledger, writer, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
		if err := closeLedger(); err != nil {
			logger.Warn("Failed to close import ledger", log.FieldError, err)
		}
		if err := app.Close(); err != nil {
			logger.Warn("Failed to close app", log.FieldError, err)
		}
	})

	err = importWorker.Run(ctx, amqpClient)
	if ctx.Err() == nil {
		// Consumption stopped without a shutdown signal
		if errors.Is(err, amqp.ErrStopConsuming) {
			logger.Error("Session unusable, log in with `fincli login` and restart the worker", log.FieldError, err)
		} else {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
		os.Exit(1)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Message consumption ended with error", log.FieldError, err)
	}
	cli.WaitForShutdown(ctx, done)
}
