package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"libros/internal/amqp"
	"libros/internal/cli"
	"libros/internal/export"
	"libros/internal/log"
	"libros/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting libros-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Without a spreadsheet the worker keeps running against the memory
	// exporter so local setups still drain the queue.
	var exporter export.LedgerExporter
	if cfg.ExportSpreadsheetID != "" {
		sheets, err := export.NewGoogleSheets(ctx, cfg.ExportSpreadsheetID, cfg.ExportSheetName)
		if err != nil {
			logger.Error("Failed to initialize spreadsheet exporter", log.FieldError, err)
			os.Exit(1)
		}
		exporter = sheets
		logger.Info("Spreadsheet exporter initialized",
			"spreadsheet_id", cfg.ExportSpreadsheetID,
			"sheet", cfg.ExportSheetName)
	} else {
		exporter = export.NewMemory()
		logger.Warn("No EXPORT_SPREADSHEET_ID provided, using in-memory exporter")
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		amqpClient = client
		defer amqpClient.Close()
	} else {
		logger.Info("AMQP disabled, relying on the periodic scan only")
	}

	exportWorker := worker.NewExportWorker(repo, exporter, cfg.ExportBatchSize)

	// Drain invoices that accumulated while the worker was down.
	if n, err := exportWorker.ScanPending(ctx); err != nil {
		logger.Error("Startup scan failed", log.FieldError, err)
	} else if n > 0 {
		logger.Info("Startup scan exported invoices", "count", n)
	}

	workerErr := make(chan error, 1)
	go func() {
		workerErr <- exportWorker.Run(ctx, amqpClient, cfg.ExportScanInterval)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
		<-workerErr
	case err := <-workerErr:
		if err != nil {
			logger.Error("Worker stopped with error", log.FieldError, err)
			os.Exit(1)
		}
	}

	logger.Info("Worker shutdown complete")
}
