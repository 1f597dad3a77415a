package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"libros/internal/amqp"
	"libros/internal/cli"
	apphttp "libros/internal/http"
	"libros/internal/ledger"
	"libros/internal/ledger/memory"
	"libros/internal/log"
	"libros/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	var store ledger.Store
	switch cfg.DataBackend {
	case "sqlite":
		store = cli.InitSQLite(logger, cfg.SQLiteDBPath)
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		store = memory.NewSeeded()
		logger.Info("Initialized memory backend")
	}
	defer store.Close()

	// AMQP is optional; without it invoices are only saved locally and
	// the worker's periodic scan handles the export.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to connect to AMQP, sync messages disabled", log.FieldError, err)
		} else {
			amqpClient = client
			defer amqpClient.Close()
			logger.Info("Connected to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	invoiceService := services.NewInvoiceService(store, amqpClient)
	pipelineService := services.NewPipelineService(store, cfg.BackupDir)

	srv := apphttp.NewServer(":"+cfg.Port, store, invoiceService, pipelineService, apphttp.Options{
		WindowMonths:      cfg.WindowMonths,
		DashboardCacheTTL: cfg.DashboardCacheTTL,
	})
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting libros server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
