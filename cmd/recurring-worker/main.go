package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"libros/internal/amqp"
	"libros/internal/cli"
	"libros/internal/log"
	"libros/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentRecurring)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting recurring-worker", "interval", cfg.RecurringInterval.String())

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to connect to AMQP, generated invoices sync via scan only", log.FieldError, err)
		} else {
			amqpClient = client
			defer amqpClient.Close()
		}
	}

	invoiceService := services.NewInvoiceService(repo, amqpClient)
	processor := services.NewRecurringProcessor(repo, invoiceService)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Process once at startup, then on every tick.
	if created, err := processor.ProcessDue(ctx, time.Now()); err != nil {
		logger.Error("Startup recurring run failed", log.FieldError, err)
	} else if created > 0 {
		logger.Info("Startup recurring run created invoices", "count", created)
	}

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			if _, err := processor.ProcessDue(ctx, time.Now()); err != nil {
				logger.Error("Recurring run failed", log.FieldError, err)
			}
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
			logger.Info("Recurring worker shutdown complete")
			return
		}
	}
}
