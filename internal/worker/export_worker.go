// Package worker moves synced invoices from SQLite to the spreadsheet
// ledger.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"libros/internal/amqp"
	"libros/internal/export"
	"libros/internal/storage"
)

// ExportWorker consumes sync messages and appends the referenced
// invoices to the export target. A periodic scan catches invoices whose
// message was lost or never published.
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	exporter  export.LedgerExporter
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, exporter export.LedgerExporter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single record sync message from AMQP.
// Returning an error requeues the message.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	row, err := w.loadRow(ctx, msg.Kind, msg.ID)
	if err != nil {
		return err
	}

	if err := w.exporter.AppendRow(ctx, row); err != nil {
		return fmt.Errorf("export %s invoice %d: %w", msg.Kind, msg.ID, err)
	}

	if err := w.storage.MarkSynced(ctx, msg.Kind, msg.ID); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// ScanPending exports a batch of invoices the messages missed. Failed
// exports are flagged so the scanner does not retry them forever.
func (w *ExportWorker) ScanPending(ctx context.Context) (int, error) {
	pending, err := w.storage.PendingSyncInvoices(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending invoices: %w", err)
	}

	exported := 0
	for _, p := range pending {
		row, err := w.loadRow(ctx, p.Kind, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load pending invoice",
				"kind", p.Kind, "id", p.ID, "error", err)
			continue
		}
		if err := w.exporter.AppendRow(ctx, row); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending invoice",
				"kind", p.Kind, "id", p.ID, "error", err)
			if markErr := w.storage.MarkSyncError(ctx, p.Kind, p.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to flag sync error",
					"kind", p.Kind, "id", p.ID, "error", markErr)
			}
			continue
		}
		if err := w.storage.MarkSynced(ctx, p.Kind, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark invoice synced",
				"kind", p.Kind, "id", p.ID, "error", err)
			continue
		}
		exported++
	}
	return exported, nil
}

// Run drives the consumer and the periodic scan until ctx is cancelled.
// amqpClient may be nil; the worker then relies on the scan alone.
func (w *ExportWorker) Run(ctx context.Context, amqpClient *amqp.Client, scanInterval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeRecordSync(ctx, func(msg *amqp.RecordSyncMessage) error {
				return w.HandleSyncMessage(ctx, msg)
			})
			if err == context.Canceled {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(scanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n, err := w.ScanPending(ctx); err != nil {
					slog.ErrorContext(ctx, "Pending scan failed", "error", err)
				} else if n > 0 {
					slog.InfoContext(ctx, "Pending scan exported invoices", "count", n)
				}
			}
		}
	})

	return g.Wait()
}

func (w *ExportWorker) loadRow(ctx context.Context, kind string, id int64) (export.Row, error) {
	switch kind {
	case amqp.KindSales:
		inv, err := w.storage.GetSalesInvoice(ctx, id)
		if err != nil {
			return export.Row{}, err
		}
		return export.Row{
			Kind:        kind,
			ID:          inv.ID,
			Party:       inv.Customer,
			Description: inv.Description,
			Amount:      inv.Amount,
			Date:        inv.Date.ISO(),
		}, nil
	case amqp.KindPurchase:
		inv, err := w.storage.GetPurchaseInvoice(ctx, id)
		if err != nil {
			return export.Row{}, err
		}
		return export.Row{
			Kind:        kind,
			ID:          inv.ID,
			Party:       inv.Supplier,
			Description: inv.Description,
			Amount:      inv.Amount,
			Date:        inv.Date.ISO(),
		}, nil
	default:
		return export.Row{}, fmt.Errorf("unknown record kind %q", kind)
	}
}
