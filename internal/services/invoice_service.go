package services

import (
	"context"
	"fmt"
	"log/slog"

	"libros/internal/amqp"
	"libros/internal/cart"
	"libros/internal/core"
	"libros/internal/ledger"
)

// InvoiceService persists invoices and notifies the export worker. The
// local write is authoritative; a broker failure never fails the
// request.
type InvoiceService struct {
	store      ledger.InvoiceStore
	amqpClient *amqp.Client
}

func NewInvoiceService(store ledger.InvoiceStore, amqpClient *amqp.Client) *InvoiceService {
	return &InvoiceService{
		store:      store,
		amqpClient: amqpClient,
	}
}

// CreateSales saves a sales invoice with its line items and publishes a
// sync message.
func (s *InvoiceService) CreateSales(ctx context.Context, inv core.SalesInvoice, items []cart.Item) (int64, error) {
	if err := inv.Validate(); err != nil {
		return 0, err
	}

	id, err := s.store.CreateSalesInvoice(ctx, inv, items)
	if err != nil {
		return 0, fmt.Errorf("save sales invoice: %w", err)
	}

	s.publishSync(ctx, amqp.KindSales, id)
	return id, nil
}

// CreatePurchase saves a purchase invoice with its line items and
// publishes a sync message.
func (s *InvoiceService) CreatePurchase(ctx context.Context, inv core.PurchaseInvoice, items []cart.Item) (int64, error) {
	if err := inv.Validate(); err != nil {
		return 0, err
	}

	id, err := s.store.CreatePurchaseInvoice(ctx, inv, items)
	if err != nil {
		return 0, fmt.Errorf("save purchase invoice: %w", err)
	}

	s.publishSync(ctx, amqp.KindPurchase, id)
	return id, nil
}

// DeleteSales removes a sales invoice and its items.
func (s *InvoiceService) DeleteSales(ctx context.Context, id int64) error {
	if err := s.store.DeleteSalesInvoice(ctx, id); err != nil {
		return fmt.Errorf("delete sales invoice: %w", err)
	}
	return nil
}

func (s *InvoiceService) publishSync(ctx context.Context, kind string, id int64) {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync message", "kind", kind, "id", id)
		return
	}
	if err := s.amqpClient.PublishRecordSync(ctx, kind, id); err != nil {
		// The invoice is saved locally; the worker's periodic scan
		// will pick it up instead.
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"kind", kind, "id", id, "error", err)
	}
}
