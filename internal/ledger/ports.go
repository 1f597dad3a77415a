// Package ledger declares the ports the HTTP layer and the services
// consume; storage backends implement them.
package ledger

import (
	"context"
	"time"

	"libros/internal/cart"
	"libros/internal/core"
)

type (
	// RecordStore covers the raw intake table and the cleaned table the
	// pipeline promotes into.
	RecordStore interface {
		AppendRaw(ctx context.Context, r core.RawRecord) (int64, error)
		ListRaw(ctx context.Context) ([]core.RawRecord, error)
		ListCleaned(ctx context.Context) ([]core.CleanedRecord, error)
		// ReplaceCleaned atomically swaps the cleaned table contents.
		ReplaceCleaned(ctx context.Context, records []core.CleanedRecord) error
	}

	InvoiceStore interface {
		CreateSalesInvoice(ctx context.Context, inv core.SalesInvoice, items []cart.Item) (int64, error)
		CreatePurchaseInvoice(ctx context.Context, inv core.PurchaseInvoice, items []cart.Item) (int64, error)
		ListSalesInvoices(ctx context.Context) ([]core.SalesInvoice, error)
		ListPurchaseInvoices(ctx context.Context) ([]core.PurchaseInvoice, error)
		DeleteSalesInvoice(ctx context.Context, id int64) error
	}

	ProductCatalog interface {
		ListProducts(ctx context.Context) ([]core.Product, error)
		CreateProduct(ctx context.Context, p core.Product) (int64, error)
	}

	TemplateStore interface {
		ListTemplates(ctx context.Context) ([]core.RecurringTemplate, error)
		CreateTemplate(ctx context.Context, t core.RecurringTemplate) (int64, error)
		DueTemplates(ctx context.Context, now time.Time) ([]core.RecurringTemplate, error)
		AdvanceTemplate(ctx context.Context, id int64, nextRun core.Date) error
	}

	PaymentStore interface {
		AddPaymentReceived(ctx context.Context, p core.PaymentReceived) (int64, error)
		AddSupplierPayment(ctx context.Context, p core.SupplierPayment) (int64, error)
	}

	// Store is the full backend surface a data backend provides.
	Store interface {
		RecordStore
		InvoiceStore
		ProductCatalog
		TemplateStore
		PaymentStore
		Close() error
	}
)
