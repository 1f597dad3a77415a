package storage

import (
	"context"
	"testing"

	"libros/internal/core"
)

func TestSQLiteRepository_PendingSyncInvoices(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	salesID, err := repo.CreateSalesInvoice(ctx, core.SalesInvoice{
		Customer:    "ACME",
		Description: "Retainer",
		Amount:      50000,
		Date:        core.NewDate(2024, 6, 15),
	}, nil)
	if err != nil {
		t.Fatalf("CreateSalesInvoice() error = %v", err)
	}
	purchaseID, err := repo.CreatePurchaseInvoice(ctx, core.PurchaseInvoice{
		Supplier:    "Proveedor SA",
		Description: "Materials",
		Amount:      12000,
		Date:        core.NewDate(2024, 6, 16),
	}, nil)
	if err != nil {
		t.Fatalf("CreatePurchaseInvoice() error = %v", err)
	}

	pending, err := repo.PendingSyncInvoices(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSyncInvoices() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("PendingSyncInvoices() returned %d, want 2", len(pending))
	}

	if err := repo.MarkSynced(ctx, "sales", salesID); err != nil {
		t.Fatalf("MarkSynced() error = %v", err)
	}
	if err := repo.MarkSyncError(ctx, "purchase", purchaseID); err != nil {
		t.Fatalf("MarkSyncError() error = %v", err)
	}

	// Synced and errored invoices both leave the pending set.
	pending, err = repo.PendingSyncInvoices(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSyncInvoices() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("PendingSyncInvoices() after marking = %+v, want none", pending)
	}
}

func TestSQLiteRepository_MarkSynced_UnknownKind(t *testing.T) {
	repo := newTestRepo(t)

	if err := repo.MarkSynced(context.Background(), "order", 1); err == nil {
		t.Error("MarkSynced() with unknown kind expected error")
	}
}

func TestSQLiteRepository_GetInvoices(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateSalesInvoice(ctx, core.SalesInvoice{
		Customer:    "ACME",
		Description: "Retainer",
		Amount:      50000,
		Date:        core.NewDate(2024, 6, 15),
	}, nil)
	if err != nil {
		t.Fatalf("CreateSalesInvoice() error = %v", err)
	}

	inv, err := repo.GetSalesInvoice(ctx, id)
	if err != nil {
		t.Fatalf("GetSalesInvoice() error = %v", err)
	}
	if inv.Customer != "ACME" || inv.Date.ISO() != "2024-06-15" {
		t.Errorf("GetSalesInvoice() = %+v", inv)
	}

	if _, err := repo.GetSalesInvoice(ctx, 999); err == nil {
		t.Error("GetSalesInvoice(unknown) expected error")
	}
}
