package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"libros/internal/core"
)

// PendingSync identifies an invoice the export worker still has to push
// to the spreadsheet ledger.
type PendingSync struct {
	Kind string // "sales" or "purchase"
	ID   int64
}

// GetSalesInvoice loads one sales invoice by ID.
func (r *SQLiteRepository) GetSalesInvoice(ctx context.Context, id int64) (core.SalesInvoice, error) {
	var inv core.SalesInvoice
	var date string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, customer, description, amount, date, created_at, COALESCE(raw_id, 0)
		 FROM sales_invoices WHERE id = ?`, id).
		Scan(&inv.ID, &inv.Customer, &inv.Description, &inv.Amount, &date, &inv.CreatedAt, &inv.RawID)
	if err != nil {
		return core.SalesInvoice{}, fmt.Errorf("get sales invoice %d: %w", id, err)
	}
	inv.Date = parseStoredDate(date)
	return inv, nil
}

// GetPurchaseInvoice loads one purchase invoice by ID.
func (r *SQLiteRepository) GetPurchaseInvoice(ctx context.Context, id int64) (core.PurchaseInvoice, error) {
	var inv core.PurchaseInvoice
	var date string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, supplier, description, amount, date, created_at, COALESCE(raw_id, 0)
		 FROM purchase_invoices WHERE id = ?`, id).
		Scan(&inv.ID, &inv.Supplier, &inv.Description, &inv.Amount, &date, &inv.CreatedAt, &inv.RawID)
	if err != nil {
		return core.PurchaseInvoice{}, fmt.Errorf("get purchase invoice %d: %w", id, err)
	}
	inv.Date = parseStoredDate(date)
	return inv, nil
}

// PendingSyncInvoices returns up to limit invoices that have neither
// been exported nor flagged with a sync error, oldest first.
func (r *SQLiteRepository) PendingSyncInvoices(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, id FROM (
		     SELECT 'sales' AS kind, id, created_at FROM sales_invoices
		     WHERE synced = 0 AND sync_error = 0
		     UNION ALL
		     SELECT 'purchase' AS kind, id, created_at FROM purchase_invoices
		     WHERE synced = 0 AND sync_error = 0
		 ) ORDER BY created_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending sync invoices: %w", err)
	}
	defer rows.Close()

	var out []PendingSync
	for rows.Next() {
		var p PendingSync
		if err := rows.Scan(&p.Kind, &p.ID); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced records a successful export.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, kind string, id int64) error {
	if err := r.setSyncFlags(ctx, kind, id, 1, 0); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Invoice marked as synced", "kind", kind, "id", id)
	return nil
}

// MarkSyncError flags an invoice so the scanner stops retrying it.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, kind string, id int64) error {
	return r.setSyncFlags(ctx, kind, id, 0, 1)
}

func (r *SQLiteRepository) setSyncFlags(ctx context.Context, kind string, id int64, synced, syncErr int) error {
	var table string
	switch kind {
	case "sales":
		table = "sales_invoices"
	case "purchase":
		table = "purchase_invoices"
	default:
		return fmt.Errorf("unknown invoice kind %q", kind)
	}
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET synced = ?, sync_error = ? WHERE id = ?`, table),
		synced, syncErr, id)
	if err != nil {
		return fmt.Errorf("update sync flags: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
