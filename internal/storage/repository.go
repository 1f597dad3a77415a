package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"libros/internal/cart"
	"libros/internal/core"
	"libros/internal/ledger"

	_ "modernc.org/sqlite"
)

var _ ledger.Store = (*SQLiteRepository)(nil)

// SQLiteRepository implements ledger.Store plus the sync bookkeeping
// the export worker needs.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func parseStoredDate(s string) core.Date {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return core.Date{}
	}
	return core.Date{Time: t}
}

// AppendRaw implements ledger.RecordStore
func (r *SQLiteRepository) AppendRaw(ctx context.Context, rec core.RawRecord) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO raw_records (kind, description, amount, date, destination)
		 VALUES (?, ?, ?, ?, ?)`,
		string(rec.Kind), rec.Description, rec.Amount, rec.Date.ISO(), rec.Destination)
	if err != nil {
		return 0, fmt.Errorf("insert raw record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("raw record id: %w", err)
	}

	slog.InfoContext(ctx, "Raw record saved",
		"id", id,
		"kind", rec.Kind,
		"amount", rec.Amount,
		"date", rec.Date.ISO())

	return id, nil
}

// ListRaw implements ledger.RecordStore
func (r *SQLiteRepository) ListRaw(ctx context.Context) ([]core.RawRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, description, amount, date, created_at, destination
		 FROM raw_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list raw records: %w", err)
	}
	defer rows.Close()

	var out []core.RawRecord
	for rows.Next() {
		var rec core.RawRecord
		var kind, date string
		if err := rows.Scan(&rec.ID, &kind, &rec.Description, &rec.Amount, &date, &rec.CreatedAt, &rec.Destination); err != nil {
			return nil, fmt.Errorf("scan raw record: %w", err)
		}
		rec.Kind = core.RecordKind(kind)
		rec.Date = parseStoredDate(date)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListCleaned implements ledger.RecordStore
func (r *SQLiteRepository) ListCleaned(ctx context.Context) ([]core.CleanedRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, description, amount, date, created_at, validated_by, destination
		 FROM cleaned_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list cleaned records: %w", err)
	}
	defer rows.Close()

	var out []core.CleanedRecord
	for rows.Next() {
		var rec core.CleanedRecord
		var kind, date string
		var created sql.NullTime
		if err := rows.Scan(&rec.ID, &kind, &rec.Description, &rec.Amount, &date, &created, &rec.ValidatedBy, &rec.Destination); err != nil {
			return nil, fmt.Errorf("scan cleaned record: %w", err)
		}
		rec.Kind = core.RecordKind(kind)
		rec.Date = parseStoredDate(date)
		rec.CreatedAt = created.Time
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ReplaceCleaned implements ledger.RecordStore. The cleaned table is a
// full projection of validated raw rows, so the pipeline swaps it
// wholesale inside one transaction.
func (r *SQLiteRepository) ReplaceCleaned(ctx context.Context, records []core.CleanedRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace cleaned: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cleaned_records`); err != nil {
		return fmt.Errorf("clear cleaned records: %w", err)
	}
	for _, rec := range records {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cleaned_records (id, kind, description, amount, date, created_at, validated_by, destination)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, string(rec.Kind), rec.Description, rec.Amount, rec.Date.ISO(), rec.CreatedAt, rec.ValidatedBy, rec.Destination)
		if err != nil {
			return fmt.Errorf("insert cleaned record %d: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

func nullableID(id int64) sql.NullInt64 {
	if id <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

// CreateSalesInvoice implements ledger.InvoiceStore. The invoice row
// and its line items commit together.
func (r *SQLiteRepository) CreateSalesInvoice(ctx context.Context, inv core.SalesInvoice, items []cart.Item) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create sales invoice: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sales_invoices (customer, description, amount, date, raw_id)
		 VALUES (?, ?, ?, ?, ?)`,
		inv.Customer, inv.Description, inv.Amount, inv.Date.ISO(), nullableID(inv.RawID))
	if err != nil {
		return 0, fmt.Errorf("insert sales invoice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sales invoice id: %w", err)
	}

	for _, item := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO invoice_items (invoice_kind, sales_invoice_id, product_id, quantity, unit_price)
			 VALUES ('sales', ?, ?, ?, ?)`,
			id, item.ProductID, item.Quantity, item.UnitPrice)
		if err != nil {
			return 0, fmt.Errorf("insert invoice item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit sales invoice: %w", err)
	}

	slog.InfoContext(ctx, "Sales invoice saved",
		"id", id,
		"customer", inv.Customer,
		"amount", inv.Amount,
		"items", len(items))

	return id, nil
}

// CreatePurchaseInvoice implements ledger.InvoiceStore
func (r *SQLiteRepository) CreatePurchaseInvoice(ctx context.Context, inv core.PurchaseInvoice, items []cart.Item) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create purchase invoice: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO purchase_invoices (supplier, description, amount, date, raw_id)
		 VALUES (?, ?, ?, ?, ?)`,
		inv.Supplier, inv.Description, inv.Amount, inv.Date.ISO(), nullableID(inv.RawID))
	if err != nil {
		return 0, fmt.Errorf("insert purchase invoice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("purchase invoice id: %w", err)
	}

	for _, item := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO invoice_items (invoice_kind, purchase_invoice_id, product_id, quantity, unit_price)
			 VALUES ('purchase', ?, ?, ?, ?)`,
			id, item.ProductID, item.Quantity, item.UnitPrice)
		if err != nil {
			return 0, fmt.Errorf("insert invoice item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit purchase invoice: %w", err)
	}

	return id, nil
}

// ListSalesInvoices implements ledger.InvoiceStore
func (r *SQLiteRepository) ListSalesInvoices(ctx context.Context) ([]core.SalesInvoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, customer, description, amount, date, created_at, COALESCE(raw_id, 0)
		 FROM sales_invoices ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("list sales invoices: %w", err)
	}
	defer rows.Close()

	var out []core.SalesInvoice
	for rows.Next() {
		var inv core.SalesInvoice
		var date string
		if err := rows.Scan(&inv.ID, &inv.Customer, &inv.Description, &inv.Amount, &date, &inv.CreatedAt, &inv.RawID); err != nil {
			return nil, fmt.Errorf("scan sales invoice: %w", err)
		}
		inv.Date = parseStoredDate(date)
		out = append(out, inv)
	}
	return out, rows.Err()
}

// ListPurchaseInvoices implements ledger.InvoiceStore
func (r *SQLiteRepository) ListPurchaseInvoices(ctx context.Context) ([]core.PurchaseInvoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, supplier, description, amount, date, created_at, COALESCE(raw_id, 0)
		 FROM purchase_invoices ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("list purchase invoices: %w", err)
	}
	defer rows.Close()

	var out []core.PurchaseInvoice
	for rows.Next() {
		var inv core.PurchaseInvoice
		var date string
		if err := rows.Scan(&inv.ID, &inv.Supplier, &inv.Description, &inv.Amount, &date, &inv.CreatedAt, &inv.RawID); err != nil {
			return nil, fmt.Errorf("scan purchase invoice: %w", err)
		}
		inv.Date = parseStoredDate(date)
		out = append(out, inv)
	}
	return out, rows.Err()
}

// DeleteSalesInvoice implements ledger.InvoiceStore
func (r *SQLiteRepository) DeleteSalesInvoice(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete sales invoice: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM invoice_items WHERE invoice_kind = 'sales' AND sales_invoice_id = ?`, id); err != nil {
		return fmt.Errorf("delete invoice items: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sales_invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete sales invoice: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// ListProducts implements ledger.ProductCatalog
func (r *SQLiteRepository) ListProducts(ctx context.Context) ([]core.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(sku, ''), unit_price, description, created_at
		 FROM products ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []core.Product
	for rows.Next() {
		var p core.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.UnitPrice, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateProduct implements ledger.ProductCatalog
func (r *SQLiteRepository) CreateProduct(ctx context.Context, p core.Product) (int64, error) {
	var sku any
	if p.SKU != "" {
		sku = p.SKU
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO products (name, sku, unit_price, description) VALUES (?, ?, ?, ?)`,
		p.Name, sku, p.UnitPrice, p.Description)
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("product id: %w", err)
	}
	return id, nil
}

// ListTemplates implements ledger.TemplateStore
func (r *SQLiteRepository) ListTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	return r.queryTemplates(ctx,
		`SELECT id, customer, description, amount, frequency, next_run
		 FROM recurring_templates ORDER BY id`)
}

// DueTemplates implements ledger.TemplateStore
func (r *SQLiteRepository) DueTemplates(ctx context.Context, now time.Time) ([]core.RecurringTemplate, error) {
	return r.queryTemplates(ctx,
		`SELECT id, customer, description, amount, frequency, next_run
		 FROM recurring_templates WHERE next_run <= ? ORDER BY next_run, id`,
		now.Format("2006-01-02"))
}

func (r *SQLiteRepository) queryTemplates(ctx context.Context, query string, args ...any) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTemplate
	for rows.Next() {
		var t core.RecurringTemplate
		var freq, nextRun string
		if err := rows.Scan(&t.ID, &t.Customer, &t.Description, &t.Amount, &freq, &nextRun); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		t.Frequency = core.Frequency(freq)
		t.NextRun = parseStoredDate(nextRun)
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTemplate implements ledger.TemplateStore
func (r *SQLiteRepository) CreateTemplate(ctx context.Context, t core.RecurringTemplate) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_templates (customer, description, amount, frequency, next_run)
		 VALUES (?, ?, ?, ?, ?)`,
		t.Customer, t.Description, t.Amount, string(t.Frequency), t.NextRun.ISO())
	if err != nil {
		return 0, fmt.Errorf("insert template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("template id: %w", err)
	}
	return id, nil
}

// AdvanceTemplate implements ledger.TemplateStore
func (r *SQLiteRepository) AdvanceTemplate(ctx context.Context, id int64, nextRun core.Date) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_templates SET next_run = ? WHERE id = ?`, nextRun.ISO(), id)
	if err != nil {
		return fmt.Errorf("advance template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddPaymentReceived implements ledger.PaymentStore
func (r *SQLiteRepository) AddPaymentReceived(ctx context.Context, p core.PaymentReceived) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payments_received (sales_invoice_id, amount, date) VALUES (?, ?, ?)`,
		p.SalesInvoiceID, p.Amount, p.Date.ISO())
	if err != nil {
		return 0, fmt.Errorf("insert payment received: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("payment id: %w", err)
	}
	return id, nil
}

// AddSupplierPayment implements ledger.PaymentStore
func (r *SQLiteRepository) AddSupplierPayment(ctx context.Context, p core.SupplierPayment) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO supplier_payments (purchase_invoice_id, purchase_order_id, amount, date)
		 VALUES (?, ?, ?, ?)`,
		nullableID(p.PurchaseInvoiceID), nullableID(p.PurchaseOrderID), p.Amount, p.Date.ISO())
	if err != nil {
		return 0, fmt.Errorf("insert supplier payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("payment id: %w", err)
	}
	return id, nil
}
