// Package memory is the zero-dependency ledger backend used for local
// development and tests.
package memory

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"libros/internal/cart"
	"libros/internal/core"
	"libros/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu        sync.Mutex
	nextID    int64
	raw       []core.RawRecord
	cleaned   []core.CleanedRecord
	sales     []core.SalesInvoice
	purchases []core.PurchaseInvoice
	items     map[int64][]cart.Item // keyed by invoice ID, sales and purchases share the sequence
	products  []core.Product
	templates []core.RecurringTemplate
	received  []core.PaymentReceived
	supplier  []core.SupplierPayment
}

func New() *Store {
	return &Store{items: make(map[int64][]cart.Item)}
}

// NewSeeded returns a store preloaded with a small product catalog so
// the console has something to select on a fresh start.
func NewSeeded() *Store {
	s := New()
	ctx := context.Background()
	for _, p := range []core.Product{
		{Name: "Consulting hour", SKU: "SRV-001", UnitPrice: 25000},
		{Name: "Delivery", SKU: "SRV-002", UnitPrice: 3500},
	} {
		s.CreateProduct(ctx, p)
	}
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) AppendRaw(_ context.Context, r core.RawRecord) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id()
	r.CreatedAt = time.Now()
	s.raw = append(s.raw, r)
	return r.ID, nil
}

func (s *Store) ListRaw(_ context.Context) ([]core.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RawRecord(nil), s.raw...), nil
}

func (s *Store) ListCleaned(_ context.Context) ([]core.CleanedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.CleanedRecord(nil), s.cleaned...), nil
}

func (s *Store) ReplaceCleaned(_ context.Context, records []core.CleanedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleaned = append([]core.CleanedRecord(nil), records...)
	return nil
}

func (s *Store) CreateSalesInvoice(_ context.Context, inv core.SalesInvoice, items []cart.Item) (int64, error) {
	if err := inv.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv.ID = s.id()
	inv.CreatedAt = time.Now()
	s.sales = append(s.sales, inv)
	if len(items) > 0 {
		s.items[inv.ID] = append([]cart.Item(nil), items...)
	}
	return inv.ID, nil
}

func (s *Store) CreatePurchaseInvoice(_ context.Context, inv core.PurchaseInvoice, items []cart.Item) (int64, error) {
	if err := inv.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv.ID = s.id()
	inv.CreatedAt = time.Now()
	s.purchases = append(s.purchases, inv)
	if len(items) > 0 {
		s.items[inv.ID] = append([]cart.Item(nil), items...)
	}
	return inv.ID, nil
}

func (s *Store) ListSalesInvoices(_ context.Context) ([]core.SalesInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.SalesInvoice(nil), s.sales...), nil
}

func (s *Store) ListPurchaseInvoices(_ context.Context) ([]core.PurchaseInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.PurchaseInvoice(nil), s.purchases...), nil
}

func (s *Store) DeleteSalesInvoice(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, inv := range s.sales {
		if inv.ID == id {
			s.sales = append(s.sales[:i], s.sales[i+1:]...)
			delete(s.items, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *Store) ListProducts(_ context.Context) ([]core.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Product(nil), s.products...), nil
}

func (s *Store) CreateProduct(_ context.Context, p core.Product) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	p.CreatedAt = time.Now()
	s.products = append(s.products, p)
	return p.ID, nil
}

func (s *Store) ListTemplates(_ context.Context) ([]core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RecurringTemplate(nil), s.templates...), nil
}

func (s *Store) CreateTemplate(_ context.Context, t core.RecurringTemplate) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	s.templates = append(s.templates, t)
	return t.ID, nil
}

func (s *Store) DueTemplates(_ context.Context, now time.Time) ([]core.RecurringTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Format("2006-01-02")
	var due []core.RecurringTemplate
	for _, t := range s.templates {
		if !t.NextRun.IsZero() && t.NextRun.ISO() <= cutoff {
			due = append(due, t)
		}
	}
	return due, nil
}

func (s *Store) AdvanceTemplate(_ context.Context, id int64, nextRun core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.templates {
		if s.templates[i].ID == id {
			s.templates[i].NextRun = nextRun
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *Store) AddPaymentReceived(_ context.Context, p core.PaymentReceived) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	s.received = append(s.received, p)
	return p.ID, nil
}

func (s *Store) AddSupplierPayment(_ context.Context, p core.SupplierPayment) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	s.supplier = append(s.supplier, p)
	return p.ID, nil
}
