package services

import (
	"context"
	"testing"
	"time"

	"libros/internal/core"
	"libros/internal/ledger/memory"
)

func TestRecurringProcessor_ProcessDue(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now()
	today := core.NewDate(now.Year(), int(now.Month()), now.Day())

	dueID, err := store.CreateTemplate(ctx, core.RecurringTemplate{
		Customer:    "ACME",
		Description: "Mensualidad",
		Amount:      50000,
		Frequency:   core.Monthly,
		NextRun:     core.Date{Time: today.AddDate(0, 0, -1)},
	})
	if err != nil {
		t.Fatalf("CreateTemplate() error = %v", err)
	}
	if _, err := store.CreateTemplate(ctx, core.RecurringTemplate{
		Customer:    "Beta",
		Description: "Anualidad",
		Amount:      120000,
		Frequency:   core.Yearly,
		NextRun:     core.Date{Time: today.AddDate(0, 0, 30)},
	}); err != nil {
		t.Fatalf("CreateTemplate() error = %v", err)
	}

	processor := NewRecurringProcessor(store, NewInvoiceService(store, nil))

	created, err := processor.ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if created != 1 {
		t.Fatalf("ProcessDue() created = %d, want 1", created)
	}

	invoices, err := store.ListSalesInvoices(ctx)
	if err != nil {
		t.Fatalf("ListSalesInvoices() error = %v", err)
	}
	if len(invoices) != 1 {
		t.Fatalf("got %d invoices, want 1", len(invoices))
	}
	inv := invoices[0]
	if inv.Customer != "ACME" || inv.Amount != 50000 {
		t.Errorf("invoice = %+v, want ACME for 50000", inv)
	}
	if inv.Date.ISO() != today.ISO() {
		t.Errorf("invoice dated %s, want %s", inv.Date.ISO(), today.ISO())
	}

	// The due template advanced past today; a second run creates nothing.
	templates, _ := store.ListTemplates(ctx)
	for _, tmpl := range templates {
		if tmpl.ID == dueID && tmpl.NextRun.ISO() <= today.ISO() {
			t.Errorf("template not advanced: next run %s", tmpl.NextRun.ISO())
		}
	}
	created, err = processor.ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("second ProcessDue() error = %v", err)
	}
	if created != 0 {
		t.Errorf("second ProcessDue() created = %d, want 0", created)
	}
}

func TestRecurringProcessor_SkipsMissedPeriods(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now()
	today := core.NewDate(now.Year(), int(now.Month()), now.Day())

	// A template three months behind generates one invoice, not three.
	if _, err := store.CreateTemplate(ctx, core.RecurringTemplate{
		Customer:    "ACME",
		Description: "Mensualidad",
		Amount:      50000,
		Frequency:   core.Monthly,
		NextRun:     core.Date{Time: today.AddDate(0, -3, 0)},
	}); err != nil {
		t.Fatalf("CreateTemplate() error = %v", err)
	}

	processor := NewRecurringProcessor(store, NewInvoiceService(store, nil))

	created, err := processor.ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if created != 1 {
		t.Fatalf("ProcessDue() created = %d, want 1", created)
	}

	templates, _ := store.ListTemplates(ctx)
	if next := templates[0].NextRun.ISO(); next <= today.ISO() {
		t.Errorf("next run %s not advanced past today", next)
	}

	invoices, _ := store.ListSalesInvoices(ctx)
	if len(invoices) != 1 {
		t.Errorf("got %d invoices, want 1", len(invoices))
	}
}

// templateStoreStub hands the processor templates the validating
// backends would refuse, to exercise the per-template error path.
type templateStoreStub struct {
	templates []core.RecurringTemplate
	advanced  []int64
}

func (s *templateStoreStub) ListTemplates(_ context.Context) ([]core.RecurringTemplate, error) {
	return s.templates, nil
}

func (s *templateStoreStub) CreateTemplate(_ context.Context, t core.RecurringTemplate) (int64, error) {
	s.templates = append(s.templates, t)
	return int64(len(s.templates)), nil
}

func (s *templateStoreStub) DueTemplates(_ context.Context, _ time.Time) ([]core.RecurringTemplate, error) {
	return s.templates, nil
}

func (s *templateStoreStub) AdvanceTemplate(_ context.Context, id int64, _ core.Date) error {
	s.advanced = append(s.advanced, id)
	return nil
}

func TestRecurringProcessor_BrokenTemplateDoesNotAbortBatch(t *testing.T) {
	now := time.Now()
	yesterday := core.Date{Time: now.AddDate(0, 0, -1)}
	templates := &templateStoreStub{
		templates: []core.RecurringTemplate{
			{ID: 1, Customer: "Broken", Description: "x", Amount: 10, Frequency: "biweekly", NextRun: yesterday},
			{ID: 2, Customer: "ACME", Description: "Mensualidad", Amount: 50000, Frequency: core.Monthly, NextRun: yesterday},
		},
	}
	invoices := memory.New()

	processor := NewRecurringProcessor(templates, NewInvoiceService(invoices, nil))

	created, err := processor.ProcessDue(context.Background(), now)
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}
	if len(templates.advanced) != 1 || templates.advanced[0] != 2 {
		t.Errorf("advanced = %v, want [2]", templates.advanced)
	}
}
