package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"libros/internal/core"
	"libros/internal/ledger"
)

// RecurringProcessor materializes due recurring templates into sales
// invoices and advances their next generation date.
type RecurringProcessor struct {
	templates ledger.TemplateStore
	invoices  *InvoiceService
}

func NewRecurringProcessor(templates ledger.TemplateStore, invoices *InvoiceService) *RecurringProcessor {
	return &RecurringProcessor{
		templates: templates,
		invoices:  invoices,
	}
}

// ProcessDue generates one invoice per due template and returns how
// many were created. A single broken template logs and moves on; it
// never aborts the batch.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	due, err := p.templates.DueTemplates(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due templates: %w", err)
	}

	created := 0
	for _, t := range due {
		if err := p.processTemplate(ctx, t, now); err != nil {
			slog.ErrorContext(ctx, "Failed to process recurring template",
				"template_id", t.ID,
				"customer", t.Customer,
				"error", err)
			continue
		}
		created++
	}

	if created > 0 {
		slog.InfoContext(ctx, "Recurring templates processed",
			"due", len(due),
			"created", created)
	}

	return created, nil
}

func (p *RecurringProcessor) processTemplate(ctx context.Context, t core.RecurringTemplate, now time.Time) error {
	scheduler, err := GetScheduler(t.Frequency)
	if err != nil {
		return err
	}

	inv := core.SalesInvoice{
		Customer:    t.Customer,
		Description: t.Description,
		Amount:      t.Amount,
		Date:        core.NewDate(now.Year(), int(now.Month()), now.Day()),
	}
	if _, err := p.invoices.CreateSales(ctx, inv, nil); err != nil {
		return fmt.Errorf("create invoice from template: %w", err)
	}

	// One invoice per run even when the template fell behind; skip the
	// missed periods instead of back-filling them.
	next := scheduler.Next(t.NextRun)
	today := now.Format("2006-01-02")
	for next.ISO() <= today {
		next = scheduler.Next(next)
	}

	if err := p.templates.AdvanceTemplate(ctx, t.ID, next); err != nil {
		return fmt.Errorf("advance template: %w", err)
	}
	return nil
}
