package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"libros/internal/core"
)

// recordStoreStub returns canned raw rows, including dirty ones the
// validating backends would refuse to store.
type recordStoreStub struct {
	raw      []core.RawRecord
	replaced []core.CleanedRecord
}

func (s *recordStoreStub) AppendRaw(_ context.Context, r core.RawRecord) (int64, error) {
	s.raw = append(s.raw, r)
	return int64(len(s.raw)), nil
}

func (s *recordStoreStub) ListRaw(_ context.Context) ([]core.RawRecord, error) {
	return s.raw, nil
}

func (s *recordStoreStub) ListCleaned(_ context.Context) ([]core.CleanedRecord, error) {
	return s.replaced, nil
}

func (s *recordStoreStub) ReplaceCleaned(_ context.Context, records []core.CleanedRecord) error {
	s.replaced = records
	return nil
}

func TestPipelineService_Run(t *testing.T) {
	now := time.Now()
	date := core.NewDate(2024, 6, 1)
	store := &recordStoreStub{
		raw: []core.RawRecord{
			{ID: 1, Kind: core.Income, Description: "Venta mostrador", Amount: 1500, Date: date, CreatedAt: now},
			{ID: 2, Kind: core.Expense, Description: "  Papeleria  ", Amount: 200, Date: date, CreatedAt: now},
			{ID: 3, Kind: core.PurchaseOrder, Description: "Orden 44", Amount: 900, Date: date, CreatedAt: now},
			{ID: 4, Kind: core.Income, Description: "   ", Amount: 100, Date: date, CreatedAt: now},
			{ID: 5, Kind: core.Income, Description: "Sin monto", Amount: 0, Date: date, CreatedAt: now},
		},
	}
	backupDir := t.TempDir()
	svc := NewPipelineService(store, backupDir)

	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.TotalRecords != 5 {
		t.Errorf("TotalRecords = %d, want 5", summary.TotalRecords)
	}
	if summary.CleanRecords != 2 {
		t.Errorf("CleanRecords = %d, want 2", summary.CleanRecords)
	}

	// Only income and expense rows with a description and a non-zero
	// amount get promoted; purchase orders stay raw-only.
	if len(store.replaced) != 2 {
		t.Fatalf("ReplaceCleaned got %d records, want 2", len(store.replaced))
	}
	if store.replaced[0].ID != 1 || store.replaced[1].ID != 2 {
		t.Errorf("promoted IDs = [%d %d], want [1 2]", store.replaced[0].ID, store.replaced[1].ID)
	}
	if store.replaced[1].Description != "Papeleria" {
		t.Errorf("description not trimmed: %q", store.replaced[1].Description)
	}
	for _, rec := range store.replaced {
		if rec.ValidatedBy != "pipeline" {
			t.Errorf("ValidatedBy = %q, want pipeline", rec.ValidatedBy)
		}
	}

	// Both sides are backed up and a run log is written.
	if _, err := os.Stat(summary.RawBackup); err != nil {
		t.Errorf("raw backup missing: %v", err)
	}
	if _, err := os.Stat(summary.CleanedBackup); err != nil {
		t.Errorf("cleaned backup missing: %v", err)
	}
	logPath := filepath.Join(backupDir, "log_"+summary.Timestamp+".json")
	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("run log missing: %v", err)
	}
}

func TestPipelineService_Run_EmptyStore(t *testing.T) {
	store := &recordStoreStub{}
	svc := NewPipelineService(store, t.TempDir())

	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.TotalRecords != 0 || summary.CleanRecords != 0 {
		t.Errorf("summary = %+v, want zero counts", summary)
	}
	if summary.CleanedBackup != "" {
		t.Errorf("CleanedBackup = %q, want empty when nothing promoted", summary.CleanedBackup)
	}
}
