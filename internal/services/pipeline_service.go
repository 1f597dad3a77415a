package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"libros/internal/core"
	"libros/internal/ledger"
)

// PipelineService promotes raw intake records into the cleaned table.
// Every run backs up both sides to CSV and leaves a JSON run log, so a
// bad promotion can always be reconstructed.
type PipelineService struct {
	store     ledger.RecordStore
	backupDir string
}

// PipelineSummary describes one pipeline run.
type PipelineSummary struct {
	Timestamp     string `json:"timestamp"`
	TotalRecords  int    `json:"total_records"`
	CleanRecords  int    `json:"clean_records"`
	RawBackup     string `json:"raw_backup"`
	CleanedBackup string `json:"cleaned_backup"`
}

func NewPipelineService(store ledger.RecordStore, backupDir string) *PipelineService {
	return &PipelineService{store: store, backupDir: backupDir}
}

// Run executes one promotion: extract raw rows, keep the valid income
// and expense entries, replace the cleaned table. Invalid rows are
// skipped, never fatal; purchase orders stay in the raw table only.
func (p *PipelineService) Run(ctx context.Context) (PipelineSummary, error) {
	stamp := time.Now().Format("20060102_150405")
	summary := PipelineSummary{Timestamp: stamp}

	raw, err := p.store.ListRaw(ctx)
	if err != nil {
		return summary, fmt.Errorf("extract raw records: %w", err)
	}
	summary.TotalRecords = len(raw)

	if err := os.MkdirAll(p.backupDir, 0755); err != nil {
		return summary, fmt.Errorf("create backup directory: %w", err)
	}

	summary.RawBackup = filepath.Join(p.backupDir, "raw_"+stamp+".csv")
	if err := p.writeRawBackup(summary.RawBackup, raw); err != nil {
		return summary, fmt.Errorf("backup raw records: %w", err)
	}

	var cleaned []core.CleanedRecord
	for _, rec := range raw {
		if rec.Kind != core.Income && rec.Kind != core.Expense {
			continue
		}
		if strings.TrimSpace(rec.Description) == "" || rec.Amount == 0 {
			continue
		}
		cleaned = append(cleaned, core.CleanedRecord{
			ID:          rec.ID,
			Kind:        rec.Kind,
			Description: strings.TrimSpace(rec.Description),
			Amount:      rec.Amount,
			Date:        rec.Date,
			CreatedAt:   rec.CreatedAt,
			ValidatedBy: "pipeline",
			Destination: rec.Destination,
		})
	}
	summary.CleanRecords = len(cleaned)

	if len(cleaned) > 0 {
		summary.CleanedBackup = filepath.Join(p.backupDir, "cleaned_"+stamp+".csv")
		if err := p.writeCleanedBackup(summary.CleanedBackup, cleaned); err != nil {
			return summary, fmt.Errorf("backup cleaned records: %w", err)
		}
	}

	if err := p.store.ReplaceCleaned(ctx, cleaned); err != nil {
		return summary, fmt.Errorf("load cleaned records: %w", err)
	}

	if err := p.writeRunLog(stamp, summary); err != nil {
		// The promotion itself succeeded, only the log is missing
		slog.WarnContext(ctx, "Failed to write pipeline run log", "error", err)
	}

	slog.InfoContext(ctx, "Pipeline run complete",
		"total", summary.TotalRecords,
		"clean", summary.CleanRecords)

	return summary, nil
}

func (p *PipelineService) writeRawBackup(path string, records []core.RawRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "kind", "description", "amount", "date", "created_at", "destination"}); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			strconv.FormatInt(rec.ID, 10),
			string(rec.Kind),
			rec.Description,
			strconv.FormatFloat(rec.Amount, 'f', -1, 64),
			rec.Date.ISO(),
			rec.CreatedAt.Format(time.RFC3339),
			rec.Destination,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (p *PipelineService) writeCleanedBackup(path string, records []core.CleanedRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "kind", "description", "amount", "date", "validated_by", "destination"}); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			strconv.FormatInt(rec.ID, 10),
			string(rec.Kind),
			rec.Description,
			strconv.FormatFloat(rec.Amount, 'f', -1, 64),
			rec.Date.ISO(),
			rec.ValidatedBy,
			rec.Destination,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (p *PipelineService) writeRunLog(stamp string, summary PipelineSummary) error {
	data, err := json.MarshalIndent(summary, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(p.backupDir, "log_"+stamp+".json"), data, 0644)
}
