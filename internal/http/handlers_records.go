package http

import (
	"log/slog"
	"net/http"
	"time"

	"libros/internal/core"
)

type rawRecordResponse struct {
	ID          int64   `json:"id"`
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	CreatedAt   string  `json:"createdAt"`
	Destination string  `json:"destination,omitempty"`
}

type cleanedRecordResponse struct {
	ID          int64   `json:"id"`
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	ValidatedBy string  `json:"validatedBy"`
	Destination string  `json:"destination,omitempty"`
}

func (s *Server) handleCreateRawRecord(w http.ResponseWriter, r *http.Request) {
	var payload rawRecordPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := core.ParseAmount(payload.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	date, err := parseOptionalDate(payload.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date")
		return
	}

	rec := core.RawRecord{
		Kind:        core.RecordKind(sanitizeInput(payload.Kind)),
		Description: sanitizeInput(payload.Description),
		Amount:      amount,
		Date:        date,
		Destination: sanitizeInput(payload.Destination),
	}
	if err := rec.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.AppendRaw(r.Context(), rec)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to append raw record", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save record")
		return
	}

	writeCreated(w, id)
}

func (s *Server) handleListRawRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListRaw(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list raw records", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	out := make([]rawRecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, rawRecordResponse{
			ID:          rec.ID,
			Kind:        string(rec.Kind),
			Description: rec.Description,
			Amount:      rec.Amount,
			Date:        rec.Date.ISO(),
			CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
			Destination: rec.Destination,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListCleanedRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListCleaned(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list cleaned records", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	out := make([]cleanedRecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, cleanedRecordResponse{
			ID:          rec.ID,
			Kind:        string(rec.Kind),
			Description: rec.Description,
			Amount:      rec.Amount,
			Date:        rec.Date.ISO(),
			ValidatedBy: rec.ValidatedBy,
			Destination: rec.Destination,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	summary, err := s.pipeline.Run(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Pipeline run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "pipeline run failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
