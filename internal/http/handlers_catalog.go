package http

import (
	"log/slog"
	"net/http"

	"libros/internal/core"
)

type productResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	SKU         string  `json:"sku,omitempty"`
	UnitPrice   float64 `json:"unitPrice"`
	Description string  `json:"description,omitempty"`
}

type templateResponse struct {
	ID          int64   `json:"id"`
	Customer    string  `json:"customer"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Frequency   string  `json:"frequency"`
	NextRun     string  `json:"nextRun"`
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListProducts(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list products", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, productResponse{
			ID:          p.ID,
			Name:        p.Name,
			SKU:         p.SKU,
			UnitPrice:   p.UnitPrice,
			Description: p.Description,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	price, err := core.ParseAmount(payload.UnitPrice)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid unit price")
		return
	}

	product := core.Product{
		Name:        sanitizeInput(payload.Name),
		SKU:         sanitizeInput(payload.SKU),
		UnitPrice:   price,
		Description: sanitizeInput(payload.Description),
	}
	if err := product.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.CreateProduct(r.Context(), product)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create product", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save product")
		return
	}
	writeCreated(w, id)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.ListTemplates(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list recurring templates", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list templates")
		return
	}

	out := make([]templateResponse, 0, len(templates))
	for _, t := range templates {
		out = append(out, templateResponse{
			ID:          t.ID,
			Customer:    t.Customer,
			Description: t.Description,
			Amount:      t.Amount,
			Frequency:   string(t.Frequency),
			NextRun:     t.NextRun.ISO(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var payload templatePayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := core.ParseAmount(payload.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	nextRun, err := parseOptionalDate(payload.NextRun)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid next run date")
		return
	}

	template := core.RecurringTemplate{
		Customer:    sanitizeInput(payload.Customer),
		Description: sanitizeInput(payload.Description),
		Amount:      amount,
		Frequency:   core.Frequency(sanitizeInput(payload.Frequency)),
		NextRun:     nextRun,
	}
	if err := template.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.CreateTemplate(r.Context(), template)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create recurring template", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save template")
		return
	}
	writeCreated(w, id)
}
