package http

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"libros/internal/cart"
	"libros/internal/core"
)

type invoiceResponse struct {
	ID          int64   `json:"id"`
	Party       string  `json:"party"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
}

// buildCart resolves line item payloads against the product catalog.
// Unit prices come from the catalog at add time; the client never sets
// them.
func (s *Server) buildCart(r *http.Request, items []lineItemPayload) (*cart.Cart, error) {
	c := cart.New()
	if len(items) == 0 {
		return c, nil
	}

	products, err := s.store.ListProducts(r.Context())
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]core.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, item := range items {
		var entry *cart.CatalogEntry
		if p, ok := byID[item.ProductID]; ok {
			entry = &cart.CatalogEntry{ID: p.ID, Name: p.Name, Price: p.UnitPrice}
		}
		if err := c.AddItem(entry, item.Quantity); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// invoiceAmount resolves the amount for an invoice: the cart total when
// line items were sent, the explicit amount field otherwise.
func invoiceAmount(amountStr string, c *cart.Cart) (float64, error) {
	if c.Len() > 0 {
		return c.Total(), nil
	}
	return core.ParseAmount(amountStr)
}

func (s *Server) handleCreateSalesInvoice(w http.ResponseWriter, r *http.Request) {
	var payload salesInvoicePayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := s.buildCart(r, payload.Items)
	if err != nil {
		if errors.Is(err, cart.ErrNoProductSelected) || errors.Is(err, cart.ErrInvalidQuantity) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to resolve line items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve line items")
		return
	}

	amount, err := invoiceAmount(payload.Amount, c)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	date, err := parseOptionalDate(payload.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date")
		return
	}

	inv := core.SalesInvoice{
		Customer:    sanitizeInput(payload.Customer),
		Description: sanitizeInput(payload.Description),
		Amount:      amount,
		Date:        date,
	}

	id, err := s.invoices.CreateSales(r.Context(), inv, c.Items())
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create sales invoice", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save invoice")
		return
	}

	s.salesLoader.Invalidate(cacheKeySales)
	writeCreated(w, id)
}

func (s *Server) handleCreatePurchaseInvoice(w http.ResponseWriter, r *http.Request) {
	var payload purchaseInvoicePayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := s.buildCart(r, payload.Items)
	if err != nil {
		if errors.Is(err, cart.ErrNoProductSelected) || errors.Is(err, cart.ErrInvalidQuantity) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to resolve line items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve line items")
		return
	}

	amount, err := invoiceAmount(payload.Amount, c)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	date, err := parseOptionalDate(payload.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date")
		return
	}

	inv := core.PurchaseInvoice{
		Supplier:    sanitizeInput(payload.Supplier),
		Description: sanitizeInput(payload.Description),
		Amount:      amount,
		Date:        date,
	}

	id, err := s.invoices.CreatePurchase(r.Context(), inv, c.Items())
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create purchase invoice", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save invoice")
		return
	}

	s.purchasesLoader.Invalidate(cacheKeyPurchases)
	writeCreated(w, id)
}

func (s *Server) handleListSalesInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.store.ListSalesInvoices(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list sales invoices", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list invoices")
		return
	}

	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, invoiceResponse{
			ID:          inv.ID,
			Party:       inv.Customer,
			Description: inv.Description,
			Amount:      inv.Amount,
			Date:        inv.Date.ISO(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListPurchaseInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.store.ListPurchaseInvoices(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list purchase invoices", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list invoices")
		return
	}

	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, invoiceResponse{
			ID:          inv.ID,
			Party:       inv.Supplier,
			Description: inv.Description,
			Amount:      inv.Amount,
			Date:        inv.Date.ISO(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteSalesInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid invoice id")
		return
	}

	if err := s.invoices.DeleteSales(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "invoice not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete sales invoice", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete invoice")
		return
	}

	s.salesLoader.Invalidate(cacheKeySales)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddPaymentReceived(w http.ResponseWriter, r *http.Request) {
	var payload paymentReceivedPayload
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

	payment := core.PaymentReceived{
		SalesInvoiceID: payload.SalesInvoiceID,
		Amount:         amount,
		Date:           date,
	}
	if err := payment.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.AddPaymentReceived(r.Context(), payment)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to save received payment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save payment")
		return
	}
	writeCreated(w, id)
}

func (s *Server) handleAddSupplierPayment(w http.ResponseWriter, r *http.Request) {
	var payload supplierPaymentPayload
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

	payment := core.SupplierPayment{
		PurchaseInvoiceID: payload.PurchaseInvoiceID,
		PurchaseOrderID:   payload.PurchaseOrderID,
		Amount:            amount,
		Date:              date,
	}
	if err := payment.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.AddSupplierPayment(r.Context(), payment)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to save supplier payment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save payment")
		return
	}
	writeCreated(w, id)
}

// isValidationError reports whether err is one of the domain validation
// sentinels, which map to 422 instead of 500.
func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrInvalidKind) ||
		errors.Is(err, core.ErrInvalidFrequency) ||
		errors.Is(err, core.ErrEmptyDescription) ||
		errors.Is(err, core.ErrEmptyParty) ||
		errors.Is(err, core.ErrPaymentTarget)
}
