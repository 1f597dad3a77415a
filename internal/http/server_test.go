package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libros/internal/ledger/memory"
	"libros/internal/services"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.NewSeeded()
	invoices := services.NewInvoiceService(store, nil)
	pipeline := services.NewPipelineService(store, t.TempDir())
	srv := NewServer(":0", store, invoices, pipeline, Options{
		WindowMonths:      12,
		DashboardCacheTTL: time.Minute,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_CreateRawRecord(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/records/raw", map[string]any{
		"kind":        "income",
		"description": "Venta mostrador",
		"amount":      "1500,50",
		"date":        "2024-06-15",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created createdResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)

	list := doJSON(t, srv, http.MethodGet, "/api/records/raw", nil)
	require.Equal(t, http.StatusOK, list.Code)
	var records []rawRecordResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "income", records[0].Kind)
	assert.InDelta(t, 1500.50, records[0].Amount, 1e-9)
	assert.Equal(t, "2024-06-15", records[0].Date)
}

func TestServer_CreateRawRecord_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name    string
		payload map[string]any
		status  int
	}{
		{"bad amount", map[string]any{"kind": "income", "description": "x", "amount": "abc", "date": "2024-06-15"}, http.StatusUnprocessableEntity},
		{"bad kind", map[string]any{"kind": "transfer", "description": "x", "amount": "10", "date": "2024-06-15"}, http.StatusUnprocessableEntity},
		{"bad date", map[string]any{"kind": "income", "description": "x", "amount": "10", "date": "junio 15"}, http.StatusUnprocessableEntity},
		{"blank description", map[string]any{"kind": "income", "description": "  ", "amount": "10", "date": "2024-06-15"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/records/raw", tt.payload)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_CreateSalesInvoice_WithLineItems(t *testing.T) {
	srv, store := newTestServer(t)

	products := doJSON(t, srv, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, products.Code)
	var catalog []productResponse
	require.NoError(t, json.Unmarshal(products.Body.Bytes(), &catalog))
	require.Len(t, catalog, 2)

	rec := doJSON(t, srv, http.MethodPost, "/api/invoices/sales", map[string]any{
		"customer":    "ACME",
		"description": "June services",
		"date":        "2024-06-15",
		"items": []map[string]any{
			{"productId": catalog[0].ID, "quantity": 2},
			{"productId": catalog[1].ID, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	invoices, err := store.ListSalesInvoices(context.Background())
	require.NoError(t, err)
	require.Len(t, invoices, 1)

	// The amount is the cart total at catalog prices.
	want := 2*catalog[0].UnitPrice + catalog[1].UnitPrice
	assert.InDelta(t, want, invoices[0].Amount, 1e-9)
}

func TestServer_CreateSalesInvoice_UnknownProduct(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/invoices/sales", map[string]any{
		"customer":    "ACME",
		"description": "June services",
		"date":        "2024-06-15",
		"items":       []map[string]any{{"productId": 999, "quantity": 1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "no product selected")
}

func TestServer_CreateSalesInvoice_InvalidQuantity(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/invoices/sales", map[string]any{
		"customer":    "ACME",
		"description": "June services",
		"date":        "2024-06-15",
		"items":       []map[string]any{{"productId": 1, "quantity": 0}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid quantity")
}

func TestServer_DeleteSalesInvoice(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/invoices/sales", map[string]any{
		"customer":    "ACME",
		"description": "June services",
		"amount":      "50000",
		"date":        "2024-06-15",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created createdResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	del := doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/invoices/sales/%d", created.ID), nil)
	assert.Equal(t, http.StatusNoContent, del.Code)

	del = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/invoices/sales/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, del.Code)
}

func TestServer_DashboardIncome(t *testing.T) {
	srv, _ := newTestServer(t)
	today := time.Now().Format("2006-01-02")

	for _, amount := range []string{"1000", "2000"} {
		rec := doJSON(t, srv, http.MethodPost, "/api/invoices/sales", map[string]any{
			"customer":    "ACME",
			"description": "Venta",
			"amount":      amount,
			"date":        today,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/dashboard/income", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var dash dashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))

	assert.Equal(t, "income", dash.Kind)
	assert.Equal(t, 2, dash.Count)
	assert.InDelta(t, 3000, dash.MonthToDate, 1e-9)
	assert.InDelta(t, 3000, dash.TrailingThirtyDays, 1e-9)
	assert.InDelta(t, 1500, dash.AverageAmount, 1e-9)
	assert.True(t, strings.HasPrefix(dash.MonthToDateDisplay, "₡"), dash.MonthToDateDisplay)

	require.Len(t, dash.Series, 12)
	last := dash.Series[len(dash.Series)-1]
	assert.InDelta(t, 3000, last.Total, 1e-9)

	// A new invoice invalidates the cached records.
	created := doJSON(t, srv, http.MethodPost, "/api/invoices/sales", map[string]any{
		"customer":    "Beta",
		"description": "Venta",
		"amount":      "500",
		"date":        today,
	})
	require.Equal(t, http.StatusCreated, created.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/dashboard/income", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Equal(t, 3, dash.Count)
	assert.InDelta(t, 3500, dash.MonthToDate, 1e-9)
}

func TestServer_DashboardExpenses(t *testing.T) {
	srv, _ := newTestServer(t)
	today := time.Now().Format("2006-01-02")

	rec := doJSON(t, srv, http.MethodPost, "/api/invoices/purchases", map[string]any{
		"supplier":    "Proveedor SA",
		"description": "Materials",
		"amount":      "750",
		"date":        today,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/api/dashboard/expenses", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var dash dashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Equal(t, "expenses", dash.Kind)
	assert.Equal(t, 1, dash.Count)
	assert.InDelta(t, 750, dash.MonthToDate, 1e-9)
}

func TestServer_RecurringTemplates(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/recurring", map[string]any{
		"customer":    "ACME",
		"description": "Mensualidad",
		"amount":      "50000",
		"frequency":   "monthly",
		"nextRun":     "2024-07-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	bad := doJSON(t, srv, http.MethodPost, "/api/recurring", map[string]any{
		"customer":    "ACME",
		"description": "Mensualidad",
		"amount":      "50000",
		"frequency":   "biweekly",
		"nextRun":     "2024-07-01",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, bad.Code)

	list := doJSON(t, srv, http.MethodGet, "/api/recurring", nil)
	require.Equal(t, http.StatusOK, list.Code)
	var templates []templateResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &templates))
	require.Len(t, templates, 1)
	assert.Equal(t, "monthly", templates[0].Frequency)
	assert.Equal(t, "2024-07-01", templates[0].NextRun)
}

func TestServer_Payments(t *testing.T) {
	srv, _ := newTestServer(t)

	ok := doJSON(t, srv, http.MethodPost, "/api/payments/received", map[string]any{
		"salesInvoiceId": 1,
		"amount":         "25000",
		"date":           "2024-06-20",
	})
	assert.Equal(t, http.StatusCreated, ok.Code, ok.Body.String())

	bad := doJSON(t, srv, http.MethodPost, "/api/payments/supplier", map[string]any{
		"amount": "100",
		"date":   "2024-06-20",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, bad.Code)
}

func TestServer_RunPipeline(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/records/raw", map[string]any{
		"kind":        "income",
		"description": "Venta",
		"amount":      "100",
		"date":        "2024-06-15",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	run := doJSON(t, srv, http.MethodPost, "/api/pipeline/run", nil)
	require.Equal(t, http.StatusOK, run.Code, run.Body.String())

	var summary services.PipelineSummary
	require.NoError(t, json.Unmarshal(run.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.TotalRecords)
	assert.Equal(t, 1, summary.CleanRecords)

	cleaned := doJSON(t, srv, http.MethodGet, "/api/records/cleaned", nil)
	require.Equal(t, http.StatusOK, cleaned.Code)
	var records []cleanedRecordResponse
	require.NoError(t, json.Unmarshal(cleaned.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "pipeline", records[0].ValidatedBy)
}
