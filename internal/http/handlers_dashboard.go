package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"libros/internal/analytics"
	"libros/internal/cache"
)

const (
	cacheKeySales     = "sales"
	cacheKeyPurchases = "purchases"
)

// dashboardResponse carries the headline numbers and the monthly series
// for one record kind. Amounts appear both raw and formatted so clients
// can chart and display without reimplementing the currency rules.
type dashboardResponse struct {
	Kind                  string                  `json:"kind"`
	Count                 int                     `json:"count"`
	MonthToDate           float64                 `json:"monthToDate"`
	MonthToDateDisplay    string                  `json:"monthToDateDisplay"`
	TrailingThirtyDays    float64                 `json:"trailingThirtyDays"`
	TrailingThirtyDisplay string                  `json:"trailingThirtyDaysDisplay"`
	AverageAmount         float64                 `json:"averageAmount"`
	AverageAmountDisplay  string                  `json:"averageAmountDisplay"`
	Series                []analytics.MonthBucket `json:"series"`
}

func (s *Server) handleDashboardIncome(w http.ResponseWriter, r *http.Request) {
	s.serveDashboard(w, r, "income", s.salesLoader, cacheKeySales)
}

func (s *Server) handleDashboardExpenses(w http.ResponseWriter, r *http.Request) {
	s.serveDashboard(w, r, "expenses", s.purchasesLoader, cacheKeyPurchases)
}

func (s *Server) serveDashboard(w http.ResponseWriter, r *http.Request, kind string, loader *cache.Loader[[]analytics.Record], key string) {
	ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
	defer cancel()

	records, err := loader.GetOrFetch(ctx, key)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load dashboard records", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard data")
		return
	}

	now := time.Now()
	series, err := analytics.AggregateByMonth(records, now, s.windowMonths)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to aggregate dashboard series", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build dashboard series")
		return
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	monthToDate := analytics.SumSince(records, monthStart)
	trailing := analytics.SumSince(records, now.AddDate(0, 0, -30))
	average := analytics.Average(records)

	writeJSON(w, http.StatusOK, dashboardResponse{
		Kind:                  kind,
		Count:                 len(records),
		MonthToDate:           monthToDate,
		MonthToDateDisplay:    analytics.FormatCurrency(monthToDate),
		TrailingThirtyDays:    trailing,
		TrailingThirtyDisplay: analytics.FormatCurrency(trailing),
		AverageAmount:         average,
		AverageAmountDisplay:  analytics.FormatCurrency(average),
		Series:                series,
	})
}

func (s *Server) fetchSalesRecords(ctx context.Context, _ string) ([]analytics.Record, error) {
	invoices, err := s.store.ListSalesInvoices(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]analytics.Record, 0, len(invoices))
	for _, inv := range invoices {
		records = append(records, analytics.Record{Date: inv.Date.ISO(), Amount: inv.Amount})
	}
	return records, nil
}

func (s *Server) fetchPurchaseRecords(ctx context.Context, _ string) ([]analytics.Record, error) {
	invoices, err := s.store.ListPurchaseInvoices(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]analytics.Record, 0, len(invoices))
	for _, inv := range invoices {
		records = append(records, analytics.Record{Date: inv.Date.ISO(), Amount: inv.Amount})
	}
	return records, nil
}
