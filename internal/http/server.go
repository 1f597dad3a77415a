// Package http exposes the JSON API for records, invoices, the product
// catalog, recurring templates and the dashboard.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"libros/internal/analytics"
	"libros/internal/cache"
	"libros/internal/ledger"
	"libros/internal/services"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// Server wires the HTTP routes to the stores and services.
type Server struct {
	http.Server

	store    ledger.Store
	invoices *services.InvoiceService
	pipeline *services.PipelineService

	windowMonths int
	rateLimiter  *rateLimiter

	// Loaders back the dashboard endpoints; one entry per record kind,
	// invalidated whenever an invoice is written.
	salesLoader     *cache.Loader[[]analytics.Record]
	purchasesLoader *cache.Loader[[]analytics.Record]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// Options configures a Server beyond its mandatory dependencies.
type Options struct {
	WindowMonths      int
	DashboardCacheTTL time.Duration
}

// NewServer configures routes and returns a ready-to-run http.Server.
func NewServer(addr string, store ledger.Store, invoices *services.InvoiceService, pipeline *services.PipelineService, opts Options) *Server {
	if opts.WindowMonths < 1 {
		opts.WindowMonths = analytics.DefaultWindowMonths
	}
	if opts.DashboardCacheTTL <= 0 {
		opts.DashboardCacheTTL = 5 * time.Minute
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
		store:            store,
		invoices:         invoices,
		pipeline:         pipeline,
		windowMonths:     opts.WindowMonths,
		rateLimiter:      newRateLimiter(),
		stopCacheCleanup: make(chan struct{}),
	}

	dashCache := cache.NewLRU[[]analytics.Record](8, opts.DashboardCacheTTL)
	s.salesLoader = cache.NewLoader(dashCache, s.fetchSalesRecords)
	s.purchasesLoader = cache.NewLoader(dashCache, s.fetchPurchaseRecords)

	go s.startCacheCleanup(dashCache)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/records/raw", s.withMiddleware(s.handleCreateRawRecord))
	mux.HandleFunc("GET /api/records/raw", s.withMiddleware(s.handleListRawRecords))
	mux.HandleFunc("GET /api/records/cleaned", s.withMiddleware(s.handleListCleanedRecords))
	mux.HandleFunc("POST /api/pipeline/run", s.withMiddleware(s.handleRunPipeline))

	mux.HandleFunc("GET /api/invoices/sales", s.withMiddleware(s.handleListSalesInvoices))
	mux.HandleFunc("POST /api/invoices/sales", s.withMiddleware(s.handleCreateSalesInvoice))
	mux.HandleFunc("DELETE /api/invoices/sales/{id}", s.withMiddleware(s.handleDeleteSalesInvoice))
	mux.HandleFunc("GET /api/invoices/purchases", s.withMiddleware(s.handleListPurchaseInvoices))
	mux.HandleFunc("POST /api/invoices/purchases", s.withMiddleware(s.handleCreatePurchaseInvoice))

	mux.HandleFunc("POST /api/payments/received", s.withMiddleware(s.handleAddPaymentReceived))
	mux.HandleFunc("POST /api/payments/supplier", s.withMiddleware(s.handleAddSupplierPayment))

	mux.HandleFunc("GET /api/products", s.withMiddleware(s.handleListProducts))
	mux.HandleFunc("POST /api/products", s.withMiddleware(s.handleCreateProduct))

	mux.HandleFunc("GET /api/recurring", s.withMiddleware(s.handleListTemplates))
	mux.HandleFunc("POST /api/recurring", s.withMiddleware(s.handleCreateTemplate))

	mux.HandleFunc("GET /api/dashboard/income", s.withMiddleware(s.handleDashboardIncome))
	mux.HandleFunc("GET /api/dashboard/expenses", s.withMiddleware(s.handleDashboardExpenses))

	return s
}

// withMiddleware adds security headers, rate limiting and request
// logging to a handler.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", requestID)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) startCacheCleanup(c *cache.LRU[[]analytics.Record]) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := c.CleanExpired(); removed > 0 {
				slog.Debug("Dashboard cache cleanup completed", "entries_removed", removed)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the background cleanup goroutines before shutting
// down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
