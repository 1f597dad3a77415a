package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"libros/internal/core"
)

const maxBodyBytes = 1 << 20

// Amounts travel as strings so clients can submit either "1234.56" or
// "1234,56"; both forms come through the same parser.
type (
	rawRecordPayload struct {
		Kind        string `json:"kind"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
		Date        string `json:"date"`
		Destination string `json:"destination"`
	}

	lineItemPayload struct {
		ProductID int64   `json:"productId"`
		Quantity  float64 `json:"quantity"`
	}

	salesInvoicePayload struct {
		Customer    string            `json:"customer"`
		Description string            `json:"description"`
		Amount      string            `json:"amount"`
		Date        string            `json:"date"`
		Items       []lineItemPayload `json:"items"`
	}

	purchaseInvoicePayload struct {
		Supplier    string            `json:"supplier"`
		Description string            `json:"description"`
		Amount      string            `json:"amount"`
		Date        string            `json:"date"`
		Items       []lineItemPayload `json:"items"`
	}

	productPayload struct {
		Name        string `json:"name"`
		SKU         string `json:"sku"`
		UnitPrice   string `json:"unitPrice"`
		Description string `json:"description"`
	}

	templatePayload struct {
		Customer    string `json:"customer"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
		Frequency   string `json:"frequency"`
		NextRun     string `json:"nextRun"`
	}

	paymentReceivedPayload struct {
		SalesInvoiceID int64  `json:"salesInvoiceId"`
		Amount         string `json:"amount"`
		Date           string `json:"date"`
	}

	supplierPaymentPayload struct {
		PurchaseInvoiceID int64  `json:"purchaseInvoiceId"`
		PurchaseOrderID   int64  `json:"purchaseOrderId"`
		Amount            string `json:"amount"`
		Date              string `json:"date"`
	}
)

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(dateStr string) (core.Date, error) {
	parsedTime, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(dateStr), time.Local)
	if err != nil {
		return core.Date{}, core.ErrInvalidDate
	}
	return core.Date{Time: parsedTime}, nil
}

// parseOptionalDate defaults to today when the field is omitted.
func parseOptionalDate(dateStr string) (core.Date, error) {
	if strings.TrimSpace(dateStr) == "" {
		now := time.Now()
		return core.NewDate(now.Year(), int(now.Month()), now.Day()), nil
	}
	return parseDate(dateStr)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
