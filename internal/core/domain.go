package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income        RecordKind = "income"
	Expense       RecordKind = "expense"
	PurchaseOrder RecordKind = "purchase_order"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

type (
	// RecordKind classifies a ledger record in the intake pipeline.
	RecordKind string

	// Frequency is the repetition cadence of a recurring invoice template.
	Frequency string

	Date struct {
		time.Time
	}

	// RawRecord is an operator-submitted entry before validation,
	// the landing table of the intake pipeline.
	RawRecord struct {
		ID          int64
		Kind        RecordKind
		Description string
		Amount      float64
		Date        Date
		CreatedAt   time.Time
		Destination string
	}

	// CleanedRecord is a validated record promoted by the pipeline.
	CleanedRecord struct {
		ID          int64
		Kind        RecordKind
		Description string
		Amount      float64
		Date        Date
		CreatedAt   time.Time
		ValidatedBy string
		Destination string
	}

	SalesInvoice struct {
		ID          int64
		Customer    string
		Description string
		Amount      float64
		Date        Date
		CreatedAt   time.Time
		RawID       int64 // originating raw record, 0 when entered directly
	}

	PurchaseInvoice struct {
		ID          int64
		Supplier    string
		Description string
		Amount      float64
		Date        Date
		CreatedAt   time.Time
		RawID       int64
	}

	// Product is a catalog entry selectable on invoice line items.
	Product struct {
		ID          int64
		Name        string
		SKU         string
		UnitPrice   float64
		Description string
		CreatedAt   time.Time
	}

	// RecurringTemplate generates a sales invoice every period.
	RecurringTemplate struct {
		ID          int64
		Customer    string
		Description string
		Amount      float64
		Frequency   Frequency
		NextRun     Date
	}

	PaymentReceived struct {
		ID             int64
		SalesInvoiceID int64
		Amount         float64
		Date           Date
	}

	// SupplierPayment settles either a purchase invoice or a purchase
	// order; at least one of the two references must be set.
	SupplierPayment struct {
		ID                int64
		PurchaseInvoiceID int64
		PurchaseOrderID   int64
		Amount            float64
		Date              Date
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid record kind")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyParty       = errors.New("empty customer or supplier")
	ErrPaymentTarget    = errors.New("payment must reference an invoice or an order")
)

// NewDate creates a Date from year, month, day at local midnight.
// Records carry a calendar date only, no time of day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ISO renders the date as YYYY-MM-DD, the wire and storage format.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

func (k RecordKind) Valid() bool {
	switch k {
	case Income, Expense, PurchaseOrder:
		return true
	default:
		return false
	}
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

func (r RawRecord) Validate() error {
	if !r.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(r.Description) == "" {
		return ErrEmptyDescription
	}
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	return r.Date.Validate()
}

func (i SalesInvoice) Validate() error {
	if strings.TrimSpace(i.Customer) == "" {
		return ErrEmptyParty
	}
	if strings.TrimSpace(i.Description) == "" {
		return ErrEmptyDescription
	}
	if i.Amount <= 0 {
		return ErrInvalidAmount
	}
	return i.Date.Validate()
}

func (i PurchaseInvoice) Validate() error {
	if strings.TrimSpace(i.Supplier) == "" {
		return ErrEmptyParty
	}
	if strings.TrimSpace(i.Description) == "" {
		return ErrEmptyDescription
	}
	if i.Amount <= 0 {
		return ErrInvalidAmount
	}
	return i.Date.Validate()
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyDescription
	}
	if p.UnitPrice < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t RecurringTemplate) Validate() error {
	if strings.TrimSpace(t.Customer) == "" {
		return ErrEmptyParty
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !t.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	return nil
}

func (p PaymentReceived) Validate() error {
	if p.SalesInvoiceID <= 0 {
		return ErrPaymentTarget
	}
	if p.Amount <= 0 {
		return ErrInvalidAmount
	}
	return p.Date.Validate()
}

func (p SupplierPayment) Validate() error {
	if p.PurchaseInvoiceID <= 0 && p.PurchaseOrderID <= 0 {
		return ErrPaymentTarget
	}
	if p.Amount <= 0 {
		return ErrInvalidAmount
	}
	return p.Date.Validate()
}
