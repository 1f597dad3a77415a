// Package export pushes synced invoices to the external ledger the
// accountant works from.
package export

import "context"

// Row is one exported ledger line.
type Row struct {
	Kind        string // "sales" or "purchase"
	ID          int64
	Party       string // customer or supplier
	Description string
	Amount      float64
	Date        string // YYYY-MM-DD
}

// LedgerExporter appends rows to the export target.
type LedgerExporter interface {
	AppendRow(ctx context.Context, row Row) error
}
