package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// GoogleSheets appends ledger rows to a spreadsheet using a service
// account.
type GoogleSheets struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
}

var _ LedgerExporter = (*GoogleSheets)(nil)

// NewGoogleSheets creates a Sheets exporter. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or the
// standard GOOGLE_APPLICATION_CREDENTIALS.
func NewGoogleSheets(ctx context.Context, spreadsheetID, sheetName string) (*GoogleSheets, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Ledger"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &GoogleSheets{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*sheets.Service, error) {
	credsJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	credsFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if credsJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	switch {
	case credsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(credsJSON)))
	case credsFile != "":
		opts = append(opts, option.WithCredentialsFile(credsFile))
	default:
		return nil, errors.New("no service account credentials configured")
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("new sheets service: %w", err)
	}
	return svc, nil
}

// AppendRow implements LedgerExporter. Amounts are written as plain
// numbers so spreadsheet formulas keep working.
func (g *GoogleSheets) AppendRow(ctx context.Context, row Row) error {
	values := &sheets.ValueRange{
		Values: [][]any{{
			row.Date,
			row.Kind,
			strconv.FormatInt(row.ID, 10),
			row.Party,
			row.Description,
			row.Amount,
		}},
	}

	rng := fmt.Sprintf("%s!A:F", g.sheetName)
	_, err := g.svc.Spreadsheets.Values.
		Append(g.spreadsheetID, rng, values).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", g.sheetName, err)
	}
	return nil
}
