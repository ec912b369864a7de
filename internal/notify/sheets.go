package notify

import (
	"context"
	"fmt"
	"os"

	"parkdesk/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const defaultLedgerRange = "Payments!A:G"

// SheetsLedger appends one row per completed payment to a spreadsheet.
type SheetsLedger struct {
	service       *sheets.Service
	spreadsheetID string
	writeRange    string
}

// NewSheetsLedger authenticates with a service account key file.
func NewSheetsLedger(ctx context.Context, credentialsFile, spreadsheetID, writeRange string) (*SheetsLedger, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return NewSheetsLedgerWithService(srv, spreadsheetID, writeRange), nil
}

func NewSheetsLedgerWithService(srv *sheets.Service, spreadsheetID, writeRange string) *SheetsLedger {
	if writeRange == "" {
		writeRange = defaultLedgerRange
	}
	return &SheetsLedger{service: srv, spreadsheetID: spreadsheetID, writeRange: writeRange}
}

func (l *SheetsLedger) Name() string { return "sheets" }

func ledgerRow(n models.PaymentNotice) []any {
	return []any{
		n.PaidAt.Format("2006-01-02 15:04:05"),
		n.Reference,
		n.BookingID,
		n.PaymentID,
		n.DueAmount.Dollars(),
		n.PaidAmount.Dollars(),
		n.PaidBy,
	}
}

func (l *SheetsLedger) NotifyPayment(ctx context.Context, notice models.PaymentNotice) error {
	vr := &sheets.ValueRange{Values: [][]any{ledgerRow(notice)}}
	_, err := l.service.Spreadsheets.Values.Append(l.spreadsheetID, l.writeRange, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}
	return nil
}
