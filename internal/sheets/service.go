// Package sheets appends confirmed discount decisions to a Google Sheet so
// accounting has an audit trail of which invoices were paid with skonto.
package sheets

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"skontokit/internal/logger"
	"skontokit/pkg/models"
)

// DefaultWorksheet is the sheet tab decisions are appended to when the
// configuration names none.
const DefaultWorksheet = "Skonto_Decisions"

// Service implements services.DecisionExporter on top of the Sheets API.
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	worksheet     string
	log           zerolog.Logger
}

// NewService creates a Google Sheets exporter. The sheet is identified by
// its full URL; credentials come from GOOGLE_APPLICATION_CREDENTIALS or
// GOOGLE_CREDENTIALS.
func NewService(ctx context.Context, sheetURL, worksheet string) (*Service, error) {
	const op = "NewService"

	log := logger.WithComponent("sheets")

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}
	if worksheet == "" {
		worksheet = DefaultWorksheet
	}

	var creds []byte
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else {
		return nil, fmt.Errorf("%s: neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set", op)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	client := config.Client(ctx)
	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
		log:           log,
	}, nil
}

// extractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
func extractSpreadsheetID(url string) (string, error) {
	re := regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	matches := re.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL format")
	}
	return matches[1], nil
}

// Header returns the column headers of the decision sheet, in append order.
func Header() []string {
	return []string{
		"Decided At", "Reference", "Currency",
		"Full Amount", "Discounted Amount", "Final Amount", "Savings",
		"Percentage", "Due Date", "Remaining Days",
		"Payment Method", "Edge Case", "Applied",
	}
}

// DecisionRow converts a decision into the sheet's cell values, matching
// Header() column for column.
func DecisionRow(d models.Decision) []interface{} {
	return []interface{}{
		d.DecidedAt.Format(time.RFC3339),
		d.Reference,
		d.Currency,
		float64(d.FullAmountCents) / 100,
		float64(d.DiscountedAmountCents) / 100,
		float64(d.FinalAmountCents) / 100,
		float64(d.SavingsCents) / 100,
		d.Percentage,
		d.DueDate.Format("2006-01-02"),
		d.RemainingDays,
		d.PaymentMethod,
		d.EdgeCase,
		d.IsApplied,
	}
}

// ExportDecision appends one confirmed decision to the sheet, creating the
// worksheet with headers on first use.
func (s *Service) ExportDecision(ctx context.Context, decision models.Decision) error {
	const op = "ExportDecision"

	s.log.Info().
		Str("sheet", s.worksheet).
		Str("reference", decision.Reference).
		Bool("applied", decision.IsApplied).
		Msg("Appending discount decision to Google Sheet")

	if err := s.ensureWorksheet(ctx); err != nil {
		return fmt.Errorf("%s: failed to ensure worksheet exists: %w", op, err)
	}

	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{DecisionRow(decision)},
	}

	_, err := s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		s.worksheet+"!A:M",
		valueRange,
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to append values to sheet: %w", op, err)
	}

	s.log.Info().
		Str("sheet", s.worksheet).
		Msg("Decision exported")
	return nil
}

// ensureWorksheet creates the worksheet with its header row if missing.
func (s *Service) ensureWorksheet(ctx context.Context) error {
	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == s.worksheet {
			return nil
		}
	}

	s.log.Debug().
		Str("sheet", s.worksheet).
		Msg("Worksheet missing, creating with headers")

	_, err = s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: s.worksheet},
				},
			},
		},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to add worksheet: %w", err)
	}

	header := make([]interface{}, len(Header()))
	for i, h := range Header() {
		header[i] = h
	}
	_, err = s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		s.worksheet+"!A1",
		&sheets.ValueRange{Values: [][]interface{}{header}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}
	return nil
}
