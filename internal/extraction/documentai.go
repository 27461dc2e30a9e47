package extraction

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"

	"skontokit/internal/logger"
	"skontokit/internal/skonto"
	"skontokit/pkg/models"
)

// MaxDocumentSizeBytes is the maximum document size for synchronous
// Document AI processing (20MB).
const MaxDocumentSizeBytes = 20 * 1024 * 1024

// Config holds configuration for Google Document AI processing.
type Config struct {
	// ProjectID is the Google Cloud project ID where Document AI is enabled.
	ProjectID string

	// Location is the processing location (e.g., "us", "eu").
	Location string

	// ProcessorID is the Document AI invoice processor ID.
	ProcessorID string

	// ProcessorVersion pins a particular processor version. Optional.
	ProcessorVersion string

	// Timeout is the maximum time to wait for processing. Default: 60s.
	Timeout time.Duration
}

// Processor extracts the named-record result and the discount line from an
// invoice PDF using Google Document AI's invoice parser.
type Processor struct {
	client *documentai.DocumentProcessorClient
	config Config
	log    zerolog.Logger
}

// NewProcessor creates a processor with credentials from the environment.
// Expects GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS, plus
// GOOGLE_PROJECT_ID, GOOGLE_LOCATION and GOOGLE_PROCESSOR_ID.
func NewProcessor(ctx context.Context) (*Processor, error) {
	const op = "NewProcessor"

	config := Config{
		ProjectID:        getEnvVar("GOOGLE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"),
		Location:         getEnvVar("GOOGLE_LOCATION", "GOOGLE_CLOUD_LOCATION"),
		ProcessorID:      getEnvVar("GOOGLE_PROCESSOR_ID", "DOCUMENT_AI_PROCESSOR_ID"),
		ProcessorVersion: os.Getenv("DOCUMENT_AI_PROCESSOR_VERSION"),
		Timeout:          60 * time.Second,
	}

	if config.ProjectID == "" {
		return nil, wrapError(op, ErrInvalidConfiguration, "GOOGLE_PROJECT_ID or GOOGLE_CLOUD_PROJECT is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}

	var clientOptions []option.ClientOption
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, wrapError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, wrapError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return NewProcessorWithConfig(config, client), nil
}

// NewProcessorWithConfig creates a processor with explicit config and client (for testing).
func NewProcessorWithConfig(config Config, client *documentai.DocumentProcessorClient) *Processor {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &Processor{
		client: client,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}
}

// Process extracts the named-record result from an invoice PDF together
// with the discount line used to seed the calculation engine. The discount
// line is nil when the document carries no recognizable skonto offer.
func (p *Processor) Process(ctx context.Context, pdfData io.Reader) (*Result, *models.DiscountLine, error) {
	const op = "Process"

	pdfBytes, err := io.ReadAll(pdfData)
	if err != nil {
		return nil, nil, wrapError(op, err, "failed to read PDF data")
	}
	if len(pdfBytes) > MaxDocumentSizeBytes {
		return nil, nil, wrapError(op, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", len(pdfBytes)))
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return nil, nil, wrapError(op, ErrInvalidPDF, "missing PDF header")
	}

	processCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: p.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
	}

	resp, err := p.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, nil, p.mapProcessingError(op, err)
	}
	if resp.Document == nil {
		return nil, nil, wrapError(op, ErrProcessingFailed, "no document in response")
	}

	result, line := p.convertDocument(resp.Document)
	return result, line, nil
}

// convertDocument turns Document AI entities into the ordered named-record
// result plus, when a skonto offer is present, the discount line.
func (p *Processor) convertDocument(doc *documentaipb.Document) (*Result, *models.DiscountLine) {
	result := &Result{}
	line := models.DiscountLine{Currency: "EUR", PaymentMethod: "other"}
	var skontoFound bool
	var issueDate time.Time
	var paymentTermsText string

	for _, entity := range doc.Entities {
		value := strings.TrimSpace(entity.MentionText)

		p.log.Debug().
			Str("entity_type", entity.Type).
			Str("value", value).
			Float32("confidence", entity.Confidence).
			Msg("Processing Document AI entity")

		switch entity.Type {
		case "total_amount", "gross_amount":
			if cents, err := p.entityMoneyCents(entity); err == nil {
				line.FullAmountCents = cents
				result.Fields = append(result.Fields, Record{FieldAmountToPay, formatCents(cents)})
			} else {
				p.log.Warn().Err(err).Str("raw_value", value).Msg("Failed to extract total amount")
			}
		case "currency":
			if code := normalizeCurrency(value); code != "" {
				line.Currency = code
				result.Fields = append(result.Fields, Record{"currency", code})
			}
		case "invoice_date":
			if date, err := p.entityDate(entity); err == nil {
				issueDate = date
				result.Fields = append(result.Fields, Record{"invoiceDate", date.Format("2006-01-02")})
			}
		case "due_date":
			if date, err := p.entityDate(entity); err == nil {
				result.Fields = append(result.Fields, Record{"dueDate", date.Format("2006-01-02")})
			}
		case "invoice_id", "invoice_number":
			result.Fields = append(result.Fields, Record{"invoiceNumber", value})
		case "payment_terms":
			paymentTermsText = value
			result.Fields = append(result.Fields, Record{"paymentTerms", value})
		case "skonto", "early_payment_discount":
			// A custom processor version emits the discount as one entity
			// with properties for each condition.
			if group := p.convertSkontoGroup(entity, &line); len(group) > 0 {
				result.Skonto = group
				skontoFound = true
			}
		default:
			// Unrecognized entities pass through so collaborators lose nothing.
			result.Fields = append(result.Fields, Record{entity.Type, value})
		}
	}

	// The stock invoice parser has no skonto entity; fall back to scanning
	// the payment terms (or full document text) for an offer.
	if !skontoFound {
		text := paymentTermsText
		if text == "" {
			text = doc.Text
		}
		if detection, ok := skonto.DetectInText(text); ok && line.FullAmountCents > 0 {
			reference := issueDate
			if reference.IsZero() {
				reference = time.Now()
			}
			line = detection.DiscountLine(reference, line.FullAmountCents, line.Currency)
			result.Skonto = skontoRecords(line)
			skontoFound = true
			p.log.Info().
				Str("matched", detection.Matched).
				Msg("Skonto offer detected in document text")
		}
	}

	p.log.Info().
		Int("fields", len(result.Fields)).
		Bool("skonto_found", skontoFound).
		Int64("full_amount_cents", line.FullAmountCents).
		Str("currency", line.Currency).
		Msg("Document AI extraction completed")

	if !skontoFound {
		return result, nil
	}
	return result, &line
}

// convertSkontoGroup maps the properties of a skonto entity onto the nested
// discount group and fills the discount line along the way.
func (p *Processor) convertSkontoGroup(entity *documentaipb.Document_Entity, line *models.DiscountLine) []Record {
	var group []Record
	for _, prop := range entity.Properties {
		value := strings.TrimSpace(prop.MentionText)
		switch prop.Type {
		case "skonto_amount_to_pay", "amount_to_pay":
			if cents, err := p.entityMoneyCents(prop); err == nil {
				line.DiscountedAmountCents = cents
				group = append(group, Record{FieldSkontoAmountToPay, formatCents(cents)})
			}
		case "skonto_due_date", "due_date":
			if date, err := p.entityDate(prop); err == nil {
				line.DueDate = date
				line.RemainingDays = remainingDays(date)
				group = append(group, Record{FieldSkontoDueDate, date.Format("2006-01-02")})
				group = append(group, Record{FieldSkontoRemainingDays, strconv.Itoa(line.RemainingDays)})
			}
		case "skonto_percentage", "percentage":
			if pct, err := parsePercentValue(value); err == nil {
				line.Percentage = pct
				group = append(group, Record{FieldSkontoPercentage, value})
			}
		case "skonto_payment_method", "payment_method":
			line.PaymentMethod = strings.ToLower(value)
			group = append(group, Record{FieldSkontoPaymentMethod, strings.ToLower(value)})
		}
	}
	return group
}

// skontoRecords builds the nested discount group from a synthesized line.
func skontoRecords(line models.DiscountLine) []Record {
	return []Record{
		{FieldSkontoAmountToPay, formatCents(line.DiscountedAmountCents)},
		{FieldSkontoDueDate, line.DueDate.Format("2006-01-02")},
		{FieldSkontoPercentage, strconv.FormatFloat(line.Percentage, 'f', -1, 64) + "%"},
		{FieldSkontoRemainingDays, strconv.Itoa(line.RemainingDays)},
	}
}

func (p *Processor) processorName() string {
	if p.config.ProcessorID != "" {
		if p.config.ProcessorVersion != "" {
			return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
				p.config.ProjectID, p.config.Location, p.config.ProcessorID, p.config.ProcessorVersion)
		}
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
			p.config.ProjectID, p.config.Location, p.config.ProcessorID)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		p.config.ProjectID, p.config.Location, "default-invoice-processor")
}

// mapProcessingError converts Document AI errors to extraction errors.
func (p *Processor) mapProcessingError(op string, err error) error {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return wrapError(op, ErrMissingCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "QUOTA_EXCEEDED"):
		return wrapError(op, ErrQuotaExceeded, "Document AI API quota exceeded")
	case strings.Contains(errStr, "NOT_FOUND"):
		return wrapError(op, ErrProcessorNotFound, fmt.Sprintf("processor not found: %s", p.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return wrapError(op, ErrInvalidPDF, "document format not supported or corrupted")
	case strings.Contains(errStr, "context deadline exceeded"):
		return wrapError(op, context.DeadlineExceeded, "processing timeout")
	default:
		return wrapError(op, ErrProcessingFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// entityMoneyCents extracts a monetary entity value as cents, preferring
// the normalized value over the mention text.
func (p *Processor) entityMoneyCents(entity *documentaipb.Document_Entity) (int64, error) {
	if entity.NormalizedValue != nil {
		if moneyValue := entity.NormalizedValue.GetMoneyValue(); moneyValue != nil {
			return moneyValue.Units*100 + int64(moneyValue.Nanos)/10000000, nil
		}
	}
	return ParseAmountCents(entity.MentionText)
}

// entityDate extracts a date entity value, preferring the normalized value.
func (p *Processor) entityDate(entity *documentaipb.Document_Entity) (time.Time, error) {
	if entity.NormalizedValue != nil {
		if dateValue := entity.NormalizedValue.GetDateValue(); dateValue != nil {
			return time.Date(
				int(dateValue.Year), time.Month(dateValue.Month), int(dateValue.Day),
				0, 0, 0, 0, time.UTC,
			), nil
		}
	}
	dateStr := strings.TrimSpace(entity.MentionText)
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("empty date value")
	}
	formats := []string{
		"2006-01-02",
		"02.01.2006",
		"01/02/2006",
		"2006/01/02",
		"02-01-2006",
		"January 2, 2006",
		"2 January 2006",
	}
	for _, format := range formats {
		if date, err := time.Parse(format, dateStr); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// ParseAmountCents parses an amount string handling both German (7.303,08)
// and English (7,303.08) formats, returning cents.
func ParseAmountCents(amountStr string) (int64, error) {
	cleaned := strings.TrimSpace(amountStr)
	for _, junk := range []string{" ", " ", "€", "$", "EUR", "USD"} {
		cleaned = strings.ReplaceAll(cleaned, junk, "")
	}
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount value")
	}

	if strings.Contains(cleaned, ",") {
		if strings.Contains(cleaned, ".") {
			// Both separators: assume German format, dots are thousands.
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			parts := strings.Split(cleaned, ",")
			if len(parts) == 2 && len(parts[1]) <= 2 {
				// Comma is the decimal separator ("1234,50").
				cleaned = strings.Replace(cleaned, ",", ".", 1)
			} else {
				// Comma is a thousands separator ("7,303").
				cleaned = strings.ReplaceAll(cleaned, ",", "")
			}
		}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("unable to parse amount: %s (cleaned: %s)", amountStr, cleaned)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

func parsePercentValue(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("unable to parse percentage: %s", s)
	}
	f, _ := d.Float64()
	return f, nil
}

func formatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func remainingDays(due time.Time) int {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	return int(dueDay.Sub(today).Hours() / 24)
}

// normalizeCurrency standardizes currency designations to ISO codes.
func normalizeCurrency(currency string) string {
	normalized := strings.ToUpper(strings.TrimSpace(currency))
	switch normalized {
	case "€", "EURO", "EUROS", "EUR":
		return "EUR"
	case "$", "DOLLAR", "DOLLARS", "USD", "US$":
		return "USD"
	case "£", "POUND", "POUNDS", "GBP":
		return "GBP"
	case "CHF", "FRANKEN":
		return "CHF"
	default:
		if len(normalized) == 3 {
			return normalized
		}
		return ""
	}
}

// getEnvVar tries multiple environment variable names and returns the first
// non-empty value.
func getEnvVar(names ...string) string {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}

// Close closes the underlying Document AI client.
func (p *Processor) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
