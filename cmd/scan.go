package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"skontokit/internal/extraction"
	"skontokit/internal/logger"
	"skontokit/internal/ocr"
	"skontokit/internal/skonto"
)

var scanCmd = &cobra.Command{
	Use:   "scan [pdf-file]",
	Short: "Scan a PDF's text for early-payment discount offers via OCR",
	Long: `Extract the text of a PDF invoice with Google Cloud Vision OCR and scan
it for early-payment discount offers such as "3% Skonto innerhalb von
14 Tagen" or "2% discount within 10 days".

Unlike extract, this command does not need a Document AI processor; a
plain Vision API credential is enough. Pass --full to also compute the
discounted terms from the detected offer.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string`,
	Example: `  # Detect a discount offer in an invoice
  skonto scan invoice.pdf

  # Also compute the discounted amounts for a 142.50 EUR invoice
  skonto scan invoice.pdf --full 142.50`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

// scanOutput is the JSON output of the scan command.
type scanOutput struct {
	SkontoFound bool         `json:"skonto_found"`
	Matched     string       `json:"matched,omitempty"`
	Terms       *termsOutput `json:"terms,omitempty"`
	Metadata    scanMetadata `json:"metadata"`
}

type scanMetadata struct {
	FileName           string        `json:"file_name"`
	PageCount          int           `json:"page_count"`
	TextLength         int           `json:"text_length"`
	Confidence         float32       `json:"confidence"`
	ProcessedAt        time.Time     `json:"processed_at"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().String("full", "", "Full invoice amount used to compute the discounted terms")
	scanCmd.Flags().String("currency", "EUR", "ISO currency code of the invoice")
	scanCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	scanCmd.Flags().Int("timeout", 60, "Processing timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("scan")

	fullStr, _ := cmd.Flags().GetString("full")
	currency, _ := cmd.Flags().GetString("currency")
	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	pdfPath := args[0]

	log.Info().
		Str("file", pdfPath).
		Int("timeout", timeoutSecs).
		Msg("Starting OCR discount scan")

	fileInfo, err := validatePDF(pdfPath, log)
	if err != nil {
		return err
	}

	ctx, cancel := createProcessingContext(timeoutSecs, log)
	defer cancel()

	ocrService, err := ocr.NewGoogleVisionService(ctx)
	if err != nil {
		if errors.Is(err, ocr.ErrMissingCredentials) {
			log.Error().Err(err).Msg("Google Cloud credentials not configured")
			return fmt.Errorf("missing Google Cloud credentials. Please set one of:\n"+
				"  GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n"+
				"  GOOGLE_CREDENTIALS='<json-credentials>'\n"+
				"Original error: %w", err)
		}
		return fmt.Errorf("failed to create OCR service: %w", err)
	}

	pdfFile, err := os.Open(pdfPath)
	if err != nil {
		log.Error().
			Err(err).
			Str("file", pdfPath).
			Msg("Failed to open PDF file")
		return fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer func() {
		if closeErr := pdfFile.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close PDF file")
		}
	}()

	textResult, err := ocrService.ExtractTextWithMetadata(ctx, pdfFile)
	if err != nil {
		return handleScanError(err, log)
	}

	output := scanOutput{
		Metadata: scanMetadata{
			FileName:           fileInfo.Name(),
			PageCount:          textResult.PageCount,
			TextLength:         len(textResult.Text),
			Confidence:         textResult.Confidence,
			ProcessedAt:        textResult.ProcessedAt,
			ProcessingDuration: textResult.ProcessingDuration,
		},
	}

	detection, found := skonto.DetectInText(textResult.Text)
	if !found {
		log.Info().Msg("No early-payment discount offer found in document text")
		return outputJSON(output, outputPath, log)
	}

	output.SkontoFound = true
	output.Matched = detection.Matched

	log.Info().
		Str("matched", detection.Matched).
		Msg("Discount offer detected")

	if fullStr != "" {
		fullCents, err := extraction.ParseAmountCents(fullStr)
		if err != nil {
			return fmt.Errorf("invalid --full amount %q: %w", fullStr, err)
		}
		line := detection.DiscountLine(time.Now(), fullCents, currency)
		engine, err := createEngine(line, log)
		if err != nil {
			return err
		}
		terms := convertTerms(engine.Terms())
		output.Terms = &terms
	}

	return outputJSON(output, outputPath, log)
}

// handleScanError provides user-friendly error messages for OCR failures.
func handleScanError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR scan failed")

	switch {
	case errors.Is(err, ocr.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity")
	case errors.Is(err, ocr.ErrPDFTooLarge):
		return fmt.Errorf("PDF file is too large (maximum 20MB). Try compressing or splitting the file")
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("PDF has too many pages (maximum 5 pages for synchronous OCR)")
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("document contains no readable text")
	default:
		return fmt.Errorf("OCR scan failed: %w", err)
	}
}
