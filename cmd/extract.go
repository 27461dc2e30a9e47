package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"skontokit/internal/config"
	"skontokit/internal/extraction"
	"skontokit/internal/logger"
	"skontokit/internal/ocr"
	"skontokit/internal/sheets"
	"skontokit/internal/skonto"
	"skontokit/pkg/models"
	"skontokit/pkg/services"
)

var extractCmd = &cobra.Command{
	Use:   "extract [pdf-file]",
	Short: "Extract early-payment discount terms from a PDF invoice",
	Long: `Process a PDF invoice with Google Document AI, seed the discount engine
with the extracted terms and print the extraction result with the
recognized fields rewritten from the engine's calculated values.

When the invoice parser finds no structured skonto entity, the payment
terms text is scanned for discount offers like "3% Skonto innerhalb von
14 Tagen". With --complete, offers the scanner cannot read are handed to
an OpenAI chat completion as a last resort.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Your Google Cloud project ID
  GOOGLE_CLOUD_LOCATION - Processing location (us, eu, etc.)
  DOCUMENT_AI_PROCESSOR_ID - Your Document AI invoice processor ID`,
	Example: `  # Extract discount terms to stdout (JSON format)
  skonto extract invoice.pdf

  # Save the merged extraction to a JSON file
  skonto extract invoice.pdf -o extraction.json

  # Fill gaps with an OpenAI completion when the scanner comes up short
  skonto extract invoice.pdf --complete

  # Append the resulting payment decision to the audit sheet
  skonto extract invoice.pdf --export`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// extractOutput is the JSON output of the extract command: the merged
// extraction result, the engine state it was merged from, and processing
// metadata.
type extractOutput struct {
	Extraction extraction.Result  `json:"extraction"`
	Terms      *termsOutput       `json:"terms,omitempty"`
	Metadata   extractionMetadata `json:"metadata"`
}

type extractionMetadata struct {
	FileName           string        `json:"file_name"`
	FileSize           int64         `json:"file_size_bytes"`
	ProcessedAt        time.Time     `json:"processed_at"`
	ProcessingDuration time.Duration `json:"processing_duration"`
	ProcessorUsed      string        `json:"processor_used"`
	SkontoFound        bool          `json:"skonto_found"`
	CompletionUsed     bool          `json:"completion_used,omitempty"`
	Exported           bool          `json:"exported,omitempty"`
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
	extractCmd.Flags().Bool("complete", false, "Use an OpenAI completion to fill missing discount terms")
	extractCmd.Flags().Bool("export", false, "Append the payment decision to the configured Google Sheet")
	extractCmd.Flags().String("reference", "", "Reference recorded with the exported decision (default: file name)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	useCompletion, _ := cmd.Flags().GetBool("complete")
	doExport, _ := cmd.Flags().GetBool("export")
	reference, _ := cmd.Flags().GetString("reference")

	pdfPath := args[0]
	if reference == "" {
		reference = filepath.Base(pdfPath)
	}

	log.Info().
		Str("file", pdfPath).
		Str("output", outputPath).
		Bool("complete", useCompletion).
		Bool("export", doExport).
		Int("timeout", timeoutSecs).
		Msg("Starting discount extraction")

	fileInfo, err := validatePDF(pdfPath, log)
	if err != nil {
		return err
	}

	ctx, cancel := createProcessingContext(timeoutSecs, log)
	defer cancel()

	processor, err := createProcessor(ctx, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := processor.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close Document AI client")
		}
	}()

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

	startTime := time.Now()
	result, line, err := processor.Process(ctx, pdfFile)
	if err != nil {
		return handleExtractionError(err, log)
	}

	completionUsed := false
	if line == nil && useCompletion {
		line, err = completeFromText(ctx, pdfPath, result, log)
		if err != nil {
			log.Warn().Err(err).Msg("Completion fallback failed, continuing without skonto terms")
		} else {
			completionUsed = true
		}
	}

	output := extractOutput{
		Extraction: *result,
		Metadata: extractionMetadata{
			FileName:           filepath.Base(fileInfo.Name()),
			FileSize:           fileInfo.Size(),
			ProcessedAt:        time.Now(),
			ProcessingDuration: time.Since(startTime),
			ProcessorUsed:      "Google Document AI Invoice Parser",
			SkontoFound:        line != nil,
			CompletionUsed:     completionUsed,
		},
	}

	if line != nil {
		engine, err := createEngine(*line, log)
		if err != nil {
			return err
		}

		terms := convertTerms(engine.Terms())
		output.Terms = &terms
		output.Extraction = extraction.Merge(engine.Terms(), *result)

		log.Info().
			Str("final_amount", engine.FinalAmount().Format()).
			Str("savings", engine.Savings().Format()).
			Str("edge_case", engine.Terms().EdgeCase.String()).
			Msg("Discount extraction completed")

		if doExport {
			if err := exportDecision(ctx, engine.Decision(reference), log); err != nil {
				return err
			}
			output.Metadata.Exported = true
		}
	} else {
		log.Info().Msg("No early-payment discount found in document")
	}

	return outputJSON(output, outputPath, log)
}

// validatePDF validates the PDF file before processing.
func validatePDF(pdfPath string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(pdfPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", pdfPath).
				Msg("PDF file not found")
			return nil, fmt.Errorf("PDF file not found: %s", pdfPath)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", pdfPath).
				Msg("Permission denied accessing PDF file")
			return nil, fmt.Errorf("permission denied accessing PDF file: %s", pdfPath)
		}
		return nil, fmt.Errorf("error accessing PDF file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		log.Error().
			Str("file", pdfPath).
			Msg("Path is not a regular file")
		return nil, fmt.Errorf("path is not a regular file: %s", pdfPath)
	}

	if !strings.HasSuffix(strings.ToLower(pdfPath), ".pdf") {
		log.Warn().
			Str("file", pdfPath).
			Msg("File does not have .pdf extension")
	}

	if fileInfo.Size() == 0 {
		log.Error().
			Str("file", pdfPath).
			Msg("PDF file is empty")
		return nil, fmt.Errorf("PDF file is empty: %s", pdfPath)
	}

	if fileInfo.Size() > extraction.MaxDocumentSizeBytes {
		log.Error().
			Str("file", pdfPath).
			Int64("size", fileInfo.Size()).
			Int64("max_size", extraction.MaxDocumentSizeBytes).
			Msg("PDF file exceeds maximum size limit")
		return nil, fmt.Errorf("PDF file too large (%d bytes). Maximum size is %d bytes (20MB)",
			fileInfo.Size(), extraction.MaxDocumentSizeBytes)
	}

	return fileInfo, nil
}

// createProcessingContext creates a context with timeout and signal handling.
func createProcessingContext(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling processing")
			cancel()
		case <-ctx.Done():
			// Context completed normally
		}
	}()

	return ctx, cancel
}

// createProcessor creates and configures the Document AI processor.
func createProcessor(ctx context.Context, log zerolog.Logger) (*extraction.Processor, error) {
	processor, err := extraction.NewProcessor(ctx)
	if err != nil {
		if errors.Is(err, extraction.ErrMissingCredentials) {
			log.Error().
				Err(err).
				Msg("Google Cloud credentials not configured")
			return nil, fmt.Errorf("missing Google Cloud credentials. Please set one of:\n"+
				"  GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n"+
				"  GOOGLE_CREDENTIALS='<json-credentials>'\n"+
				"Also ensure these are set:\n"+
				"  GOOGLE_CLOUD_PROJECT=your-project-id\n"+
				"  GOOGLE_CLOUD_LOCATION=eu (or us)\n"+
				"  DOCUMENT_AI_PROCESSOR_ID=your-processor-id\n"+
				"Original error: %w", err)
		}
		if errors.Is(err, extraction.ErrInvalidConfiguration) {
			log.Error().
				Err(err).
				Msg("Document AI configuration invalid")
			return nil, fmt.Errorf("invalid Document AI configuration. Please check your .env file:\n"+
				"  GOOGLE_CLOUD_PROJECT - your Google Cloud project ID\n"+
				"  GOOGLE_CLOUD_LOCATION - processing location (us, eu, etc.)\n"+
				"  DOCUMENT_AI_PROCESSOR_ID - your Document AI processor ID\n"+
				"Original error: %w", err)
		}
		log.Error().
			Err(err).
			Msg("Failed to create Document AI processor")
		return nil, fmt.Errorf("failed to create Document AI processor: %w", err)
	}

	log.Debug().Msg("Document AI processor created successfully")
	return processor, nil
}

// createEngine seeds a discount engine from the extracted line, honoring the
// configured amount ceiling.
func createEngine(line models.DiscountLine, log zerolog.Logger) (*skonto.Engine, error) {
	opts := []skonto.Option{}
	if cfg, err := config.Load(); err == nil {
		if maxFull, err := cfg.MaxFullAmount(); err == nil && maxFull.Currency() == line.Currency {
			opts = append(opts, skonto.WithMaxFullAmount(maxFull))
		}
	}

	engine, err := skonto.NewEngine(line, opts...)
	if err != nil {
		log.Error().Err(err).Msg("Failed to construct discount engine from extraction")
		return nil, fmt.Errorf("failed to construct discount engine: %w", err)
	}
	return engine, nil
}

// completeFromText OCRs the invoice and asks the completion service for the
// discount terms the structured extraction missed.
func completeFromText(ctx context.Context, pdfPath string, result *extraction.Result, log zerolog.Logger) (*models.DiscountLine, error) {
	completionService, err := extraction.NewCompletionService()
	if err != nil {
		return nil, fmt.Errorf("failed to create completion service: %w", err)
	}

	// Prefer the extracted payment terms; OCR the whole document only when
	// the parser did not surface them.
	text, ok := extraction.Get(result.Fields, "paymentTerms")
	if !ok {
		text, err = ocrDocumentText(ctx, pdfPath, log)
		if err != nil {
			return nil, err
		}
	}

	partial := models.DiscountLine{Currency: "EUR"}
	if amount, ok := extraction.Get(result.Fields, extraction.FieldAmountToPay); ok {
		if cents, err := extraction.ParseAmountCents(amount); err == nil {
			partial.FullAmountCents = cents
		}
	}
	if currency, ok := extraction.Get(result.Fields, "currency"); ok {
		partial.Currency = currency
	}

	line, err := completionService.CompleteSkonto(ctx, text, partial)
	if err != nil {
		return nil, err
	}

	log.Info().
		Float64("percentage", line.Percentage).
		Str("due_date", line.DueDate.Format("2006-01-02")).
		Msg("Discount terms completed via OpenAI")
	return &line, nil
}

// ocrDocumentText extracts the full document text with Vision OCR.
func ocrDocumentText(ctx context.Context, pdfPath string, log zerolog.Logger) (string, error) {
	ocrService, err := ocr.NewGoogleVisionService(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create OCR service: %w", err)
	}

	pdfFile, err := os.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer func() {
		if closeErr := pdfFile.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close PDF file")
		}
	}()

	text, err := ocrService.ExtractText(ctx, pdfFile)
	if err != nil {
		return "", fmt.Errorf("OCR text extraction failed: %w", err)
	}
	return text, nil
}

// exportDecision appends the payment decision to the configured Google Sheet.
func exportDecision(ctx context.Context, decision models.Decision, log zerolog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL is required for --export")
	}

	var exporter services.DecisionExporter
	exporter, err = sheets.NewService(ctx, cfg.GoogleSheetURL, cfg.GoogleSheetWorksheet)
	if err != nil {
		return fmt.Errorf("failed to create sheets exporter: %w", err)
	}

	if err := exporter.ExportDecision(ctx, decision); err != nil {
		log.Error().Err(err).Msg("Failed to export decision")
		return fmt.Errorf("failed to export decision: %w", err)
	}
	return nil
}

// handleExtractionError provides user-friendly error messages for extraction failures.
func handleExtractionError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Discount extraction failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("processing timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("processing was canceled")
	case errors.Is(err, extraction.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity")
	case errors.Is(err, extraction.ErrDocumentTooLarge):
		return fmt.Errorf("PDF file is too large (maximum 20MB). Try compressing or splitting the file")
	case errors.Is(err, extraction.ErrProcessorNotFound):
		return fmt.Errorf("Document AI processor not found. Please check your DOCUMENT_AI_PROCESSOR_ID environment variable")
	case errors.Is(err, extraction.ErrQuotaExceeded):
		return fmt.Errorf("Document AI API quota exceeded. Check your project quotas in Google Cloud Console")
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "auth:") ||
		strings.Contains(errStr, "credentials"):
		return fmt.Errorf("Google Cloud authentication failed. Please check your credentials:\n\n"+
			"1. Set GOOGLE_APPLICATION_CREDENTIALS to your service account JSON file path\n"+
			"2. Or set GOOGLE_CREDENTIALS with inline JSON credentials\n"+
			"3. Ensure the service account has 'Document AI API User' role\n\n"+
			"Original error: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return fmt.Errorf("permission denied. Please ensure your service account has 'Document AI API User' role")
	case errors.Is(err, extraction.ErrProcessingFailed):
		return fmt.Errorf("Document AI processing failed. This may be due to network issues or service unavailability: %w", err)
	default:
		return fmt.Errorf("discount extraction failed: %w", err)
	}
}
