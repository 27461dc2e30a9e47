// Package ocr extracts plain text from invoice documents using the Google
// Cloud Vision API. The text feeds the skonto offer detection, which scans
// for early-payment discount phrasing that the structured invoice parser
// does not model.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//
// Cloud Vision API limitations for synchronous processing: 20MB per file,
// 5 pages per PDF. Larger documents need asynchronous processing through
// Cloud Storage, which is out of scope here.
package ocr

import (
	"context"
	"io"
	"time"
)

// Service extracts text from invoice documents.
type Service interface {
	// ExtractText returns the document text, all pages concatenated in
	// reading order.
	ExtractText(ctx context.Context, pdfData io.Reader) (string, error)

	// ExtractTextWithMetadata additionally returns confidence and timing
	// information.
	ExtractTextWithMetadata(ctx context.Context, pdfData io.Reader) (*TextResult, error)
}

// TextResult contains extracted text with processing metadata.
type TextResult struct {
	// Text is the extracted text content from all pages.
	Text string `json:"text"`

	// PageCount is the number of pages that were processed.
	PageCount int `json:"page_count"`

	// Confidence is the average confidence across all detected text (0.0-1.0).
	Confidence float32 `json:"confidence"`

	// ProcessedAt is when the OCR processing completed.
	ProcessedAt time.Time `json:"processed_at"`

	// ProcessingDuration is how long the OCR processing took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}
