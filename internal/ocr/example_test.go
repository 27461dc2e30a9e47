package ocr_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"skontokit/internal/ocr"
	"skontokit/internal/skonto"
)

// Example demonstrates basic usage of the OCR service.
func Example() {
	// Create context with timeout for OCR processing
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Create service - credentials handled internally from environment
	ocrService, err := ocr.NewGoogleVisionService(ctx)
	if err != nil {
		log.Fatalf("Failed to create OCR service: %v", err)
	}

	// Open PDF file
	pdfFile, err := os.Open("sample_invoice.pdf")
	if err != nil {
		log.Fatalf("Failed to open PDF: %v", err)
	}
	defer pdfFile.Close()

	// Extract the document text
	text, err := ocrService.ExtractText(ctx, pdfFile)
	if err != nil {
		log.Fatalf("Failed to process PDF: %v", err)
	}

	fmt.Printf("Extracted text (%d characters)\n", len(text))

	// Scan the text for an early-payment discount offer
	if detection, ok := skonto.DetectInText(text); ok {
		fmt.Printf("Skonto offer found: %s\n", detection.Matched)
	}
}

// ExampleGoogleVisionService_ExtractTextWithMetadata demonstrates OCR
// processing with detailed metadata.
func ExampleGoogleVisionService_ExtractTextWithMetadata() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ocrService, err := ocr.NewGoogleVisionService(ctx)
	if err != nil {
		log.Fatalf("Failed to create OCR service: %v", err)
	}

	pdfFile, err := os.Open("sample_invoice.pdf")
	if err != nil {
		log.Fatalf("Failed to open PDF: %v", err)
	}
	defer pdfFile.Close()

	result, err := ocrService.ExtractTextWithMetadata(ctx, pdfFile)
	if err != nil {
		log.Fatalf("Failed to process PDF: %v", err)
	}

	fmt.Printf("Pages: %d\n", result.PageCount)
	fmt.Printf("Confidence: %.2f\n", result.Confidence)
	fmt.Printf("Duration: %s\n", result.ProcessingDuration)
}
