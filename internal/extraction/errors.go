package extraction

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrInvalidPDF is returned when the provided data is not a valid PDF
	// document or cannot be processed by Document AI.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrProcessingFailed is returned when Document AI processing fails.
	ErrProcessingFailed = errors.New("document AI processing failed")

	// ErrMissingCredentials is returned when Google Cloud credentials are not configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials")

	// ErrInvalidConfiguration is returned when the Document AI configuration is invalid.
	ErrInvalidConfiguration = errors.New("invalid Document AI configuration")

	// ErrProcessorNotFound is returned when the specified Document AI processor
	// cannot be found or accessed.
	ErrProcessorNotFound = errors.New("document AI processor not found")

	// ErrQuotaExceeded is returned when Document AI API quota limits are exceeded.
	ErrQuotaExceeded = errors.New("document AI API quota exceeded")

	// ErrDocumentTooLarge is returned when the PDF exceeds size limits.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size limit")

	// ErrNoSkontoFound is returned when a document carries no recognizable
	// early-payment discount offer.
	ErrNoSkontoFound = errors.New("no skonto discount found in document")

	// ErrCompletionFailed is returned when the LLM completion fallback
	// produced no usable skonto fields.
	ErrCompletionFailed = errors.New("skonto completion failed")
)

// ProcessingError wraps errors with context about extraction failures.
type ProcessingError struct {
	// Op is the operation that failed (e.g., "Process", "Complete").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ProcessingError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extraction: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extraction: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped sentinels.
func (e *ProcessingError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// wrapError wraps an error as a ProcessingError if it isn't already one.
func wrapError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var procErr *ProcessingError
	if errors.As(err, &procErr) {
		return err
	}
	return &ProcessingError{Op: op, Err: err, Details: details}
}
