package models

import "time"

// DiscountLine is the raw early-payment discount offer handed over by an
// extraction collaborator (Document AI, OCR text scan, or manual input).
// Amounts are stored as cents/smallest currency unit to avoid float issues.
type DiscountLine struct {
	// Amounts
	FullAmountCents       int64  // Amount payable without the discount
	DiscountedAmountCents int64  // Amount payable if the discount is taken
	Currency              string // Currency code (EUR, USD, etc.)

	// Discount conditions
	Percentage    float64   // Discount percentage, 0-100
	DueDate       time.Time // Last day the discount can be taken
	RemainingDays int       // Whole days until DueDate, negative if overdue

	// PaymentMethod is "cash" when the invoice demands cash payment,
	// anything else is treated as a regular payment method.
	PaymentMethod string
}

// Decision is a confirmed discount decision, ready for export to an external
// audit sink. All values are primitives so collaborators need no domain types.
type Decision struct {
	DecidedAt             time.Time
	Currency              string
	FullAmountCents       int64
	DiscountedAmountCents int64
	FinalAmountCents      int64
	SavingsCents          int64
	Percentage            float64
	DueDate               time.Time
	RemainingDays         int
	PaymentMethod         string
	EdgeCase              string
	IsApplied             bool
	Reference             string // External reference (file name, invoice number)
}
