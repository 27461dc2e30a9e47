// Package skonto implements the early-payment discount calculation engine.
//
// A Skonto is a cash/early-payment discount offered on an invoice if it is
// paid before a due date. The engine owns one set of discount terms for the
// lifetime of a single editing session and keeps percentage, amounts,
// remaining days and edge case mutually consistent across edits.
package skonto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"skontokit/internal/money"
)

// PaymentMethod describes how the invoice demands to be paid.
type PaymentMethod int

const (
	// PaymentMethodOther covers every regular payment method.
	PaymentMethodOther PaymentMethod = iota

	// PaymentMethodCash marks invoices that must be paid in cash.
	PaymentMethodCash
)

// ParsePaymentMethod maps a collaborator-provided string onto a PaymentMethod.
// Anything that is not recognizably cash is treated as a regular method.
func ParsePaymentMethod(s string) PaymentMethod {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cash", "bar", "barzahlung":
		return PaymentMethodCash
	default:
		return PaymentMethodOther
	}
}

func (p PaymentMethod) String() string {
	if p == PaymentMethodCash {
		return "cash"
	}
	return "other"
}

// EdgeCase classifies the payment situation. It changes the discount's
// default applied state and is derived, never set directly.
type EdgeCase int

const (
	// EdgeCaseNone means the discount can be taken normally.
	EdgeCaseNone EdgeCase = iota

	// EdgeCaseExpired means the due date has passed.
	EdgeCaseExpired

	// EdgeCasePaymentToday means the due date is today.
	EdgeCasePaymentToday

	// EdgeCasePayByCash means the invoice demands cash payment.
	EdgeCasePayByCash
)

func (e EdgeCase) String() string {
	switch e {
	case EdgeCaseExpired:
		return "expired"
	case EdgeCasePaymentToday:
		return "paymentToday"
	case EdgeCasePayByCash:
		return "payByCash"
	default:
		return "none"
	}
}

// ClassifyEdgeCase derives the edge case from the remaining days and the
// payment method. The priority order is fixed: an expired date wins over a
// cash-only method, which wins over a due date of today.
func ClassifyEdgeCase(remainingDays int, method PaymentMethod) EdgeCase {
	switch {
	case remainingDays < 0:
		return EdgeCaseExpired
	case method == PaymentMethodCash:
		return EdgeCasePayByCash
	case remainingDays == 0:
		return EdgeCasePaymentToday
	default:
		return EdgeCaseNone
	}
}

// defaultApplied is the initial applied state for a freshly constructed set
// of terms. Expired and cash-only offers start out not taken; everything
// else, including payment due today, starts out taken.
func defaultApplied(e EdgeCase) bool {
	return e != EdgeCaseExpired && e != EdgeCasePayByCash
}

// Terms is the aggregate of one invoice's early-payment discount offer.
// It is owned exclusively by one Engine; callers receive copies.
type Terms struct {
	FullAmount       money.Money
	DiscountedAmount money.Money
	Percentage       decimal.Decimal
	DueDate          time.Time
	PaymentMethod    PaymentMethod
	RemainingDays    int
	EdgeCase         EdgeCase
	IsApplied        bool
}

// FinalAmount is the amount the user will actually pay: the discounted
// amount when the discount is taken, the full amount otherwise.
func (t Terms) FinalAmount() money.Money {
	if t.IsApplied {
		return t.DiscountedAmount
	}
	return t.FullAmount
}

// Savings is the difference between full and discounted amount.
func (t Terms) Savings() money.Money {
	s, err := t.FullAmount.Sub(t.DiscountedAmount)
	if err != nil {
		// DiscountedAmount never exceeds FullAmount after a successful
		// mutation, so this only guards a hand-built Terms value.
		return money.MustNew(0, t.FullAmount.Currency())
	}
	return s
}

func (t Terms) String() string {
	return fmt.Sprintf("full=%s discounted=%s pct=%s due=%s days=%d edge=%s applied=%t",
		t.FullAmount.Format(), t.DiscountedAmount.Format(), t.Percentage.StringFixed(2),
		t.DueDate.Format("2006-01-02"), t.RemainingDays, t.EdgeCase, t.IsApplied)
}

// civilDate truncates a timestamp to a calendar date in UTC, the fixed
// reference time zone for all day-difference computations.
func civilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole-day difference from -> to, negative when
// to lies in the past.
func daysBetween(from, to time.Time) int {
	return int(civilDate(to).Sub(civilDate(from)).Hours() / 24)
}
