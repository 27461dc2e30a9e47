// Package money provides the immutable monetary value type shared by the
// discount engine, the digit-input formatter and the extraction merger.
//
// Amounts are stored as int64 cents/smallest currency unit to avoid float
// issues. The canonical interchange format is a locale-agnostic string with
// exactly two fractional digits, e.g. "123.45".
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeAmount is returned when a negative amount is supplied.
	ErrNegativeAmount = errors.New("amount cannot be negative")

	// ErrParse is returned when a string is not a valid non-negative
	// decimal amount with at most two fractional digits.
	ErrParse = errors.New("invalid amount string")

	// ErrCurrencyMismatch is returned when arithmetic mixes currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrInvalidCurrency is returned when the currency is not a 3-letter code.
	ErrInvalidCurrency = errors.New("currency must be a 3-letter code")
)

// Money represents a monetary value with currency.
// Immutable value object - all operations return new instances.
type Money struct {
	cents    int64  // Amount in smallest currency unit
	currency string // ISO 4217 currency code
}

// New creates a Money from an amount in cents.
func New(cents int64, currency string) (Money, error) {
	if cents < 0 {
		return Money{}, fmt.Errorf("%w: %d cents", ErrNegativeAmount, cents)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	return Money{cents: cents, currency: currency}, nil
}

// MustNew is like New but panics on error. Intended for constants and tests.
func MustNew(cents int64, currency string) Money {
	m, err := New(cents, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Parse converts a canonical decimal string ("123.45") into a Money.
// The string must be a non-negative decimal with at most two fractional
// digits and a '.' separator; anything else fails with ErrParse.
func Parse(s, currency string) (Money, error) {
	s = strings.TrimSpace(s)
	if !isCanonical(s) {
		return Money{}, fmt.Errorf("%w: %q", ErrParse, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrParse, s)
	}
	if d.IsNegative() {
		return Money{}, fmt.Errorf("%w: %q", ErrParse, s)
	}
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return Money{}, fmt.Errorf("%w: %q has more than two fractional digits", ErrParse, s)
	}
	return New(shifted.IntPart(), currency)
}

// isCanonical reports whether s consists of decimal digits with at most one
// '.' separator. Signs, spaces, thousand separators and exponents are all
// rejected; the digit-input formatter never produces them.
func isCanonical(s string) bool {
	if s == "" {
		return false
	}
	dots := 0
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// Cents returns the amount in smallest currency unit.
func (m Money) Cents() int64 { return m.cents }

// Currency returns the ISO 4217 currency code.
func (m Money) Currency() string { return m.currency }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.cents == 0 }

// Decimal returns the amount as an exact decimal (e.g. 123.45).
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.cents, -2)
}

// Format produces the canonical two-decimal string without currency, e.g. "123.45".
func (m Money) Format() string {
	return m.Decimal().StringFixed(2)
}

// FormatWithSymbol appends the currency designation, e.g. "123.45 EUR".
// Symbol substitution and placement per locale is a display concern owned
// by the caller; only the numeric part is guaranteed here.
func (m Money) FormatWithSymbol() string {
	return m.Format() + " " + m.currency
}

// Sub returns m - other. Fails if the currencies differ or the result
// would be negative.
func (m Money) Sub(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return New(m.cents-other.cents, m.currency)
}

// Cmp compares the amounts, ignoring currency: -1 if m < other, 0 if equal,
// +1 if m > other.
func (m Money) Cmp(other Money) int {
	switch {
	case m.cents < other.cents:
		return -1
	case m.cents > other.cents:
		return 1
	default:
		return 0
	}
}

// Equal reports whether amount and currency both match.
func (m Money) Equal(other Money) bool {
	return m.cents == other.cents && m.currency == other.currency
}

// ApplyDiscount returns m reduced by the given percentage (0-100),
// rounded half-up to whole cents.
func (m Money) ApplyDiscount(percentage decimal.Decimal) (Money, error) {
	hundred := decimal.NewFromInt(100)
	factor := hundred.Sub(percentage)
	cents := decimal.NewFromInt(m.cents).Mul(factor).Div(hundred).Round(0)
	return New(cents.IntPart(), m.currency)
}

// PercentageOf returns (m - part) / m * 100 as an exact decimal.
// m must be greater than zero.
func (m Money) PercentageOf(part Money) decimal.Decimal {
	full := decimal.NewFromInt(m.cents)
	diff := decimal.NewFromInt(m.cents - part.cents)
	return diff.Mul(decimal.NewFromInt(100)).Div(full)
}

// String implements fmt.Stringer.
func (m Money) String() string {
	return m.FormatWithSymbol()
}
