package skonto

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"skontokit/pkg/models"
)

// Detection is a skonto offer found in free invoice text.
type Detection struct {
	// Percentage is the offered discount, 0-100.
	Percentage decimal.Decimal

	// Days is the payment window in days. Zero when the offer names an
	// absolute date instead.
	Days int

	// DueDate is the absolute payment deadline. Zero when the offer names
	// a relative window instead.
	DueDate time.Time

	// Matched is the text fragment the offer was found in.
	Matched string
}

// Skonto phrasing patterns, German first since skonto is a German invoicing
// convention. Capture group 1 is the percentage, group 2 the window/date.
var (
	relativePatterns = []*regexp.Regexp{
		// "3% Skonto innerhalb von 10 Tagen", "3 % Skonto bei Zahlung innerhalb 10 Tagen"
		regexp.MustCompile(`(?i)(\d{1,2}(?:[.,]\d{1,2})?)\s*%\s*Skonto(?:\s+bei\s+Zahlung)?\s+innerhalb\s+(?:von\s+)?(\d{1,3})\s+Tagen?`),
		// "Zahlung innerhalb 14 Tagen abzüglich 2% Skonto" word order
		regexp.MustCompile(`(?i)innerhalb\s+(?:von\s+)?(\d{1,3})\s+Tagen?.{0,40}?(\d{1,2}(?:[.,]\d{1,2})?)\s*%\s*Skonto`),
		// "2% discount if paid within 14 days"
		regexp.MustCompile(`(?i)(\d{1,2}(?:\.\d{1,2})?)\s*%\s*(?:cash\s+)?discount\s+(?:if\s+paid\s+)?within\s+(\d{1,3})\s+days?`),
	}

	absolutePatterns = []*regexp.Regexp{
		// "2% Skonto bei Zahlung bis 15.08.2026"
		regexp.MustCompile(`(?i)(\d{1,2}(?:[.,]\d{1,2})?)\s*%\s*Skonto\s+bei\s+Zahlung\s+bis\s+(?:zum\s+)?(\d{1,2}\.\d{1,2}\.\d{2,4})`),
		// "2% discount if paid by 2026-08-15"
		regexp.MustCompile(`(?i)(\d{1,2}(?:\.\d{1,2})?)\s*%\s*(?:cash\s+)?discount\s+(?:if\s+paid\s+)?by\s+(\d{4}-\d{2}-\d{2})`),
	}
)

// DetectInText scans OCR full text for an early-payment discount offer.
// Only the first offer found is returned; invoices with several skonto
// tiers are out of scope. The second return value is false when the text
// mentions no recognizable offer.
func DetectInText(text string) (*Detection, bool) {
	for i, re := range relativePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		pctStr, daysStr := m[1], m[2]
		if i == 1 { // reversed word order pattern
			pctStr, daysStr = m[2], m[1]
		}
		pct, ok := parsePercent(pctStr)
		if !ok {
			continue
		}
		days, ok := parseDays(daysStr)
		if !ok {
			continue
		}
		return &Detection{Percentage: pct, Days: days, Matched: strings.TrimSpace(m[0])}, true
	}

	for _, re := range absolutePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		pct, ok := parsePercent(m[1])
		if !ok {
			continue
		}
		due, ok := parseDetectedDate(m[2])
		if !ok {
			continue
		}
		return &Detection{Percentage: pct, DueDate: due, Matched: strings.TrimSpace(m[0])}, true
	}

	return nil, false
}

// DiscountLine expands a detection into a discount-line record relative to a
// reference date (usually the invoice issue date or today). fullCents is the
// invoice gross amount the percentage applies to.
func (d *Detection) DiscountLine(reference time.Time, fullCents int64, currency string) models.DiscountLine {
	due := d.DueDate
	if due.IsZero() {
		due = civilDate(reference).AddDate(0, 0, d.Days)
	}
	remaining := daysBetween(reference, due)

	discounted := decimal.NewFromInt(fullCents).
		Mul(decimal.NewFromInt(100).Sub(d.Percentage)).
		Div(decimal.NewFromInt(100)).
		Round(0).IntPart()
	pct, _ := d.Percentage.Float64()

	return models.DiscountLine{
		FullAmountCents:       fullCents,
		DiscountedAmountCents: discounted,
		Currency:              currency,
		Percentage:            pct,
		DueDate:               due,
		RemainingDays:         remaining,
		PaymentMethod:         "other",
	}
}

func parsePercent(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, false
	}
	return d, true
}

func parseDays(s string) (int, bool) {
	days := 0
	for _, r := range s {
		days = days*10 + int(r-'0')
	}
	if days <= 0 || days > 365 {
		return 0, false
	}
	return days, true
}

// parseDetectedDate handles the date shapes the patterns can capture:
// German "02.01.2006" (also with two-digit year) and ISO "2006-01-02".
func parseDetectedDate(s string) (time.Time, bool) {
	for _, layout := range []string{"02.01.2006", "02.01.06", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
