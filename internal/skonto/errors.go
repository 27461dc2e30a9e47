package skonto

import (
	"errors"
	"fmt"

	"skontokit/internal/money"
)

// ErrBoundExceeded is returned when a parsed amount exceeds its ceiling:
// the configured maximum for the full amount, the current full amount for
// the discounted amount.
var ErrBoundExceeded = errors.New("amount exceeds allowed maximum")

// Validation message keys. Message templating and localization are owned by
// the UI; the engine only names the violated rule and its parameter.
const (
	MessageKeyParse      = "amount.invalid"
	MessageKeyExceedsMax = "amount.exceeds-max"
)

// Validation describes why the most recent mutation was rejected.
// A rejected mutation is a no-op on the terms; the validation result is the
// only thing that changes.
type Validation struct {
	// Field is the terms field the rejected input targeted,
	// "fullAmount" or "discountedAmount".
	Field string

	// Key identifies the violated rule for message lookup.
	Key string

	// Max carries the violated ceiling so the UI can interpolate it.
	// Only set for MessageKeyExceedsMax.
	Max money.Money

	// Err is the underlying error, ErrBoundExceeded or money.ErrParse.
	Err error
}

func (v *Validation) Error() string {
	if v.Key == MessageKeyExceedsMax {
		return fmt.Sprintf("%s: %s (maximum %s)", v.Field, v.Key, v.Max.Format())
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Key)
}

// Unwrap returns the underlying error for errors.Is matching.
func (v *Validation) Unwrap() error {
	return v.Err
}
