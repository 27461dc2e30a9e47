// Package extraction handles the opaque named key/value records produced by
// document-understanding collaborators, and rewrites the recognized subset
// from the discount engine's current values.
package extraction

// Record is one opaque named field of an extraction result. The core only
// interprets a fixed set of names; everything else passes through untouched.
type Record struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Result is an ordered extraction result: a flat top-level group plus the
// single nested skonto discount group. Invoices with several discount lines
// are out of scope.
type Result struct {
	Fields []Record `json:"fields"`
	Skonto []Record `json:"skonto,omitempty"`
}

// Recognized field names. The plain and the "Calculated" variants carry the
// same meaning; extraction services emit the former, feedback submissions
// the latter.
const (
	FieldAmountToPay = "amountToPay"

	FieldSkontoAmountToPay             = "skontoAmountToPay"
	FieldSkontoAmountToPayCalculated   = "skontoAmountToPayCalculated"
	FieldSkontoDueDate                 = "skontoDueDate"
	FieldSkontoDueDateCalculated       = "skontoDueDateCalculated"
	FieldSkontoPercentage              = "skontoPercentageDiscounted"
	FieldSkontoPercentageCalculated    = "skontoPercentageDiscountedCalculated"
	FieldSkontoSavingsAmount           = "skontoSavingsAmount"
	FieldSkontoSavingsAmountCalculated = "skontoSavingsAmountCalculated"
	FieldSkontoRemainingDays           = "skontoRemainingDays"
	FieldSkontoPaymentMethod           = "skontoPaymentMethod"
)

// Get returns the value of the first record with the given name.
func Get(records []Record, name string) (string, bool) {
	for _, r := range records {
		if r.Name == name {
			return r.Value, true
		}
	}
	return "", false
}
