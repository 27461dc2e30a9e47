package extraction

import (
	"strconv"

	"skontokit/internal/skonto"
)

// Merge rewrites an extraction result with the engine's current values.
// Records with recognized names are replaced; everything else is copied
// unchanged in its original order. The input is never mutated.
func Merge(terms skonto.Terms, in Result) Result {
	out := Result{
		Fields: make([]Record, len(in.Fields)),
		Skonto: make([]Record, len(in.Skonto)),
	}
	for i, r := range in.Fields {
		out.Fields[i] = mergeTopLevel(terms, r)
	}
	for i, r := range in.Skonto {
		out.Skonto[i] = mergeSkonto(terms, r)
	}
	return out
}

// mergeTopLevel rewrites the single recognized top-level field: the amount
// to pay becomes the final amount under the current applied decision.
func mergeTopLevel(terms skonto.Terms, r Record) Record {
	if r.Name == FieldAmountToPay {
		r.Value = terms.FinalAmount().Format()
	}
	return r
}

func mergeSkonto(terms skonto.Terms, r Record) Record {
	switch r.Name {
	case FieldSkontoAmountToPay, FieldSkontoAmountToPayCalculated:
		r.Value = terms.DiscountedAmount.Format()
	case FieldSkontoDueDate, FieldSkontoDueDateCalculated:
		r.Value = terms.DueDate.Format("2006-01-02")
	case FieldSkontoPercentage, FieldSkontoPercentageCalculated:
		r.Value = terms.Percentage.Floor().String() + "%"
	case FieldSkontoSavingsAmount, FieldSkontoSavingsAmountCalculated:
		r.Value = terms.Savings().Format()
	case FieldSkontoRemainingDays:
		r.Value = strconv.Itoa(terms.RemainingDays)
	}
	return r
}
