package skonto

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skontokit/internal/money"
	"skontokit/pkg/models"
)

// fixedNow pins the engine clock so remaining-days assertions are stable.
var fixedNow = time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

func testClock() func() time.Time {
	return func() time.Time { return fixedNow }
}

func testLine() models.DiscountLine {
	return models.DiscountLine{
		FullAmountCents:       10000,
		DiscountedAmountCents: 9700,
		Currency:              "EUR",
		Percentage:            3,
		DueDate:               fixedNow.AddDate(0, 0, 14),
		RemainingDays:         14,
		PaymentMethod:         "other",
	}
}

func newTestEngine(t *testing.T, line models.DiscountLine) *Engine {
	t.Helper()
	engine, err := NewEngine(line, WithClock(testClock()))
	require.NoError(t, err)
	return engine
}

func TestNewEngine(t *testing.T) {
	engine := newTestEngine(t, testLine())
	terms := engine.Terms()

	assert.Equal(t, "100.00", terms.FullAmount.Format())
	assert.Equal(t, "97.00", terms.DiscountedAmount.Format())
	assert.True(t, terms.Percentage.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, 14, terms.RemainingDays)
	assert.Equal(t, EdgeCaseNone, terms.EdgeCase)
	assert.True(t, terms.IsApplied)
	assert.Equal(t, "97.00", engine.FinalAmount().Format())
	assert.Equal(t, "3.00", engine.Savings().Format())
}

func TestNewEngineDerivesPercentage(t *testing.T) {
	line := testLine()
	line.Percentage = 0
	line.DiscountedAmountCents = 9000

	engine := newTestEngine(t, line)
	assert.True(t, engine.Terms().Percentage.Equal(decimal.NewFromInt(10)),
		"got %s", engine.Terms().Percentage)
}

func TestNewEngineDerivesDiscountedAmount(t *testing.T) {
	line := testLine()
	line.DiscountedAmountCents = 0

	engine := newTestEngine(t, line)
	assert.Equal(t, "97.00", engine.Terms().DiscountedAmount.Format())
}

func TestNewEngineClampsDiscountedAboveFull(t *testing.T) {
	line := testLine()
	line.Percentage = 0
	line.DiscountedAmountCents = 12000

	engine := newTestEngine(t, line)
	assert.Equal(t, "100.00", engine.Terms().DiscountedAmount.Format())
	assert.True(t, engine.Terms().Percentage.IsZero())
}

func TestNewEngineClampedAmountRederivedFromPercentage(t *testing.T) {
	// Both a percentage and an implausible discounted amount: the clamp
	// brings discounted down to full, then the percentage rederives it.
	line := testLine()
	line.DiscountedAmountCents = 12000

	engine := newTestEngine(t, line)
	assert.Equal(t, "97.00", engine.Terms().DiscountedAmount.Format())
}

func TestNewEngineDefaultCurrency(t *testing.T) {
	line := testLine()
	line.Currency = ""

	engine := newTestEngine(t, line)
	assert.Equal(t, "EUR", engine.Terms().FullAmount.Currency())
}

func TestSetDiscountedAmountRecalculatesPercentage(t *testing.T) {
	engine := newTestEngine(t, testLine())

	require.NoError(t, engine.SetDiscountedAmount("90.00"))

	terms := engine.Terms()
	assert.Equal(t, "90.00", terms.DiscountedAmount.Format())
	assert.Equal(t, "100.00", terms.FullAmount.Format())
	assert.True(t, terms.Percentage.Equal(decimal.NewFromInt(10)), "got %s", terms.Percentage)
	assert.Nil(t, engine.Validation())
}

func TestSetDiscountedAmountRejectsAboveFull(t *testing.T) {
	engine := newTestEngine(t, testLine())
	before := engine.Terms()

	err := engine.SetDiscountedAmount("100.01")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBoundExceeded)

	v := engine.Validation()
	require.NotNil(t, v)
	assert.Equal(t, "discountedAmount", v.Field)
	assert.Equal(t, MessageKeyExceedsMax, v.Key)
	assert.Equal(t, "100.00", v.Max.Format())

	// Rejected mutations leave the terms untouched.
	assert.Equal(t, before, engine.Terms())
}

func TestSetDiscountedAmountRejectsUnparsable(t *testing.T) {
	engine := newTestEngine(t, testLine())
	before := engine.Terms()

	for _, input := range []string{"", "abc", "1,23", "-5.00", "1.234"} {
		err := engine.SetDiscountedAmount(input)
		require.Error(t, err, "input %q", input)
		assert.ErrorIs(t, err, money.ErrParse, "input %q", input)
		assert.Equal(t, MessageKeyParse, engine.Validation().Key)
		assert.Equal(t, before, engine.Terms(), "input %q", input)
	}
}

func TestSetFullAmountRecalculatesDiscounted(t *testing.T) {
	engine := newTestEngine(t, testLine())

	require.NoError(t, engine.SetFullAmount("200.00"))

	terms := engine.Terms()
	assert.Equal(t, "200.00", terms.FullAmount.Format())
	assert.Equal(t, "194.00", terms.DiscountedAmount.Format())
	// The percentage is the preserved quantity.
	assert.True(t, terms.Percentage.Equal(decimal.NewFromInt(3)))
}

func TestSetFullAmountRejectsAboveMax(t *testing.T) {
	engine := newTestEngine(t, testLine())
	before := engine.Terms()

	err := engine.SetFullAmount("1234567.89")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBoundExceeded)

	v := engine.Validation()
	require.NotNil(t, v)
	assert.Equal(t, "fullAmount", v.Field)
	assert.Equal(t, MessageKeyExceedsMax, v.Key)
	assert.Equal(t, "99999.99", v.Max.Format())
	assert.Equal(t, before, engine.Terms())
}

func TestSetFullAmountCustomMax(t *testing.T) {
	engine, err := NewEngine(testLine(),
		WithClock(testClock()),
		WithMaxFullAmount(money.MustNew(50000, "EUR")))
	require.NoError(t, err)

	err = engine.SetFullAmount("500.01")
	require.Error(t, err)
	assert.Equal(t, "500.00", engine.Validation().Max.Format())

	require.NoError(t, engine.SetFullAmount("500.00"))
}

func TestSetFullAmountIdempotent(t *testing.T) {
	engine := newTestEngine(t, testLine())
	require.NoError(t, engine.SetDiscountedAmount("90.00"))
	before := engine.Terms()

	// Re-setting the identical full amount must not rederive anything.
	require.NoError(t, engine.SetFullAmount("100.00"))
	assert.Equal(t, before, engine.Terms())
}

func TestAmountConsistencyAfterEdits(t *testing.T) {
	engine := newTestEngine(t, testLine())

	require.NoError(t, engine.SetDiscountedAmount("80.00"))
	require.NoError(t, engine.SetFullAmount("150.00"))

	terms := engine.Terms()
	// discounted == full * (100 - pct) / 100, rounded to whole cents
	expected, err := terms.FullAmount.ApplyDiscount(terms.Percentage)
	require.NoError(t, err)
	assert.True(t, terms.DiscountedAmount.Equal(expected))
}

func TestSetDueDate(t *testing.T) {
	engine := newTestEngine(t, testLine())

	engine.SetDueDate(fixedNow.AddDate(0, 0, 5))
	terms := engine.Terms()
	assert.Equal(t, 5, terms.RemainingDays)
	assert.Equal(t, EdgeCaseNone, terms.EdgeCase)

	engine.SetDueDate(fixedNow)
	assert.Equal(t, 0, engine.Terms().RemainingDays)
	assert.Equal(t, EdgeCasePaymentToday, engine.Terms().EdgeCase)

	engine.SetDueDate(fixedNow.AddDate(0, 0, -3))
	assert.Equal(t, -3, engine.Terms().RemainingDays)
	assert.Equal(t, EdgeCaseExpired, engine.Terms().EdgeCase)
}

func TestSetDueDateKeepsAppliedState(t *testing.T) {
	engine := newTestEngine(t, testLine())
	require.True(t, engine.Terms().IsApplied)

	// Moving the due date into the past flags the edge case but does not
	// override the user's choice to take the discount.
	engine.SetDueDate(fixedNow.AddDate(0, 0, -1))
	assert.Equal(t, EdgeCaseExpired, engine.Terms().EdgeCase)
	assert.True(t, engine.Terms().IsApplied)
}

func TestInitialAppliedState(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.DiscountLine)
		applied bool
	}{
		{name: "normal offer", mutate: func(l *models.DiscountLine) {}, applied: true},
		{name: "due today", mutate: func(l *models.DiscountLine) { l.RemainingDays = 0 }, applied: true},
		{name: "expired", mutate: func(l *models.DiscountLine) { l.RemainingDays = -1 }, applied: false},
		{name: "cash only", mutate: func(l *models.DiscountLine) { l.PaymentMethod = "cash" }, applied: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := testLine()
			tt.mutate(&line)
			engine := newTestEngine(t, line)
			assert.Equal(t, tt.applied, engine.Terms().IsApplied)
		})
	}
}

func TestToggleApplied(t *testing.T) {
	engine := newTestEngine(t, testLine())

	assert.Equal(t, "97.00", engine.FinalAmount().Format())

	engine.ToggleApplied()
	assert.False(t, engine.Terms().IsApplied)
	assert.Equal(t, "100.00", engine.FinalAmount().Format())

	engine.ToggleApplied()
	assert.True(t, engine.Terms().IsApplied)
	assert.Equal(t, "97.00", engine.FinalAmount().Format())
}

func TestSubscribe(t *testing.T) {
	engine := newTestEngine(t, testLine())

	var order []string
	engine.Subscribe(func() { order = append(order, "first") })
	engine.Subscribe(func() { order = append(order, "second") })

	require.NoError(t, engine.SetDiscountedAmount("95.00"))
	assert.Equal(t, []string{"first", "second"}, order)

	// Rejected mutations notify too, so the UI can show the error.
	order = nil
	_ = engine.SetDiscountedAmount("not-a-number")
	assert.Equal(t, []string{"first", "second"}, order)

	order = nil
	engine.ToggleApplied()
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestValidationClearedOnSuccess(t *testing.T) {
	engine := newTestEngine(t, testLine())

	_ = engine.SetDiscountedAmount("garbage")
	require.NotNil(t, engine.Validation())

	require.NoError(t, engine.SetDiscountedAmount("90.00"))
	assert.Nil(t, engine.Validation())
}

func TestDecision(t *testing.T) {
	engine := newTestEngine(t, testLine())
	require.NoError(t, engine.SetDiscountedAmount("90.00"))

	d := engine.Decision("invoice.pdf")
	assert.Equal(t, fixedNow, d.DecidedAt)
	assert.Equal(t, "EUR", d.Currency)
	assert.Equal(t, int64(10000), d.FullAmountCents)
	assert.Equal(t, int64(9000), d.DiscountedAmountCents)
	assert.Equal(t, int64(9000), d.FinalAmountCents)
	assert.Equal(t, int64(1000), d.SavingsCents)
	assert.InDelta(t, 10.0, d.Percentage, 0.0001)
	assert.Equal(t, 14, d.RemainingDays)
	assert.Equal(t, "other", d.PaymentMethod)
	assert.Equal(t, "none", d.EdgeCase)
	assert.True(t, d.IsApplied)
	assert.Equal(t, "invoice.pdf", d.Reference)
}
