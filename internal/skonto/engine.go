package skonto

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"skontokit/internal/logger"
	"skontokit/internal/money"
	"skontokit/pkg/models"
)

// DefaultMaxFullAmountCents is the default ceiling for the full amount,
// 99999.99 in the invoice currency.
const DefaultMaxFullAmountCents = 9_999_999

// DefaultCurrency is assumed when a discount line carries no currency.
const DefaultCurrency = "EUR"

// Engine owns one set of discount terms and keeps them mutually consistent
// across edits. Every mutation either succeeds and produces new consistent
// state, or leaves the terms untouched and records a validation result.
//
// An Engine belongs to exactly one editing session and must be confined to
// that session's goroutine; subscribers are invoked synchronously after each
// mutation attempt, in registration order.
type Engine struct {
	terms      Terms
	maxFull    money.Money
	now        func() time.Time
	subs       []func()
	validation *Validation
	log        zerolog.Logger
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithMaxFullAmount overrides the default ceiling for the full amount.
func WithMaxFullAmount(max money.Money) Option {
	return func(e *Engine) { e.maxFull = max }
}

// WithClock overrides the time source used for remaining-days computation.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine constructs an engine from an external discount-line record.
// The payment method is fixed for the engine's lifetime; the initial applied
// state is derived once from the edge-case classification and afterwards
// only changes through ToggleApplied.
func NewEngine(line models.DiscountLine, opts ...Option) (*Engine, error) {
	currency := line.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	full, err := money.New(line.FullAmountCents, currency)
	if err != nil {
		return nil, fmt.Errorf("full amount: %w", err)
	}
	discounted, err := money.New(line.DiscountedAmountCents, currency)
	if err != nil {
		return nil, fmt.Errorf("discounted amount: %w", err)
	}

	e := &Engine{
		maxFull: money.MustNew(DefaultMaxFullAmountCents, currency),
		now:     time.Now,
		log:     logger.WithComponent("skonto-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}

	// Extraction data is dirty by nature; a discounted amount above the
	// full amount is clamped rather than rejected so a session can start.
	if full.Cents() > 0 && discounted.Cmp(full) > 0 {
		e.log.Warn().
			Str("full", full.Format()).
			Str("discounted", discounted.Format()).
			Msg("Discounted amount exceeds full amount, clamping")
		discounted = full
	}

	percentage := clampPercentage(decimal.NewFromFloat(line.Percentage))
	switch {
	case percentage.IsZero() && full.Cents() > 0 && discounted.Cmp(full) < 0:
		percentage = full.PercentageOf(discounted)
		e.log.Debug().
			Str("percentage", percentage.StringFixed(2)).
			Msg("Derived discount percentage from amounts")
	case !percentage.IsZero() && full.Cents() > 0 && (discounted.IsZero() || discounted.Equal(full)):
		// The line names a percentage but no usable discounted amount.
		discounted, err = full.ApplyDiscount(percentage)
		if err != nil {
			return nil, fmt.Errorf("discounted amount: %w", err)
		}
		e.log.Debug().
			Str("discounted", discounted.Format()).
			Msg("Derived discounted amount from percentage")
	}

	method := ParsePaymentMethod(line.PaymentMethod)
	edge := ClassifyEdgeCase(line.RemainingDays, method)

	e.terms = Terms{
		FullAmount:       full,
		DiscountedAmount: discounted,
		Percentage:       percentage,
		DueDate:          civilDate(line.DueDate),
		PaymentMethod:    method,
		RemainingDays:    line.RemainingDays,
		EdgeCase:         edge,
		IsApplied:        defaultApplied(edge),
	}

	e.log.Debug().
		Stringer("terms", e.terms).
		Msg("Engine constructed")

	return e, nil
}

// Terms returns a snapshot of the current terms.
func (e *Engine) Terms() Terms {
	return e.terms
}

// MaxFullAmount returns the configured ceiling for the full amount.
func (e *Engine) MaxFullAmount() money.Money {
	return e.maxFull
}

// Validation returns why the most recent mutation was rejected, or nil if
// the last mutation succeeded.
func (e *Engine) Validation() *Validation {
	return e.validation
}

// Subscribe registers a state-change handler. Handlers fire synchronously
// after every mutation attempt, including rejected ones, so an error message
// can be surfaced while the data stays unchanged.
func (e *Engine) Subscribe(fn func()) {
	e.subs = append(e.subs, fn)
}

// SetDiscountedAmount parses a canonical amount string and replaces the
// discounted amount. Values above the current full amount are rejected with
// the full amount as the reported ceiling. On success the percentage is
// recalculated from the two amounts (full amount permitting).
func (e *Engine) SetDiscountedAmount(s string) error {
	m, err := money.Parse(s, e.terms.DiscountedAmount.Currency())
	if err != nil {
		return e.reject(&Validation{Field: "discountedAmount", Key: MessageKeyParse, Err: err})
	}
	if m.Cmp(e.terms.FullAmount) > 0 {
		err := fmt.Errorf("%w: %s > %s", ErrBoundExceeded, m.Format(), e.terms.FullAmount.Format())
		return e.reject(&Validation{
			Field: "discountedAmount",
			Key:   MessageKeyExceedsMax,
			Max:   e.terms.FullAmount,
			Err:   err,
		})
	}

	e.terms.DiscountedAmount = m
	if e.terms.FullAmount.Cents() > 0 {
		e.terms.Percentage = e.terms.FullAmount.PercentageOf(m)
	}
	e.accept("discountedAmount")
	return nil
}

// SetFullAmount parses a canonical amount string and replaces the full
// amount. Values above the configured maximum are rejected with that maximum
// as the reported ceiling. On success the discounted amount is rederived
// from the unchanged percentage; this is the one asymmetry in the model.
func (e *Engine) SetFullAmount(s string) error {
	m, err := money.Parse(s, e.terms.FullAmount.Currency())
	if err != nil {
		return e.reject(&Validation{Field: "fullAmount", Key: MessageKeyParse, Err: err})
	}
	if m.Cmp(e.maxFull) > 0 {
		err := fmt.Errorf("%w: %s > %s", ErrBoundExceeded, m.Format(), e.maxFull.Format())
		return e.reject(&Validation{
			Field: "fullAmount",
			Key:   MessageKeyExceedsMax,
			Max:   e.maxFull,
			Err:   err,
		})
	}
	if m.Equal(e.terms.FullAmount) {
		e.accept("fullAmount")
		return nil
	}

	discounted, err := m.ApplyDiscount(e.terms.Percentage)
	if err != nil {
		return e.reject(&Validation{Field: "fullAmount", Key: MessageKeyParse, Err: err})
	}
	e.terms.FullAmount = m
	e.terms.DiscountedAmount = discounted
	e.accept("fullAmount")
	return nil
}

// SetDueDate replaces the due date, recomputes the remaining days as a
// whole-day difference in UTC and reclassifies the edge case. The applied
// state is never touched: once a session has started, taking or dropping
// the discount stays under the user's control.
func (e *Engine) SetDueDate(d time.Time) {
	e.terms.DueDate = civilDate(d)
	e.terms.RemainingDays = daysBetween(e.now(), e.terms.DueDate)
	e.terms.EdgeCase = ClassifyEdgeCase(e.terms.RemainingDays, e.terms.PaymentMethod)
	e.accept("dueDate")
}

// ToggleApplied flips whether the discount is taken. No other field changes.
func (e *Engine) ToggleApplied() {
	e.terms.IsApplied = !e.terms.IsApplied
	e.accept("isApplied")
}

// FinalAmount is the amount actually payable under the current terms.
func (e *Engine) FinalAmount() money.Money {
	return e.terms.FinalAmount()
}

// Savings is the amount saved when the discount is taken.
func (e *Engine) Savings() money.Money {
	return e.terms.Savings()
}

// Decision converts the current terms into the primitive record handed to
// export collaborators.
func (e *Engine) Decision(reference string) models.Decision {
	t := e.terms
	pct, _ := t.Percentage.Float64()
	return models.Decision{
		DecidedAt:             e.now(),
		Currency:              t.FullAmount.Currency(),
		FullAmountCents:       t.FullAmount.Cents(),
		DiscountedAmountCents: t.DiscountedAmount.Cents(),
		FinalAmountCents:      t.FinalAmount().Cents(),
		SavingsCents:          t.Savings().Cents(),
		Percentage:            pct,
		DueDate:               t.DueDate,
		RemainingDays:         t.RemainingDays,
		PaymentMethod:         t.PaymentMethod.String(),
		EdgeCase:              t.EdgeCase.String(),
		IsApplied:             t.IsApplied,
		Reference:             reference,
	}
}

func (e *Engine) accept(field string) {
	e.validation = nil
	e.log.Debug().
		Str("field", field).
		Stringer("terms", e.terms).
		Msg("Mutation applied")
	e.notify()
}

func (e *Engine) reject(v *Validation) error {
	e.validation = v
	e.log.Debug().
		Str("field", v.Field).
		Str("key", v.Key).
		Err(v.Err).
		Msg("Mutation rejected, terms unchanged")
	e.notify()
	return v
}

func (e *Engine) notify() {
	for _, fn := range e.subs {
		fn()
	}
}

func clampPercentage(p decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}
