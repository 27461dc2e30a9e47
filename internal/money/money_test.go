package money

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cents    int64
		currency string
		wantErr  error
	}{
		{name: "valid amount", cents: 12345, currency: "EUR"},
		{name: "zero amount", cents: 0, currency: "USD"},
		{name: "lowercase currency normalized", cents: 100, currency: "eur"},
		{name: "negative amount", cents: -1, currency: "EUR", wantErr: ErrNegativeAmount},
		{name: "missing currency", cents: 100, currency: "", wantErr: ErrInvalidCurrency},
		{name: "currency too long", cents: 100, currency: "EURO", wantErr: ErrInvalidCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.cents, tt.currency)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cents, m.Cents())
			assert.Equal(t, strings.ToUpper(tt.currency), m.Currency())
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCents int64
		wantErr   bool
	}{
		{name: "two decimals", input: "123.45", wantCents: 12345},
		{name: "one decimal", input: "10.5", wantCents: 1050},
		{name: "no decimals", input: "100", wantCents: 10000},
		{name: "zero", input: "0.00", wantCents: 0},
		{name: "leading dot", input: ".99", wantCents: 99},
		{name: "surrounding whitespace", input: "  12.00  ", wantCents: 1200},
		{name: "empty string", input: "", wantErr: true},
		{name: "negative", input: "-1.00", wantErr: true},
		{name: "three decimals", input: "1.234", wantErr: true},
		{name: "comma separator", input: "1,23", wantErr: true},
		{name: "thousands separator", input: "1,234.56", wantErr: true},
		{name: "trailing garbage", input: "12.34abc", wantErr: true},
		{name: "two dots", input: "1.2.3", wantErr: true},
		{name: "dot only", input: ".", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse(tt.input, "EUR")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCents, m.Cents())
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 100, 12345, 9999999} {
		m := MustNew(cents, "EUR")
		parsed, err := Parse(m.Format(), "EUR")
		require.NoError(t, err)
		assert.Equal(t, cents, parsed.Cents(), "round trip of %s", m.Format())
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0.00", MustNew(0, "EUR").Format())
	assert.Equal(t, "0.01", MustNew(1, "EUR").Format())
	assert.Equal(t, "123.45", MustNew(12345, "EUR").Format())
	assert.Equal(t, "99999.99", MustNew(9999999, "EUR").Format())
	assert.Equal(t, "123.45 EUR", MustNew(12345, "EUR").FormatWithSymbol())
}

func TestSub(t *testing.T) {
	full := MustNew(10000, "EUR")
	discounted := MustNew(9700, "EUR")

	savings, err := full.Sub(discounted)
	require.NoError(t, err)
	assert.Equal(t, int64(300), savings.Cents())

	_, err = discounted.Sub(full)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = full.Sub(MustNew(100, "USD"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestApplyDiscount(t *testing.T) {
	tests := []struct {
		name       string
		cents      int64
		percentage string
		want       int64
	}{
		{name: "3 percent of 100.00", cents: 10000, percentage: "3", want: 9700},
		{name: "2.5 percent of 200.00", cents: 20000, percentage: "2.5", want: 19500},
		{name: "rounding half up", cents: 999, percentage: "3", want: 969}, // 969.03 -> 969
		{name: "zero percent", cents: 10000, percentage: "0", want: 10000},
		{name: "hundred percent", cents: 10000, percentage: "100", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MustNew(tt.cents, "EUR")
			got, err := m.ApplyDiscount(decimal.RequireFromString(tt.percentage))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Cents())
		})
	}
}

func TestPercentageOf(t *testing.T) {
	full := MustNew(10000, "EUR")

	pct := full.PercentageOf(MustNew(9000, "EUR"))
	assert.True(t, pct.Equal(decimal.NewFromInt(10)), "got %s", pct)

	pct = full.PercentageOf(MustNew(9700, "EUR"))
	assert.True(t, pct.Equal(decimal.NewFromInt(3)), "got %s", pct)

	pct = full.PercentageOf(full)
	assert.True(t, pct.IsZero())
}

func TestCmp(t *testing.T) {
	a := MustNew(100, "EUR")
	b := MustNew(200, "EUR")

	assert.Equal(t, -1, a.Cmp(b))
	assert.Equal(t, 1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(MustNew(100, "EUR")))
	assert.True(t, a.Equal(MustNew(100, "EUR")))
	assert.False(t, a.Equal(MustNew(100, "USD")))
}
