package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmountCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "german format", input: "7.303,08", want: 730308},
		{name: "german small", input: "1.234,50", want: 123450},
		{name: "english format", input: "7,303.08", want: 730308},
		{name: "comma decimal", input: "1234,50", want: 123450},
		{name: "comma thousands", input: "7,303", want: 730300},
		{name: "plain decimal", input: "123.45", want: 12345},
		{name: "integer", input: "150", want: 15000},
		{name: "euro sign", input: "123,45 €", want: 12345},
		{name: "currency code", input: "EUR 99.00", want: 9900},
		{name: "dollar", input: "$1,234.56", want: 123456},
		{name: "whitespace", input: "  42.00  ", want: 4200},
		{name: "empty", input: "", wantErr: true},
		{name: "only currency", input: "EUR", wantErr: true},
		{name: "garbage", input: "n/a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmountCents(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"EUR", "EUR"},
		{"eur", "EUR"},
		{"€", "EUR"},
		{"Euro", "EUR"},
		{"$", "USD"},
		{"US$", "USD"},
		{"£", "GBP"},
		{"CHF", "CHF"},
		{"SEK", "SEK"},
		{"unknown", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeCurrency(tt.input), "input %q", tt.input)
	}
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "0.00", formatCents(0))
	assert.Equal(t, "0.05", formatCents(5))
	assert.Equal(t, "123.45", formatCents(12345))
	assert.Equal(t, "7303.08", formatCents(730308))
}

func TestParsePercentValue(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{input: "3%", want: 3},
		{input: "2,5%", want: 2.5},
		{input: "2.5 %", want: 2.5},
		{input: "10", want: 10},
		{input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parsePercentValue(tt.input)
		if tt.wantErr {
			require.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.InDelta(t, tt.want, got, 0.0001, "input %q", tt.input)
	}
}
