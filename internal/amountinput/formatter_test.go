package amountinput

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertSingleDigit(t *testing.T) {
	f := NewFormatter()
	assert.Equal(t, "0.00", f.Value())

	got := f.InsertString("1")
	assert.Equal(t, "0.01", got)
	assert.Equal(t, int64(1), f.Cents())
}

func TestInsertSequentialDigits(t *testing.T) {
	f := NewFormatter()

	steps := []struct {
		digit string
		want  string
	}{
		{"1", "0.01"},
		{"2", "0.12"},
		{"3", "1.23"},
		{"4", "12.34"},
		{"5", "123.45"},
	}
	for _, step := range steps {
		assert.Equal(t, step.want, f.InsertString(step.digit))
	}
}

func TestInsertString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain digits", input: "12345", want: "123.45"},
		{name: "max capacity", input: "9999999", want: "99999.99"},
		{name: "overflow keeps leading digits", input: "123456789", want: "12345.67"},
		{name: "overflow after full value", input: "10000000", want: "10000.00"},
		{name: "junk characters ignored", input: "1asd234fdsf5gfd6", want: "1234.56"},
		{name: "separators ignored", input: "1.234,56", want: "1234.56"},
		{name: "only junk", input: "abc-., ", want: "0.00"},
		{name: "empty", input: "", want: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFormatter()
			assert.Equal(t, tt.want, f.InsertString(tt.input))
		})
	}
}

func TestBackspace(t *testing.T) {
	f := NewFormatter()
	f.InsertString("12345") // 123.45

	// Backspace on the last character of "123.45".
	got, cursor := f.Apply(Edit{Offset: 5, Length: 1})
	assert.Equal(t, "12.34", got)
	assert.Equal(t, 5, cursor)

	got, _ = f.Apply(Edit{Offset: 4, Length: 1})
	assert.Equal(t, "1.23", got)
}

func TestBackspaceToZero(t *testing.T) {
	f := NewFormatter()
	f.InsertString("12345")

	// Deleting the whole display resets to the zero amount.
	got, cursor := f.Apply(Edit{Offset: 0, Length: 6})
	assert.Equal(t, "0.00", got)
	assert.Equal(t, 0, cursor)
	assert.Equal(t, int64(0), f.Cents())
}

func TestDeleteDecimalPointOnly(t *testing.T) {
	f := NewFormatter()
	f.InsertString("12345") // "123.45"

	// The decimal point carries no register digits.
	got, _ := f.Apply(Edit{Offset: 3, Length: 1})
	assert.Equal(t, "123.45", got)
}

func TestApplyInsertCursor(t *testing.T) {
	f := NewFormatter()

	got, cursor := f.Apply(Edit{Offset: 4, Text: "1"}) // typing into "0.00"
	assert.Equal(t, "0.01", got)
	assert.Equal(t, 4, cursor)

	// "0.01" -> "0.12"; same length, cursor stays after the typed digit.
	got, cursor = f.Apply(Edit{Offset: 4, Text: "2"})
	assert.Equal(t, "0.12", got)
	assert.Equal(t, 4, cursor)
}

func TestApplyReplacementOfSelection(t *testing.T) {
	f := NewFormatter()
	f.InsertString("12345") // "123.45"

	// Select "45" and type "9": two digits out, one in.
	got, _ := f.Apply(Edit{Offset: 4, Length: 2, Text: "9"})
	assert.Equal(t, "12.39", got)
}

func TestOverflowDropsKeystrokes(t *testing.T) {
	f := NewFormatter()
	f.InsertString("9999999")
	assert.Equal(t, "99999.99", f.Value())

	// Register is full; further digits are dropped, not shifted in.
	assert.Equal(t, "99999.99", f.InsertString("1"))
	assert.Equal(t, int64(9999999), f.Cents())
}

func TestNewFormatterFromCents(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		want  string
	}{
		{name: "existing amount", cents: 12345, want: "123.45"},
		{name: "zero", cents: 0, want: "0.00"},
		{name: "negative resets", cents: -5, want: "0.00"},
		{name: "too large resets", cents: 10_000_000, want: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFormatterFromCents(tt.cents)
			assert.Equal(t, tt.want, f.Value())
		})
	}
}
