// Package amountinput implements the digit-shifting text entry algorithm for
// currency amounts.
//
// The formatter models a text field whose internal value is always an integer
// number of cents, displayed as "<major>.<minor>" with exactly two fractional
// digits. Typing a digit shifts the register left; backspace shifts it right.
// The algorithm is a pure state machine over a single int64 register and
// never errors: invalid characters are ignored, not rejected.
package amountinput

import "github.com/shopspring/decimal"

// MaxDigits is the total number of digits the register can hold:
// five integer digits plus two decimals.
const MaxDigits = 7

// limit is the first cents value that no longer fits the register.
const limit = 10_000_000 // 10^MaxDigits

// Edit is a single text-field change event: the characters in
// [Offset, Offset+Length) of the displayed string are replaced by Text.
// An insertion has Length 0, a deletion has empty Text.
type Edit struct {
	Offset int
	Length int
	Text   string
}

// Formatter turns a stream of edit events into canonical two-decimal amount
// strings. The zero value displays "0.00". A Formatter is confined to a
// single editing session and must not be shared between goroutines.
type Formatter struct {
	cents int64
}

// NewFormatter returns a formatter starting at "0.00".
func NewFormatter() *Formatter {
	return &Formatter{}
}

// NewFormatterFromCents seeds the register with an existing amount, e.g. the
// value already displayed when an editing session starts. Negative amounts
// and amounts that do not fit the register reset to zero.
func NewFormatterFromCents(cents int64) *Formatter {
	if cents < 0 || cents >= limit {
		cents = 0
	}
	return &Formatter{cents: cents}
}

// Cents returns the current register value.
func (f *Formatter) Cents() int64 { return f.cents }

// Value returns the current canonical display string.
func (f *Formatter) Value() string {
	return decimal.New(f.cents, -2).StringFixed(2)
}

// Apply consumes one edit event and returns the new display string together
// with the new cursor offset. On insertion the cursor advances by the length
// delta of the replacement so the caret stays after the just-typed digit; on
// deletion it is kept at the deletion point.
func (f *Formatter) Apply(e Edit) (string, int) {
	before := f.Value()

	// A replacement of a selected range is a deletion followed by an
	// insertion over the same register.
	if e.Length > 0 {
		f.deleteRange(before, e.Offset, e.Length)
	}
	for _, r := range e.Text {
		f.insertRune(r)
	}

	after := f.Value()
	cursor := e.Offset
	if e.Text != "" {
		cursor += len(after) - len(before) + e.Length
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(after) {
		cursor = len(after)
	}
	return after, cursor
}

// InsertString feeds every character of s as an insertion at the end of the
// current value, returning the final display string. Convenience for callers
// that replay whole strings instead of single keystrokes.
func (f *Formatter) InsertString(s string) string {
	for _, r := range s {
		f.insertRune(r)
	}
	return f.Value()
}

// insertRune shifts a decimal digit into the register. Everything else,
// including separators and thousand markers, is a no-op. Once the register
// holds MaxDigits digits further input is dropped, so the displayed value
// keeps its most significant digits.
func (f *Formatter) insertRune(r rune) {
	if r < '0' || r > '9' {
		return
	}
	next := f.cents*10 + int64(r-'0')
	if next >= limit {
		return
	}
	f.cents = next
}

// deleteRange shifts the register right once per digit removed. The decimal
// point occupies a display position but no register digits, so deleting it
// alone changes nothing.
func (f *Formatter) deleteRange(display string, offset, length int) {
	if offset < 0 {
		offset = 0
	}
	end := offset + length
	if end > len(display) {
		end = len(display)
	}
	if offset >= end {
		return
	}
	for _, r := range display[offset:end] {
		if r >= '0' && r <= '9' {
			f.cents /= 10
		}
	}
}
