// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and display representations.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// CurrencySymbol prefixes every formatted amount.
const CurrencySymbol = "$"

// MaxAmountCents caps a single amount at 100 billion, which keeps sums over
// any realistic number of transactions inside int64.
const MaxAmountCents int64 = 1e13

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns an error for invalid formats, negative values, zero amounts, or
// amounts above MaxAmountCents.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
//	ParseDecimalToCents("12.344") -> 1234, nil (rounds down)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if iv > MaxAmountCents/100 {
		return 0, ErrInvalidAmount
	}
	// Take first two fractional digits; then half-up rounding on third
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 || cents > MaxAmountCents {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// Float returns the value as a float64 for chart renderers.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// String formats the money as a plain decimal with two fraction digits.
func (m Money) String() string {
	return FormatAmount(m.Cents)
}

// FormatAmount renders cents as a signed decimal with two fraction digits
// (e.g. "1995.50", "-4.50").
func FormatAmount(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "." + fmt.Sprintf("%02d", cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// FormatCurrency renders cents with the currency symbol (e.g. "$12.34",
// "-$4.50").
func FormatCurrency(cents int64) string {
	if cents < 0 {
		return "-" + CurrencySymbol + FormatAmount(-cents)
	}
	return CurrencySymbol + FormatAmount(cents)
}

// MarshalJSON writes the amount as a JSON number with two fraction digits.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(FormatAmount(m.Cents)), nil
}

// UnmarshalJSON accepts a JSON number or numeric string. Floats written by
// older clients (e.g. 4.499999999) are rounded half-up to cents. Sign is
// preserved so that Validate can reject bad records at load time.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*m = Money{}
		return nil
	}
	var raw json.Number
	if err := json.Unmarshal(b, &raw); err != nil {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		raw = json.Number(strings.TrimSpace(s))
	}
	if cents, err := ParseDecimalToCents(raw.String()); err == nil {
		*m = Money{Cents: cents}
		return nil
	}
	f, err := strconv.ParseFloat(raw.String(), 64)
	if err != nil || math.IsNaN(f) || math.Abs(f) > float64(MaxAmountCents/100) {
		return fmt.Errorf("amount %q: %w", raw.String(), ErrInvalidAmount)
	}
	*m = Money{Cents: int64(math.Round(f * 100))}
	return nil
}
