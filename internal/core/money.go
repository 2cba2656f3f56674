// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts and dates from
// client input and converting between cents and major-unit representations.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseAmount converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. A comma may be followed by at
// most two digits, so "1,234" is rejected rather than read as 1.23. Only
// ASCII digits are accepted. Zero is accepted; a leading
// sign, a negative value or anything above MaxAmount is rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234, nil
//	ParseAmount("12,34")  -> 1234, nil
//	ParseAmount("12.345") -> 1235, nil (rounds up)
//	ParseAmount("1,234")  -> 0, ErrInvalidInput
//	ParseAmount("-1")     -> 0, ErrInvalidInput
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidAmount)
	}
	// "1,234" reads as a thousands separator in some locales; refuse to guess.
	if i := strings.IndexByte(s, ','); i >= 0 && len(s)-i-1 > 2 {
		return Money{}, fmt.Errorf("%w: %w: at most two digits may follow a decimal comma", ErrInvalidInput, ErrInvalidAmount)
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "-") {
		return Money{}, fmt.Errorf("%w: %w", ErrInvalidInput, ErrNegativeAmount)
	}
	s = strings.TrimPrefix(s, "+")

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidAmount)
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return Money{}, fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidAmount)
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return Money{}, fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidAmount)
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || iv > MaxAmount.Cents/100 {
		return Money{}, fmt.Errorf("%w: %w", ErrInvalidInput, ErrAmountTooLarge)
	}

	// First two fractional digits, then half-up on the third.
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

	m := Money{Cents: iv*100 + fracCents}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// Units returns the amount in major units as a float64 for display purposes.
// Use Cents for arithmetic.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

// String formats the amount with exactly two decimals, e.g. "12.30".
func (m Money) String() string {
	neg := m.Cents < 0
	c := m.Cents
	if neg {
		c = -c
	}
	s := strconv.FormatInt(c/100, 10) + "." + fmt.Sprintf("%02d", c%100)
	if neg {
		return "-" + s
	}
	return s
}

// MarshalJSON renders the amount as a JSON number in major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate accepts an RFC 3339 timestamp, a naive ISO timestamp or a plain
// YYYY-MM-DD date. Results are in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %w %q", ErrInvalidInput, ErrInvalidDate, s)
}
