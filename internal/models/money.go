package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAmount is returned for malformed, zero or negative amounts.
var ErrInvalidAmount = errors.New("invalid amount")

// Money is a fixed-point amount with two fractional digits, held in cents.
type Money struct {
	Cents int64
}

// ParseDecimalToCents converts a decimal string to cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted and the third
// fractional digit is rounded half-up. Only strictly positive values parse.
//
//	ParseDecimalToCents("12.5")   -> 1250, nil
//	ParseDecimalToCents("12,34")  -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	cents, err := parseCents(s)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// parseCents parses an unsigned decimal, zero included.
func parseCents(s string) (int64, error) {
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
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
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv >= maxSafe {
		return 0, ErrInvalidAmount
	}
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	return iv*100 + frac, nil
}

// ParseMoney parses a positive decimal amount.
func ParseMoney(s string) (Money, error) {
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

// String formats the amount with exactly two fractional digits, e.g. "12.50".
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// MarshalJSON encodes the amount as a decimal string so no precision is lost
// on the client.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

// UnmarshalJSON accepts either a JSON number or a JSON string. Unlike
// ParseMoney it admits zero and negative values so aggregates decode.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	neg := strings.HasPrefix(s, "-")
	cents, err := parseCents(strings.TrimPrefix(s, "-"))
	if err != nil {
		return err
	}
	if neg {
		cents = -cents
	}
	m.Cents = cents
	return nil
}
