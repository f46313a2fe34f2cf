// Package core holds the expense model, amount parsing and the category
// aggregation that drives the breakdown chart.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact amount rounded to cents. Sums are arbitrary precision
// and never overflow. The zero value is 0.00.
type Money struct {
	d decimal.Decimal
}

// Largest magnitude a single amount may have.
var maxAmount = decimal.New(1, 15)

// NewMoney returns cents hundredths of the currency unit.
func NewMoney(cents int64) Money {
	return Money{d: decimal.New(cents, -2)}
}

// ParseAmount converts a user-entered decimal string to Money.
//
// Accepted: optional sign, digits, at most one '.' or ',' separator and
// at least one digit overall. The value is rounded half away from zero to
// cents. Exponents, thousands separators, trailing garbage ("12abc") and
// empty input wrap ErrInvalidAmount.
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("-3")     -> -3.00
func ParseAmount(s string) (Money, error) {
	norm, ok := normalizeAmount(s)
	if !ok {
		return Money{}, invalidAmount(s)
	}
	d, err := decimal.NewFromString(norm)
	if err != nil || d.Abs().GreaterThanOrEqual(maxAmount) {
		return Money{}, invalidAmount(s)
	}
	return Money{d: d.Round(2)}, nil
}

// normalizeAmount checks the grammar and rewrites s as "[-]int[.frac]".
func normalizeAmount(s string) (string, bool) {
	s = strings.TrimSpace(s)
	sign := ""
	if s != "" && (s[0] == '-' || s[0] == '+') {
		if s[0] == '-' {
			sign = "-"
		}
		s = s[1:]
	}
	whole, frac, hasSep := strings.Cut(strings.Replace(s, ",", ".", 1), ".")
	if whole+frac == "" || !digitsOnly(whole) || !digitsOnly(frac) {
		return "", false
	}
	if whole == "" {
		whole = "0"
	}
	if !hasSep || frac == "" {
		return sign + whole, true
	}
	return sign + whole + "." + frac, true
}

func digitsOnly(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) < 0
}

// Decimal returns the amount as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// Equal compares amounts by value.
func (m Money) Equal(o Money) bool {
	return m.d.Equal(o.d)
}

// Float returns the amount as a float64 for chart data.
func (m Money) Float() float64 {
	return m.Decimal().InexactFloat64()
}

// String formats the amount with two decimals, e.g. "15.00" or "-0.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}
