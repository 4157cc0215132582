// internal/pkg/money/money.go
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Dollars converts an amount in cents to a decimal dollar value
func Dollars(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Format renders cents as a plain two-decimal string, e.g. 6250 -> "62.50"
func Format(cents int64) string {
	return Dollars(cents).StringFixed(2)
}

// FormatUSD renders cents with a dollar sign, e.g. -150 -> "-$1.50"
func FormatUSD(cents int64) string {
	if cents < 0 {
		return "-$" + Format(-cents)
	}
	return "$" + Format(cents)
}

// ParseDollars parses a dollar string such as "12.5" into cents.
// Values with more than two fractional digits are rejected.
func ParseDollars(value string) (int64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("invalid amount %q: more than two decimal places", value)
	}
	return cents.IntPart(), nil
}
