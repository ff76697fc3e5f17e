package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Zero is the canonical zero amount.
var Zero = decimal.Zero

var hundred = decimal.NewFromInt(100)

// Quantize rounds the amount to two decimal places using banker's rounding,
// matching how currency amounts are persisted.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// FloorZero clamps negative amounts to zero.
func FloorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Percent returns amount * pct / 100 without quantization. Callers decide
// when to round so intermediate results keep full precision.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// FromString parses a decimal amount, wrapping parse failures with context.
func FromString(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("money: parse %q: %w", value, err)
	}
	return d, nil
}

// MustFromString parses a decimal amount and panics on failure. Intended for
// constants and test fixtures only.
func MustFromString(value string) decimal.Decimal {
	d, err := FromString(value)
	if err != nil {
		panic(err)
	}
	return d
}
