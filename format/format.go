// Package format converts integer base units to and from display amounts and
// renders prices for API responses.
package format

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals is the number of base units per display unit as a power of ten.
const Decimals = 9

const missing = "—"

var (
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrTooPrecise     = errors.New("amount has more than 9 decimal places")
	ErrAmountTooLarge = errors.New("amount out of range")
)

// ToDisplay converts base units to display units exactly.
func ToDisplay(units uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -Decimals)
}

// FormatAmount renders base units as a display amount with digits decimals.
func FormatAmount(units uint64, digits int32) string {
	return ToDisplay(units).StringFixed(digits)
}

// ParseAmount parses a display amount such as "1.25" into base units.
func ParseAmount(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}
	units := d.Shift(Decimals)
	if !units.Equal(units.Truncate(0)) {
		return 0, ErrTooPrecise
	}
	n := units.BigInt()
	if !n.IsUint64() {
		return 0, ErrAmountTooLarge
	}
	return n.Uint64(), nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// FormatPercent renders a probability in [0,1] as a percentage.
func FormatPercent(p float64, digits int32) string {
	if !finite(p) {
		return missing
	}
	return decimal.NewFromFloat(p).Shift(2).StringFixed(digits) + "%"
}

// FormatCents renders an outcome price as cents of one payout unit, clamped to
// [0, 100].
func FormatCents(price float64, digits int32) string {
	if !finite(price) {
		return missing
	}
	cents := decimal.NewFromFloat(price).Shift(2)
	cents = decimal.Max(decimal.Zero, decimal.Min(decimal.NewFromInt(100), cents))
	return cents.StringFixed(digits) + "¢"
}
