// Package quant holds the exact-decimal price and lot arithmetic shared by
// every component that talks to the exchange. All prices are
// decimal.Decimal; binary floats never touch order math.
package quant

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotPositive is returned when a price or increment is zero or negative.
// Callers treat it as a validation failure, not a retriable condition.
var ErrNotPositive = errors.New("price and increment must be positive")

// CorrectPrice floors price to the nearest multiple of increment.
// Exchanges reject orders whose price is not aligned to the instrument's
// minimum price step, so every limit and stop price goes through here.
func CorrectPrice(price, increment decimal.Decimal) (decimal.Decimal, error) {
	if price.Sign() <= 0 || increment.Sign() <= 0 {
		return decimal.Zero, ErrNotPositive
	}
	steps := price.Div(increment).Floor()
	return steps.Mul(increment), nil
}

// Lots converts a raw unit count into whole lots, truncating toward zero.
// A non-positive lot size yields zero lots.
func Lots(units, lot int64) int64 {
	if lot <= 0 || units <= 0 {
		return 0
	}
	return units / lot
}

// LotAligned floors units down to a whole multiple of the lot size.
func LotAligned(units, lot int64) int64 {
	return Lots(units, lot) * lot
}
