package ledger

import "github.com/shopspring/decimal"

// SatDec decrements a counter without going below zero.
func SatDec(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}

// SatAdd accumulates a running decimal total, clamping at zero so a
// corrupt negative input can never drive an aggregate negative.
func SatAdd(total, delta decimal.Decimal) decimal.Decimal {
	sum := total.Add(delta)
	if sum.IsNegative() {
		return decimal.Zero
	}
	return sum
}

// ClampNonNegative floors a decimal at zero.
func ClampNonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
