/*
Common guard helpers for the fixed-point amounts that flow through the pool
pricing code. Every user-supplied amount passes through here before it touches
a balance container.
*/

package utils

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance amount handling
var (
	ErrAmountNil      = errors.New("amount is nil")
	ErrAmountNegative = errors.New("amount is negative")
	ErrAmountZero     = errors.New("amount is zero")
	ErrPctOutOfRange  = errors.New("percentage out of range")
)

// ValidateAmount rejects nil, zero and negative amounts.
func ValidateAmount(amount sdkmath.LegacyDec) error {
	if amount.IsNil() {
		return ErrAmountNil
	}
	if amount.IsNegative() {
		return ErrAmountNegative
	}
	if amount.IsZero() {
		return ErrAmountZero
	}
	return nil
}

// ValidatePct rejects nil percentages and values outside [0, 100].
func ValidatePct(pct sdkmath.LegacyDec) error {
	if pct.IsNil() {
		return ErrAmountNil
	}
	if pct.IsNegative() || pct.GT(sdkmath.LegacyNewDec(100)) {
		return fmt.Errorf("%w: %s", ErrPctOutOfRange, pct.String())
	}
	return nil
}

// PctOf returns amount * pct / 100 without rounding the intermediate product.
func PctOf(amount, pct sdkmath.LegacyDec) sdkmath.LegacyDec {
	return amount.Mul(pct).Quo(sdkmath.LegacyNewDec(100))
}

// MaxDec returns the larger of two decimals.
func MaxDec(a, b sdkmath.LegacyDec) sdkmath.LegacyDec {
	if a.GT(b) {
		return a
	}
	return b
}

// MinDec returns the smaller of two decimals.
func MinDec(a, b sdkmath.LegacyDec) sdkmath.LegacyDec {
	if a.LT(b) {
		return a
	}
	return b
}
