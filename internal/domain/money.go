package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places every stored amount carries.
const MoneyScale = 2

// SettlementTolerance is how far below zero-remaining an invoice may sit and
// still count as settled. Amounts are validated to MoneyScale on the way in,
// so exact comparison after rounding is safe and the tolerance is zero.
var SettlementTolerance = decimal.Zero

// ValidateAmount checks a caller-supplied monetary amount.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("ValidateAmount: %w", ErrInvalidAmount)
	}
	if !amount.Equal(amount.Round(MoneyScale)) {
		return fmt.Errorf("ValidateAmount: %w", ErrAmountPrecision)
	}
	return nil
}

// Quantize rounds to the storage scale.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// IsSettled reports whether a remaining balance counts as fully paid.
func IsSettled(remaining decimal.Decimal) bool {
	return Quantize(remaining).LessThanOrEqual(SettlementTolerance)
}

// ValidateWithin is ValidateAmount plus a ceiling: amount must not exceed
// remaining.
func ValidateWithin(amount, remaining decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if amount.GreaterThan(Quantize(remaining)) {
		return fmt.Errorf("ValidateWithin: %w", ErrAmountExceedsRemaining)
	}
	return nil
}
