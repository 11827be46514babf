package ledger

import (
	"github.com/shopspring/decimal"
)

const (
	// MaxAmountFractionDigits is the number of cents digits a movement amount may carry.
	MaxAmountFractionDigits = 2

	// MaxAmountIntegerDigits bounds the integer part of a movement amount.
	MaxAmountIntegerDigits = 18
)

// IsValidAmount reports whether amount can be posted: greater than zero, at most
// MaxAmountFractionDigits fraction digits and at most MaxAmountIntegerDigits integer digits.
// The coefficient length and the exponent are checked before the amount is ever rescaled.
func IsValidAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}

	digits := amount.NumDigits()
	exponent := int(amount.Exponent())

	if digits+exponent > MaxAmountIntegerDigits {
		return false
	}

	if exponent >= -MaxAmountFractionDigits {
		return true
	}

	// the coefficient has fewer digits than the zeros it would need to drop
	if -exponent-MaxAmountFractionDigits >= digits {
		return false
	}

	return amount.Equal(amount.Truncate(MaxAmountFractionDigits))
}
