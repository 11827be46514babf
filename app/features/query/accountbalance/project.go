package accountbalance

import (
	"github.com/shopspring/decimal"

	"github.com/contacorrente/ledger/ledger"
)

// ProjectBalance folds movements into a balance: the sum of credits minus the sum of debits.
// It is a pure function, zero without movements. Movements with an unknown direction do not count.
func ProjectBalance(movements ledger.Movements) decimal.Decimal {
	balance := decimal.Zero

	for _, movement := range movements {
		balance = balance.Add(movement.SignedAmount())
	}

	return balance
}
