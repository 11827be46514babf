package accountbalance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/contacorrente/ledger/ledger"
)

// AccountBalance is the balance of an account at QueryTimestamp.
type AccountBalance struct {
	AccountID      ledger.AccountID
	AccountNumber  int
	HolderName     string
	QueryTimestamp time.Time
	Balance        decimal.Decimal
	MovementCount  int
}
